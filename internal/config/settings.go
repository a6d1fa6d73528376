// Package config loads environment settings and the user preferences file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Settings holds environment-driven configuration.
type Settings struct {
	OpenAIAPIKey string
	OpenAIModel  string
	Temperature  float32
	MaxTokens    int

	LabelRespond string
	LabelDone    string
	LabelPending string

	PubSubTopic  string
	WebhookToken string
	DataDir      string
	Debug        bool
}

// LoadSettings reads settings from the environment, optionally loading an
// env file first. OPENAI_API_KEY is the only required variable.
func LoadSettings(envFile string) (*Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("godotenv.Load failed: %w", err)
		}
	}

	s := &Settings{
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  envOr("OPENAI_MODEL", "gpt-4o"),
		Temperature:  0.7,
		MaxTokens:    500,
		LabelRespond: envOr("LABEL_AGENT_RESPOND", "Agent Respond"),
		LabelDone:    envOr("LABEL_AGENT_DONE", "Agent Done"),
		LabelPending: envOr("LABEL_AGENT_PENDING", "Agent Pending"),
		PubSubTopic:  os.Getenv("PUBSUB_TOPIC"),
		WebhookToken: os.Getenv("WEBHOOK_TOKEN"),
		DataDir:      envOr("DATA_DIR", "./data"),
	}

	if s.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY must be set")
	}

	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid OPENAI_TEMPERATURE: %w", err)
		}
		s.Temperature = float32(f)
	}
	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid OPENAI_MAX_TOKENS: %w", err)
		}
		s.MaxTokens = n
	}
	if v := os.Getenv("DEBUG"); v != "" {
		s.Debug, _ = strconv.ParseBool(v)
	}

	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
