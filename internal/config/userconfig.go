package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// UserPreferences controls classification and drafting behavior.
type UserPreferences struct {
	DefaultTone          string   `yaml:"default_tone"`
	AlwaysNotifySenders  []string `yaml:"always_notify_senders"`
	AutoRespondTypes     []string `yaml:"auto_respond_types"`
}

// UserConfig is the user-editable configuration from config.yaml.
// Secrets stay in the environment; this file carries identity and
// preferences only.
type UserConfig struct {
	User struct {
		Email     string `yaml:"email"`
		Signature string `yaml:"signature"`
	} `yaml:"user"`
	Preferences UserPreferences `yaml:"preferences"`
}

// DefaultAutoRespondTypes lists the categories the agent handles on its
// own when no config.yaml overrides them.
var DefaultAutoRespondTypes = []string{
	"meeting_confirmation",
	"simple_acknowledgment",
	"scheduling_request",
	"status_update",
}

func defaultUserConfig() *UserConfig {
	cfg := &UserConfig{}
	cfg.Preferences.DefaultTone = "professional"
	cfg.Preferences.AutoRespondTypes = append([]string{}, DefaultAutoRespondTypes...)
	return cfg
}

// LoadUserConfig reads config.yaml from path. A missing file yields
// defaults, not an error; a malformed file is an error.
func LoadUserConfig(path string) (*UserConfig, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultUserConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile failed: %w", err)
	}

	cfg := defaultUserConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal failed: %w", err)
	}

	if cfg.Preferences.DefaultTone == "" {
		cfg.Preferences.DefaultTone = "professional"
	}
	if cfg.Preferences.AutoRespondTypes == nil {
		cfg.Preferences.AutoRespondTypes = append([]string{}, DefaultAutoRespondTypes...)
	}

	return cfg, nil
}
