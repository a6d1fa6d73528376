// Package llm wraps the OpenAI chat-completion API behind a small
// text-in/text-out interface consumed by planning, drafting and style
// analysis.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// Options tune a single completion call.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Completer is the contract the agent pipeline depends on. The concrete
// client is injected at process start.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Client is the OpenAI-backed Completer.
type Client struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewClient creates an OpenAI client for the given key and model.
func NewClient(apiKey, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Complete sends a single-user-message chat completion and returns the
// first choice's text.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	c.logger.Debug("llm completion", "model", c.model, "prompt_len", len(prompt))

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("CreateChatCompletion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
