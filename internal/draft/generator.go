package draft

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/llm"
	"github.com/hal9000y/gmail-agent/internal/store"
)

type contactMemorySvc interface {
	Get(email string) (*store.ContactMemory, error)
}

// Result is a generated draft with its detected tone and confidence.
type Result struct {
	Text       string
	Tone       string
	Confidence float64
}

// Options tune the generator's LLM calls.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// NewGenerator creates the draft generator. contacts may be nil, which
// disables the memory-enhanced path.
func NewGenerator(completer llm.Completer, tone *ToneDetector, contacts contactMemorySvc, opts Options, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		llm:      completer,
		tone:     tone,
		contacts: contacts,
		opts:     opts,
		logger:   logger,
	}
}

// Generator produces reply drafts. When a learned style profile exists
// for the recipient it drives the prompt; otherwise tone is detected
// per-thread.
type Generator struct {
	llm      llm.Completer
	tone     *ToneDetector
	contacts contactMemorySvc
	opts     Options
	logger   *slog.Logger
}

// Generate drafts a reply to the most recent message of the thread.
// The returned text is already cleaned up (no trailing sign-offs, no
// duplicate paragraphs).
func (g *Generator) Generate(ctx context.Context, thread []gservice.EmailMessage, userEmail, recipientEmail, recipientName string) (Result, error) {
	threadText := FormatThread(thread)

	var memory *store.ContactMemory
	if g.contacts != nil && recipientEmail != "" {
		m, err := g.contacts.Get(recipientEmail)
		if err != nil {
			g.logger.Warn("contact memory lookup failed", "error", err)
		} else {
			memory = m
		}
	}

	if memory != nil && memory.Style.SampleCount > 0 {
		return g.generateWithMemory(ctx, threadText, userEmail, recipientEmail, recipientName, memory)
	}

	return g.generateStandard(ctx, thread, threadText, userEmail)
}

func (g *Generator) generateStandard(ctx context.Context, thread []gservice.EmailMessage, threadText, userEmail string) (Result, error) {
	tone, confidence := g.tone.DetectTone(ctx, thread)
	g.logger.Info("detected tone", "tone", tone, "confidence", confidence)

	prompt := fmt.Sprintf(standardDraftPrompt, tone, userEmail, threadText)

	raw, err := g.llm.Complete(ctx, prompt, llm.Options{
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("llm.Complete failed: %w", err)
	}

	return Result{
		Text:       Cleanup(strings.TrimSpace(raw)),
		Tone:       tone,
		Confidence: confidence,
	}, nil
}

func (g *Generator) generateWithMemory(ctx context.Context, threadText, userEmail, recipientEmail, recipientName string, memory *store.ContactMemory) (Result, error) {
	style := memory.Style

	if recipientName == "" {
		recipientName = memory.Name
	}

	var topics []string
	for i, t := range memory.Topics {
		if i == 5 {
			break
		}
		topics = append(topics, t.Topic)
	}
	recentTopics := strings.Join(topics, ", ")
	if recentTopics == "" {
		recentTopics = "None recorded"
	}

	greeting := style.GreetingPreference
	if greeting == "" {
		greeting = "appropriate greeting"
	}

	g.logger.Info("using contact memory",
		"recipient", recipientEmail,
		"tone", style.Tone,
		"formality", style.FormalityScore,
		"samples", style.SampleCount)

	prompt := fmt.Sprintf(memoryDraftPrompt,
		userEmail,
		recipientName,
		recipientEmail,
		style.Tone,
		fmt.Sprintf("%.1f", style.FormalityScore),
		greeting,
		style.AvgResponseLength,
		recentTopics,
		threadText)

	raw, err := g.llm.Complete(ctx, prompt, llm.Options{
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("llm.Complete failed: %w", err)
	}

	confidence := 0.7 + 0.05*float64(style.SampleCount)
	if confidence > 0.9 {
		confidence = 0.9
	}

	return Result{
		Text:       Cleanup(strings.TrimSpace(raw)),
		Tone:       style.Tone,
		Confidence: confidence,
	}, nil
}
