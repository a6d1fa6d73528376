// Package style learns per-contact writing preferences from the emails
// the agent sends, feeding future draft personalization.
package style

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hal9000y/gmail-agent/internal/llm"
	"github.com/hal9000y/gmail-agent/internal/store"
)

const analysisPrompt = `Analyze this sent email to extract the writer's style preferences.

Email sent to: %s
Recipient name: %s

Email body:
%s

Previous thread context (if any):
%s

Extract and return as JSON:
{
    "tone": "formal" or "casual",
    "greeting_used": "the exact greeting used, e.g., 'Hi John,' or 'Dear Mr. Smith,' or empty if none",
    "formality_score": 0.0 to 1.0 (0 = very casual, 1 = very formal),
    "response_length": "short" (1-2 sentences), "medium" (3-5 sentences), or "long" (6+ sentences),
    "topics_discussed": ["list", "of", "main", "topics", "max 3"]
}

JSON Response:`

// Analysis is the style extracted from one sent email.
type Analysis struct {
	Tone            string   `json:"tone"`
	GreetingUsed    string   `json:"greeting_used"`
	FormalityScore  float64  `json:"formality_score"`
	ResponseLength  string   `json:"response_length"`
	TopicsDiscussed []string `json:"topics_discussed"`
}

type memoryStore interface {
	Get(email string) (*store.ContactMemory, error)
	UpdateStyle(email string, style store.ContactStyle) error
	UpdateName(email, name string) error
	AddTopic(email string, topic store.ContactTopic) error
}

// NewLearner creates the style learner.
func NewLearner(completer llm.Completer, contacts memoryStore, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{
		llm:      completer,
		contacts: contacts,
		now:      time.Now,
		logger:   logger,
	}
}

// Learner analyzes sent emails and merges the findings into contact
// memory. Everything here is best-effort personalization; failures are
// logged and swallowed.
type Learner struct {
	llm      llm.Completer
	contacts memoryStore
	now      func() time.Time
	logger   *slog.Logger
}

// Analyze extracts style signals from a sent email body. Parse or LLM
// failures return a neutral default instead of an error.
func (l *Learner) Analyze(ctx context.Context, sentBody, recipientEmail, recipientName string, threadContext []string) Analysis {
	fallback := Analysis{
		Tone:           "formal",
		FormalityScore: 0.5,
		ResponseLength: "medium",
	}

	contextText := "None"
	if len(threadContext) > 0 {
		contextText = strings.Join(threadContext, "\n---\n")
	}
	if recipientName == "" {
		recipientName = "Unknown"
	}

	prompt := fmt.Sprintf(analysisPrompt, recipientEmail, recipientName, sentBody, contextText)

	raw, err := l.llm.Complete(ctx, prompt, llm.Options{Temperature: 0.3, MaxTokens: 300})
	if err != nil {
		l.logger.Warn("style analysis call failed", "error", err)
		return fallback
	}

	var parsed Analysis
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &parsed); err != nil {
		l.logger.Warn("failed to parse style analysis response", "error", err)
		return fallback
	}

	parsed.Tone = strings.ToLower(parsed.Tone)
	if parsed.Tone == "" {
		parsed.Tone = "formal"
	}
	if parsed.ResponseLength == "" {
		parsed.ResponseLength = "medium"
	}
	if len(parsed.TopicsDiscussed) > 3 {
		parsed.TopicsDiscussed = parsed.TopicsDiscussed[:3]
	}

	return parsed
}

// Merge folds a new analysis into an existing profile. The first sample
// adopts the analysis wholesale; afterwards the formality score is a
// 70/30 weighted average favoring history, and tone only flips once the
// averaged score clearly crosses the casual/formal thresholds.
func Merge(existing *store.ContactStyle, analysis Analysis) store.ContactStyle {
	if existing == nil || existing.SampleCount == 0 {
		return store.ContactStyle{
			Tone:               analysis.Tone,
			GreetingPreference: analysis.GreetingUsed,
			FormalityScore:     analysis.FormalityScore,
			AvgResponseLength:  analysis.ResponseLength,
			SampleCount:        1,
		}
	}

	formality := 0.7*existing.FormalityScore + 0.3*analysis.FormalityScore
	formality = float64(int(formality*100+0.5)) / 100

	tone := existing.Tone
	if formality < 0.4 {
		tone = "casual"
	} else if formality > 0.6 {
		tone = "formal"
	}

	greeting := existing.GreetingPreference
	if analysis.GreetingUsed != "" {
		greeting = analysis.GreetingUsed
	}

	length := existing.AvgResponseLength
	if analysis.ResponseLength != "" {
		length = analysis.ResponseLength
	}

	return store.ContactStyle{
		Tone:               tone,
		GreetingPreference: greeting,
		FormalityScore:     formality,
		AvgResponseLength:  length,
		SampleCount:        existing.SampleCount + 1,
	}
}

// LearnFromSent runs the full learning flow for one sent email:
// analyze, merge, persist style, record name and topics. Never returns
// an error; a failed send-side learning pass must not affect the reply
// that already went out.
func (l *Learner) LearnFromSent(ctx context.Context, sentBody, recipientEmail, recipientName string, threadContext []string) {
	analysis := l.Analyze(ctx, sentBody, recipientEmail, recipientName, threadContext)

	l.logger.Info("style analysis",
		"recipient", recipientEmail,
		"tone", analysis.Tone,
		"formality", analysis.FormalityScore)

	existing, err := l.contacts.Get(recipientEmail)
	if err != nil {
		l.logger.Warn("failed to load contact memory", "error", err)
		return
	}

	var existingStyle *store.ContactStyle
	if existing != nil {
		existingStyle = &existing.Style
	}
	merged := Merge(existingStyle, analysis)

	if err := l.contacts.UpdateStyle(recipientEmail, merged); err != nil {
		l.logger.Warn("failed to update contact style", "error", err)
		return
	}

	if recipientName != "" {
		if err := l.contacts.UpdateName(recipientEmail, recipientName); err != nil {
			l.logger.Warn("failed to update contact name", "error", err)
		}
	}

	now := l.now().UTC()
	snippet := sentBody
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	for _, topic := range analysis.TopicsDiscussed {
		if strings.TrimSpace(topic) == "" {
			continue
		}
		err := l.contacts.AddTopic(recipientEmail, store.ContactTopic{
			Topic:          topic,
			LastMentioned:  now,
			ContextSnippet: snippet,
		})
		if err != nil {
			l.logger.Warn("failed to record topic", "topic", topic, "error", err)
		}
	}
}
