package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/llm"
)

// NewToneDetector creates the tone detector.
func NewToneDetector(completer llm.Completer, logger *slog.Logger) *ToneDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToneDetector{
		llm:    completer,
		logger: logger,
	}
}

// ToneDetector scores a thread as formal or casual with one low
// temperature LLM call.
type ToneDetector struct {
	llm    llm.Completer
	logger *slog.Logger
}

// DetectTone classifies the conversation tone. Any LLM or parse failure
// degrades to ("formal", 0.5) rather than erroring.
func (d *ToneDetector) DetectTone(ctx context.Context, thread []gservice.EmailMessage) (string, float64) {
	prompt := fmt.Sprintf(toneDetectionPrompt, FormatThread(thread))

	raw, err := d.llm.Complete(ctx, prompt, llm.Options{Temperature: 0.3, MaxTokens: 100})
	if err != nil {
		d.logger.Warn("tone detection call failed", "error", err)
		return "formal", 0.5
	}

	var parsed struct {
		Tone       string  `json:"tone"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &parsed); err != nil {
		d.logger.Warn("failed to parse tone detection response", "error", err)
		return "formal", 0.5
	}

	tone := strings.ToLower(parsed.Tone)
	if tone != "formal" && tone != "casual" {
		tone = "formal"
	}

	confidence := parsed.Confidence
	if confidence == 0 {
		confidence = 0.7
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return tone, confidence
}
