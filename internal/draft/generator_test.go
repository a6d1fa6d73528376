package draft_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-agent/internal/draft"
	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/llm"
	"github.com/hal9000y/gmail-agent/internal/store"
)

type completerMock struct {
	CompleteFunc func(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

func (m *completerMock) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	return m.CompleteFunc(ctx, prompt, opts)
}

type contactsMock struct {
	memory *store.ContactMemory
}

func (m *contactsMock) Get(_ string) (*store.ContactMemory, error) {
	return m.memory, nil
}

func sampleThread() []gservice.EmailMessage {
	return []gservice.EmailMessage{{
		FromEmail: "anna@example.com",
		ToEmail:   "me@example.com",
		Subject:   "Sync?",
		Body:      "Can we meet tomorrow?",
	}}
}

func TestGenerateStandardPath(t *testing.T) {
	completer := &completerMock{
		CompleteFunc: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
			if strings.Contains(prompt, "classify the tone") {
				return `{"tone": "casual", "confidence": 0.8}`, nil
			}
			require.Contains(t, prompt, "casual")
			require.Contains(t, prompt, "Can we meet tomorrow?")
			return "Tomorrow works for me.\n\nBest regards,", nil
		},
	}
	g := draft.NewGenerator(completer, draft.NewToneDetector(completer, nil), nil, draft.Options{}, nil)

	res, err := g.Generate(context.Background(), sampleThread(), "me@example.com", "anna@example.com", "Anna")
	require.NoError(t, err)

	assert.Equal(t, "Tomorrow works for me.", res.Text, "sign-off is stripped")
	assert.Equal(t, "casual", res.Tone)
	assert.Equal(t, 0.8, res.Confidence)
}

func TestGenerateWithMemory(t *testing.T) {
	contacts := &contactsMock{memory: &store.ContactMemory{
		Email: "anna@example.com",
		Name:  "Anna Kovacs",
		Style: store.ContactStyle{
			Tone:               "casual",
			GreetingPreference: "Hi Anna,",
			FormalityScore:     0.3,
			AvgResponseLength:  "short",
			SampleCount:        2,
		},
		Topics: []store.ContactTopic{{Topic: "project kickoff"}},
	}}

	var prompt string
	completer := &completerMock{
		CompleteFunc: func(_ context.Context, p string, _ llm.Options) (string, error) {
			prompt = p
			return "Hi Anna, tomorrow works.", nil
		},
	}
	g := draft.NewGenerator(completer, draft.NewToneDetector(completer, nil), contacts, draft.Options{}, nil)

	res, err := g.Generate(context.Background(), sampleThread(), "me@example.com", "anna@example.com", "")
	require.NoError(t, err)

	assert.Contains(t, prompt, "Hi Anna,")
	assert.Contains(t, prompt, "project kickoff")
	assert.Contains(t, prompt, "Anna Kovacs", "name falls back to memory when not provided")
	assert.Equal(t, "casual", res.Tone)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9, "0.7 plus 0.05 per sample")
}

func TestGenerateMemoryConfidenceCap(t *testing.T) {
	contacts := &contactsMock{memory: &store.ContactMemory{
		Email: "anna@example.com",
		Style: store.ContactStyle{Tone: "formal", SampleCount: 10},
	}}
	completer := &completerMock{
		CompleteFunc: func(_ context.Context, _ string, _ llm.Options) (string, error) {
			return "Certainly.", nil
		},
	}
	g := draft.NewGenerator(completer, draft.NewToneDetector(completer, nil), contacts, draft.Options{}, nil)

	res, err := g.Generate(context.Background(), sampleThread(), "me@example.com", "anna@example.com", "Anna")
	require.NoError(t, err)

	assert.Equal(t, 0.9, res.Confidence)
}

func TestGenerateWithoutMemoryFallsBackToToneDetection(t *testing.T) {
	// Tone call fails, drafting succeeds: the default formal tone rides
	// through.
	completer := &completerMock{
		CompleteFunc: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
			if strings.Contains(prompt, "classify the tone") {
				return "", fmt.Errorf("simulated error")
			}
			return "Certainly, tomorrow suits me.", nil
		},
	}
	g := draft.NewGenerator(completer, draft.NewToneDetector(completer, nil), &contactsMock{}, draft.Options{}, nil)

	res, err := g.Generate(context.Background(), sampleThread(), "me@example.com", "anna@example.com", "Anna")
	require.NoError(t, err)

	assert.Equal(t, "formal", res.Tone)
	assert.Equal(t, 0.5, res.Confidence)
}

func TestGenerateDraftCallFails(t *testing.T) {
	completer := &completerMock{
		CompleteFunc: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
			if strings.Contains(prompt, "classify the tone") {
				return `{"tone": "formal", "confidence": 0.9}`, nil
			}
			return "", fmt.Errorf("simulated error")
		},
	}
	g := draft.NewGenerator(completer, draft.NewToneDetector(completer, nil), nil, draft.Options{}, nil)

	_, err := g.Generate(context.Background(), sampleThread(), "me@example.com", "anna@example.com", "Anna")
	assert.Error(t, err)
}
