package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-agent/internal/classify"
)

func newClassifier() *classify.Classifier {
	return classify.New(classify.Config{
		AlwaysNotifySenders: []string{"boss@corp.com", "@legal.example.com"},
		AutoRespondTypes: []string{
			"meeting_confirmation",
			"simple_acknowledgment",
			"scheduling_request",
			"status_update",
		},
	}, nil)
}

func TestClassifySenderOverride(t *testing.T) {
	c := newClassifier()

	cases := []struct {
		name   string
		sender string
	}{
		{name: "exact address", sender: "boss@corp.com"},
		{name: "case insensitive", sender: "Boss@Corp.com"},
		{name: "domain suffix", sender: "anyone@legal.example.com"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := c.Classify("Quick sync?", "Can we meet tomorrow?", tc.sender, nil)

			assert.Equal(t, classify.NeedsInput, res.Decision)
			assert.Equal(t, 1.0, res.Confidence)
			assert.Contains(t, res.Reason, "always_notify_senders")
		})
	}
}

func TestClassifyDecisionPriority(t *testing.T) {
	c := newClassifier()

	// Matches both money and choice; money sits earlier in the priority
	// order and forces approval.
	res := c.Classify(
		"Budget question",
		"Can you approve the $5,000 budget? Which option do you prefer?",
		"peer@example.com",
		nil,
	)

	assert.Equal(t, classify.NeedsApproval, res.Decision)
	assert.Equal(t, 0.85, res.Confidence)
	assert.Contains(t, res.MatchedPatterns, "money")
	assert.Contains(t, res.MatchedPatterns, "choice")
}

func TestClassifyChoiceOnly(t *testing.T) {
	c := newClassifier()

	res := c.Classify("Picking a vendor", "Do you prefer the first supplier or the second?", "peer@example.com", nil)

	assert.Equal(t, classify.NeedsChoice, res.Decision)
	assert.Contains(t, res.MatchedPatterns, "choice")
}

func TestClassifyAutoRespond(t *testing.T) {
	c := newClassifier()

	cases := []struct {
		name     string
		subject  string
		body     string
		category classify.Category
	}{
		{
			name:     "meeting confirmation",
			subject:  "Quick sync?",
			body:     "Can we meet tomorrow afternoon?",
			category: classify.CategoryMeetingConfirmation,
		},
		{
			name:     "scheduling request",
			subject:  "Availability",
			body:     "What's your availability next week?",
			category: classify.CategorySchedulingRequest,
		},
		{
			name:     "status update",
			subject:  "Your application",
			body:     "After careful consideration we will not be moving forward.",
			category: classify.CategoryStatusUpdate,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := c.Classify(tc.subject, tc.body, "peer@example.com", nil)

			require.Equal(t, classify.AutoRespond, res.Decision)
			assert.Equal(t, tc.category, res.Category)
			assert.GreaterOrEqual(t, res.Confidence, 0.6)
		})
	}
}

func TestClassifyCategoryNotAllowed(t *testing.T) {
	c := classify.New(classify.Config{AutoRespondTypes: []string{"status_update"}}, nil)

	// Detected as meeting confirmation but not in the allow-list.
	res := c.Classify("Quick sync?", "Can we meet tomorrow afternoon?", "peer@example.com", nil)

	assert.Equal(t, classify.NeedsInput, res.Decision)
	assert.Equal(t, 0.5, res.Confidence)
}

func TestClassifyDefault(t *testing.T) {
	c := newClassifier()

	res := c.Classify("", "", "peer@example.com", nil)

	assert.Equal(t, classify.NeedsInput, res.Decision)
	assert.Equal(t, classify.CategoryUnknown, res.Category)
	assert.Equal(t, 0.5, res.Confidence)
	assert.Empty(t, res.MatchedPatterns)
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		text     string
		expected string
	}{
		{text: "Hola, gracias por tu mensaje", expected: "es"},
		{text: "Bonjour, merci beaucoup", expected: "fr"},
		{text: "Hallo, vielen Dank", expected: "de"},
		{text: "Olá, tudo bem?", expected: "pt"},
		{text: "Ciao, grazie mille", expected: "it"},
		{text: "Hello, thanks a lot", expected: "en"},
		{text: "", expected: "en"},
	}

	for _, tc := range cases {
		t.Run(tc.expected+"/"+tc.text, func(t *testing.T) {
			assert.Equal(t, tc.expected, classify.DetectLanguage(tc.text))
		})
	}
}
