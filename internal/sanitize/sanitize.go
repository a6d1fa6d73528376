// Package sanitize filters mailbox-controlled text before it reaches LLM
// prompts or log lines.
package sanitize

import (
	"regexp"
)

// Patterns that indicate prompt-injection attempts in inbound email text.
var injectionPatterns = []*regexp.Regexp{
	// Instruction override
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous\s+|prior\s+)?instructions?`),
	regexp.MustCompile(`(?i)disregard\s+(the\s+)?(above|previous|prior)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous\s+|prior\s+)?instructions?`),
	regexp.MustCompile(`(?i)override\s+(all\s+)?(previous\s+|prior\s+)?instructions?`),
	regexp.MustCompile(`(?i)skip\s+(all\s+)?(previous\s+|prior\s+)?instructions?`),
	// Injected instructions
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)updated\s+instructions?:`),
	regexp.MustCompile(`(?i)system\s+prompt:`),
	regexp.MustCompile(`(?i)admin\s+override:`),
	regexp.MustCompile(`(?i)developer\s+mode:`),
	// Role manipulation
	regexp.MustCompile(`(?i)you\s+are\s+now\s+a`),
	regexp.MustCompile(`(?i)act\s+as\s+(a\s+)?different`),
	regexp.MustCompile(`(?i)pretend\s+(you\s+are|to\s+be)`),
	regexp.MustCompile(`(?i)switch\s+to\s+.+\s+mode`),
	// Output manipulation
	regexp.MustCompile(`(?i)respond\s+with\s+only`),
	regexp.MustCompile(`(?i)output\s+only`),
	regexp.MustCompile(`(?i)reply\s+with\s+exactly`),
	// Exfiltration
	regexp.MustCompile(`(?i)list\s+all\s+(your\s+)?instructions`),
	regexp.MustCompile(`(?i)show\s+(me\s+)?(your\s+)?system\s+prompt`),
	regexp.MustCompile(`(?i)reveal\s+(your\s+)?configuration`),
	regexp.MustCompile(`(?i)what\s+are\s+your\s+instructions`),
	// Jailbreaks
	regexp.MustCompile(`(?i)dan\s+mode`),
	regexp.MustCompile(`(?i)jailbreak`),
	regexp.MustCompile(`(?i)bypass\s+(safety|filter|restriction)`),
}

var (
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	manySpaces   = regexp.MustCompile(` {3,}`)
)

// Default length limits for email content.
const (
	MaxSubjectLength = 500
	MaxBodyLength    = 50000
)

// ForPrompt neutralizes injection patterns, collapses whitespace runs and
// truncates to maxLength (0 disables truncation).
func ForPrompt(text string, maxLength int) string {
	if text == "" {
		return ""
	}

	out := text
	for _, re := range injectionPatterns {
		out = re.ReplaceAllString(out, "[FILTERED]")
	}

	out = manyNewlines.ReplaceAllString(out, "\n\n")
	out = manySpaces.ReplaceAllString(out, "  ")

	if maxLength > 0 && len(out) > maxLength {
		out = out[:maxLength] + "... [TRUNCATED]"
	}

	return out
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	phoneRe = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	cardRe  = regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)
	keyRe   = regexp.MustCompile(`(?i)\b(sk-|api[_-]?key[=:]\s*)[a-zA-Z0-9]{20,}\b`)
)

// RedactForLogging masks addresses, phone numbers, card numbers and API
// keys so raw mailbox content never lands in logs. The mail domain is
// kept for debugging.
func RedactForLogging(text string) string {
	if text == "" {
		return ""
	}

	out := emailRe.ReplaceAllString(text, "[EMAIL]@$1")
	out = phoneRe.ReplaceAllString(out, "[PHONE]")
	out = cardRe.ReplaceAllString(out, "[CARD]")
	out = keyRe.ReplaceAllString(out, "$1[REDACTED]")

	return out
}
