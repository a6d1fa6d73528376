// Package draft turns email threads into reply drafts: tone detection,
// prompt construction, LLM generation and deterministic cleanup.
package draft

import (
	"fmt"
	"strings"

	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/sanitize"
)

const toneDetectionPrompt = `Analyze the following email messages and determine the overall tone of the conversation.

Email Thread:
%s

Based on the sender's writing style, classify the tone as one of:
- "formal" (professional, business-like, uses full sentences, proper greetings)
- "casual" (friendly, relaxed, may use contractions, informal greetings)

Respond with ONLY a JSON object in this exact format:
{"tone": "formal" or "casual", "confidence": 0.0 to 1.0}

JSON Response:`

const standardDraftPrompt = `You are an AI assistant that drafts email replies. Your task is to write a reply that:
1. Matches the tone of the conversation (%[1]s)
2. Addresses all points/questions in the most recent email
3. Is concise and natural-sounding
4. Does NOT include a subject line
5. Does NOT include email headers (To, From, etc.)
6. Does NOT include any signature, sign-off, or closing (this will be added automatically)

User's email: %[2]s

Email Thread (oldest to newest):
%[3]s

Write a reply to the most recent email. The reply should:
- Start with an appropriate greeting (e.g., "Hi John," or "Dear John,")
- Address the content naturally
- Be written in %[1]s tone
- Be concise (2-4 sentences for simple emails, more if needed for complex topics)
- IMPORTANT: End with the last sentence of your message. Do NOT add any closing like "Kind regards", "Best regards", "Thanks", "Cheers", "Sincerely", etc. The signature is added separately.

Draft Reply:`

const memoryDraftPrompt = `You are an AI assistant that drafts email replies. Your task is to write a reply that matches the user's established communication style with this specific contact.

=== USER INFO ===
User's email: %[1]s

=== RECIPIENT INFO ===
Recipient: %[2]s (%[3]s)

=== CONTACT MEMORY (learned from past emails) ===
Preferred tone with this contact: %[4]s
Formality level: %[5]s/1.0
Typical greeting: %[6]s
Response length preference: %[7]s
Recent topics discussed: %[8]s

=== EMAIL THREAD (oldest to newest) ===
%[9]s

Write a reply to the most recent email. The reply should:
- Use greeting style similar to: %[6]s (or appropriate variation)
- Match the %[4]s tone (formality: %[5]s/1.0)
- Target %[7]s length
- Reference relevant prior topics if naturally applicable
- Address all points in the latest email
- IMPORTANT: End with the last sentence of your message. Do NOT add any closing like "Kind regards", "Best regards", "Thanks", "Cheers", "Sincerely", etc. The signature is added separately.

Draft Reply:`

// FormatThread renders a thread as numbered emails, oldest first, with
// sanitized bodies.
func FormatThread(thread []gservice.EmailMessage) string {
	var blocks []string

	for i, msg := range thread {
		from := msg.FromEmail
		if from == "" {
			from = "Unknown"
		}
		to := msg.ToEmail
		if to == "" {
			to = "Unknown"
		}
		date := msg.Date
		if date == "" {
			date = "Unknown"
		}
		subject := msg.Subject
		if subject == "" {
			subject = "No Subject"
		}

		blocks = append(blocks, fmt.Sprintf("--- Email %d ---\nFrom: %s\nTo: %s\nDate: %s\nSubject: %s\n\n%s\n",
			i+1, from, to, date, sanitize.ForPrompt(subject, sanitize.MaxSubjectLength),
			sanitize.ForPrompt(msg.Body, sanitize.MaxBodyLength)))
	}

	return strings.Join(blocks, "\n")
}
