package gservice

import (
	"encoding/base64"
	"regexp"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// EmailMessage is a Gmail message parsed down to the fields the agent
// pipeline works with.
type EmailMessage struct {
	MessageID    string
	ThreadID     string
	Subject      string
	FromEmail    string
	FromName     string
	ToEmail      string
	Date         string
	Body         string
	Snippet      string
	LabelIDs     []string
	RFCMessageID string
	InReplyTo    string
	References   string
}

// Sender local parts that mark automated mail the agent must never
// answer.
var neverRespondPatterns = []*regexp.Regexp{
	regexp.MustCompile(`noreply@`),
	regexp.MustCompile(`no-reply@`),
	regexp.MustCompile(`donotreply@`),
	regexp.MustCompile(`do-not-reply@`),
	regexp.MustCompile(`mailer-daemon@`),
	regexp.MustCompile(`postmaster@`),
	regexp.MustCompile(`notifications@`),
	regexp.MustCompile(`notification@`),
	regexp.MustCompile(`alert@`),
	regexp.MustCompile(`alerts@`),
	regexp.MustCompile(`bounce@`),
	regexp.MustCompile(`automated@`),
	regexp.MustCompile(`auto-reply@`),
	regexp.MustCompile(`autoreply@`),
}

// Subject/body phrases that mark an automatic reply.
var autoReplyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`out of office`),
	regexp.MustCompile(`out-of-office`),
	regexp.MustCompile(`automatic reply`),
	regexp.MustCompile(`auto-reply`),
	regexp.MustCompile(`autoreply`),
	regexp.MustCompile(`away from.*office`),
	regexp.MustCompile(`on vacation`),
	regexp.MustCompile(`on leave`),
	regexp.MustCompile(`currently unavailable`),
}

// ShouldSkipSender reports whether the sender looks automated
// (noreply@, mailer-daemon@ and friends).
func ShouldSkipSender(senderEmail string) bool {
	lower := strings.ToLower(senderEmail)
	for _, re := range neverRespondPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// IsAutoReply reports whether subject/body look like an out-of-office
// or other automatic reply.
func IsAutoReply(subject, body string) bool {
	text := strings.ToLower(subject + " " + body)
	for _, re := range autoReplyPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

var addressRe = regexp.MustCompile(`^"?([^"<]*)"?\s*<([^>]+)>$`)

// ParseAddress splits a From header into display name and address.
// "John Smith <john@example.com>" yields ("John Smith",
// "john@example.com"); a bare address yields an empty name.
func ParseAddress(header string) (name, email string) {
	trimmed := strings.TrimSpace(header)
	if m := addressRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return "", trimmed
}

// ParseMessage converts a raw Gmail API message into an EmailMessage.
func ParseMessage(msg *gmail.Message) EmailMessage {
	headers := map[string]string{}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers[strings.ToLower(h.Name)] = h.Value
		}
	}

	fromName, fromEmail := ParseAddress(headers["from"])

	subject, ok := headers["subject"]
	if !ok || subject == "" {
		subject = "(no subject)"
	}

	return EmailMessage{
		MessageID:    msg.Id,
		ThreadID:     msg.ThreadId,
		Subject:      subject,
		FromEmail:    fromEmail,
		FromName:     fromName,
		ToEmail:      headers["to"],
		Date:         headers["date"],
		Body:         extractBody(msg.Payload),
		Snippet:      msg.Snippet,
		LabelIDs:     msg.LabelIds,
		RFCMessageID: headers["message-id"],
		InReplyTo:    headers["in-reply-to"],
		References:   headers["references"],
	}
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// extractBody walks the MIME tree for the text/plain part, falling back
// to tag-stripped text/html.
func extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}

	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			return decodeBody(part.Body.Data)
		}
		if len(part.Parts) > 0 {
			if body := extractBody(part); body != "" {
				return body
			}
		}
	}

	for _, part := range payload.Parts {
		if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
			html := decodeBody(part.Body.Data)
			return htmlTagRe.ReplaceAllString(html, "")
		}
	}

	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(data)
	if err != nil {
		// Some providers pad the payload anyway.
		decoded, err = base64.URLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}
