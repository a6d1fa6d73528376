package tool

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
)

const defaultSearchResults = 5

type searchMailSvc interface {
	ListMessages(ctx context.Context, q, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error)
	GetMessageMetadata(ctx context.Context, msgID string) (*gmail.Message, error)
}

// NewEmailSearch creates the past-email search tool.
func NewEmailSearch(svc searchMailSvc, logger *slog.Logger) *EmailSearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailSearch{
		svc:    svc,
		logger: logger,
	}
}

// EmailSearch finds earlier conversations via Gmail query syntax so
// drafts can reference past proposals, invoices or threads.
type EmailSearch struct {
	svc    searchMailSvc
	logger *slog.Logger
}

func (t *EmailSearch) Name() string { return "search_emails" }

func (t *EmailSearch) Description() string {
	return "Search through past emails using Gmail query syntax. " +
		"Use this when someone references a previous email, proposal, " +
		"document, or conversation. Examples: 'from:john proposal', " +
		"'subject:invoice after:2024/01/01', 'has:attachment contract'"
}

func (t *EmailSearch) Parameters() []Param {
	return []Param{
		{
			Name: "query",
			Type: "string",
			Description: "Gmail search query. Supports: from:, to:, subject:, " +
				"has:attachment, after:, before:, is:unread, label:, " +
				"and free text search.",
			Required: true,
		},
		{
			Name:        "max_results",
			Type:        "integer",
			Description: "Maximum number of results to return. Default: 5",
		},
	}
}

func (t *EmailSearch) Execute(ctx context.Context, args map[string]any) Result {
	query := strings.TrimSpace(argString(args, "query"))
	if query == "" {
		return Fail("search query cannot be empty")
	}
	maxResults := argInt(args, "max_results", defaultSearchResults)

	resp, err := t.svc.ListMessages(ctx, query, "", int64(maxResults))
	if err != nil {
		return Fail(fmt.Sprintf("Gmail API error: %v", err))
	}

	if len(resp.Messages) == 0 {
		return Empty(fmt.Sprintf("No emails found matching: %s", query))
	}

	totalCount := int(resp.ResultSizeEstimate)
	if totalCount < len(resp.Messages) {
		totalCount = len(resp.Messages)
	}

	var summaries []map[string]any
	var displays []string
	for _, m := range resp.Messages {
		msg, err := t.svc.GetMessageMetadata(ctx, m.Id)
		if err != nil {
			// A single unreadable hit should not sink the search.
			t.logger.Warn("failed to fetch message metadata", "message_id", m.Id, "error", err)
			continue
		}
		summary, display := emailSummary(msg)
		summaries = append(summaries, summary)
		displays = append(displays, display)
	}

	return OK(map[string]any{
		"query":       query,
		"total_count": totalCount,
		"emails":      summaries,
		"summary":     searchSummary(query, totalCount, displays),
	}, map[string]any{
		"result_count": len(summaries),
	})
}

func emailSummary(msg *gmail.Message) (map[string]any, string) {
	headers := map[string]string{}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers[strings.ToLower(h.Name)] = h.Value
		}
	}

	subject, ok := headers["subject"]
	if !ok || subject == "" {
		subject = "(no subject)"
	}
	sender := headers["from"]
	if sender == "" {
		sender = "Unknown"
	}

	date := parseEmailDate(headers["date"])
	display := fmt.Sprintf("[%s] %s: %s", date.Format("Jan 02, 2006"), sender, subject)

	return map[string]any{
		"message_id": msg.Id,
		"thread_id":  msg.ThreadId,
		"subject":    subject,
		"sender":     sender,
		"date":       date.Format(time.RFC3339),
		"snippet":    msg.Snippet,
	}, display
}

var tzAbbrevRe = regexp.MustCompile(`\s*\([A-Z]{2,4}\)\s*$`)

var emailDateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05",
	"2006-01-02 15:04:05",
}

// parseEmailDate tries the usual Date header layouts, falling back to
// now when nothing matches.
func parseEmailDate(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}

	cleaned := strings.TrimSpace(tzAbbrevRe.ReplaceAllString(raw, ""))
	for _, layout := range emailDateLayouts {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return parsed
		}
	}

	return time.Now()
}

func searchSummary(query string, totalCount int, displays []string) string {
	if len(displays) == 0 {
		return fmt.Sprintf("No emails found matching: %s", query)
	}

	lines := []string{fmt.Sprintf("Found %d email(s) matching '%s':", totalCount, query)}
	for i, d := range displays {
		if i == 5 {
			break
		}
		lines = append(lines, "  - "+d)
	}
	if len(displays) > 5 {
		lines = append(lines, fmt.Sprintf("  ... and %d more", totalCount-5))
	}

	return strings.Join(lines, "\n")
}
