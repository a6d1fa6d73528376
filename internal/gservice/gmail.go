// Package gservice wraps the Google API clients (Gmail, Calendar,
// People) used by the agent. Each client builds a fresh API service per
// call from the shared OAuth config and token.
package gservice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hal9000y/gmail-agent/internal/auth"
)

const gmailUserID = "me"

// HistoryRecord is one Gmail history entry, reduced to the change kinds
// ingestion cares about.
type HistoryRecord struct {
	HistoryID     uint64
	MessagesAdded []*gmail.Message
	LabelsAdded   []*gmail.HistoryLabelAdded
}

// NewGmail creates the Gmail client.
func NewGmail(cfg *oauth2.Config, tok *auth.Token) *GMail {
	return &GMail{
		cfg: cfg,
		tok: tok,
	}
}

// GMail provides the Gmail operations the agent needs: thread and
// message fetches, history diffs and threaded replies.
type GMail struct {
	cfg *oauth2.Config
	tok *auth.Token
}

// ListMessages searches the mailbox with Gmail query syntax.
func (m *GMail) ListMessages(ctx context.Context, q, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	call := svc.Users.Messages.List(gmailUserID).
		Q(q).
		PageToken(pageToken).
		MaxResults(maxResults)

	result, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("messages.List failed: %w", err)
	}

	return result, nil
}

// GetMessageMetadata fetches only the routing headers of a message.
func (m *GMail) GetMessageMetadata(ctx context.Context, msgID string) (*gmail.Message, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).
		Format("METADATA").
		MetadataHeaders("From", "To", "Cc", "Subject", "Date").
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get failed: %w", err)
	}

	return msg, nil
}

// GetThread fetches a full conversation, oldest message first.
func (m *GMail) GetThread(ctx context.Context, threadID string) ([]EmailMessage, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	thread, err := svc.Users.Threads.Get(gmailUserID, threadID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("threads.Get failed: %w", err)
	}

	emails := make([]EmailMessage, 0, len(thread.Messages))
	for _, msg := range thread.Messages {
		emails = append(emails, ParseMessage(msg))
	}

	return emails, nil
}

// GetMessage fetches and parses a single message.
func (m *GMail) GetMessage(ctx context.Context, msgID string) (EmailMessage, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return EmailMessage{}, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).Format("full").Do()
	if err != nil {
		return EmailMessage{}, fmt.Errorf("messages.Get failed: %w", err)
	}

	return ParseMessage(msg), nil
}

// GetMessageLabelIDs returns the label IDs currently on a message.
func (m *GMail) GetMessageLabelIDs(ctx context.Context, msgID string) ([]string, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).Format("minimal").Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get failed: %w", err)
	}

	return msg.LabelIds, nil
}

// GetHistory returns all mailbox changes after startHistoryID,
// optionally filtered to one label. A 404 means the cursor is older
// than Gmail's retention window; that comes back as an empty diff, the
// caller re-anchors from the notification.
func (m *GMail) GetHistory(ctx context.Context, startHistoryID uint64, labelID string) ([]HistoryRecord, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	var records []HistoryRecord
	pageToken := ""

	for {
		call := svc.Users.History.List(gmailUserID).StartHistoryId(startHistoryID)
		if labelID != "" {
			call = call.LabelId(labelID)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == 404 {
				return nil, nil
			}
			return nil, fmt.Errorf("history.List failed: %w", err)
		}

		for _, h := range resp.History {
			rec := HistoryRecord{HistoryID: h.Id}
			for _, added := range h.MessagesAdded {
				if added.Message != nil {
					rec.MessagesAdded = append(rec.MessagesAdded, added.Message)
				}
			}
			rec.LabelsAdded = append(rec.LabelsAdded, h.LabelsAdded...)
			records = append(records, rec)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return records, nil
}

// SendReply sends a threaded reply. Subject gets a "Re:" prefix when
// missing; In-Reply-To/References headers keep clients threading
// correctly. A non-empty htmlBody produces a multipart/alternative
// message. Returns the sent message ID.
func (m *GMail) SendReply(ctx context.Context, threadID, to, subject, plainBody, htmlBody, inReplyTo, references string) (string, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return "", fmt.Errorf("newSvc failed: %w", err)
	}

	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}
	if references == "" {
		references = inReplyTo
	}

	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	if inReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", inReplyTo)
	}
	if references != "" {
		fmt.Fprintf(&b, "References: %s\r\n", references)
	}
	b.WriteString("MIME-Version: 1.0\r\n")

	if htmlBody == "" {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		b.WriteString("\r\n")
		b.WriteString(plainBody)
	} else {
		const boundary = "gmail-agent-alt"
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
		b.WriteString("\r\n")
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(plainBody)
		fmt.Fprintf(&b, "\r\n--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(htmlBody)
		fmt.Fprintf(&b, "\r\n--%s--\r\n", boundary)
	}

	raw := base64.URLEncoding.EncodeToString([]byte(b.String()))

	sent, err := svc.Users.Messages.Send(gmailUserID, &gmail.Message{
		Raw:      raw,
		ThreadId: threadID,
	}).Do()
	if err != nil {
		return "", fmt.Errorf("messages.Send failed: %w", err)
	}

	return sent.Id, nil
}

func (m *GMail) newSvc(ctx context.Context) (*gmail.Service, error) {
	t, err := m.tok.OAuthToken()
	if err != nil {
		return nil, fmt.Errorf("tok.OAuthToken failed: %w", err)
	}

	clt := m.cfg.Client(ctx, t)

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}
