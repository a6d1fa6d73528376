package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hal9000y/gmail-agent/internal/agent"
	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/sanitize"
)

// Batch statuses reported back to the webhook caller.
const (
	StatusOK           = "ok"
	StatusInitialized  = "initialized"
	StatusHistoryError = "history_error"
	StatusError        = "error"
)

// Summary is the outcome of one notification batch.
type Summary struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
}

type mailboxSvc interface {
	GetHistory(ctx context.Context, startHistoryID uint64, labelID string) ([]gservice.HistoryRecord, error)
	GetThread(ctx context.Context, threadID string) ([]gservice.EmailMessage, error)
}

type labelSvc interface {
	LabelID(ctx context.Context, name string) (string, error)
	Has(ctx context.Context, msgID, name string) (bool, error)
	Remove(ctx context.Context, msgID, name string) error
	RespondName() string
	DoneName() string
	PendingName() string
}

type cursorStore interface {
	Last() (uint64, bool, error)
	Set(id uint64) error
}

type workflowRunner interface {
	Run(ctx context.Context, in agent.Input) (*agent.State, error)
}

// NewProcessor creates the notification processor.
func NewProcessor(mailbox mailboxSvc, labels labelSvc, cursor cursorStore, workflow workflowRunner, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		mailbox:  mailbox,
		labels:   labels,
		cursor:   cursor,
		workflow: workflow,
		logger:   logger,
	}
}

// Processor handles one Gmail notification at a time. Messages run
// through the workflow sequentially; the history cursor advances at the
// end of every batch even when individual messages failed, so a broken
// message can never wedge ingestion.
type Processor struct {
	mailbox  mailboxSvc
	labels   labelSvc
	cursor   cursorStore
	workflow workflowRunner
	logger   *slog.Logger
}

// HandleNotification diffs mailbox history since the stored cursor and
// feeds every new candidate message to the workflow. A missing trigger
// label is fatal for the batch; per-message failures only count as
// skips.
func (p *Processor) HandleNotification(ctx context.Context, n Notification) (Summary, error) {
	p.logger.Info("gmail notification received", "history_id", n.HistoryID)

	respondID, err := p.labels.LabelID(ctx, p.labels.RespondName())
	if err != nil {
		return Summary{Status: StatusError}, fmt.Errorf("labels.LabelID failed: %w", err)
	}
	if respondID == "" {
		return Summary{Status: StatusError}, fmt.Errorf("trigger label %q not found", p.labels.RespondName())
	}

	last, ok, err := p.cursor.Last()
	if err != nil {
		return Summary{Status: StatusError}, fmt.Errorf("cursor.Last failed: %w", err)
	}
	if !ok {
		// First notification ever: anchor the cursor here. This change
		// itself is lost, future ones are caught.
		p.logger.Info("first run, initializing history cursor", "history_id", n.HistoryID)
		if err := p.cursor.Set(n.HistoryID); err != nil {
			return Summary{Status: StatusError}, fmt.Errorf("cursor.Set failed: %w", err)
		}
		return Summary{Status: StatusInitialized}, nil
	}

	records, err := p.mailbox.GetHistory(ctx, last, respondID)
	if err != nil {
		p.logger.Error("failed to fetch history", "error", err)
		// Advance anyway so a poisoned cursor cannot wedge ingestion.
		if setErr := p.cursor.Set(n.HistoryID); setErr != nil {
			p.logger.Error("failed to advance cursor", "error", setErr)
		}
		return Summary{Status: StatusHistoryError}, nil
	}

	summary := Summary{Status: StatusOK}
	seen := map[string]bool{}

	handle := func(msgID, threadID string) {
		if msgID == "" || threadID == "" || seen[msgID] {
			return
		}
		seen[msgID] = true

		if p.processMessage(ctx, msgID, threadID) {
			summary.Processed++
		} else {
			summary.Skipped++
		}
	}

	for _, record := range records {
		for _, msg := range record.MessagesAdded {
			handle(msg.Id, msg.ThreadId)
		}
		for _, added := range record.LabelsAdded {
			if added.Message == nil || !containsString(added.LabelIds, respondID) {
				continue
			}
			handle(added.Message.Id, added.Message.ThreadId)
		}
	}

	if err := p.cursor.Set(n.HistoryID); err != nil {
		p.logger.Error("failed to advance cursor", "error", err)
	}

	p.logger.Info("notification batch complete",
		"processed", summary.Processed,
		"skipped", summary.Skipped)

	return summary, nil
}

// processMessage runs one message through idempotency checks,
// pre-filters and the workflow. Returns true when the workflow ran.
func (p *Processor) processMessage(ctx context.Context, msgID, threadID string) bool {
	for _, label := range []string{p.labels.DoneName(), p.labels.PendingName()} {
		has, err := p.labels.Has(ctx, msgID, label)
		if err != nil {
			p.logger.Error("label check failed", "message_id", msgID, "error", err)
			return false
		}
		if has {
			p.logger.Debug("message already handled, skipping", "message_id", msgID, "label", label)
			return false
		}
	}

	thread, err := p.mailbox.GetThread(ctx, threadID)
	if err != nil {
		p.logger.Error("failed to fetch thread", "thread_id", threadID, "error", err)
		return false
	}
	if len(thread) == 0 {
		p.logger.Warn("thread is empty, skipping", "thread_id", threadID)
		return false
	}

	latest := thread[len(thread)-1]

	if gservice.ShouldSkipSender(latest.FromEmail) {
		p.logger.Info("skipping automated sender", "sender", sanitize.RedactForLogging(latest.FromEmail))
		p.stripTriggerLabel(ctx, msgID)
		return false
	}

	if gservice.IsAutoReply(latest.Subject, latest.Body) {
		p.logger.Info("skipping auto-reply", "message_id", msgID)
		p.stripTriggerLabel(ctx, msgID)
		return false
	}

	p.logger.Info("processing email",
		"message_id", msgID,
		"sender", sanitize.RedactForLogging(latest.FromEmail))

	state, err := p.workflow.Run(ctx, agent.Input{
		MessageID:    msgID,
		ThreadID:     threadID,
		ThreadEmails: thread,
		LatestEmail:  latest,
	})
	if err != nil {
		p.logger.Error("workflow failed", "message_id", msgID, "error", err)
		return false
	}

	if state.ErrorMessage != "" {
		p.logger.Warn("workflow completed with error",
			"message_id", msgID,
			"outcome", state.Outcome,
			"error", state.ErrorMessage)
	} else {
		p.logger.Info("workflow completed", "message_id", msgID, "outcome", state.Outcome)
	}

	return true
}

func (p *Processor) stripTriggerLabel(ctx context.Context, msgID string) {
	if err := p.labels.Remove(ctx, msgID, p.labels.RespondName()); err != nil {
		p.logger.Error("failed to remove trigger label", "message_id", msgID, "error", err)
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
