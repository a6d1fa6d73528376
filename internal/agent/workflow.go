package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hal9000y/gmail-agent/internal/classify"
	"github.com/hal9000y/gmail-agent/internal/draft"
	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/tool"
)

type classifierSvc interface {
	Classify(subject, body, senderEmail string, threadContext []string) classify.Result
}

type plannerSvc interface {
	PlanTools(ctx context.Context, latest gservice.EmailMessage, thread []gservice.EmailMessage) Plan
}

type toolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) tool.Result
}

type drafterSvc interface {
	Generate(ctx context.Context, thread []gservice.EmailMessage, userEmail, recipientEmail, recipientName string) (draft.Result, error)
}

type formatterSvc interface {
	Format(body string) (htmlContent, plainText string, err error)
}

type mailSender interface {
	SendReply(ctx context.Context, threadID, to, subject, plainBody, htmlBody, inReplyTo, references string) (string, error)
}

type labelSvc interface {
	TransitionToDone(ctx context.Context, msgID string) error
	TransitionToPending(ctx context.Context, msgID string) error
}

type learnerSvc interface {
	LearnFromSent(ctx context.Context, sentBody, recipientEmail, recipientName string, threadContext []string)
}

// Deps are the collaborators a Workflow needs. All are required except
// Learner, which may be nil to disable style learning.
type Deps struct {
	Classifier classifierSvc
	Planner    plannerSvc
	Tools      toolInvoker
	Drafter    drafterSvc
	Formatter  formatterSvc
	Sender     mailSender
	Labels     labelSvc
	Learner    learnerSvc

	// UserEmail is the responding account address; when empty the
	// latest message's To header is used.
	UserEmail string
}

// NewWorkflow creates the workflow orchestrator.
func NewWorkflow(deps Deps, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		deps:   deps,
		logger: logger,
	}
}

// Workflow runs the classify -> plan -> execute -> write -> send|notify
// state machine for one email. Runs are synchronous and single-pass;
// every step appends to the shared State.
type Workflow struct {
	deps   Deps
	logger *slog.Logger
}

// Run processes one email to a terminal outcome. Planner and tool
// failures degrade gracefully; send and notify failures end in
// outcome "error". Only a draft-generation failure returns a non-nil
// error, alongside the state accumulated so far.
func (w *Workflow) Run(ctx context.Context, in Input) (*State, error) {
	state := newState(in)

	w.logger.Info("workflow started", "message_id", in.MessageID, "thread_id", in.ThreadID)

	w.classifyStep(state)

	if state.Classification.Decision != classify.AutoRespond {
		w.logger.Info("routing to notify", "decision", state.Classification.Decision)
		w.notifyStep(ctx, state)
		return state, nil
	}

	w.planStep(ctx, state)

	if len(state.ToolsToCall) > 0 {
		w.executeStep(ctx, state)
	} else {
		w.logger.Info("no tools needed, skipping execute")
	}

	if err := w.writeStep(ctx, state); err != nil {
		state.Outcome = OutcomeError
		state.ErrorMessage = err.Error()
		return state, fmt.Errorf("draft generation failed: %w", err)
	}

	w.sendStep(ctx, state)

	w.logger.Info("workflow finished", "message_id", in.MessageID, "outcome", state.Outcome)

	return state, nil
}

func (w *Workflow) classifyStep(state *State) {
	latest := state.LatestEmail

	threadContext := priorBodies(state.ThreadEmails)

	result := w.deps.Classifier.Classify(latest.Subject, latest.Body, latest.FromEmail, threadContext)
	state.Classification = &result
	state.DetectedLanguage = result.DetectedLanguage

	w.logger.Info("classified email",
		"decision", result.Decision,
		"category", result.Category,
		"confidence", result.Confidence,
		"language", result.DetectedLanguage)
}

func (w *Workflow) planStep(ctx context.Context, state *State) {
	plan := w.deps.Planner.PlanTools(ctx, state.LatestEmail, state.ThreadEmails)
	state.ToolsToCall = plan.Tools
	state.PlanningReasoning = plan.Reasoning
}

func (w *Workflow) executeStep(ctx context.Context, state *State) {
	w.logger.Info("executing planned tools", "count", len(state.ToolsToCall))

	for _, call := range state.ToolsToCall {
		result := w.deps.Tools.Invoke(ctx, call.Name, call.Args)
		state.ToolResults = append(state.ToolResults, ToolResult{Name: call.Name, Result: result})

		if result.Succeeded() {
			w.logger.Info("tool succeeded", "tool", call.Name)
		} else {
			w.logger.Warn("tool did not succeed", "tool", call.Name, "status", result.Status, "error", result.Err)
		}
	}
}

func (w *Workflow) writeStep(ctx context.Context, state *State) error {
	latest := state.LatestEmail

	thread := make([]gservice.EmailMessage, len(state.ThreadEmails))
	copy(thread, state.ThreadEmails)

	// Tool findings ride along in the latest message body; the drafting
	// prompt stays single-template that way.
	if toolContext := formatToolContext(state.ToolResults); toolContext != "" && len(thread) > 0 {
		last := &thread[len(thread)-1]
		last.Body = fmt.Sprintf("%s\n\n[Agent context from tools:\n%s]", last.Body, toolContext)
	}

	userEmail := w.deps.UserEmail
	if userEmail == "" {
		userEmail = latest.ToEmail
	}

	result, err := w.deps.Drafter.Generate(ctx, thread, userEmail, latest.FromEmail, latest.FromName)
	if err != nil {
		return fmt.Errorf("Drafter.Generate failed: %w", err)
	}

	w.logger.Info("draft generated", "tone", result.Tone, "confidence", result.Confidence)

	htmlBody, plainBody, err := w.deps.Formatter.Format(result.Text)
	if err != nil {
		return fmt.Errorf("Formatter.Format failed: %w", err)
	}

	state.DraftBody = result.Text
	state.HTMLBody = htmlBody
	state.PlainBody = plainBody

	return nil
}

func (w *Workflow) sendStep(ctx context.Context, state *State) {
	latest := state.LatestEmail

	// References = the original chain plus the message being answered.
	references := latest.References
	if latest.RFCMessageID != "" {
		if references != "" {
			references += " " + latest.RFCMessageID
		} else {
			references = latest.RFCMessageID
		}
	}

	_, err := w.deps.Sender.SendReply(ctx,
		state.ThreadID,
		latest.FromEmail,
		latest.Subject,
		state.PlainBody,
		state.HTMLBody,
		latest.RFCMessageID,
		references)
	if err != nil {
		w.logger.Error("send failed", "message_id", state.MessageID, "error", err)

		if labelErr := w.deps.Labels.TransitionToPending(ctx, state.MessageID); labelErr != nil {
			w.logger.Error("failed to mark as pending after send failure", "error", labelErr)
		}

		state.Outcome = OutcomeError
		state.ErrorMessage = err.Error()
		return
	}

	w.logger.Info("reply sent", "message_id", state.MessageID)

	if err := w.deps.Labels.TransitionToDone(ctx, state.MessageID); err != nil {
		w.logger.Error("failed to mark as done", "message_id", state.MessageID, "error", err)
	}

	if w.deps.Learner != nil {
		w.deps.Learner.LearnFromSent(ctx, state.DraftBody, latest.FromEmail, latest.FromName, priorBodies(state.ThreadEmails))
	}

	state.Outcome = OutcomeSent
}

func (w *Workflow) notifyStep(ctx context.Context, state *State) {
	if err := w.deps.Labels.TransitionToPending(ctx, state.MessageID); err != nil {
		w.logger.Error("failed to mark as pending", "message_id", state.MessageID, "error", err)
		state.Outcome = OutcomeError
		state.ErrorMessage = fmt.Sprintf("failed to transition to pending: %v", err)
		return
	}

	state.Outcome = OutcomePending
}

// priorBodies returns the bodies of every thread message except the
// latest.
func priorBodies(thread []gservice.EmailMessage) []string {
	var bodies []string
	for i, email := range thread {
		if i == len(thread)-1 {
			break
		}
		bodies = append(bodies, email.Body)
	}
	return bodies
}

// formatToolContext renders tool results as prompt context blocks, in
// the order the tools were invoked.
func formatToolContext(results []ToolResult) string {
	if len(results) == 0 {
		return ""
	}

	headings := map[string]string{
		"calendar_check": "Calendar availability",
		"search_emails":  "Email search results",
		"lookup_contact": "Contact info",
	}

	var blocks []string
	for _, r := range results {
		heading, known := headings[r.Name]
		if !known {
			heading = r.Name
		}
		blocks = append(blocks, renderToolBlock(r.Name, heading, r.Result))
	}

	return strings.Join(blocks, "\n\n")
}

func renderToolBlock(name, heading string, result tool.Result) string {
	if !result.Succeeded() {
		return fmt.Sprintf("%s: Error - %s", name, result.Err)
	}
	if summary, ok := result.Data["summary"].(string); ok && summary != "" {
		return fmt.Sprintf("%s:\n%s", heading, summary)
	}
	return fmt.Sprintf("%s: %v", name, result.Data)
}
