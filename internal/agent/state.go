// Package agent orchestrates the per-email workflow: classify the
// incoming message, plan and execute tools, draft a reply, then send it
// or hand the email back to the user.
package agent

import (
	"github.com/hal9000y/gmail-agent/internal/classify"
	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/tool"
)

// Outcome values of a completed workflow run.
const (
	OutcomeSent    = "sent"
	OutcomePending = "pending"
	OutcomeError   = "error"
)

// Input identifies the email a workflow run processes.
type Input struct {
	MessageID    string
	ThreadID     string
	ThreadEmails []gservice.EmailMessage
	LatestEmail  gservice.EmailMessage
}

// ToolCall is one planned tool invocation.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult pairs an executed tool with its outcome.
type ToolResult struct {
	Name   string
	Result tool.Result
}

// State accumulates the outputs of each workflow step. Steps only add
// fields; earlier fields are never rewritten.
type State struct {
	// Input
	MessageID    string
	ThreadID     string
	ThreadEmails []gservice.EmailMessage
	LatestEmail  gservice.EmailMessage

	// CLASSIFY
	Classification   *classify.Result
	DetectedLanguage string

	// PLAN
	ToolsToCall       []ToolCall
	PlanningReasoning string

	// EXECUTE, in invocation order
	ToolResults []ToolResult

	// WRITE
	DraftBody string
	HTMLBody  string
	PlainBody string

	// SEND / NOTIFY
	Outcome      string
	ErrorMessage string
}

func newState(in Input) *State {
	return &State{
		MessageID:        in.MessageID,
		ThreadID:         in.ThreadID,
		ThreadEmails:     in.ThreadEmails,
		LatestEmail:      in.LatestEmail,
		DetectedLanguage: "en",
	}
}
