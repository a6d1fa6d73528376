package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/llm"
	"github.com/hal9000y/gmail-agent/internal/sanitize"
	"github.com/hal9000y/gmail-agent/internal/tool"
)

const toolPlanningPrompt = `You are an email assistant analyzing an incoming email to decide if any tools are needed to respond effectively.

=== EMAIL TO RESPOND TO ===
From: %[1]s
Subject: %[2]s

Body:
%[3]s

=== THREAD CONTEXT (previous emails in this thread) ===
%[4]s

=== AVAILABLE TOOLS ===
%[5]s

=== YOUR TASK ===
Analyze this email and decide which tools (if any) would help craft a better response.

Guidelines:
- If the email mentions scheduling, meeting times, or availability -> use "calendar_check" with appropriate start_date
- If the email references a previous conversation, proposal, document, or asks "did you see/get my email" -> use "search_emails" with a relevant query
- If you need contact details to personalize the response -> use "lookup_contact"
- Many simple emails need NO tools (acknowledgments, thank yous, confirmations)
- Only call tools that will provide genuinely useful information

For calendar_check:
- start_date can be: "tomorrow", "next Monday", "2024-01-15", etc.
- end_date is optional, defaults to same day

For search_emails:
- query uses Gmail search syntax: "from:email", "subject:text", free text, etc.
- max_results defaults to 5

For lookup_contact:
- query can be email address or name

=== RESPONSE FORMAT ===
Respond with ONLY a JSON object (no other text):
{
    "reasoning": "Brief explanation of your analysis",
    "tools": [
        {"name": "tool_name", "args": {"param": "value"}}
    ]
}

If no tools are needed, return an empty tools array:
{
    "reasoning": "This is a simple acknowledgment email, no additional information needed",
    "tools": []
}

=== EXAMPLES ===

Email: "Can we meet next Thursday afternoon?"
Response:
{
    "reasoning": "Email asks about meeting availability for next Thursday",
    "tools": [{"name": "calendar_check", "args": {"start_date": "next Thursday"}}]
}

Email: "Did you review the proposal I sent last week?"
Response:
{
    "reasoning": "Email references a previous proposal, need to find it",
    "tools": [{"name": "search_emails", "args": {"query": "from:%[1]s proposal"}}]
}

Email: "Thanks for the update, sounds good!"
Response:
{
    "reasoning": "Simple acknowledgment, no additional information needed",
    "tools": []
}

JSON Response:`

// Plan is the planner's decision: which tools to run and why.
type Plan struct {
	Reasoning string
	Tools     []ToolCall
}

type toolLister interface {
	List() []tool.Info
	Contains(name string) bool
}

// NewPlanner creates the tool planner.
func NewPlanner(completer llm.Completer, tools toolLister, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		llm:    completer,
		tools:  tools,
		logger: logger,
	}
}

// Planner asks the LLM which registered tools would improve the reply.
// It sanitizes all mailbox-controlled text before prompting and never
// fails the pipeline: any LLM or parse error yields an empty plan with
// a diagnostic rationale.
type Planner struct {
	llm    llm.Completer
	tools  toolLister
	logger *slog.Logger
}

// PlanTools decides the tool calls for one email.
func (p *Planner) PlanTools(ctx context.Context, latest gservice.EmailMessage, thread []gservice.EmailMessage) Plan {
	var threadParts []string
	for i, email := range thread {
		if i == len(thread)-1 {
			break
		}
		threadParts = append(threadParts, fmt.Sprintf("From: %s\nSubject: %s\n%s",
			email.FromEmail,
			sanitize.ForPrompt(email.Subject, 200),
			sanitize.ForPrompt(email.Body, 2000)))
	}
	threadContext := strings.Join(threadParts, "\n---\n")
	if threadContext == "" {
		threadContext = "No previous emails in thread"
	}

	var toolLines []string
	for _, info := range p.tools.List() {
		toolLines = append(toolLines, fmt.Sprintf("- %s: %s", info.Name, info.Description))
	}

	prompt := fmt.Sprintf(toolPlanningPrompt,
		latest.FromEmail,
		sanitize.ForPrompt(latest.Subject, sanitize.MaxSubjectLength),
		sanitize.ForPrompt(latest.Body, 10000),
		threadContext,
		strings.Join(toolLines, "\n"))

	p.logger.Info("planning tool usage", "message_id", latest.MessageID)

	raw, err := p.llm.Complete(ctx, prompt, llm.Options{Temperature: 0.3})
	if err != nil {
		p.logger.Warn("planning call failed", "error", err)
		return Plan{Reasoning: fmt.Sprintf("Planning failed (%v), proceeding without tools", err)}
	}

	var parsed struct {
		Reasoning string     `json:"reasoning"`
		Tools     []ToolCall `json:"tools"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &parsed); err != nil {
		p.logger.Warn("failed to parse planning response", "error", err)
		return Plan{Reasoning: "Planning failed (JSON parse error), proceeding without tools"}
	}

	var valid []ToolCall
	for _, call := range parsed.Tools {
		if !p.tools.Contains(call.Name) {
			p.logger.Warn("unknown tool in plan, skipping", "tool", call.Name)
			continue
		}
		valid = append(valid, call)
	}

	p.logger.Info("planning complete", "tools", len(valid), "reasoning", parsed.Reasoning)

	return Plan{Reasoning: parsed.Reasoning, Tools: valid}
}
