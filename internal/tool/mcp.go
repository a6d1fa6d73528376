package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CalendarCheckRequest mirrors the calendar_check parameters for MCP
// clients.
type CalendarCheckRequest struct {
	StartDate          string `json:"start_date" jsonschema:"start date/time, ISO or relative like 'tomorrow'"`
	EndDate            string `json:"end_date,omitempty" jsonschema:"end date/time, defaults to end of start day"`
	MinDurationMinutes int    `json:"min_duration_minutes,omitempty" jsonschema:"minimum free slot length in minutes"`
}

// SearchEmailsRequest mirrors the search_emails parameters.
type SearchEmailsRequest struct {
	Query      string `json:"query" jsonschema:"Gmail search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum results to return"`
}

// LookupContactRequest mirrors the lookup_contact parameters.
type LookupContactRequest struct {
	Query      string `json:"query" jsonschema:"email address or name to search for"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum results to return"`
}

// InvokeResponse is the MCP-facing envelope of a tool invocation.
type InvokeResponse struct {
	Status   string         `json:"status" jsonschema:"success, error, not_found or no_results"`
	Data     map[string]any `json:"data,omitempty" jsonschema:"tool output"`
	Error    string         `json:"error,omitempty" jsonschema:"failure message"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"invocation metadata"`
}

// NewMCPServer exposes the registry's tools over MCP so external
// assistants can call the same capabilities the planner uses.
func NewMCPServer(reg *Registry) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "gmail-agent", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "calendar_check",
		Description: "Check calendar availability for a given date range",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input CalendarCheckRequest) (*mcp.CallToolResult, InvokeResponse, error) {
		args := map[string]any{"start_date": input.StartDate}
		if input.EndDate != "" {
			args["end_date"] = input.EndDate
		}
		if input.MinDurationMinutes > 0 {
			args["min_duration_minutes"] = input.MinDurationMinutes
		}
		return nil, invokeResponse(reg.Invoke(ctx, "calendar_check", args)), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_emails",
		Description: "Search past emails using Gmail query syntax",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input SearchEmailsRequest) (*mcp.CallToolResult, InvokeResponse, error) {
		args := map[string]any{"query": input.Query}
		if input.MaxResults > 0 {
			args["max_results"] = input.MaxResults
		}
		return nil, invokeResponse(reg.Invoke(ctx, "search_emails", args)), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lookup_contact",
		Description: "Look up contact information by email or name",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input LookupContactRequest) (*mcp.CallToolResult, InvokeResponse, error) {
		args := map[string]any{"query": input.Query}
		if input.MaxResults > 0 {
			args["max_results"] = input.MaxResults
		}
		return nil, invokeResponse(reg.Invoke(ctx, "lookup_contact", args)), nil
	})

	return server
}

func invokeResponse(res Result) InvokeResponse {
	return InvokeResponse{
		Status:   string(res.Status),
		Data:     res.Data,
		Error:    res.Err,
		Metadata: res.Metadata,
	}
}
