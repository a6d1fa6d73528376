// Package tool provides the agent's external capabilities behind a
// uniform registration/invocation contract: calendar availability, email
// search and contact lookup.
package tool

import (
	"context"
	"fmt"
	"log/slog"
)

// Status classifies the outcome of a tool invocation.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusNotFound  Status = "not_found"
	StatusNoResults Status = "no_results"
)

// Result is the structured envelope every tool invocation returns.
// Tools report failures through it; they never panic across the
// registry boundary.
type Result struct {
	Status   Status
	Data     map[string]any
	Err      string
	Metadata map[string]any
}

// Succeeded reports whether the invocation completed with data.
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// OK creates a successful result.
func OK(data map[string]any, metadata map[string]any) Result {
	return Result{Status: StatusSuccess, Data: data, Metadata: metadata}
}

// Fail creates an error result.
func Fail(err string) Result {
	return Result{Status: StatusError, Err: err}
}

// NotFound creates a not-found result.
func NotFound(message string) Result {
	return Result{Status: StatusNotFound, Err: message}
}

// Empty creates a no-results result.
func Empty(message string) Result {
	return Result{Status: StatusNoResults, Data: map[string]any{}, Err: message}
}

// Param describes one tool parameter for planner and MCP consumption.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Tool is one named external capability.
type Tool interface {
	Name() string
	Description() string
	Parameters() []Param
	Execute(ctx context.Context, args map[string]any) Result
}

// Info is the registry listing entry handed to the planner prompt.
type Info struct {
	Name        string
	Description string
	Parameters  []Param
}

// Registry holds the registered tools. Registration order is preserved
// for listings.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool. A repeated name overwrites the previous tool with
// a warning.
func (r *Registry) Register(t Tool) {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		r.logger.Warn("overwriting existing tool", "tool", name)
	} else {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Contains reports whether a tool name is registered.
func (r *Registry) Contains(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, Info{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}

// Invoke runs a tool by name. Unknown names, missing required parameters
// and panics during execution all come back as error Results; Invoke
// never propagates a failure any other way.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (res Result) {
	t, ok := r.tools[name]
	if !ok {
		return Fail(fmt.Sprintf("unknown tool: %s", name))
	}

	if err := validateRequired(t, args); err != nil {
		return Fail(err.Error())
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", rec)
			res = Fail(fmt.Sprintf("tool %s panicked: %v", name, rec))
		}
	}()

	r.logger.Info("invoking tool", "tool", name)
	return t.Execute(ctx, args)
}

func validateRequired(t Tool, args map[string]any) error {
	for _, p := range t.Parameters() {
		if !p.Required {
			continue
		}
		v, ok := args[p.Name]
		if !ok || v == nil {
			return fmt.Errorf("missing required parameter: %s", p.Name)
		}
		if s, isStr := v.(string); isStr && s == "" {
			return fmt.Errorf("missing required parameter: %s", p.Name)
		}
	}
	return nil
}

// argString fetches an optional string argument.
func argString(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// argInt fetches an optional integer argument, tolerating the float64
// values JSON decoding produces.
func argInt(args map[string]any, key string, fallback int) int {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}
