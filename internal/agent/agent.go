package agent

import (
	"context"
	"errors"

	"github.com/giantswarm/stepflow/internal/api"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrEmptyPrompt is returned by backends asked to run without a prompt.
var ErrEmptyPrompt = errors.New("agent prompt is empty")

// Request is one AI agent invocation.
type Request struct {
	// Prompt is the bounded prompt to submit.
	Prompt string

	// WorkingDirectory is where the agent operates.
	WorkingDirectory string

	// Tools are the registered plugin tools the agent may call.
	Tools []mcp.Tool

	// ContinueSession resumes the conversation of the previous invocation
	// instead of starting a fresh one.
	ContinueSession bool
}

// ToolNames returns the names of the request tools in order.
func (r Request) ToolNames() []string {
	names := make([]string, 0, len(r.Tools))
	for _, t := range r.Tools {
		names = append(names, t.Name)
	}
	return names
}

// Agent runs a prompt against an AI coding agent.
type Agent interface {
	Run(ctx context.Context, req Request) (*api.AgentResult, error)
}

// Func adapts a function to the Agent interface.
type Func func(ctx context.Context, req Request) (*api.AgentResult, error)

// Run calls f(ctx, req).
func (f Func) Run(ctx context.Context, req Request) (*api.AgentResult, error) {
	return f(ctx, req)
}
