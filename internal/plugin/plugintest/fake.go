// Package plugintest provides an in-memory plugin for tests.
package plugintest

import (
	"context"
	"sync"

	"github.com/giantswarm/stepflow/internal/plugin"

	"github.com/mark3labs/mcp-go/mcp"
)

// Call records one HandleToolCall invocation.
type Call struct {
	Tool   string
	Args   map[string]interface{}
	Config plugin.Config
}

// HandlerFunc produces the result of a fake tool call.
type HandlerFunc func(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)

// Fake is a configurable plugin. The zero value is not usable; use New.
type Fake struct {
	PluginName string
	ToolList   []mcp.Tool
	InitErr    error
	Handler    HandlerFunc

	mu        sync.Mutex
	calls     []Call
	initCalls int
}

// New creates a fake plugin exposing the named tools. Every tool answers with
// {"tool": name} unless Handler is set.
func New(name string, tools ...string) *Fake {
	f := &Fake{PluginName: name}
	for _, t := range tools {
		f.ToolList = append(f.ToolList, mcp.NewTool(t, mcp.WithDescription("fake tool "+t)))
	}
	return f
}

func (f *Fake) Name() string { return f.PluginName }

func (f *Fake) Tools() []mcp.Tool { return f.ToolList }

func (f *Fake) Init(_ context.Context, secrets plugin.Secrets) (plugin.Config, error) {
	f.mu.Lock()
	f.initCalls++
	f.mu.Unlock()
	if f.InitErr != nil {
		return nil, f.InitErr
	}
	return secrets, nil
}

func (f *Fake) HandleToolCall(ctx context.Context, cfg plugin.Config, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Tool: name, Args: args, Config: cfg})
	f.mu.Unlock()

	if f.Handler != nil {
		return f.Handler(ctx, name, args)
	}
	return JSONResult(map[string]interface{}{"tool": name})
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// InitCalls returns how often Init ran.
func (f *Fake) InitCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls
}

// JSONResult marshals v into a single text content result.
func JSONResult(v interface{}) (*mcp.CallToolResult, error) {
	return plugin.JSONResult(v)
}
