package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/giantswarm/stepflow/internal/api"
	"github.com/giantswarm/stepflow/pkg/logging"

	emcp "github.com/cloudwego/eino-ext/components/tool/mcp"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/client"
)

// DefaultSystemPrompt frames every eino agent conversation. The argument is
// the working directory.
const DefaultSystemPrompt = "You are an autonomous software engineering agent working in the directory %s. " +
	"Use the provided tools to act. When you are done, reply with a concise summary of what you did."

const defaultMaxSteps = 25

// EinoOptions configures the in-process ReAct backend.
type EinoOptions struct {
	// Model is the tool calling chat model driving the agent.
	Model model.ToolCallingChatModel

	// Tools is an initialized MCP client connected to the tool server.
	// Nil disables tool use.
	Tools client.MCPClient

	// MaxSteps bounds the reasoning loop.
	MaxSteps int

	// SystemPrompt overrides DefaultSystemPrompt; it receives the working
	// directory as its only argument.
	SystemPrompt string

	Logger *logging.Logger
}

// Eino runs prompts through an eino ReAct agent and keeps the conversation
// in memory for session continuation.
type Eino struct {
	opts EinoOptions
	log  *logging.Logger

	mu        sync.Mutex
	history   []*schema.Message
	sessionID string
}

// NewEino creates the backend.
func NewEino(opts EinoOptions) (*Eino, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("eino backend requires a chat model")
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaultMaxSteps
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Eino{opts: opts, log: log.With("EinoAgent")}, nil
}

// Run implements Agent.
func (e *Eino) Run(ctx context.Context, req Request) (*api.AgentResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	tools, err := e.tools(ctx, req)
	if err != nil {
		return nil, err
	}

	workingDir := req.WorkingDirectory
	if workingDir == "" {
		workingDir = "."
	}
	systemPrompt := fmt.Sprintf(e.opts.SystemPrompt, workingDir)

	ra, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: e.opts.Model,
		ToolsConfig:      compose.ToolsNodeConfig{Tools: tools},
		MaxStep:          e.opts.MaxSteps,
		MessageModifier: func(_ context.Context, input []*schema.Message) []*schema.Message {
			msgs := make([]*schema.Message, 0, len(input)+1)
			msgs = append(msgs, schema.SystemMessage(systemPrompt))
			return append(msgs, input...)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build agent: %w", err)
	}

	e.mu.Lock()
	if !req.ContinueSession || e.sessionID == "" {
		e.history = nil
		e.sessionID = uuid.New().String()
	}
	msgs := append(append([]*schema.Message(nil), e.history...), schema.UserMessage(req.Prompt))
	sessionID := e.sessionID
	e.mu.Unlock()

	e.log.Debug("Generating with %d messages and %d tools (session %s)", len(msgs), len(tools), sessionID)
	out, err := ra.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("agent generation failed: %w", err)
	}

	e.mu.Lock()
	e.history = append(msgs, out)
	e.mu.Unlock()

	return &api.AgentResult{Output: out.Content, SessionID: sessionID}, nil
}

func (e *Eino) tools(ctx context.Context, req Request) ([]tool.BaseTool, error) {
	if e.opts.Tools == nil || len(req.Tools) == 0 {
		return nil, nil
	}
	tools, err := emcp.GetTools(ctx, &emcp.Config{Cli: e.opts.Tools, ToolNameList: req.ToolNames()})
	if err != nil {
		return nil, fmt.Errorf("failed to load agent tools: %w", err)
	}
	return tools, nil
}
