package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/giantswarm/stepflow/internal/agent"
	"github.com/giantswarm/stepflow/internal/api"
	"github.com/giantswarm/stepflow/internal/plugin"
	"github.com/giantswarm/stepflow/internal/prompt"
	"github.com/giantswarm/stepflow/internal/template"
	"github.com/giantswarm/stepflow/pkg/logging"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// ErrNoAgent is the cause of an ai_agent step failure when the executor has
// no agent backend.
var ErrNoAgent = errors.New("no AI agent backend configured")

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Registry *plugin.Registry
	Agent    agent.Agent

	// WorkingDir is the default working directory of ai_agent steps.
	// Empty means ".".
	WorkingDir string

	// PromptDir overrides the per-run prompt directory. When empty each run
	// writes to prompt.DefaultDir(<execution id>).
	PromptDir string

	// TokenBudget of directly submitted prompts; zero selects the default.
	TokenBudget int

	Observer Observer
	Storage  ExecutionStorage
	Logger   *logging.Logger
}

// Executor runs workflows step by step and stops at the first failure.
// An Executor may run several workflows one after another; a single run is
// strictly sequential.
type Executor struct {
	registry    *plugin.Registry
	agent       agent.Agent
	workingDir  string
	promptDir   string
	tokenBudget int
	observer    Observer
	storage     ExecutionStorage
	log         *logging.Logger
	rootLog     *logging.Logger
	template    *template.Engine
}

// NewExecutor creates an executor. Registry is required.
func NewExecutor(opts ExecutorOptions) *Executor {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	observer := opts.Observer
	if observer == nil {
		observer = NoOpObserver{}
	}
	workingDir := opts.WorkingDir
	if workingDir == "" {
		workingDir = "."
	}
	return &Executor{
		registry:    opts.Registry,
		agent:       opts.Agent,
		workingDir:  workingDir,
		promptDir:   opts.PromptDir,
		tokenBudget: opts.TokenBudget,
		observer:    observer,
		storage:     opts.Storage,
		log:         log.With("WorkflowExecutor"),
		rootLog:     log,
		template:    template.New(log),
	}
}

// run is the state of one Execute call.
type run struct {
	wf        *api.Workflow
	execution *api.WorkflowExecution
	context   *RunContext
	session   *SessionTracker
	prompts   *prompt.Manager
}

// Execute runs wf with the given trigger input.
//
// The workflow definition and tool availability are checked before any step
// runs; those failures return a nil execution. Once steps start, the
// returned execution is always non-nil and a step failure is returned as
// *api.StepError.
func (e *Executor) Execute(ctx context.Context, wf *api.Workflow, input map[string]interface{}) (*api.WorkflowExecution, error) {
	if err := ValidateDefinition(wf); err != nil {
		return nil, fmt.Errorf("invalid workflow: %w", err)
	}
	if err := e.registry.Validate(wf); err != nil {
		e.log.Error(err, "Workflow %s cannot run", workflowLabel(wf))
		return nil, err
	}

	executionID := uuid.New().String()
	promptDir := e.promptDir
	if promptDir == "" {
		promptDir = prompt.DefaultDir(executionID)
	}

	r := &run{
		wf: wf,
		execution: &api.WorkflowExecution{
			ExecutionID:  executionID,
			WorkflowName: wf.Name,
			Status:       api.ExecutionRunning,
			StartedAt:    time.Now(),
			Input:        input,
			Steps:        make([]api.StepExecution, len(wf.Steps)),
		},
		context: NewRunContext(input),
		session: NewSessionTracker(),
		prompts: prompt.NewManager(promptDir, e.tokenBudget, e.rootLog),
	}
	for i, step := range wf.Steps {
		r.execution.Steps[i] = api.StepExecution{
			StepID: step.ID,
			Type:   step.Type,
			Tool:   step.Tool,
			Status: api.StepPending,
		}
	}

	e.log.Info("Executing workflow %s (%d steps, execution %s)", workflowLabel(wf), len(wf.Steps), executionID)
	e.store(ctx, r.execution)

	var runErr error
	for i := range wf.Steps {
		if err := e.executeStep(ctx, r, i); err != nil {
			runErr = err
			break
		}
	}

	e.finish(r.execution, runErr)
	e.store(ctx, r.execution)
	return r.execution, runErr
}

func (e *Executor) executeStep(ctx context.Context, r *run, index int) error {
	step := r.wf.Steps[index]
	record := &r.execution.Steps[index]

	if step.If != "" {
		condition := e.template.Interpolate(step.If, r.context.Snapshot())
		if !template.IsTruthy(condition) {
			e.log.Debug("Skipping step %s, condition %q resolved to %q", step.ID, step.If, condition)
			record.Status = api.StepSkipped
			e.observer.StepEvent(r.wf.Name, step.ID, EventStepSkipped, map[string]interface{}{
				"condition": condition,
			})
			return nil
		}
	}

	started := time.Now()
	record.Status = api.StepRunning
	record.StartedAt = &started
	e.observer.StepEvent(r.wf.Name, step.ID, EventStepStarted, map[string]interface{}{
		"type": string(step.Type),
		"tool": step.Tool,
	})

	var out api.StepOutput
	err := ctx.Err()
	if err == nil {
		switch step.Type {
		case api.StepTypeAIAgent:
			out, err = e.runAgentStep(ctx, r, step, record)
		case api.StepTypeTool:
			out, err = e.runToolStep(ctx, r, step)
		default:
			err = fmt.Errorf("unknown step type %q", step.Type)
		}
	}
	if err == nil {
		err = r.context.Record(step.ID, out)
	}

	completed := time.Now()
	record.CompletedAt = &completed
	record.DurationMs = completed.Sub(started).Milliseconds()

	if err != nil {
		record.Status = api.StepFailed
		record.Error = err.Error()
		e.rootLog.StepFailed(workflowLabel(r.wf), step.ID, err)
		e.observer.StepEvent(r.wf.Name, step.ID, EventStepFailed, map[string]interface{}{
			"type":  string(step.Type),
			"tool":  step.Tool,
			"error": err.Error(),
		})
		return &api.StepError{StepID: step.ID, Type: step.Type, Err: err}
	}

	record.Status = api.StepCompleted
	record.Output = &out
	e.log.Debug("Step %s completed in %dms", step.ID, record.DurationMs)
	e.observer.StepEvent(r.wf.Name, step.ID, EventStepCompleted, map[string]interface{}{
		"type":        string(step.Type),
		"tool":        step.Tool,
		"duration_ms": record.DurationMs,
	})
	return nil
}

func (e *Executor) runAgentStep(ctx context.Context, r *run, step api.WorkflowStep, record *api.StepExecution) (api.StepOutput, error) {
	args := e.template.InterpolateArgs(step.Args, r.context.Snapshot())

	promptText, ok := args[api.ArgPrompt].(string)
	if !ok {
		return api.StepOutput{}, fmt.Errorf("ai_agent step requires a string %q argument", api.ArgPrompt)
	}
	workingDir := e.workingDir
	if wd, ok := args[api.ArgWorkingDir].(string); ok && wd != "" {
		workingDir = wd
	}

	prepared, err := r.prompts.Prepare(step.ID, promptText)
	if err != nil {
		return api.StepOutput{}, err
	}
	record.PromptFile = prepared.FullPath
	record.PromptTruncated = prepared.Truncated

	cont := r.session.Next()
	record.ContinueSession = &cont

	if e.agent == nil {
		return api.StepOutput{}, ErrNoAgent
	}

	e.log.Debug("Running agent for step %s in %s (continue session: %t)", step.ID, workingDir, cont)
	result, err := e.agent.Run(ctx, agent.Request{
		Prompt:           prepared.Bounded,
		WorkingDirectory: workingDir,
		Tools:            e.registry.Tools(),
		ContinueSession:  cont,
	})
	if err != nil {
		return api.StepOutput{}, fmt.Errorf("agent run failed: %w", err)
	}
	if result == nil {
		return api.StepOutput{}, fmt.Errorf("agent returned no result")
	}
	record.SessionID = result.SessionID

	return api.Raw(result.Output), nil
}

func (e *Executor) runToolStep(ctx context.Context, r *run, step api.WorkflowStep) (api.StepOutput, error) {
	if _, err := e.registry.Resolve(step.Tool); err != nil {
		return api.StepOutput{}, err
	}

	args := e.template.InterpolateArgs(step.Args, r.context.Snapshot())
	e.log.Debug("Calling tool %s for step %s", step.Tool, step.ID)

	result, err := e.registry.Call(ctx, step.Tool, args)
	if err != nil {
		return api.StepOutput{}, fmt.Errorf("tool %s failed: %w", step.Tool, err)
	}

	text := ResultText(result)
	if result != nil && result.IsError {
		return api.StepOutput{}, &api.ToolResultError{Tool: step.Tool, Message: text}
	}
	return ParseOutput(text), nil
}

func (e *Executor) finish(execution *api.WorkflowExecution, runErr error) {
	completed := time.Now()
	execution.CompletedAt = &completed
	execution.DurationMs = completed.Sub(execution.StartedAt).Milliseconds()

	if runErr != nil {
		execution.Status = api.ExecutionFailed
		execution.Error = runErr.Error()
		return
	}
	execution.Status = api.ExecutionCompleted
	e.log.Info("Workflow %s completed in %dms", execution.WorkflowName, execution.DurationMs)
}

func (e *Executor) store(ctx context.Context, execution *api.WorkflowExecution) {
	if e.storage == nil {
		return
	}
	if err := e.storage.Store(ctx, execution); err != nil {
		e.log.Warn("Failed to store execution record %s: %v", execution.ExecutionID, err)
	}
}

// ResultText concatenates every text segment of a tool result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var b strings.Builder
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			b.WriteString(c.Text)
		case *mcp.TextContent:
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// ParseOutput returns Structured(v) when text is a single JSON value and
// Raw(text) otherwise. Numbers are kept as json.Number so that integers
// beyond float64 precision reach later steps unchanged.
func ParseOutput(text string) api.StepOutput {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return api.Raw(text)
	}
	if err := dec.Decode(new(interface{})); !errors.Is(err, io.EOF) {
		return api.Raw(text)
	}
	return api.Structured(v)
}

func workflowLabel(wf *api.Workflow) string {
	if wf.Name == "" {
		return "<unnamed>"
	}
	return wf.Name
}
