package api

import (
	"encoding/json"
)

// StepType selects how the executor dispatches a step.
type StepType string

const (
	// StepTypeAIAgent hands the step's prompt to the AI agent backend.
	StepTypeAIAgent StepType = "ai_agent"
	// StepTypeTool calls a tool provided by a registered plugin.
	StepTypeTool StepType = "tool"
)

// InputContextKey is the context key under which the trigger payload is seeded.
const InputContextKey = "input"

// Well-known arguments of ai_agent steps.
const (
	ArgPrompt     = "prompt"
	ArgWorkingDir = "working_dir"
)

// Workflow is an ordered list of steps, loaded once per run and never mutated.
type Workflow struct {
	// Name is optional and only used for logging and execution records.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Description is free text shown by the CLI.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Steps run strictly in declared order.
	Steps []WorkflowStep `yaml:"steps" json:"steps"`
}

// WorkflowStep is one unit of work.
//
// The If field holds an interpolation template. When it resolves to an empty
// string or the literal "false" the step is skipped.
type WorkflowStep struct {
	ID   string   `yaml:"id" json:"id"`
	Type StepType `yaml:"type" json:"type"`

	// Tool must be set if and only if Type is StepTypeTool.
	Tool string `yaml:"tool,omitempty" json:"tool,omitempty"`

	Args map[string]interface{} `yaml:"args,omitempty" json:"args,omitempty"`

	If string `yaml:"if,omitempty" json:"if,omitempty"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ToolNames returns the tool referenced by every tool step, in step order.
func (w *Workflow) ToolNames() []string {
	var names []string
	for _, step := range w.Steps {
		if step.Type == StepTypeTool {
			names = append(names, step.Tool)
		}
	}
	return names
}

// OutputKind tags how a step output was produced.
type OutputKind string

const (
	// OutputStructured means the output parsed as JSON.
	OutputStructured OutputKind = "structured"
	// OutputRaw means the output is kept as the original text.
	OutputRaw OutputKind = "raw"
)

// HasIssuesKey is hoisted from structured tool output into StepOutput.HasIssues.
const HasIssuesKey = "has_issues"

// StepOutput is the context entry written for an executed step.
// It is either Structured(value) or Raw(text); there is no third state.
type StepOutput struct {
	Kind      OutputKind
	Value     interface{}
	Text      string
	HasIssues *bool
}

// Structured wraps a parsed JSON value.
func Structured(v interface{}) StepOutput {
	out := StepOutput{Kind: OutputStructured, Value: v}
	if m, ok := v.(map[string]interface{}); ok {
		if hasIssues, ok := m[HasIssuesKey].(bool); ok {
			out.HasIssues = &hasIssues
		}
	}
	return out
}

// Raw wraps unparsed text.
func Raw(text string) StepOutput {
	return StepOutput{Kind: OutputRaw, Text: text}
}

// Output returns the value templates see under "<step>.output".
func (o StepOutput) Output() interface{} {
	if o.Kind == OutputStructured {
		return o.Value
	}
	return o.Text
}

// ContextValue is the representation stored in the interpolation context:
// {"output": ..., "has_issues": ...}; has_issues is omitted when unknown.
func (o StepOutput) ContextValue() map[string]interface{} {
	entry := map[string]interface{}{
		"output": o.Output(),
	}
	if o.HasIssues != nil {
		entry[HasIssuesKey] = *o.HasIssues
	}
	return entry
}

type stepOutputJSON struct {
	Kind      OutputKind  `json:"kind"`
	Output    interface{} `json:"output"`
	HasIssues *bool       `json:"has_issues,omitempty"`
}

// MarshalJSON renders the tagged output for execution records.
func (o StepOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(stepOutputJSON{Kind: o.Kind, Output: o.Output(), HasIssues: o.HasIssues})
}

// UnmarshalJSON restores a StepOutput written by MarshalJSON.
func (o *StepOutput) UnmarshalJSON(data []byte) error {
	var raw stepOutputJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case OutputStructured:
		*o = StepOutput{Kind: OutputStructured, Value: raw.Output, HasIssues: raw.HasIssues}
	default:
		text, _ := raw.Output.(string)
		*o = StepOutput{Kind: OutputRaw, Text: text, HasIssues: raw.HasIssues}
	}
	return nil
}

// AgentResult is the final outcome of one AI agent invocation.
type AgentResult struct {
	Output string `json:"output"`

	// SessionID is reported by backends that track sessions.
	SessionID string `json:"session_id,omitempty"`

	// CostUSD and NumTurns are informational and may be zero.
	CostUSD  float64 `json:"cost_usd,omitempty"`
	NumTurns int     `json:"num_turns,omitempty"`
}
