package workflow

import (
	"fmt"

	"github.com/giantswarm/stepflow/internal/api"
)

// RunContext holds the outputs of executed steps for one run. Entries are
// only ever added; a step id is written at most once.
type RunContext struct {
	input    map[string]interface{}
	hasInput bool
	outputs  map[string]api.StepOutput
}

// NewRunContext creates a context seeded with input under "input" when input
// is non-nil.
func NewRunContext(input map[string]interface{}) *RunContext {
	return &RunContext{
		input:    input,
		hasInput: input != nil,
		outputs:  make(map[string]api.StepOutput),
	}
}

// Record stores the output of stepID.
func (c *RunContext) Record(stepID string, out api.StepOutput) error {
	if stepID == api.InputContextKey {
		return fmt.Errorf("step id %q is reserved", stepID)
	}
	if _, exists := c.outputs[stepID]; exists {
		return fmt.Errorf("output of step %s already recorded", stepID)
	}
	c.outputs[stepID] = out
	return nil
}

// Output returns the recorded output of stepID.
func (c *RunContext) Output(stepID string) (api.StepOutput, bool) {
	out, ok := c.outputs[stepID]
	return out, ok
}

// Len returns the number of recorded step outputs.
func (c *RunContext) Len() int {
	return len(c.outputs)
}

// Snapshot returns the context as seen by templates:
//
//	input       -> the trigger payload
//	<step id>   -> {"output": ..., "has_issues": ...}
func (c *RunContext) Snapshot() map[string]interface{} {
	snap := make(map[string]interface{}, len(c.outputs)+1)
	if c.hasInput {
		snap[api.InputContextKey] = c.input
	}
	for id, out := range c.outputs {
		snap[id] = out.ContextValue()
	}
	return snap
}
