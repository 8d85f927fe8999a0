package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/giantswarm/stepflow/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleWorkflow = `
name: fix-issue
description: Clone, review and fix
steps:
  - id: clone
    type: tool
    tool: git_clone
    args:
      repo_url: "{{ input.repo }}"
      target_dir: /tmp/work
      depth: 1
  - id: review
    type: ai_agent
    args:
      prompt: "Review {{ clone.output.path }}"
  - id: fix
    type: ai_agent
    if: "{{ review.has_issues }}"
    args:
      prompt: Fix the issues
      working_dir: /tmp/work
`

func TestLoadWorkflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleWorkflow), 0o644))

	wf, err := LoadWorkflow(path)
	require.NoError(t, err)

	assert.Equal(t, "fix-issue", wf.Name)
	require.Len(t, wf.Steps, 3)
	assert.Equal(t, api.StepTypeTool, wf.Steps[0].Type)
	assert.Equal(t, "git_clone", wf.Steps[0].Tool)
	assert.Equal(t, float64(1), wf.Steps[0].Args["depth"])
	assert.Equal(t, "{{ review.has_issues }}", wf.Steps[2].If)
	assert.Equal(t, []string{"git_clone"}, wf.ToolNames())
}

func TestLoadWorkflow_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"steps":[{"id":"a","type":"tool","tool":"x"}]}`), 0o644))

	wf, err := LoadWorkflow(path)
	require.NoError(t, err)
	assert.Equal(t, "x", wf.Steps[0].Tool)
}

func TestLoadWorkflow_Errors(t *testing.T) {
	_, err := LoadWorkflow(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, api.IsNotFound(err))

	_, err = ParseWorkflow([]byte("steps:\n  - id: a\n    type: tool\n    tool: x\n    tools: [y]\n"), "typo.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "typo.yaml")
}

func TestValidateDefinition(t *testing.T) {
	tests := []struct {
		name        string
		steps       []api.WorkflowStep
		errContains string
	}{
		{
			name:        "no steps",
			errContains: "must have at least one step",
		},
		{
			name:        "missing id",
			steps:       []api.WorkflowStep{{Type: api.StepTypeTool, Tool: "x"}},
			errContains: "steps[0].id': is required",
		},
		{
			name: "duplicate id",
			steps: []api.WorkflowStep{
				{ID: "a", Type: api.StepTypeTool, Tool: "x"},
				{ID: "a", Type: api.StepTypeTool, Tool: "y"},
			},
			errContains: "must be unique",
		},
		{
			name:        "id with dot",
			steps:       []api.WorkflowStep{{ID: "a.b", Type: api.StepTypeTool, Tool: "x"}},
			errContains: "may only contain",
		},
		{
			name:        "reserved id",
			steps:       []api.WorkflowStep{{ID: "input", Type: api.StepTypeTool, Tool: "x"}},
			errContains: "reserved",
		},
		{
			name:        "unknown type",
			steps:       []api.WorkflowStep{{ID: "a", Type: "shell"}},
			errContains: "must be one of: ai_agent, tool",
		},
		{
			name:        "tool step without tool",
			steps:       []api.WorkflowStep{{ID: "a", Type: api.StepTypeTool}},
			errContains: "is required for tool steps",
		},
		{
			name:        "agent step with tool",
			steps:       []api.WorkflowStep{{ID: "a", Type: api.StepTypeAIAgent, Tool: "x", Args: map[string]interface{}{"prompt": "p"}}},
			errContains: "must not be set for ai_agent steps",
		},
		{
			name:        "agent step without prompt",
			steps:       []api.WorkflowStep{{ID: "a", Type: api.StepTypeAIAgent}},
			errContains: "args.prompt': is required",
		},
		{
			name:        "agent step with non-string prompt",
			steps:       []api.WorkflowStep{{ID: "a", Type: api.StepTypeAIAgent, Args: map[string]interface{}{"prompt": 3}}},
			errContains: "must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDefinition(&api.Workflow{Steps: tt.steps})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}

	valid := &api.Workflow{Steps: []api.WorkflowStep{
		{ID: "clone-repo", Type: api.StepTypeTool, Tool: "git_clone"},
		{ID: "review_1", Type: api.StepTypeAIAgent, Args: map[string]interface{}{"prompt": "p"}},
	}}
	assert.NoError(t, ValidateDefinition(valid))
}

func TestLint(t *testing.T) {
	wf := &api.Workflow{Steps: []api.WorkflowStep{
		{ID: "clone", Type: api.StepTypeTool, Tool: "git_clone", Args: map[string]interface{}{
			"repo_url": "{{ input.repo }}",
			"branch":   "{{ review.output }}",
		}},
		{ID: "review", Type: api.StepTypeAIAgent, If: "{{ clone.has_issues }}", Args: map[string]interface{}{
			"prompt": "Check {{ clone.output.path }} and {{ clone.result }} and {{ review.output }}",
			"depth":  3,
		}},
	}}

	warnings := Lint(wf)
	require.Len(t, warnings, 3)

	assert.Equal(t, "clone", warnings[0].StepID)
	assert.Equal(t, "args.branch", warnings[0].Field)
	assert.Equal(t, "review.output", warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "neither input nor an earlier step")

	assert.Equal(t, "clone.result", warnings[1].Path)
	assert.Contains(t, warnings[1].Message, `field "result"`)

	assert.Equal(t, "review.output", warnings[2].Path)
	assert.Contains(t, warnings[2].Message, "the step itself")
	assert.Contains(t, warnings[2].String(), "step review, args.prompt:")
}

func TestSessionTracker(t *testing.T) {
	s := NewSessionTracker()
	assert.False(t, s.Next())
	assert.True(t, s.Next())
	assert.True(t, s.Next())
}

func TestRunContext(t *testing.T) {
	t.Run("without input", func(t *testing.T) {
		c := NewRunContext(nil)
		_, hasInput := c.Snapshot()["input"]
		assert.False(t, hasInput)
	})

	t.Run("append only", func(t *testing.T) {
		c := NewRunContext(map[string]interface{}{"repo": "r"})
		require.NoError(t, c.Record("a", api.Raw("out")))
		assert.Error(t, c.Record("a", api.Raw("again")))
		assert.Error(t, c.Record("input", api.Raw("x")))
		assert.Equal(t, 1, c.Len())

		snap := c.Snapshot()
		assert.Equal(t, map[string]interface{}{"repo": "r"}, snap["input"])
		assert.Equal(t, map[string]interface{}{"output": "out"}, snap["a"])

		out, ok := c.Output("a")
		require.True(t, ok)
		assert.Equal(t, "out", out.Text)
	})
}
