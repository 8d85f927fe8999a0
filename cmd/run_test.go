package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/giantswarm/stepflow/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testEnv is a config file enabling the git plugin with records in a temp dir.
type testEnv struct {
	dir        string
	configPath string
	recordDir  string
}

func newTestEnv(t *testing.T, plugins ...string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	recordDir := filepath.Join(dir, "records")
	cfg := "plugins:\n  enabled: [" + strings.Join(plugins, ", ") + "]\n" +
		"secrets:\n  env: [STEPFLOW_TEST_UNSET]\n" +
		"executions:\n  dir: " + recordDir + "\n" +
		"logging:\n  level: error\n"
	return &testEnv{
		dir:        dir,
		configPath: writeFile(t, dir, "config.yaml", cfg),
		recordDir:  recordDir,
	}
}

// run executes the CLI and returns stdout and the exit code.
func (e *testEnv) run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), getExitCode(err)
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func newOrigin(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	seed := filepath.Join(root, "seed")
	require.NoError(t, os.MkdirAll(seed, 0o755))
	for _, args := range [][]string{
		{"init"},
		{"-c", "user.name=test", "-c", "user.email=test@example.com", "commit", "--allow-empty", "-m", "initial"},
		{"branch", "-M", "main"},
	} {
		c := exec.Command("git", args...)
		c.Dir = seed
		out, err := c.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	origin := filepath.Join(root, "origin.git")
	out, err := exec.Command("git", "clone", "--bare", seed, origin).CombinedOutput()
	require.NoError(t, err, string(out))
	return origin
}

const cloneWorkflow = `name: clone-and-diff
steps:
  - id: clone
    type: tool
    tool: git_clone
    args:
      repo_url: "{{ input.repo }}"
      target_dir: "{{ input.dest }}"
  - id: diff
    type: tool
    tool: git_diff
    args:
      repo_dir: "{{ clone.output.path }}"
`

func TestRun_Succeeds(t *testing.T) {
	requireGit(t)
	env := newTestEnv(t, "git")
	wfPath := writeFile(t, env.dir, "wf.yaml", cloneWorkflow)
	dest := filepath.Join(env.dir, "checkout")

	input, err := json.Marshal(map[string]string{"repo": newOrigin(t), "dest": dest})
	require.NoError(t, err)

	out, code := env.run(t, "run", wfPath, "--input", string(input), "-o", "json")
	require.Equal(t, ExitCodeSuccess, code, out)

	var execution api.WorkflowExecution
	require.NoError(t, json.Unmarshal([]byte(out), &execution))
	assert.Equal(t, api.ExecutionCompleted, execution.Status)
	assert.Equal(t, "clone-and-diff", execution.WorkflowName)
	require.Len(t, execution.Steps, 2)
	assert.Equal(t, api.StepCompleted, execution.Steps[1].Status)
	assert.DirExists(t, filepath.Join(dest, ".git"))

	records, code := env.run(t, "executions", "list", "-o", "json")
	require.Equal(t, ExitCodeSuccess, code)
	var summaries []api.ExecutionSummary
	require.NoError(t, json.Unmarshal([]byte(records), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, execution.ExecutionID, summaries[0].ExecutionID)

	table, code := env.run(t, "executions", "get", execution.ExecutionID)
	require.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, table, "clone-and-diff")
	assert.Contains(t, table, "git_diff")
}

func TestRun_StepFailureStopsTheRun(t *testing.T) {
	requireGit(t)
	env := newTestEnv(t, "git")
	wfPath := writeFile(t, env.dir, "wf.yaml", cloneWorkflow)

	input := `{"repo": "` + filepath.Join(env.dir, "missing.git") + `", "dest": "` + filepath.Join(env.dir, "checkout") + `"}`
	out, code := env.run(t, "run", wfPath, "--input", input, "-o", "json")
	require.Equal(t, ExitCodeError, code)

	var execution api.WorkflowExecution
	require.NoError(t, json.Unmarshal([]byte(out), &execution))
	assert.Equal(t, api.ExecutionFailed, execution.Status)
	assert.Equal(t, api.StepFailed, execution.Steps[0].Status)
	assert.Equal(t, api.StepPending, execution.Steps[1].Status)
	assert.NotEmpty(t, execution.Error)
}

func TestRun_RejectedBeforeAnyStep(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		workflow string
		args     []string
	}{
		{
			name:     "missing tool",
			workflow: cloneWorkflow,
		},
		{
			name:     "invalid definition",
			workflow: "steps:\n  - id: a\n    type: tool\n",
		},
		{
			name:     "unknown field",
			workflow: "steps:\n  - id: a\n    type: ai_agent\n    prompt: oops\n",
		},
		{
			name:     "malformed input",
			workflow: "steps:\n  - id: a\n    type: ai_agent\n    args:\n      prompt: hi\n",
			args:     []string{"--input", "{not json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wfPath := writeFile(t, t.TempDir(), "wf.yaml", tt.workflow)
			_, code := env.run(t, append([]string{"run", wfPath}, tt.args...)...)
			assert.Equal(t, ExitCodeInvalid, code)
		})
	}

	_, code := env.run(t, "run", filepath.Join(env.dir, "nope.yaml"))
	assert.Equal(t, ExitCodeInvalid, code)

	entries, err := os.ReadDir(env.recordDir)
	if err == nil {
		assert.Empty(t, entries, "no execution is recorded when the run is rejected")
	}
}

func TestRun_UnknownPlugin(t *testing.T) {
	env := newTestEnv(t, "jira")
	_, code := env.run(t, "tools")
	assert.Equal(t, ExitCodeInvalid, code)
}

func TestValidate(t *testing.T) {
	requireGit(t)
	env := newTestEnv(t, "git")

	wfPath := writeFile(t, env.dir, "wf.yaml", cloneWorkflow)
	out, code := env.run(t, "validate", wfPath)
	require.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, out, "Workflow clone-and-diff is valid (2 steps)")

	forward := writeFile(t, env.dir, "forward.yaml", `steps:
  - id: diff
    type: tool
    tool: git_diff
    args:
      repo_dir: "{{ clone.output.path }}"
  - id: clone
    type: tool
    tool: git_clone
    args:
      repo_url: x
      target_dir: y
`)
	out, code = env.run(t, "validate", forward)
	assert.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, out, "warning:")

	_, code = env.run(t, "validate", forward, "--strict")
	assert.Equal(t, ExitCodeInvalid, code)
}

func TestTools(t *testing.T) {
	requireGit(t)
	env := newTestEnv(t, "git")

	out, code := env.run(t, "tools")
	require.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, out, "git_clone")
	assert.Contains(t, out, "git_push")

	out, code = env.run(t, "tools", "-o", "json")
	require.Equal(t, ExitCodeSuccess, code)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.NotEmpty(t, rows)
	assert.Equal(t, "git", rows[0]["plugin"])
}

func TestExecutions_Disabled(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "executions:\n  disabled: true\n")
	env := &testEnv{dir: dir, configPath: cfg}

	_, code := env.run(t, "executions", "list")
	assert.Equal(t, ExitCodeError, code)

	_, code = env.run(t, "executions", "list", "--record-dir", filepath.Join(dir, "records"))
	assert.Equal(t, ExitCodeSuccess, code)

	_, code = env.run(t, "executions", "get", "nope", "--record-dir", filepath.Join(dir, "records"))
	assert.Equal(t, ExitCodeInvalid, code)
}
