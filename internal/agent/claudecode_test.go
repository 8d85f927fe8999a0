package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/giantswarm/stepflow/internal/api"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildClaudeArgs(t *testing.T) {
	tools := []mcp.Tool{mcp.NewTool("git_clone"), mcp.NewTool("git_push")}

	tests := []struct {
		name      string
		req       Request
		sessionID string
		mcpConfig string
		want      []string
	}{
		{
			name: "fresh session without tools",
			req:  Request{Prompt: "p"},
			want: []string{"-p", "--output-format", "json"},
		},
		{
			name: "continue without known session",
			req:  Request{Prompt: "p", ContinueSession: true},
			want: []string{"-p", "--output-format", "json", "--continue"},
		},
		{
			name:      "resume known session",
			req:       Request{Prompt: "p", ContinueSession: true},
			sessionID: "abc",
			want:      []string{"-p", "--output-format", "json", "--resume", "abc"},
		},
		{
			name:      "fresh session ignores known session",
			req:       Request{Prompt: "p"},
			sessionID: "abc",
			want:      []string{"-p", "--output-format", "json"},
		},
		{
			name:      "tools are allowed through the mcp config",
			req:       Request{Prompt: "p", Tools: tools},
			mcpConfig: "/tmp/mcp.json",
			want: []string{"-p", "--output-format", "json", "--mcp-config", "/tmp/mcp.json",
				"--allowedTools", "mcp__stepflow__git_clone,mcp__stepflow__git_push"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildClaudeArgs(tt.req, tt.sessionID, tt.mcpConfig, nil))
		})
	}

	got := buildClaudeArgs(Request{}, "", "", []string{"--model", "opus"})
	assert.Equal(t, []string{"-p", "--output-format", "json", "--model", "opus"}, got)
}

func TestParseClaudeResult(t *testing.T) {
	t.Run("single envelope", func(t *testing.T) {
		r, err := parseClaudeResult([]byte(`{"type":"result","subtype":"success","is_error":false,"result":"done","session_id":"s1","total_cost_usd":0.25,"num_turns":4}`))
		require.NoError(t, err)
		assert.Equal(t, "done", r.Result)
		assert.Equal(t, "s1", r.SessionID)
		assert.Equal(t, 0.25, r.TotalCostUSD)
		assert.Equal(t, 4, r.NumTurns)
	})

	t.Run("event array", func(t *testing.T) {
		r, err := parseClaudeResult([]byte(`[{"type":"system"},{"type":"assistant"},{"type":"result","result":"final"}]`))
		require.NoError(t, err)
		assert.Equal(t, "final", r.Result)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := parseClaudeResult([]byte("  "))
		assert.EqualError(t, err, "agent produced no output")
		_, err = parseClaudeResult([]byte("not json"))
		assert.Error(t, err)
		_, err = parseClaudeResult([]byte(`[{"type":"system"}]`))
		assert.Error(t, err)
	})
}

func TestMCPConfigJSON(t *testing.T) {
	data, err := MCPConfigJSON(MCPServerCommand{Command: "/usr/bin/stepflow", Args: []string{"mcp-server"}})
	require.NoError(t, err)

	var doc map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	entry := doc["mcpServers"]["stepflow"]
	assert.Equal(t, "stdio", entry["type"])
	assert.Equal(t, "/usr/bin/stepflow", entry["command"])
	assert.Equal(t, []interface{}{"mcp-server"}, entry["args"])
}

// writeFakeClaude writes a shell script that records its arguments and
// stdin and prints the given output.
func writeFakeClaude(t *testing.T, output string, exitCode int) (script, argsFile, stdinFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	stdinFile = filepath.Join(dir, "stdin")
	outFile := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(outFile, []byte(output), 0o644))

	script = filepath.Join(dir, "claude")
	content := "#!/bin/sh\n" +
		"printf '%s\\n' \"$@\" > " + argsFile + "\n" +
		"pwd >> " + argsFile + "\n" +
		"cat > " + stdinFile + "\n" +
		"cat " + outFile + "\n" +
		"echo 'progress on stderr' >&2\n" +
		"exit " + string(rune('0'+exitCode)) + "\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0o755))
	return script, argsFile, stdinFile
}

func TestClaudeCode_Run(t *testing.T) {
	script, argsFile, stdinFile := writeFakeClaude(t,
		`{"type":"result","is_error":false,"result":"all done","session_id":"sess-42","num_turns":2}`, 0)
	workDir := t.TempDir()

	cc := NewClaudeCode(ClaudeCodeOptions{
		Command:   script,
		MCPServer: &MCPServerCommand{Command: "stepflow", Args: []string{"mcp-server"}},
	})
	defer cc.Close()

	ctx := context.Background()
	res, err := cc.Run(ctx, Request{Prompt: "do the thing", WorkingDirectory: workDir, Tools: []mcp.Tool{mcp.NewTool("git_clone")}})
	require.NoError(t, err)
	assert.Equal(t, "all done", res.Output)
	assert.Equal(t, "sess-42", res.SessionID)
	assert.Equal(t, 2, res.NumTurns)

	stdin, err := os.ReadFile(stdinFile)
	require.NoError(t, err)
	assert.Equal(t, "do the thing", string(stdin))

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(args)), "\n")
	assert.Contains(t, lines, "--mcp-config")
	assert.Contains(t, lines, "mcp__stepflow__git_clone")
	assert.NotContains(t, lines, "--resume")
	resolvedWorkDir, _ := filepath.EvalSymlinks(workDir)
	assert.Contains(t, []string{workDir, resolvedWorkDir}, lines[len(lines)-1])

	_, err = cc.Run(ctx, Request{Prompt: "again", WorkingDirectory: workDir, ContinueSession: true})
	require.NoError(t, err)
	args, err = os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "--resume\nsess-42\n")
}

func TestClaudeCode_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty prompt", func(t *testing.T) {
		_, err := NewClaudeCode(ClaudeCodeOptions{}).Run(ctx, Request{Prompt: "  "})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})

	t.Run("reported error", func(t *testing.T) {
		script, _, _ := writeFakeClaude(t, `{"type":"result","is_error":true,"result":"credit balance too low"}`, 1)
		_, err := NewClaudeCode(ClaudeCodeOptions{Command: script}).Run(ctx, Request{Prompt: "p", WorkingDirectory: t.TempDir()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credit balance too low")
	})

	t.Run("crash without envelope", func(t *testing.T) {
		script, _, _ := writeFakeClaude(t, "", 2)
		_, err := NewClaudeCode(ClaudeCodeOptions{Command: script}).Run(ctx, Request{Prompt: "p", WorkingDirectory: t.TempDir()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "progress on stderr")
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := NewClaudeCode(ClaudeCodeOptions{Command: filepath.Join(t.TempDir(), "nope")}).Run(ctx, Request{Prompt: "p"})
		assert.Error(t, err)
	})
}

func TestFunc(t *testing.T) {
	var got Request
	f := Func(func(_ context.Context, req Request) (*api.AgentResult, error) {
		got = req
		return &api.AgentResult{Output: "ok"}, nil
	})
	res, err := f.Run(context.Background(), Request{Prompt: "hi", ContinueSession: true})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Output)
	assert.True(t, got.ContinueSession)
}
