package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/giantswarm/stepflow/internal/api"
	"github.com/giantswarm/stepflow/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// MCPServerName is the name the tool server is registered under in the
// claude CLI MCP configuration. Tool names are therefore exposed to the CLI
// as mcp__stepflow__<tool>.
const MCPServerName = "stepflow"

// maxStderrInError bounds how much stderr is quoted in an error.
const maxStderrInError = 2048

// MCPServerCommand is the command the CLI spawns to reach the tool server.
type MCPServerCommand struct {
	Command string
	Args    []string
	Env     map[string]string
}

// ClaudeCodeOptions configures the claude CLI backend.
type ClaudeCodeOptions struct {
	// Command is the CLI binary. Defaults to "claude".
	Command string

	// MCPServer, when set, is written to an MCP config file passed to the CLI
	// so that registered plugin tools are callable.
	MCPServer *MCPServerCommand

	// ExtraArgs are appended to every invocation.
	ExtraArgs []string

	// Timeout bounds one invocation; zero means no limit beyond ctx.
	Timeout time.Duration

	Logger *logging.Logger
}

// ClaudeCode runs prompts through the claude CLI in print mode.
type ClaudeCode struct {
	opts ClaudeCodeOptions
	log  *logging.Logger

	mu            sync.Mutex
	sessionID     string
	mcpConfigPath string
	mcpConfigDir  string
}

// claudeResult is the JSON envelope printed by --output-format json.
type claudeResult struct {
	Type         string  `json:"type"`
	Subtype      string  `json:"subtype"`
	IsError      bool    `json:"is_error"`
	Result       string  `json:"result"`
	SessionID    string  `json:"session_id"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	NumTurns     int     `json:"num_turns"`
}

// NewClaudeCode creates the backend.
func NewClaudeCode(opts ClaudeCodeOptions) *ClaudeCode {
	if opts.Command == "" {
		opts.Command = "claude"
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &ClaudeCode{opts: opts, log: log.With("ClaudeCode")}
}

// Run implements Agent.
func (c *ClaudeCode) Run(ctx context.Context, req Request) (*api.AgentResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	mcpConfig, err := c.ensureMCPConfig()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()

	args := buildClaudeArgs(req, sessionID, mcpConfig, c.opts.ExtraArgs)

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	c.log.Debug("Running %s %s in %s", c.opts.Command, strings.Join(args, " "), req.WorkingDirectory)
	stdout, stderr, runErr := c.exec(ctx, req.WorkingDirectory, req.Prompt, args)

	result, parseErr := parseClaudeResult(stdout)
	if parseErr != nil {
		if runErr != nil {
			return nil, fmt.Errorf("%s failed: %w%s", c.opts.Command, runErr, stderrSuffix(stderr))
		}
		return nil, fmt.Errorf("%w%s", parseErr, stderrSuffix(stderr))
	}

	if result.SessionID != "" {
		c.mu.Lock()
		c.sessionID = result.SessionID
		c.mu.Unlock()
	}

	if result.IsError {
		msg := result.Result
		if msg == "" {
			msg = result.Subtype
		}
		return nil, fmt.Errorf("agent reported an error: %s", msg)
	}
	if runErr != nil {
		return nil, fmt.Errorf("%s failed: %w%s", c.opts.Command, runErr, stderrSuffix(stderr))
	}

	c.log.Info("Agent finished in %d turns (session %s, cost $%.4f)", result.NumTurns, result.SessionID, result.TotalCostUSD)
	return &api.AgentResult{
		Output:    result.Result,
		SessionID: result.SessionID,
		CostUSD:   result.TotalCostUSD,
		NumTurns:  result.NumTurns,
	}, nil
}

// exec runs the CLI with prompt on stdin and drains stdout and stderr
// concurrently.
func (c *ClaudeCode) exec(ctx context.Context, dir, prompt string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, c.opts.Command, args...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(prompt)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stdout: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start %s: %w", c.opts.Command, err)
	}

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})
	drainErr := g.Wait()

	waitErr := cmd.Wait()
	if waitErr == nil && drainErr != nil {
		waitErr = fmt.Errorf("failed to read output: %w", drainErr)
	}
	return stdout.Bytes(), stderr.Bytes(), waitErr
}

// ensureMCPConfig writes the MCP config file on first use.
func (c *ClaudeCode) ensureMCPConfig() (string, error) {
	if c.opts.MCPServer == nil {
		return "", nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mcpConfigPath != "" {
		return c.mcpConfigPath, nil
	}

	dir, err := os.MkdirTemp("", "stepflow-mcp-")
	if err != nil {
		return "", fmt.Errorf("failed to create MCP config directory: %w", err)
	}
	data, err := MCPConfigJSON(*c.opts.MCPServer)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	path := filepath.Join(dir, "mcp.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("failed to write MCP config: %w", err)
	}

	c.mcpConfigDir = dir
	c.mcpConfigPath = path
	return path, nil
}

// Close removes the generated MCP config.
func (c *ClaudeCode) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mcpConfigDir == "" {
		return nil
	}
	err := os.RemoveAll(c.mcpConfigDir)
	c.mcpConfigDir, c.mcpConfigPath = "", ""
	return err
}

// MCPConfigJSON renders the --mcp-config document for the tool server.
func MCPConfigJSON(srv MCPServerCommand) ([]byte, error) {
	type serverEntry struct {
		Type    string            `json:"type"`
		Command string            `json:"command"`
		Args    []string          `json:"args,omitempty"`
		Env     map[string]string `json:"env,omitempty"`
	}
	doc := map[string]map[string]serverEntry{
		"mcpServers": {
			MCPServerName: {Type: "stdio", Command: srv.Command, Args: srv.Args, Env: srv.Env},
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MCP config: %w", err)
	}
	return data, nil
}

func buildClaudeArgs(req Request, sessionID, mcpConfigPath string, extra []string) []string {
	args := []string{"-p", "--output-format", "json"}

	if req.ContinueSession {
		if sessionID != "" {
			args = append(args, "--resume", sessionID)
		} else {
			args = append(args, "--continue")
		}
	}

	if mcpConfigPath != "" {
		args = append(args, "--mcp-config", mcpConfigPath)
		if len(req.Tools) > 0 {
			allowed := make([]string, 0, len(req.Tools))
			for _, name := range req.ToolNames() {
				allowed = append(allowed, "mcp__"+MCPServerName+"__"+name)
			}
			args = append(args, "--allowedTools", strings.Join(allowed, ","))
		}
	}

	return append(args, extra...)
}

// parseClaudeResult finds the result envelope in the CLI output. Some CLI
// versions print a JSON array of events; the last event of type result wins.
func parseClaudeResult(stdout []byte) (*claudeResult, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return nil, errors.New("agent produced no output")
	}

	if trimmed[0] == '[' {
		var events []claudeResult
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("failed to parse agent output: %w", err)
		}
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].Type == "result" {
				return &events[i], nil
			}
		}
		return nil, errors.New("agent output contains no result event")
	}

	var result claudeResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("failed to parse agent output: %w", err)
	}
	return &result, nil
}

func stderrSuffix(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if s == "" {
		return ""
	}
	if len(s) > maxStderrInError {
		s = s[len(s)-maxStderrInError:]
	}
	return ": " + s
}
