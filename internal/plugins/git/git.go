// Package git provides the git plugin: cloning, branching, committing,
// pushing and diffing local working copies with the git binary.
package git

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/giantswarm/stepflow/internal/plugin"
	"github.com/giantswarm/stepflow/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// Name is the plugin name.
const Name = "git"

// TokenSecret optionally authenticates HTTPS remotes on the token host.
const TokenSecret = "GIT_TOKEN"

// TokenHostSecret names the host, or URL prefix, the token is sent to.
// Remotes anywhere else are contacted without credentials.
const TokenHostSecret = "GIT_TOKEN_HOST"

// DefaultTokenHost is used when TokenHostSecret is unset.
const DefaultTokenHost = "github.com"

// Tool names.
const (
	ToolClone        = "git_clone"
	ToolCreateBranch = "git_create_branch"
	ToolCommit       = "git_commit"
	ToolPush         = "git_push"
	ToolDiff         = "git_diff"
)

// Config is the immutable configuration produced by Init.
type Config struct {
	Binary string
	Token  string

	// TokenURL is the URL prefix the token is scoped to, for example
	// https://github.com/.
	TokenURL string
}

// Plugin implements plugin.Plugin.
type Plugin struct {
	binary string
	log    *logging.Logger
}

// New creates the plugin using the git binary on PATH.
func New(log *logging.Logger) *Plugin {
	if log == nil {
		log = logging.Discard()
	}
	return &Plugin{binary: "git", log: log.With("GitPlugin")}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Tools() []mcp.Tool {
	repoDir := mcp.WithString("repo_dir", mcp.Required(), mcp.Description("Path of the local working copy"))
	return []mcp.Tool{
		mcp.NewTool(ToolClone,
			mcp.WithDescription("Clone a repository into a local directory"),
			mcp.WithString("repo_url", mcp.Required(), mcp.Description("URL or path of the repository")),
			mcp.WithString("target_dir", mcp.Required(), mcp.Description("Directory to clone into")),
			mcp.WithString("branch", mcp.Description("Branch to check out")),
			mcp.WithNumber("depth", mcp.Description("Create a shallow clone with this many commits")),
		),
		mcp.NewTool(ToolCreateBranch,
			mcp.WithDescription("Create and check out a new branch"),
			repoDir,
			mcp.WithString("branch", mcp.Required(), mcp.Description("Name of the new branch")),
			mcp.WithString("from", mcp.Description("Start point, defaults to HEAD")),
		),
		mcp.NewTool(ToolCommit,
			mcp.WithDescription("Stage all changes and commit them"),
			repoDir,
			mcp.WithString("message", mcp.Required(), mcp.Description("Commit message")),
			mcp.WithString("author_name", mcp.Description("Author and committer name")),
			mcp.WithString("author_email", mcp.Description("Author and committer email")),
		),
		mcp.NewTool(ToolPush,
			mcp.WithDescription("Push a branch to a remote"),
			repoDir,
			mcp.WithString("remote", mcp.Description("Remote name, defaults to origin")),
			mcp.WithString("branch", mcp.Description("Branch to push, defaults to the current branch")),
		),
		mcp.NewTool(ToolDiff,
			mcp.WithDescription("Show uncommitted changes, or changes against a base revision. "+
				"files lists every changed or untracked path, renames by their new path"),
			repoDir,
			mcp.WithString("base", mcp.Description("Revision to diff against, defaults to HEAD")),
		),
	}
}

// Init reads the optional token. The git binary must be installed.
func (p *Plugin) Init(_ context.Context, secrets plugin.Secrets) (plugin.Config, error) {
	binary, err := exec.LookPath(p.binary)
	if err != nil {
		return nil, fmt.Errorf("plugin %s requires the git binary: %w", Name, err)
	}
	conf := Config{Binary: binary, Token: secrets[TokenSecret]}
	if conf.Token != "" {
		if conf.TokenURL, err = tokenURL(secrets[TokenHostSecret]); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", Name, err)
		}
	}
	return conf, nil
}

// tokenURL normalizes a host or URL prefix into the form git matches
// http.<url>.* settings against.
func tokenURL(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultTokenHost
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid %s %q", TokenHostSecret, host)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("%s %q must be an http or https URL", TokenHostSecret, host)
	}
	u.User = nil
	u.RawQuery, u.Fragment = "", ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String(), nil
}

func (p *Plugin) HandleToolCall(ctx context.Context, cfg plugin.Config, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	conf, err := plugin.ConfigAs[Config](Name, cfg)
	if err != nil {
		return nil, err
	}
	r := runner{conf: conf, log: p.log}
	a := plugin.Args(args)

	var result interface{}
	switch name {
	case ToolClone:
		result, err = r.clone(ctx, a)
	case ToolCreateBranch:
		result, err = r.createBranch(ctx, a)
	case ToolCommit:
		result, err = r.commit(ctx, a)
	case ToolPush:
		result, err = r.push(ctx, a)
	case ToolDiff:
		result, err = r.diff(ctx, a)
	default:
		return nil, fmt.Errorf("unknown git tool: %s", name)
	}
	if err != nil {
		return plugin.ErrorResult("%s failed: %v", name, err), nil
	}
	return plugin.JSONResult(result)
}

// CloneResult is the output of git_clone.
type CloneResult struct {
	Path    string `json:"path"`
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch"`
	Commit  string `json:"commit"`
}

// CommitResult is the output of git_commit. Committed is false when there
// was nothing to commit; Commit is HEAD in either case.
type CommitResult struct {
	Commit    string `json:"commit"`
	Committed bool   `json:"committed"`
}

// DiffResult is the output of git_diff.
type DiffResult struct {
	Diff       string   `json:"diff"`
	HasChanges bool     `json:"has_changes"`
	Files      []string `json:"files"`
}

type runner struct {
	conf Config
	log  *logging.Logger
}

func (r runner) clone(ctx context.Context, a plugin.Args) (*CloneResult, error) {
	repoURL, err := a.RequireString("repo_url")
	if err != nil {
		return nil, err
	}
	target, err := a.RequireString("target_dir")
	if err != nil {
		return nil, err
	}
	branch, err := a.String("branch")
	if err != nil {
		return nil, err
	}
	depth, err := a.Int("depth", 0)
	if err != nil {
		return nil, err
	}

	target, err = filepath.Abs(target)
	if err != nil {
		return nil, err
	}
	if entries, err := os.ReadDir(target); err == nil && len(entries) > 0 {
		return nil, fmt.Errorf("target directory %s is not empty", target)
	}

	if err := checkNotOption("branch", branch); err != nil {
		return nil, err
	}

	cloneArgs := []string{"clone"}
	if branch != "" {
		cloneArgs = append(cloneArgs, "--branch", branch)
	}
	if depth > 0 {
		cloneArgs = append(cloneArgs, "--depth", strconv.Itoa(depth))
	}
	cloneArgs = append(cloneArgs, "--", repoURL, target)

	r.log.Info("Cloning %s into %s", redactURL(repoURL), target)
	if _, err := r.git(ctx, "", cloneArgs...); err != nil {
		return nil, err
	}

	current, err := r.git(ctx, target, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, err
	}
	commit, err := r.git(ctx, target, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	return &CloneResult{Path: target, RepoURL: repoURL, Branch: current, Commit: commit}, nil
}

func (r runner) createBranch(ctx context.Context, a plugin.Args) (map[string]string, error) {
	dir, err := a.RequireString("repo_dir")
	if err != nil {
		return nil, err
	}
	branch, err := a.RequireString("branch")
	if err != nil {
		return nil, err
	}
	from, err := a.String("from")
	if err != nil {
		return nil, err
	}

	if err := checkNotOption("branch", branch); err != nil {
		return nil, err
	}
	if err := checkNotOption("from", from); err != nil {
		return nil, err
	}

	args := []string{"checkout", "-b", branch}
	if from != "" {
		args = append(args, from)
	}
	// Ends pathspecs so that from is always read as a revision.
	args = append(args, "--")
	if _, err := r.git(ctx, dir, args...); err != nil {
		return nil, err
	}
	return map[string]string{"branch": branch}, nil
}

func (r runner) commit(ctx context.Context, a plugin.Args) (*CommitResult, error) {
	dir, err := a.RequireString("repo_dir")
	if err != nil {
		return nil, err
	}
	message, err := a.RequireString("message")
	if err != nil {
		return nil, err
	}
	authorName, err := a.String("author_name")
	if err != nil {
		return nil, err
	}
	authorEmail, err := a.String("author_email")
	if err != nil {
		return nil, err
	}

	if _, err := r.git(ctx, dir, "add", "--all"); err != nil {
		return nil, err
	}
	staged, err := r.git(ctx, dir, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, err
	}
	if staged == "" {
		head, err := r.git(ctx, dir, "rev-parse", "HEAD")
		if err != nil {
			return nil, err
		}
		return &CommitResult{Commit: head}, nil
	}

	var gitArgs []string
	if authorName != "" {
		gitArgs = append(gitArgs, "-c", "user.name="+authorName)
	}
	if authorEmail != "" {
		gitArgs = append(gitArgs, "-c", "user.email="+authorEmail)
	}
	gitArgs = append(gitArgs, "commit", "--message", message)
	if _, err := r.git(ctx, dir, gitArgs...); err != nil {
		return nil, err
	}

	head, err := r.git(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	return &CommitResult{Commit: head, Committed: true}, nil
}

func (r runner) push(ctx context.Context, a plugin.Args) (map[string]string, error) {
	dir, err := a.RequireString("repo_dir")
	if err != nil {
		return nil, err
	}
	remote, err := a.String("remote")
	if err != nil {
		return nil, err
	}
	if remote == "" {
		remote = "origin"
	}
	branch, err := a.String("branch")
	if err != nil {
		return nil, err
	}
	if err := checkNotOption("remote", remote); err != nil {
		return nil, err
	}
	if err := checkNotOption("branch", branch); err != nil {
		return nil, err
	}
	if branch == "" {
		if branch, err = r.git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"); err != nil {
			return nil, err
		}
	}

	r.log.Info("Pushing %s to %s", branch, remote)
	if _, err := r.git(ctx, dir, "push", "--set-upstream", remote, branch); err != nil {
		return nil, err
	}
	return map[string]string{"remote": remote, "branch": branch}, nil
}

func (r runner) diff(ctx context.Context, a plugin.Args) (*DiffResult, error) {
	dir, err := a.RequireString("repo_dir")
	if err != nil {
		return nil, err
	}
	base, err := a.String("base")
	if err != nil {
		return nil, err
	}
	if err := checkNotOption("base", base); err != nil {
		return nil, err
	}
	if base == "" {
		base = "HEAD"
	}

	diff, err := r.git(ctx, dir, "diff", base, "--")
	if err != nil {
		return nil, err
	}
	status, err := r.run(ctx, dir, "status", "--porcelain", "-z")
	if err != nil {
		return nil, err
	}

	files := parseStatus(status)
	return &DiffResult{Diff: diff, HasChanges: diff != "" || len(files) > 0, Files: files}, nil
}

// parseStatus reads `git status --porcelain -z` output. Entries are
// "XY path" separated by NUL; renames and copies are followed by an extra
// entry holding the original path, which is dropped.
func parseStatus(status string) []string {
	files := []string{}
	entries := strings.Split(status, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		files = append(files, entry[3:])
		if entry[0] == 'R' || entry[0] == 'C' {
			i++
		}
	}
	return files
}

// checkNotOption rejects values git would parse as an option. Interpolated
// arguments may carry agent or issue text.
func checkNotOption(name, value string) error {
	if strings.HasPrefix(value, "-") {
		return fmt.Errorf("argument %s must not start with '-': %q", name, value)
	}
	return nil
}

// git runs one git command in dir and returns its trimmed stdout.
func (r runner) git(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := r.run(ctx, dir, args...)
	return strings.TrimSpace(out), err
}

func (r runner) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.conf.Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if r.conf.Token != "" {
		cmd.Env = append(cmd.Env, authEnv(r.conf.TokenURL, r.conf.Token)...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("Running git %s in %s", args[0], dir)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && msg != "" {
			return "", fmt.Errorf("git %s: %s", args[0], msg)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return stdout.String(), nil
}

// authEnv passes the token as an HTTP header through environment based git
// configuration so it never appears in arguments or remote URLs. The header
// is scoped to remotes below prefix.
func authEnv(prefix, token string) []string {
	basic := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
	return []string{
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http." + prefix + ".extraHeader",
		"GIT_CONFIG_VALUE_0=Authorization: Basic " + basic,
	}
}

// redactURL drops user info from URLs before logging them.
func redactURL(raw string) string {
	scheme := strings.Index(raw, "://")
	at := strings.LastIndex(raw, "@")
	if scheme < 0 || at < scheme {
		return raw
	}
	return raw[:scheme+3] + "***" + raw[at:]
}
