// Package github provides the GitHub plugin for pull requests and issues.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/giantswarm/stepflow/internal/plugin"
	"github.com/giantswarm/stepflow/pkg/logging"

	gh "github.com/google/go-github/v74/github"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/oauth2"
)

// Name is the plugin name.
const Name = "github"

// Secrets read by Init. APIURLSecret is optional and selects a GitHub
// Enterprise server.
const (
	TokenSecret  = "GITHUB_TOKEN"
	APIURLSecret = "GITHUB_API_URL"
)

// Tool names.
const (
	ToolCreatePullRequest = "github_create_pull_request"
	ToolGetIssue          = "github_get_issue"
	ToolListIssues        = "github_list_issues"
	ToolCommentIssue      = "github_comment_issue"
)

const defaultListLimit = 30

// Config is the immutable configuration produced by Init.
type Config struct {
	Client *gh.Client
}

// Plugin implements plugin.Plugin.
type Plugin struct {
	log *logging.Logger
}

// New creates the plugin.
func New(log *logging.Logger) *Plugin {
	if log == nil {
		log = logging.Discard()
	}
	return &Plugin{log: log.With("GitHubPlugin")}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Tools() []mcp.Tool {
	repo := mcp.WithString("repo", mcp.Required(), mcp.Description("Repository as owner/name"))
	number := mcp.WithNumber("number", mcp.Required(), mcp.Description("Issue or pull request number"))
	return []mcp.Tool{
		mcp.NewTool(ToolCreatePullRequest,
			mcp.WithDescription("Open a pull request"),
			repo,
			mcp.WithString("title", mcp.Required(), mcp.Description("Pull request title")),
			mcp.WithString("head", mcp.Required(), mcp.Description("Branch containing the changes")),
			mcp.WithString("base", mcp.Required(), mcp.Description("Branch to merge into")),
			mcp.WithString("body", mcp.Description("Pull request description")),
			mcp.WithBoolean("draft", mcp.Description("Open as draft")),
		),
		mcp.NewTool(ToolGetIssue,
			mcp.WithDescription("Fetch an issue"),
			repo,
			number,
		),
		mcp.NewTool(ToolListIssues,
			mcp.WithDescription("List issues of a repository, excluding pull requests"),
			repo,
			mcp.WithString("state", mcp.Description("open, closed or all; defaults to open"), mcp.Enum("open", "closed", "all")),
			mcp.WithArray("labels", mcp.Description("Only issues carrying all of these labels"), mcp.WithStringItems()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of issues, defaults to 30")),
		),
		mcp.NewTool(ToolCommentIssue,
			mcp.WithDescription("Comment on an issue or pull request"),
			repo,
			number,
			mcp.WithString("body", mcp.Required(), mcp.Description("Comment text")),
		),
	}
}

// Init builds an authenticated client.
func (p *Plugin) Init(ctx context.Context, secrets plugin.Secrets) (plugin.Config, error) {
	token, err := secrets.Require(Name, TokenSecret)
	if err != nil {
		return nil, err
	}
	client, err := newClient(ctx, token, secrets[APIURLSecret])
	if err != nil {
		return nil, err
	}
	return Config{Client: client}, nil
}

func newClient(ctx context.Context, token, apiURL string) (*gh.Client, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	client := gh.NewClient(httpClient)
	if apiURL == "" {
		return client, nil
	}
	client, err := client.WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", APIURLSecret, err)
	}
	return client, nil
}

func (p *Plugin) HandleToolCall(ctx context.Context, cfg plugin.Config, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	conf, err := plugin.ConfigAs[Config](Name, cfg)
	if err != nil {
		return nil, err
	}
	a := plugin.Args(args)

	var result interface{}
	switch name {
	case ToolCreatePullRequest:
		result, err = p.createPullRequest(ctx, conf.Client, a)
	case ToolGetIssue:
		result, err = p.getIssue(ctx, conf.Client, a)
	case ToolListIssues:
		result, err = p.listIssues(ctx, conf.Client, a)
	case ToolCommentIssue:
		result, err = p.commentIssue(ctx, conf.Client, a)
	default:
		return nil, fmt.Errorf("unknown github tool: %s", name)
	}
	if err != nil {
		return plugin.ErrorResult("%s failed: %v", name, describe(err)), nil
	}
	return plugin.JSONResult(result)
}

// PullRequest is the output of github_create_pull_request.
type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	State  string `json:"state"`
	Draft  bool   `json:"draft"`
}

// Issue is the output of github_get_issue and an element of
// github_list_issues.
type Issue struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	State  string   `json:"state"`
	Labels []string `json:"labels"`
	URL    string   `json:"url"`
}

// Comment is the output of github_comment_issue.
type Comment struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

func (p *Plugin) createPullRequest(ctx context.Context, client *gh.Client, a plugin.Args) (*PullRequest, error) {
	owner, repo, err := repoArg(a)
	if err != nil {
		return nil, err
	}
	title, err := a.RequireString("title")
	if err != nil {
		return nil, err
	}
	head, err := a.RequireString("head")
	if err != nil {
		return nil, err
	}
	base, err := a.RequireString("base")
	if err != nil {
		return nil, err
	}
	body, err := a.String("body")
	if err != nil {
		return nil, err
	}
	draft, err := a.Bool("draft", false)
	if err != nil {
		return nil, err
	}

	pr, _, err := client.PullRequests.Create(ctx, owner, repo, &gh.NewPullRequest{
		Title: gh.Ptr(title),
		Head:  gh.Ptr(head),
		Base:  gh.Ptr(base),
		Body:  gh.Ptr(body),
		Draft: gh.Ptr(draft),
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("Opened pull request %s/%s#%d", owner, repo, pr.GetNumber())
	return &PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL(), State: pr.GetState(), Draft: pr.GetDraft()}, nil
}

func (p *Plugin) getIssue(ctx context.Context, client *gh.Client, a plugin.Args) (*Issue, error) {
	owner, repo, err := repoArg(a)
	if err != nil {
		return nil, err
	}
	number, err := numberArg(a)
	if err != nil {
		return nil, err
	}
	issue, _, err := client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	return toIssue(issue), nil
}

func (p *Plugin) listIssues(ctx context.Context, client *gh.Client, a plugin.Args) (map[string]interface{}, error) {
	owner, repo, err := repoArg(a)
	if err != nil {
		return nil, err
	}
	state, err := a.String("state")
	if err != nil {
		return nil, err
	}
	labels, err := a.StringSlice("labels")
	if err != nil {
		return nil, err
	}
	limit, err := a.Int("limit", defaultListLimit)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, errors.New("argument limit must be positive")
	}

	opts := &gh.IssueListByRepoOptions{
		State:       state,
		Labels:      labels,
		ListOptions: gh.ListOptions{PerPage: min(limit, 100)},
	}
	issues := []*Issue{}
	for len(issues) < limit {
		page, resp, err := client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			issues = append(issues, toIssue(issue))
			if len(issues) == limit {
				break
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}
	return map[string]interface{}{"issues": issues, "count": len(issues)}, nil
}

func (p *Plugin) commentIssue(ctx context.Context, client *gh.Client, a plugin.Args) (*Comment, error) {
	owner, repo, err := repoArg(a)
	if err != nil {
		return nil, err
	}
	number, err := numberArg(a)
	if err != nil {
		return nil, err
	}
	body, err := a.RequireString("body")
	if err != nil {
		return nil, err
	}
	comment, _, err := client.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return nil, err
	}
	return &Comment{ID: comment.GetID(), URL: comment.GetHTMLURL()}, nil
}

func toIssue(issue *gh.Issue) *Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}
	return &Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
		State:  issue.GetState(),
		Labels: labels,
		URL:    issue.GetHTMLURL(),
	}
}

func repoArg(a plugin.Args) (string, string, error) {
	full, err := a.RequireString("repo")
	if err != nil {
		return "", "", err
	}
	owner, repo, ok := strings.Cut(full, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("argument repo must be owner/name, got %q", full)
	}
	return owner, repo, nil
}

func numberArg(a plugin.Args) (int, error) {
	if _, ok := a["number"]; !ok {
		return 0, errors.New("argument number is required")
	}
	n, err := a.Int("number", 0)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("argument number must be positive, got %d", n)
	}
	return n, nil
}

// describe shortens API errors to the status and message GitHub returned.
func describe(err error) string {
	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		return fmt.Sprintf("%d %s: %s", apiErr.Response.StatusCode, http.StatusText(apiErr.Response.StatusCode), apiErr.Message)
	}
	return err.Error()
}
