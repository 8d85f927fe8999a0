// Package formatting renders CLI output: tool listings, run results and
// execution history, as go-pretty tables or as JSON or YAML documents.
package formatting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/giantswarm/stepflow/internal/api"
	pkgstrings "github.com/giantswarm/stepflow/pkg/strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"
)

// OutputFormat selects how a Printer renders.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, json or yaml)", s)
	}
}

// Printer writes formatted output to w.
type Printer struct {
	w      io.Writer
	format OutputFormat
	color  bool
}

// NewPrinter creates a printer. Colors are only used in table output.
func NewPrinter(w io.Writer, format OutputFormat, color bool) *Printer {
	if format == "" {
		format = FormatTable
	}
	return &Printer{w: w, format: format, color: color}
}

// ToolRow is one registered tool.
type ToolRow struct {
	Name        string `json:"name"`
	Plugin      string `json:"plugin"`
	Description string `json:"description"`
}

// Tools prints registered tools. owner maps a tool name to its plugin.
func (p *Printer) Tools(tools []mcp.Tool, owner func(string) string) error {
	rows := make([]ToolRow, 0, len(tools))
	for _, tool := range tools {
		rows = append(rows, ToolRow{Name: tool.Name, Plugin: owner(tool.Name), Description: tool.Description})
	}
	if p.format != FormatTable {
		return p.Data(rows)
	}
	if len(rows) == 0 {
		return p.empty("No tools registered")
	}

	t := p.table()
	t.AppendHeader(table.Row{p.header("TOOL"), p.header("PLUGIN"), p.header("DESCRIPTION")})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Name, r.Plugin, pkgstrings.TruncateDescription(r.Description, pkgstrings.DefaultDescriptionMaxLen)})
	}
	t.Render()
	return nil
}

// Execution prints the result of one run.
func (p *Printer) Execution(exec *api.WorkflowExecution) error {
	if p.format != FormatTable {
		return p.Data(exec)
	}

	fmt.Fprintf(p.w, "%s %s (%s) %s in %s\n",
		p.paint(text.FgHiBlue, "Workflow"), exec.WorkflowName, exec.ExecutionID,
		p.status(string(exec.Status)), formatDuration(exec.DurationMs))

	t := p.table()
	t.AppendHeader(table.Row{p.header("STEP"), p.header("TYPE"), p.header("STATUS"), p.header("DURATION"), p.header("DETAIL")})
	for _, step := range exec.Steps {
		t.AppendRow(table.Row{step.StepID, stepKind(step), p.status(string(step.Status)), formatDuration(step.DurationMs), stepDetail(step)})
	}
	t.Render()

	if exec.Error != "" {
		fmt.Fprintf(p.w, "%s %s\n", p.paint(text.FgRed, "Error:"), exec.Error)
	}
	return nil
}

// Executions prints stored run summaries.
func (p *Printer) Executions(summaries []api.ExecutionSummary) error {
	if p.format != FormatTable {
		return p.Data(summaries)
	}
	if len(summaries) == 0 {
		return p.empty("No executions recorded")
	}

	t := p.table()
	t.AppendHeader(table.Row{p.header("EXECUTION"), p.header("WORKFLOW"), p.header("STATUS"), p.header("STARTED"), p.header("DURATION"), p.header("FAILED STEP")})
	for _, s := range summaries {
		t.AppendRow(table.Row{s.ExecutionID, s.WorkflowName, p.status(string(s.Status)), s.StartedAt.Local().Format(time.DateTime), formatDuration(s.DurationMs), s.FailedStep})
	}
	t.Render()
	return nil
}

// Data prints v as JSON or YAML; table format falls back to JSON.
func (p *Printer) Data(v interface{}) error {
	if p.format == FormatYAML {
		// Round trip through JSON so that json tags decide the field names.
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		var doc interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		_, err = p.w.Write(out)
		return err
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(out))
	return err
}

// PrettyJSON formats any value as indented JSON, falling back to %v.
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func (p *Printer) table() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleRounded)
	return t
}

func (p *Printer) empty(msg string) error {
	_, err := fmt.Fprintln(p.w, p.paint(text.FgYellow, msg))
	return err
}

func (p *Printer) header(s string) string {
	return p.paint(text.FgHiCyan, s)
}

func (p *Printer) paint(c text.Color, s string) string {
	if !p.color {
		return s
	}
	return c.Sprint(s)
}

func (p *Printer) status(s string) string {
	switch s {
	case string(api.StepCompleted):
		return p.paint(text.FgGreen, s)
	case string(api.StepFailed):
		return p.paint(text.FgRed, s)
	case string(api.StepSkipped), string(api.StepPending):
		return p.paint(text.FgHiBlack, s)
	default:
		return p.paint(text.FgYellow, s)
	}
}

func stepKind(step api.StepExecution) string {
	if step.Type == api.StepTypeTool {
		return "tool " + step.Tool
	}
	return string(step.Type)
}

func stepDetail(step api.StepExecution) string {
	var parts []string
	if step.ContinueSession != nil {
		if *step.ContinueSession {
			parts = append(parts, "continued session")
		} else {
			parts = append(parts, "new session")
		}
	}
	if step.PromptTruncated {
		parts = append(parts, "prompt truncated")
	}
	if step.Error != "" {
		parts = append(parts, step.Error)
	}
	return pkgstrings.TruncateDescription(strings.Join(parts, "; "), 80)
}

func formatDuration(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}
