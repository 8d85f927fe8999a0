package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/giantswarm/stepflow/internal/api"
	"github.com/giantswarm/stepflow/internal/template"
)

// LintWarning describes a placeholder that will resolve to an empty string
// at run time.
type LintWarning struct {
	StepID  string
	Field   string
	Path    string
	Message string
}

func (w LintWarning) String() string {
	return fmt.Sprintf("step %s, %s: {{ %s }} %s", w.StepID, w.Field, w.Path, w.Message)
}

// Lint reports placeholders whose first segment is neither "input" nor the
// id of an earlier step, and step references using a field other than
// "output" or "has_issues".
func Lint(wf *api.Workflow) []LintWarning {
	var warnings []LintWarning
	earlier := make(map[string]bool, len(wf.Steps))

	for _, step := range wf.Steps {
		check := func(field, tmpl string) {
			for _, path := range template.ExtractPaths(tmpl) {
				if msg := lintPath(path, step.ID, earlier); msg != "" {
					warnings = append(warnings, LintWarning{StepID: step.ID, Field: field, Path: path, Message: msg})
				}
			}
		}

		if step.If != "" {
			check("if", step.If)
		}

		keys := make([]string, 0, len(step.Args))
		for k := range step.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := step.Args[k].(string); ok {
				check("args."+k, s)
			}
		}

		earlier[step.ID] = true
	}
	return warnings
}

func lintPath(path, stepID string, earlier map[string]bool) string {
	segments := strings.Split(path, ".")
	head := segments[0]

	if head == api.InputContextKey {
		return ""
	}
	if head == stepID {
		return "references the step itself"
	}
	if !earlier[head] {
		return fmt.Sprintf("references %q, which is neither input nor an earlier step", head)
	}
	if len(segments) > 1 && segments[1] != "output" && segments[1] != api.HasIssuesKey {
		return fmt.Sprintf("uses field %q; step entries only have output and has_issues", segments[1])
	}
	return ""
}
