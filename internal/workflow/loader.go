package workflow

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/giantswarm/stepflow/internal/api"
	"github.com/giantswarm/stepflow/internal/config"

	"sigs.k8s.io/yaml"
)

const maxStepIDLength = 100

var stepIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// LoadWorkflow reads a workflow definition from a YAML or JSON file and
// validates it.
func LoadWorkflow(path string) (*api.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, api.NewNotFoundError("workflow", path)
		}
		return nil, fmt.Errorf("failed to read workflow %s: %w", path, err)
	}
	return ParseWorkflow(data, path)
}

// ParseWorkflow decodes and validates a workflow definition. source is only
// used in error messages.
func ParseWorkflow(data []byte, source string) (*api.Workflow, error) {
	var wf api.Workflow
	if err := yaml.UnmarshalStrict(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", source, err)
	}
	if err := ValidateDefinition(&wf); err != nil {
		return nil, config.FormatValidationError("workflow", source, err)
	}
	return &wf, nil
}

// ValidateDefinition checks the structure of a workflow. It does not check
// tool availability; that is the registry's job.
func ValidateDefinition(wf *api.Workflow) error {
	var errs config.ValidationErrors

	if len(wf.Steps) == 0 {
		errs.Add("steps", "must have at least one step")
	}

	seen := make(map[string]bool, len(wf.Steps))
	for i, step := range wf.Steps {
		field := fmt.Sprintf("steps[%d]", i)

		switch {
		case step.ID == "":
			errs.Add(field+".id", "is required")
		case !stepIDPattern.MatchString(step.ID):
			errs.Add(field+".id", "may only contain letters, digits, '_' and '-'", step.ID)
		case step.ID == api.InputContextKey:
			errs.Add(field+".id", fmt.Sprintf("%q is reserved for the workflow input", api.InputContextKey), step.ID)
		case seen[step.ID]:
			errs.Add(field+".id", "must be unique", step.ID)
		}
		errs.Append(config.ValidateMaxLength(field+".id", step.ID, maxStepIDLength))
		seen[step.ID] = true

		switch step.Type {
		case api.StepTypeTool:
			if step.Tool == "" {
				errs.Add(field+".tool", "is required for tool steps")
			}
		case api.StepTypeAIAgent:
			if step.Tool != "" {
				errs.Add(field+".tool", "must not be set for ai_agent steps", step.Tool)
			}
			prompt, ok := step.Args[api.ArgPrompt]
			if !ok {
				errs.Add(field+".args.prompt", "is required for ai_agent steps")
			} else if _, isString := prompt.(string); !isString {
				errs.Add(field+".args.prompt", "must be a string", prompt)
			}
			if wd, ok := step.Args[api.ArgWorkingDir]; ok {
				if _, isString := wd.(string); !isString {
					errs.Add(field+".args.working_dir", "must be a string", wd)
				}
			}
		default:
			errs.Append(config.ValidateOneOf(field+".type", string(step.Type),
				[]string{string(api.StepTypeAIAgent), string(api.StepTypeTool)}))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
