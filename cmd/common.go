package cmd

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/giantswarm/stepflow/internal/api"
	"github.com/giantswarm/stepflow/internal/app"
	"github.com/giantswarm/stepflow/internal/formatting"
	"github.com/giantswarm/stepflow/internal/workflow"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

func newApp(cmd *cobra.Command, opts *globalOptions) (*app.App, error) {
	return app.New(cmd.Context(), app.Options{
		ConfigPath: opts.configPath,
		LogLevel:   opts.logLevel,
		LogOutput:  cmd.ErrOrStderr(),
		Version:    version,
	})
}

func newPrinter(cmd *cobra.Command, opts *globalOptions) (*formatting.Printer, error) {
	format, err := formatting.ParseFormat(opts.output)
	if err != nil {
		return nil, invalidInputf("%v", err)
	}
	return formatting.NewPrinter(cmd.OutOrStdout(), format, isTerminal(cmd)), nil
}

// isTerminal reports whether output goes to an interactive terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// loadWorkflow reads a definition and marks parse and validation failures as
// invalid input.
func loadWorkflow(path string) (*api.Workflow, error) {
	wf, err := workflow.LoadWorkflow(path)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, err
		}
		return nil, &invalidInputError{err: err}
	}
	return wf, nil
}

// parseInput decodes the --input value: inline JSON, or @path to a JSON or
// YAML file.
func parseInput(value string) (map[string]interface{}, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return map[string]interface{}{}, nil
	}

	data := []byte(value)
	if strings.HasPrefix(value, "@") {
		path := strings.TrimPrefix(value, "@")
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, invalidInputf("failed to read input file %s: %v", path, err)
		}
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return nil, invalidInputf("failed to parse input file %s: %v", path, err)
		}
	}

	var input map[string]interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, invalidInputf("input must be a JSON object: %v", err)
	}
	if input == nil {
		input = map[string]interface{}{}
	}
	return input, nil
}
