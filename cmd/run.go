package cmd

import (
	"fmt"

	"github.com/giantswarm/stepflow/internal/app"
	"github.com/giantswarm/stepflow/internal/workflow"

	"github.com/spf13/cobra"
)

type runOptions struct {
	input     string
	workDir   string
	recordDir string
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <workflow-file>",
		Short: "Execute a workflow",
		Long: `Execute a workflow definition step by step.

The workflow is validated and every referenced tool is resolved before the
first step runs. Execution stops at the first failing step; later steps are
not attempted and the run record lists them as pending.

Exit codes:
  0  all steps completed
  1  a step failed or the run could not start
  2  the workflow, configuration or plugin set is invalid`,
		Example: `  stepflow run fix-issue.yaml --input '{"issue": 42}'
  stepflow run release.yaml --input @input.yaml --work-dir ./repo -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "trigger input as a JSON object, or @file with JSON or YAML")
	cmd.Flags().StringVar(&opts.workDir, "work-dir", "", "working directory for ai_agent steps (default: current directory)")
	cmd.Flags().StringVar(&opts.recordDir, "record-dir", "", "directory for execution records (overrides executions.dir)")
	return cmd
}

func runWorkflow(cmd *cobra.Command, global *globalOptions, opts *runOptions, path string) error {
	printer, err := newPrinter(cmd, global)
	if err != nil {
		return err
	}
	input, err := parseInput(opts.input)
	if err != nil {
		return err
	}
	wf, err := loadWorkflow(path)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, global)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	log := a.Logger.With("CLI")
	for _, w := range workflow.Lint(wf) {
		log.Warn("%s", w)
	}

	executor, err := a.NewExecutor(cmd.Context(), app.ExecutorOptions{
		WorkDir:   opts.workDir,
		RecordDir: opts.recordDir,
	})
	if err != nil {
		return err
	}

	execution, runErr := executor.Execute(cmd.Context(), wf, input)
	if execution == nil {
		return runErr
	}
	if err := printer.Execution(execution); err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}
	return runErr
}
