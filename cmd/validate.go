package cmd

import (
	"fmt"

	"github.com/giantswarm/stepflow/internal/workflow"

	"github.com/spf13/cobra"
)

type validateOptions struct {
	strict bool
}

func newValidateCmd(global *globalOptions) *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate <workflow-file>",
		Short: "Check a workflow without running it",
		Long: `Check the structure of a workflow definition and that every tool it
references is provided by an enabled plugin.

Placeholders that reference unknown or later steps are reported as warnings.
With --strict, warnings fail the check as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := loadWorkflow(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd, global)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Registry.Validate(wf); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			warnings := workflow.Lint(wf)
			for _, w := range warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if opts.strict && len(warnings) > 0 {
				return invalidInputf("workflow %s has %d warnings", args[0], len(warnings))
			}

			fmt.Fprintf(out, "Workflow %s is valid (%d steps)\n", wf.Name, len(wf.Steps))
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "treat warnings as errors")
	return cmd
}
