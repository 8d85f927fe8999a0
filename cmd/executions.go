package cmd

import (
	"fmt"

	"github.com/giantswarm/stepflow/internal/app"
	"github.com/giantswarm/stepflow/internal/workflow"
	"github.com/giantswarm/stepflow/pkg/logging"

	"github.com/spf13/cobra"
)

type executionsOptions struct {
	recordDir string
	workflow  string
	limit     int
}

func newExecutionsCmd(global *globalOptions) *cobra.Command {
	opts := &executionsOptions{}
	cmd := &cobra.Command{
		Use:     "executions",
		Aliases: []string{"exec"},
		Short:   "Inspect recorded workflow executions",
		Long: `Inspect the execution records written by stepflow run.

Records are for auditing only. A failed run is never resumed from its record.`,
	}
	cmd.PersistentFlags().StringVar(&opts.recordDir, "record-dir", "", "directory of execution records (overrides executions.dir)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded executions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := newPrinter(cmd, global)
			if err != nil {
				return err
			}
			storage, err := openStorage(global, opts)
			if err != nil {
				return err
			}
			summaries, err := storage.List(cmd.Context(), opts.workflow, opts.limit)
			if err != nil {
				return err
			}
			return printer.Executions(summaries)
		},
	}
	list.Flags().StringVar(&opts.workflow, "workflow", "", "only show executions of this workflow")
	list.Flags().IntVar(&opts.limit, "limit", 20, "maximum number of executions to show (0 for all)")

	get := &cobra.Command{
		Use:   "get <execution-id>",
		Short: "Show one recorded execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := newPrinter(cmd, global)
			if err != nil {
				return err
			}
			storage, err := openStorage(global, opts)
			if err != nil {
				return err
			}
			execution, err := storage.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printer.Execution(execution)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

// openStorage only loads configuration; plugins and secrets are not needed to
// read records.
func openStorage(global *globalOptions, opts *executionsOptions) (workflow.ExecutionStorage, error) {
	cfg, path, err := app.LoadConfig(global.configPath)
	if err != nil {
		return nil, err
	}
	storage, err := app.ExecutionStorage(cfg, opts.recordDir, logging.Discard())
	if err != nil {
		return nil, err
	}
	if storage == nil {
		if path == "" {
			path = "the configuration"
		}
		return nil, fmt.Errorf("execution recording is disabled by executions.disabled in %s", path)
	}
	return storage, nil
}
