package cmd

import (
	"github.com/spf13/cobra"
)

func newToolsCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools provided by the enabled plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := newPrinter(cmd, global)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, global)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return printer.Tools(a.Registry.Tools(), a.Registry.Owner)
		},
	}
}
