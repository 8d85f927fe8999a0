package cmd

import (
	"github.com/spf13/cobra"
)

func newMCPServerCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the registered tools over MCP on stdin and stdout",
		Long: `Serve every tool of the enabled plugins as an MCP server over stdio.

The claude-code agent backend starts this command itself so that ai_agent
steps can call plugin tools. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, global)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return a.ToolServer.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
