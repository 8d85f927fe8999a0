package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/giantswarm/stepflow/internal/api"
	"github.com/giantswarm/stepflow/internal/config"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates the workflow completed.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a step failed or the command could not run.
	ExitCodeError = 1
	// ExitCodeInvalid indicates the workflow, configuration or plugin set was
	// rejected before any step ran.
	ExitCodeInvalid = 2
)

var version = "dev"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	output     string
}

// SetVersion sets the version reported by the version command and the tool
// server.
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return version
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "stepflow",
		Short: "Run declarative AI agent and tool workflows",
		Long: `stepflow executes workflows made of ai_agent steps, handed to a coding agent,
and tool steps, served by plugins such as git, github, telegram and discord.
Steps run in order, pass data to each other through {{step.output}}
placeholders and stop at the first failure.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "stepflow version %s\n" .Version}}`)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: .stepflow/config.yaml, then ~/.config/stepflow/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides the config)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "output format: table, json or yaml")

	root.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newToolsCmd(opts),
		newMCPServerCmd(opts),
		newExecutionsCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and exits with a code derived from the error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps typed errors to exit codes for scripting.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	// A failing step may wrap any error; it always counts as a run failure.
	if api.IsStepError(err) {
		return ExitCodeError
	}

	var validation config.ValidationErrors
	if errors.As(err, &validation) {
		return ExitCodeInvalid
	}
	var single config.ValidationError
	if errors.As(err, &single) {
		return ExitCodeInvalid
	}
	if api.IsMissingTool(err) || api.IsDuplicateTool(err) || api.IsPluginInit(err) || api.IsNotFound(err) {
		return ExitCodeInvalid
	}
	var invalid *invalidInputError
	if errors.As(err, &invalid) {
		return ExitCodeInvalid
	}

	return ExitCodeError
}

// invalidInputError marks command input that was rejected before anything
// ran, such as a malformed --input or an unparsable workflow file.
type invalidInputError struct {
	err error
}

func (e *invalidInputError) Error() string { return e.err.Error() }

func (e *invalidInputError) Unwrap() error { return e.err }

func invalidInputf(format string, a ...interface{}) error {
	return &invalidInputError{err: fmt.Errorf(format, a...)}
}
