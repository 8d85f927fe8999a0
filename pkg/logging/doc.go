// Package logging provides the structured logger used throughout stepflow.
//
// The logger is built on Go's standard slog package. Unlike a process-wide
// logger, a *Logger is created once at bootstrap and handed to every
// component that needs it; components derive a subsystem-scoped logger with
// With so that every line carries a "subsystem" attribute.
//
// # Usage
//
//	log := logging.New(logging.Options{Level: logging.LevelInfo, Format: logging.FormatJSON})
//	execLog := log.With("Executor")
//	execLog.Info("Executing workflow %s with %d steps", wf.Name, len(wf.Steps))
//	execLog.Error(err, "Failed to load workflow %s", path)
//
// Output defaults to stderr. stdout is reserved for command output and for
// the MCP stdio transport used by the mcp-server command.
//
// # Subsystems
//
//   - Bootstrap: configuration, secrets and plugin registration
//   - Registry: plugin registration and tool validation
//   - Executor: workflow step execution
//   - Agent: AI agent backends
//   - ToolServer: MCP tool exposure
//   - Plugin/<name>: individual plugins
//
// # Controller-Runtime Integration
//
// InitControllerRuntime bridges controller-runtime's logr logger onto the
// same slog handler, so client-go output used by the Kubernetes secret
// source ends up in the same stream.
package logging
