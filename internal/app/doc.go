// Package app wires a stepflow run together.
//
// Bootstrap happens in two phases. New loads the configuration, builds the
// logger, collects secrets and registers the enabled plugins; any plugin
// that fails to initialize aborts the bootstrap before a workflow could
// start. NewExecutor then builds the configured agent backend on top of the
// registry. Commands that never run agent steps (tools, validate,
// mcp-server) stop after the first phase, so they work without agent
// credentials.
//
//	a, err := app.New(ctx, app.Options{ConfigPath: path})
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//	exec, err := a.NewExecutor(ctx, app.ExecutorOptions{WorkDir: dir})
package app
