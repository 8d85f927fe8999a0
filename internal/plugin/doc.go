// Package plugin defines the plugin contract and the registry that owns the
// mapping from tool names to the plugins providing them.
//
// A plugin is initialized exactly once via Init, which turns the run's
// secrets into an immutable configuration value. The registry keeps that
// value next to the plugin and threads it into every HandleToolCall, so a
// call's dependencies are visible in its signature:
//
//	reg := plugin.NewRegistry(log)
//	if err := reg.Register(ctx, git.New(log), secrets); err != nil {
//	    return err // includes *api.DuplicateToolError
//	}
//	if err := reg.Validate(wf); err != nil {
//	    return err // *api.MissingToolError, nothing has executed
//	}
//	result, err := reg.Call(ctx, "git_clone", args)
package plugin
