// Package api holds the types shared by every stepflow package: workflow
// definitions, the tagged step output, execution records and the typed
// errors of the registration, validation and execution phases.
//
// The package has no dependencies on other internal packages so that the
// registry, the executor, the agent backends and the plugins can all import
// it without cycles.
//
// # Error Taxonomy
//
//   - PluginInitError: a plugin failed to initialize, fatal at registration.
//   - DuplicateToolError: two plugins declare the same tool, fatal at registration.
//   - MissingToolError: a workflow references an unknown tool, fatal before execution.
//   - UnknownToolError: a tool could not be resolved at dispatch time.
//   - StepError: any failure inside a step; the run stops immediately.
//   - ToolResultError: a tool returned a result flagged as an error.
//   - NotFoundError: a workflow file or execution record does not exist.
//
// Use the Is* helpers to test for them; they unwrap with errors.As.
package api
