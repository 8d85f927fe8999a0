// Package secrets collects the credentials plugins are initialized with.
//
// A Source yields a flat name to value map. Sources are read once, before
// any plugin is registered, and merged with Merge so that later sources
// override earlier ones. The merged map is handed to the plugin registry and
// never consulted again during a run.
package secrets
