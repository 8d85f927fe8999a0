package plugin

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Secrets is the mapping of named credentials handed to Plugin.Init.
type Secrets map[string]string

// Require returns the named secret or an error naming the plugin that needs it.
func (s Secrets) Require(plugin, name string) (string, error) {
	value := s[name]
	if value == "" {
		return "", fmt.Errorf("plugin %s requires secret %s", plugin, name)
	}
	return value, nil
}

// Config is the configuration value a plugin derives from its secrets in
// Init. The registry stores it next to the plugin and passes it back into
// every HandleToolCall; plugins never keep it on themselves.
type Config interface{}

// Plugin is a named capability unit exposing zero or more tools.
type Plugin interface {
	// Name is unique among registered plugins.
	Name() string

	// Tools lists the tool definitions the plugin provides. Tool names must
	// be unique across all registered plugins.
	Tools() []mcp.Tool

	// Init validates the secrets and returns the plugin's immutable
	// configuration. It fails when a required secret is absent.
	Init(ctx context.Context, secrets Secrets) (Config, error)

	// HandleToolCall executes one tool with the configuration returned by Init.
	HandleToolCall(ctx context.Context, cfg Config, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
}

// ConfigAs converts a Config back into the plugin's concrete type.
func ConfigAs[T any](plugin string, cfg Config) (T, error) {
	typed, ok := cfg.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("plugin %s received configuration of unexpected type %T", plugin, cfg)
	}
	return typed, nil
}
