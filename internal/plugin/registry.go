package plugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/giantswarm/stepflow/internal/api"
	"github.com/giantswarm/stepflow/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// Registration is a registered plugin together with the configuration value
// its Init returned.
type Registration struct {
	Plugin Plugin
	Config Config
}

// Name returns the plugin name.
func (r *Registration) Name() string {
	return r.Plugin.Name()
}

// Call invokes a tool of this plugin with its configuration.
func (r *Registration) Call(ctx context.Context, toolName string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return r.Plugin.HandleToolCall(ctx, r.Config, toolName, args)
}

type toolEntry struct {
	tool  mcp.Tool
	owner *Registration
}

// Registry tracks registered plugins and owns the tool name -> plugin index.
//
// The registry is populated once per run, before any workflow executes, and
// is read-only afterwards. It is not safe for concurrent registration.
type Registry struct {
	plugins []*Registration
	byName  map[string]*Registration
	tools   map[string]toolEntry
	log     *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Discard()
	}
	return &Registry{
		byName: make(map[string]*Registration),
		tools:  make(map[string]toolEntry),
		log:    log.With("Registry"),
	}
}

// Register initializes p with secrets and records it.
//
// Init runs first, so a plugin missing its required configuration fails
// here. The plugin is only recorded when none of its tool names collides
// with a tool of a previously registered plugin.
func (r *Registry) Register(ctx context.Context, p Plugin, secrets Secrets) error {
	name := p.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("plugin %s already registered", name)
	}

	cfg, err := p.Init(ctx, secrets)
	if err != nil {
		return &api.PluginInitError{Plugin: name, Err: err}
	}

	tools := p.Tools()
	seen := make(map[string]bool, len(tools))
	for _, tool := range tools {
		if existing, taken := r.tools[tool.Name]; taken {
			return &api.DuplicateToolError{Tool: tool.Name, ExistingPlugin: existing.owner.Name(), Plugin: name}
		}
		if seen[tool.Name] {
			return &api.DuplicateToolError{Tool: tool.Name, ExistingPlugin: name, Plugin: name}
		}
		seen[tool.Name] = true
	}

	reg := &Registration{Plugin: p, Config: cfg}
	for _, tool := range tools {
		r.tools[tool.Name] = toolEntry{tool: tool, owner: reg}
	}
	r.plugins = append(r.plugins, reg)
	r.byName[name] = reg

	r.log.Info("Registered plugin %s with %d tools", name, len(tools))
	return nil
}

// Validate checks that every tool step of wf references a registered tool.
// It returns a MissingToolError listing every missing name, in step order.
func (r *Registry) Validate(wf *api.Workflow) error {
	var missing []string
	reported := make(map[string]bool)
	for _, toolName := range wf.ToolNames() {
		if _, ok := r.tools[toolName]; ok || reported[toolName] {
			continue
		}
		reported[toolName] = true
		missing = append(missing, toolName)
	}

	if len(missing) > 0 {
		return &api.MissingToolError{Workflow: wf.Name, Missing: missing, Available: r.ToolNames()}
	}

	r.log.Debug("Workflow %s references %d registered tools", wf.Name, len(wf.ToolNames()))
	return nil
}

// Resolve returns the registration owning toolName.
func (r *Registry) Resolve(toolName string) (*Registration, error) {
	entry, ok := r.tools[toolName]
	if !ok {
		return nil, &api.UnknownToolError{Tool: toolName}
	}
	return entry.owner, nil
}

// Call resolves toolName and invokes it with the owner's configuration.
func (r *Registry) Call(ctx context.Context, toolName string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	owner, err := r.Resolve(toolName)
	if err != nil {
		return nil, err
	}
	r.log.Debug("Calling tool %s of plugin %s", toolName, owner.Name())
	return owner.Call(ctx, toolName, args)
}

// Tools returns every registered tool definition sorted by name.
func (r *Registry) Tools() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(r.tools))
	for _, entry := range r.tools {
		tools = append(tools, entry.tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// ToolNames returns every registered tool name sorted.
func (r *Registry) ToolNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Owner returns the name of the plugin providing toolName, or "".
func (r *Registry) Owner(toolName string) string {
	if entry, ok := r.tools[toolName]; ok {
		return entry.owner.Name()
	}
	return ""
}

// Plugins returns the registrations in registration order.
func (r *Registry) Plugins() []*Registration {
	out := make([]*Registration, len(r.plugins))
	copy(out, r.plugins)
	return out
}
