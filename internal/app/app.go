package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/giantswarm/stepflow/internal/agent"
	"github.com/giantswarm/stepflow/internal/config"
	"github.com/giantswarm/stepflow/internal/plugin"
	"github.com/giantswarm/stepflow/internal/plugins"
	"github.com/giantswarm/stepflow/internal/secrets"
	"github.com/giantswarm/stepflow/internal/toolserver"
	"github.com/giantswarm/stepflow/internal/workflow"
	"github.com/giantswarm/stepflow/pkg/logging"
)

// Options control bootstrap. Zero values select the configured behaviour.
type Options struct {
	// ConfigPath loads a specific config.yaml instead of discovering one.
	ConfigPath string

	// LogLevel overrides logging.level.
	LogLevel string

	// LogOutput defaults to stderr.
	LogOutput io.Writer

	// Version is reported by the tool server.
	Version string

	// SecretSources replaces the sources described by the configuration.
	SecretSources []secrets.Source

	// Plugins replaces the configured plugin catalog selection.
	Plugins []plugin.Plugin
}

// App holds everything built by the first bootstrap phase.
type App struct {
	Config     config.Config
	ConfigPath string
	Logger     *logging.Logger
	Registry   *plugin.Registry
	ToolServer *toolserver.Server

	version string
	secrets plugin.Secrets
	closers []func() error
}

// New loads configuration, collects secrets and registers plugins.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, path, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	levelName := cfg.Logging.Level
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	root := logging.New(logging.Options{
		Level:  level,
		Format: logging.Format(cfg.Logging.Format),
		Output: opts.LogOutput,
	})
	logging.InitControllerRuntime(root)
	log := root.With("Bootstrap")
	if path != "" {
		log.Debug("Loaded configuration from %s", path)
	}

	sources := opts.SecretSources
	if sources == nil {
		if sources, err = secrets.FromConfig(cfg.Secrets); err != nil {
			return nil, fmt.Errorf("failed to configure secrets: %w", err)
		}
	}
	values, err := secrets.Merge(ctx, root, sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	enabled := opts.Plugins
	if enabled == nil {
		if enabled, err = plugins.Enabled(cfg.Plugins, root); err != nil {
			return nil, err
		}
	}

	registry := plugin.NewRegistry(root)
	for _, p := range enabled {
		if err := registry.Register(ctx, p, values); err != nil {
			log.Error(err, "Failed to register plugin %s", p.Name())
			return nil, err
		}
	}
	log.Info("Registered %d plugins providing %d tools", len(enabled), len(registry.ToolNames()))

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &App{
		Config:     cfg,
		ConfigPath: path,
		Logger:     root,
		Registry:   registry,
		ToolServer: toolserver.New(registry, version, root),
		version:    version,
		secrets:    values,
	}, nil
}

// LoadConfig loads the config file at path, or discovers one when path is
// empty. An explicit path must exist.
func LoadConfig(path string) (config.Config, string, error) {
	if path == "" {
		return config.Discover(nil)
	}
	if _, err := os.Stat(path); err != nil {
		return config.Config{}, "", fmt.Errorf("config file %s: %w", path, err)
	}
	cfg, err := config.LoadConfig(path, nil)
	return cfg, path, err
}

// ExecutorOptions tune the second bootstrap phase.
type ExecutorOptions struct {
	// WorkDir is the default working directory of ai_agent steps.
	WorkDir string

	// RecordDir overrides executions.dir.
	RecordDir string

	// Agent replaces the configured backend.
	Agent agent.Agent

	Observer workflow.Observer
}

// NewExecutor builds the agent backend and returns an executor over the
// registry.
func (a *App) NewExecutor(ctx context.Context, opts ExecutorOptions) (*workflow.Executor, error) {
	ag := opts.Agent
	if ag == nil {
		var err error
		if ag, err = a.newAgent(ctx); err != nil {
			return nil, err
		}
	}

	storage, err := a.ExecutionStorage(opts.RecordDir)
	if err != nil {
		return nil, err
	}

	observer := opts.Observer
	if observer == nil {
		observer = workflow.NewLogObserver(a.Logger)
	}

	return workflow.NewExecutor(workflow.ExecutorOptions{
		Registry:    a.Registry,
		Agent:       ag,
		WorkingDir:  opts.WorkDir,
		TokenBudget: a.Config.Agent.TokenBudget,
		Observer:    observer,
		Storage:     storage,
		Logger:      a.Logger,
	}), nil
}

// ExecutionStorage returns the run record store, or nil when recording is
// disabled.
func (a *App) ExecutionStorage(dirOverride string) (workflow.ExecutionStorage, error) {
	return ExecutionStorage(a.Config, dirOverride, a.Logger)
}

// ExecutionStorage opens the run record store described by cfg without
// bootstrapping plugins. It returns nil when recording is disabled and no
// directory override is given.
func ExecutionStorage(cfg config.Config, dirOverride string, log *logging.Logger) (workflow.ExecutionStorage, error) {
	if cfg.Executions.Disabled && dirOverride == "" {
		return nil, nil
	}
	dir := dirOverride
	if dir == "" {
		var err error
		if dir, err = cfg.ExecutionsDir(); err != nil {
			return nil, err
		}
	}
	return workflow.NewExecutionStorage(dir, log), nil
}

func (a *App) newAgent(ctx context.Context) (agent.Agent, error) {
	cfg := a.Config.Agent
	switch cfg.Backend {
	case config.BackendClaudeCode, "":
		mcpServer, err := a.mcpServerCommand()
		if err != nil {
			return nil, err
		}
		cc := agent.NewClaudeCode(agent.ClaudeCodeOptions{
			Command:   cfg.Command,
			MCPServer: mcpServer,
			ExtraArgs: cfg.ExtraArgs,
			Timeout:   cfg.Timeout,
			Logger:    a.Logger,
		})
		a.closers = append(a.closers, cc.Close)
		return cc, nil

	case config.BackendEino:
		model, err := agent.NewChatModel(ctx, agent.ModelConfig{
			Provider:  cfg.Provider,
			Model:     cfg.Model,
			APIKey:    a.secrets[cfg.APIKeySecretName()],
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model (secret %s): %w", cfg.APIKeySecretName(), err)
		}
		cli, err := a.ToolServer.NewInProcessClient(ctx, "stepflow-eino", a.version)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cli.Close)
		return agent.NewEino(agent.EinoOptions{
			Model:    model,
			Tools:    cli,
			MaxSteps: cfg.MaxSteps,
			Logger:   a.Logger,
		})

	default:
		return nil, fmt.Errorf("unknown agent backend %q", cfg.Backend)
	}
}

// mcpServerCommand points the claude CLI back at this binary's mcp-server
// command with the same configuration.
func (a *App) mcpServerCommand() (*agent.MCPServerCommand, error) {
	if len(a.Registry.ToolNames()) == 0 {
		return nil, nil
	}
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate stepflow binary: %w", err)
	}
	args := []string{"mcp-server"}
	if a.ConfigPath != "" {
		args = append(args, "--config", a.ConfigPath)
	}
	return &agent.MCPServerCommand{Command: self, Args: args}, nil
}

// Close releases backend resources.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
