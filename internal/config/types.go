package config

import "time"

// Config is the top-level configuration structure for stepflow.
type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	Plugins    PluginsConfig    `yaml:"plugins"`
	Secrets    SecretsConfig    `yaml:"secrets"`
	Executions ExecutionsConfig `yaml:"executions"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Agent backends.
const (
	BackendClaudeCode = "claude-code"
	BackendEino       = "eino"
)

// Chat model providers of the eino backend.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// AgentConfig configures the AI agent collaborator.
type AgentConfig struct {
	Backend string `yaml:"backend,omitempty"` // claude-code (default) or eino

	// claude-code backend
	Command   string        `yaml:"command,omitempty"`   // CLI binary (default: claude)
	ExtraArgs []string      `yaml:"extraArgs,omitempty"` // Appended to every invocation
	Timeout   time.Duration `yaml:"timeout,omitempty"`   // Per step, zero means no limit

	// eino backend
	Provider     string `yaml:"provider,omitempty"`     // anthropic (default) or openai
	Model        string `yaml:"model,omitempty"`        // Model identifier
	BaseURL      string `yaml:"baseURL,omitempty"`      // Optional API endpoint override
	APIKeySecret string `yaml:"apiKeySecret,omitempty"` // Secret name holding the API key
	MaxTokens    int    `yaml:"maxTokens,omitempty"`    // Completion token cap
	MaxSteps     int    `yaml:"maxSteps,omitempty"`     // ReAct loop bound

	// Token budget of a directly submitted prompt
	TokenBudget int `yaml:"tokenBudget,omitempty"`
}

// PluginsConfig selects and tunes the built-in plugins.
type PluginsConfig struct {
	Enabled  []string       `yaml:"enabled,omitempty"`
	Telegram TelegramConfig `yaml:"telegram,omitempty"`
}

// TelegramConfig tunes the approval poller of the telegram plugin.
type TelegramConfig struct {
	PollInterval    time.Duration `yaml:"pollInterval,omitempty"`
	ApprovalTimeout time.Duration `yaml:"approvalTimeout,omitempty"`
}

// SecretsConfig lists where plugin secrets come from. Later sources override
// earlier ones in the order env, file, kubernetes.
type SecretsConfig struct {
	Env        []string             `yaml:"env,omitempty"`
	File       string               `yaml:"file,omitempty"`
	Kubernetes *KubernetesSecretRef `yaml:"kubernetes,omitempty"`
}

// KubernetesSecretRef names a Secret holding plugin credentials.
type KubernetesSecretRef struct {
	Namespace  string `yaml:"namespace"`
	Name       string `yaml:"name"`
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
}

// ExecutionsConfig controls where run records are written.
type ExecutionsConfig struct {
	Dir      string `yaml:"dir,omitempty"`      // Default: ~/.config/stepflow/executions
	Disabled bool   `yaml:"disabled,omitempty"` // Skip recording entirely
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}
