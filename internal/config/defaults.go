package config

import "time"

const (
	// DefaultAgentCommand is the claude CLI binary looked up in PATH.
	DefaultAgentCommand = "claude"

	// DefaultMaxSteps bounds the reasoning loop of the eino backend.
	DefaultMaxSteps = 25

	// DefaultTokenBudget matches prompt.DefaultTokenBudget.
	DefaultTokenBudget = 25000

	DefaultTelegramPollInterval    = 2 * time.Second
	DefaultTelegramApprovalTimeout = 30 * time.Minute
)

// DefaultSecretNames are read from the environment when no secrets section
// is configured.
var DefaultSecretNames = []string{
	"GIT_TOKEN",
	"GIT_TOKEN_HOST",
	"GITHUB_TOKEN",
	"GITHUB_API_URL",
	"TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID",
	"DISCORD_BOT_TOKEN",
	"DISCORD_CHANNEL_ID",
	"ANTHROPIC_API_KEY",
	"OPENAI_API_KEY",
}

// GetDefaultConfig returns the configuration used when no config.yaml exists.
func GetDefaultConfig() Config {
	return Config{
		Agent: AgentConfig{
			Backend:     BackendClaudeCode,
			Command:     DefaultAgentCommand,
			Provider:    ProviderAnthropic,
			MaxSteps:    DefaultMaxSteps,
			TokenBudget: DefaultTokenBudget,
		},
		Plugins: PluginsConfig{
			Enabled: []string{"git"},
			Telegram: TelegramConfig{
				PollInterval:    DefaultTelegramPollInterval,
				ApprovalTimeout: DefaultTelegramApprovalTimeout,
			},
		},
		Secrets: SecretsConfig{
			Env: append([]string(nil), DefaultSecretNames...),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// APIKeySecretName returns the secret holding the chat model API key.
func (a AgentConfig) APIKeySecretName() string {
	if a.APIKeySecret != "" {
		return a.APIKeySecret
	}
	if a.Provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

// PluginEnabled reports whether the named plugin is in the enabled list.
func (c Config) PluginEnabled(name string) bool {
	for _, p := range c.Plugins.Enabled {
		if p == name {
			return true
		}
	}
	return false
}
