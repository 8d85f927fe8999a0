package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/giantswarm/stepflow/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Append adds err to the collection. Errors that are not ValidationError
// are kept as messages without a field.
func (ve *ValidationErrors) Append(err error) {
	if err == nil {
		return
	}
	var v ValidationError
	if errors.As(err, &v) {
		*ve = append(*ve, v)
		return
	}
	*ve = append(*ve, ValidationError{Message: err.Error()})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateMaxLength checks if a string doesn't exceed maximum length
func ValidateMaxLength(field, value string, maxLength int) error {
	if len(value) > maxLength {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("must not exceed %d characters", maxLength),
		}
	}
	return nil
}

// FormatValidationError creates a consistent validation error message
func FormatValidationError(entityType, entityName string, err error) error {
	if err == nil {
		return nil
	}

	if entityName != "" {
		return fmt.Errorf("validation failed for %s %s: %w", entityType, entityName, err)
	}
	return fmt.Errorf("validation failed for %s: %w", entityType, err)
}

// Validate checks a loaded configuration.
func Validate(cfg Config) error {
	var errs ValidationErrors

	if err := ValidateOneOf("agent.backend", cfg.Agent.Backend, []string{BackendClaudeCode, BackendEino}); err != nil {
		errs.Append(err)
	}
	if cfg.Agent.Backend == BackendClaudeCode {
		if err := ValidateRequired("agent.command", cfg.Agent.Command, "the claude-code backend"); err != nil {
			errs.Append(err)
		}
	}
	if cfg.Agent.Backend == BackendEino {
		if err := ValidateOneOf("agent.provider", cfg.Agent.Provider, []string{ProviderAnthropic, ProviderOpenAI}); err != nil {
			errs.Append(err)
		}
		if err := ValidateRequired("agent.model", cfg.Agent.Model, "the eino backend"); err != nil {
			errs.Append(err)
		}
	}
	if cfg.Agent.MaxSteps < 0 {
		errs.Add("agent.maxSteps", "must not be negative", cfg.Agent.MaxSteps)
	}
	if cfg.Agent.TokenBudget < 0 {
		errs.Add("agent.tokenBudget", "must not be negative", cfg.Agent.TokenBudget)
	}
	if cfg.Agent.Timeout < 0 {
		errs.Add("agent.timeout", "must not be negative", cfg.Agent.Timeout)
	}

	if cfg.Plugins.Telegram.PollInterval < 0 {
		errs.Add("plugins.telegram.pollInterval", "must not be negative", cfg.Plugins.Telegram.PollInterval)
	}
	if cfg.Plugins.Telegram.ApprovalTimeout < 0 {
		errs.Add("plugins.telegram.approvalTimeout", "must not be negative", cfg.Plugins.Telegram.ApprovalTimeout)
	}

	if k := cfg.Secrets.Kubernetes; k != nil {
		if err := ValidateRequired("secrets.kubernetes.name", k.Name, "a kubernetes secret source"); err != nil {
			errs.Append(err)
		}
		if err := ValidateRequired("secrets.kubernetes.namespace", k.Namespace, "a kubernetes secret source"); err != nil {
			errs.Append(err)
		}
	}

	if cfg.Logging.Format != "" {
		if err := ValidateOneOf("logging.format", cfg.Logging.Format, []string{"text", "json"}); err != nil {
			errs.Append(err)
		}
	}
	if cfg.Logging.Level != "" {
		if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
			errs.Add("logging.level", err.Error(), cfg.Logging.Level)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
