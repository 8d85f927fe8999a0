package api

import (
	"errors"
	"fmt"
	"strings"
)

// DuplicateToolError is returned when a plugin declares a tool name that is
// already provided by a previously registered plugin.
type DuplicateToolError struct {
	Tool           string
	ExistingPlugin string
	Plugin         string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q of plugin %s is already provided by plugin %s", e.Tool, e.Plugin, e.ExistingPlugin)
}

// MissingToolError is returned when a workflow references tools that no
// registered plugin provides. Nothing executes when this error is returned.
type MissingToolError struct {
	Workflow  string
	Missing   []string
	Available []string
}

func (e *MissingToolError) Error() string {
	available := "none"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	name := e.Workflow
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("workflow %s references unavailable tools: %s (available: %s)",
		name, strings.Join(e.Missing, ", "), available)
}

// PluginInitError is returned when a plugin rejects its secrets during
// registration.
type PluginInitError struct {
	Plugin string
	Err    error
}

func (e *PluginInitError) Error() string {
	return fmt.Sprintf("failed to initialize plugin %s: %v", e.Plugin, e.Err)
}

func (e *PluginInitError) Unwrap() error {
	return e.Err
}

// UnknownToolError is returned when a tool cannot be resolved at dispatch time.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("no registered plugin provides tool %q", e.Tool)
}

// StepError wraps the error of the step that aborted a run.
type StepError struct {
	StepID string
	Type   StepType
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.StepID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ToolResultError carries the text of a tool result flagged with isError.
type ToolResultError struct {
	Tool    string
	Message string
}

func (e *ToolResultError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tool %s returned an error result", e.Tool)
	}
	return fmt.Sprintf("tool %s returned an error: %s", e.Tool, e.Message)
}

// NotFoundError is returned when a named workflow or execution record does
// not exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Name)
}

// NewNotFoundError creates a NotFoundError for the given kind and name.
func NewNotFoundError(kind, name string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name}
}

// IsDuplicateTool reports whether err is or wraps a DuplicateToolError.
func IsDuplicateTool(err error) bool {
	var target *DuplicateToolError
	return errors.As(err, &target)
}

// IsMissingTool reports whether err is or wraps a MissingToolError.
func IsMissingTool(err error) bool {
	var target *MissingToolError
	return errors.As(err, &target)
}

// IsUnknownTool reports whether err is or wraps an UnknownToolError.
func IsUnknownTool(err error) bool {
	var target *UnknownToolError
	return errors.As(err, &target)
}

// IsStepError reports whether err is or wraps a StepError.
func IsStepError(err error) bool {
	var target *StepError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsPluginInit reports whether err is a *PluginInitError.
func IsPluginInit(err error) bool {
	var target *PluginInitError
	return errors.As(err, &target)
}
