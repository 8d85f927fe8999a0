package api

import (
	"time"
)

// ExecutionStatus is the state of a whole run.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// StepStatus is the state of a single step:
// pending -> (skipped | running -> (completed | failed)).
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepSkipped   StepStatus = "skipped"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// WorkflowExecution is the record of one workflow run.
type WorkflowExecution struct {
	ExecutionID  string                 `json:"execution_id"`
	WorkflowName string                 `json:"workflow_name"`
	Status       ExecutionStatus        `json:"status"`
	StartedAt    time.Time              `json:"started_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	DurationMs   int64                  `json:"duration_ms"`
	Input        map[string]interface{} `json:"input,omitempty"`
	Steps        []StepExecution        `json:"steps"`
	Error        string                 `json:"error,omitempty"`
}

// StepExecution is the record of one step within a run.
type StepExecution struct {
	StepID      string      `json:"step_id"`
	Type        StepType    `json:"type"`
	Tool        string      `json:"tool,omitempty"`
	Status      StepStatus  `json:"status"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	DurationMs  int64       `json:"duration_ms,omitempty"`
	Output      *StepOutput `json:"output,omitempty"`
	Error       string      `json:"error,omitempty"`

	// AI agent steps only.
	ContinueSession *bool  `json:"continue_session,omitempty"`
	PromptFile      string `json:"prompt_file,omitempty"`
	PromptTruncated bool   `json:"prompt_truncated,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
}

// Step returns the record for stepID, or nil.
func (e *WorkflowExecution) Step(stepID string) *StepExecution {
	for i := range e.Steps {
		if e.Steps[i].StepID == stepID {
			return &e.Steps[i]
		}
	}
	return nil
}

// ExecutionSummary is the listing form of a WorkflowExecution.
type ExecutionSummary struct {
	ExecutionID  string          `json:"execution_id"`
	WorkflowName string          `json:"workflow_name"`
	Status       ExecutionStatus `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	DurationMs   int64           `json:"duration_ms"`
	StepCount    int             `json:"step_count"`
	FailedStep   string          `json:"failed_step,omitempty"`
}

// Summary returns the listing form of e.
func (e *WorkflowExecution) Summary() ExecutionSummary {
	s := ExecutionSummary{
		ExecutionID:  e.ExecutionID,
		WorkflowName: e.WorkflowName,
		Status:       e.Status,
		StartedAt:    e.StartedAt,
		DurationMs:   e.DurationMs,
		StepCount:    len(e.Steps),
	}
	for _, step := range e.Steps {
		if step.Status == StepFailed {
			s.FailedStep = step.StepID
			break
		}
	}
	return s
}
