package workflow

import (
	"github.com/giantswarm/stepflow/pkg/logging"
)

// Step event types.
const (
	EventStepStarted   = "step_started"
	EventStepSkipped   = "step_skipped"
	EventStepCompleted = "step_completed"
	EventStepFailed    = "step_failed"
)

// Observer receives step lifecycle events.
type Observer interface {
	// StepEvent is called synchronously from the executor.
	StepEvent(workflowName string, stepID string, eventType string, data map[string]interface{})
}

// NoOpObserver discards all events.
type NoOpObserver struct{}

func (NoOpObserver) StepEvent(string, string, string, map[string]interface{}) {}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(workflowName string, stepID string, eventType string, data map[string]interface{})

func (f ObserverFunc) StepEvent(workflowName string, stepID string, eventType string, data map[string]interface{}) {
	f(workflowName, stepID, eventType, data)
}

// LogObserver writes every event to a logger at debug level.
type LogObserver struct {
	log *logging.Logger
}

// NewLogObserver creates an observer logging under the "Events" subsystem.
func NewLogObserver(log *logging.Logger) *LogObserver {
	return &LogObserver{log: log.With("Events")}
}

func (o *LogObserver) StepEvent(workflowName string, stepID string, eventType string, data map[string]interface{}) {
	o.log.Debug("%s %s/%s %v", eventType, workflowName, stepID, data)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (obs Observers) StepEvent(workflowName string, stepID string, eventType string, data map[string]interface{}) {
	for _, o := range obs {
		o.StepEvent(workflowName, stepID, eventType, data)
	}
}
