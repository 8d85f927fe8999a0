package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/giantswarm/stepflow/internal/api"
	"github.com/giantswarm/stepflow/internal/config"
	"github.com/giantswarm/stepflow/pkg/logging"
)

const executionsEntity = "executions"

// ExecutionStorage persists execution records. Records are written for
// auditing only; a failed run is never resumed from them.
type ExecutionStorage interface {
	// Store persists an execution record, replacing an earlier version.
	Store(ctx context.Context, execution *api.WorkflowExecution) error

	// Get retrieves an execution record by id.
	Get(ctx context.Context, executionID string) (*api.WorkflowExecution, error)

	// List returns summaries, most recent first, optionally filtered by
	// workflow name. A non-positive limit returns everything.
	List(ctx context.Context, workflowName string, limit int) ([]api.ExecutionSummary, error)
}

// FileExecutionStorage stores each execution as a JSON file named after its id.
type FileExecutionStorage struct {
	storage *config.Storage
	mu      sync.RWMutex
	log     *logging.Logger
}

// NewExecutionStorage creates a storage writing below dir/executions.
func NewExecutionStorage(dir string, log *logging.Logger) *FileExecutionStorage {
	if log == nil {
		log = logging.Discard()
	}
	return &FileExecutionStorage{
		storage: config.NewStorage(dir, ".json", log),
		log:     log.With("ExecutionStorage"),
	}
}

// Path returns the file an execution record is written to.
func (es *FileExecutionStorage) Path(executionID string) string {
	return es.storage.Path(executionsEntity, executionID)
}

func (es *FileExecutionStorage) Store(_ context.Context, execution *api.WorkflowExecution) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ExecutionID, err)
	}
	if err := es.storage.Save(executionsEntity, execution.ExecutionID, data); err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ExecutionID, err)
	}

	es.log.Debug("Stored execution %s for workflow %s", execution.ExecutionID, execution.WorkflowName)
	return nil
}

func (es *FileExecutionStorage) Get(_ context.Context, executionID string) (*api.WorkflowExecution, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.load(executionID)
}

func (es *FileExecutionStorage) load(executionID string) (*api.WorkflowExecution, error) {
	data, err := es.storage.Load(executionsEntity, executionID)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, api.NewNotFoundError("execution", executionID)
		}
		return nil, fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	var execution api.WorkflowExecution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", executionID, err)
	}
	return &execution, nil
}

func (es *FileExecutionStorage) List(_ context.Context, workflowName string, limit int) ([]api.ExecutionSummary, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	ids, err := es.storage.List(executionsEntity)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	summaries := make([]api.ExecutionSummary, 0, len(ids))
	for _, id := range ids {
		execution, err := es.load(id)
		if err != nil {
			es.log.Warn("Skipping unreadable execution record %s: %v", id, err)
			continue
		}
		if workflowName != "" && execution.WorkflowName != workflowName {
			continue
		}
		summaries = append(summaries, execution.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}
