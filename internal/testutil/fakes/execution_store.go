package fakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
)

// FakeExecutionStore is an in-memory execution store serving both the
// execution service and the dispatcher worker.
type FakeExecutionStore struct {
	mu         sync.Mutex
	Executions map[string]*models.Execution
	ActSt      *FakeActionStore

	TransitionErr error
}

// NewFakeExecutionStore creates a fake execution store backed by the given
// action fake.
func NewFakeExecutionStore(actionStore *FakeActionStore) *FakeExecutionStore {
	return &FakeExecutionStore{
		Executions: make(map[string]*models.Execution),
		ActSt:      actionStore,
	}
}

func (f *FakeExecutionStore) CreateExecution(_ context.Context, execution *models.Execution) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	stored := *execution
	stored.CreatedAt = now
	stored.UpdatedAt = now
	f.Executions[execution.ID] = &stored
	return nil
}

func (f *FakeExecutionStore) GetExecution(_ context.Context, executionID string) (*models.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	execution, ok := f.Executions[executionID]
	if !ok {
		return nil, storage.ErrExecutionNotFound
	}
	copied := *execution
	return &copied, nil
}

func (f *FakeExecutionStore) ListExecutions(_ context.Context, query models.ListExecutionsQuery) ([]models.Execution, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Execution, 0, len(f.Executions))
	for _, execution := range f.Executions {
		if query.Status != "" && string(execution.Status) != query.Status {
			continue
		}
		if query.ActionName != "" && execution.ActionName != query.ActionName {
			continue
		}
		if query.RuleID != "" && (execution.RuleID == nil || *execution.RuleID != query.RuleID) {
			continue
		}
		if query.TriggerInstanceID != "" && (execution.TriggerInstanceID == nil || *execution.TriggerInstanceID != query.TriggerInstanceID) {
			continue
		}
		out = append(out, *execution)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (f *FakeExecutionStore) GetScheduledExecutions(_ context.Context, limit int) ([]models.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Execution, 0)
	for _, execution := range f.Executions {
		if execution.Status == models.ExecutionStatusScheduled {
			out = append(out, *execution)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeExecutionStore) TransitionExecution(_ context.Context, executionID string, from, to models.ExecutionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.TransitionErr != nil {
		return f.TransitionErr
	}

	execution, ok := f.Executions[executionID]
	if !ok || execution.Status != from {
		return storage.ErrExecutionNotClaimable
	}

	now := time.Now().UTC()
	execution.Status = to
	execution.UpdatedAt = now
	switch to {
	case models.ExecutionStatusRunning:
		execution.StartedAt = &now
	case models.ExecutionStatusSucceeded, models.ExecutionStatusFailed,
		models.ExecutionStatusTimeout, models.ExecutionStatusCanceled:
		execution.EndedAt = &now
	}
	return nil
}

func (f *FakeExecutionStore) FinishExecution(_ context.Context, executionID string, status models.ExecutionStatus, result []byte, errorMessage *string, attemptCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	execution, ok := f.Executions[executionID]
	if !ok || execution.Status != models.ExecutionStatusRunning {
		return storage.ErrExecutionNotClaimable
	}

	now := time.Now().UTC()
	execution.Status = status
	execution.Result = result
	execution.ErrorMessage = errorMessage
	execution.AttemptCount = attemptCount
	execution.EndedAt = &now
	execution.UpdatedAt = now
	return nil
}

func (f *FakeExecutionStore) RequestExecutionCancel(_ context.Context, executionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	execution, ok := f.Executions[executionID]
	if !ok || execution.Status != models.ExecutionStatusRunning {
		return storage.ErrExecutionNotClaimable
	}

	execution.CancelRequested = true
	return nil
}

func (f *FakeExecutionStore) IsCancelRequested(_ context.Context, executionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	execution, ok := f.Executions[executionID]
	if !ok {
		return false, storage.ErrExecutionNotFound
	}
	return execution.CancelRequested, nil
}

func (f *FakeExecutionStore) GetAction(ctx context.Context, name string) (*models.Action, error) {
	return f.ActSt.GetAction(ctx, name)
}
