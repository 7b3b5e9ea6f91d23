package fakes

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
)

// FakeActionStore is an in-memory action registry.
type FakeActionStore struct {
	mu      sync.Mutex
	Actions map[string]*models.Action
}

// NewFakeActionStore creates an empty fake action store.
func NewFakeActionStore() *FakeActionStore {
	return &FakeActionStore{Actions: make(map[string]*models.Action)}
}

func (f *FakeActionStore) CreateAction(_ context.Context, action *models.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	stored := *action
	stored.CreatedAt = now
	stored.UpdatedAt = now
	f.Actions[action.Name] = &stored
	return nil
}

func (f *FakeActionStore) GetAction(_ context.Context, name string) (*models.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	action, ok := f.Actions[name]
	if !ok {
		return nil, storage.ErrActionNotFound
	}
	copied := *action
	return &copied, nil
}

func (f *FakeActionStore) ListActions(_ context.Context, query models.ListActionsQuery) ([]models.Action, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Action, 0, len(f.Actions))
	for _, action := range f.Actions {
		if query.RunnerType != "" && string(action.RunnerType) != query.RunnerType {
			continue
		}
		out = append(out, *action)
	}
	return out, int64(len(out)), nil
}

func (f *FakeActionStore) UpdateAction(_ context.Context, name string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	action, ok := f.Actions[name]
	if !ok {
		return storage.ErrActionNotFound
	}

	if description, ok := updates["description"].(string); ok {
		action.Description = description
	}
	if schema, ok := updates["params_schema"].(string); ok {
		action.ParamsSchema = []byte(schema)
	}
	if endpoint, ok := updates["endpoint"].(string); ok {
		action.Endpoint = endpoint
	}
	if method, ok := updates["http_method"].(string); ok {
		action.HTTPMethod = method
	}
	if headers, ok := updates["headers"].(string); ok {
		_ = json.Unmarshal([]byte(headers), &action.Headers)
	}
	if timeout, ok := updates["timeout_seconds"].(int); ok {
		action.TimeoutSeconds = timeout
	}
	if enabled, ok := updates["enabled"].(bool); ok {
		action.Enabled = enabled
	}
	action.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *FakeActionStore) DeleteAction(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.Actions[name]; !ok {
		return storage.ErrActionNotFound
	}
	delete(f.Actions, name)
	return nil
}
