package fakes

import (
	"context"
	"sort"
	"sync"

	"github.com/sabihatasneem/st2/internal/models"
)

// FakeInstanceStore is an in-memory trigger instance store.
type FakeInstanceStore struct {
	mu        sync.Mutex
	Instances map[string]*models.TriggerInstance

	CreateErr error
}

// NewFakeInstanceStore creates an empty fake instance store.
func NewFakeInstanceStore() *FakeInstanceStore {
	return &FakeInstanceStore{Instances: make(map[string]*models.TriggerInstance)}
}

func (f *FakeInstanceStore) CreateTriggerInstance(_ context.Context, instance *models.TriggerInstance) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return f.CreateErr
	}

	stored := *instance
	f.Instances[instance.ID] = &stored
	return nil
}

func (f *FakeInstanceStore) UpdateTriggerInstanceStatus(_ context.Context, instanceID string, status models.InstanceStatus, errorMessage *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	instance, ok := f.Instances[instanceID]
	if !ok {
		return nil
	}
	instance.Status = status
	instance.ErrorMessage = errorMessage
	return nil
}

func (f *FakeInstanceStore) GetTriggerInstance(_ context.Context, instanceID string) (*models.TriggerInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	instance, ok := f.Instances[instanceID]
	if !ok {
		return nil, nil
	}
	copied := *instance
	return &copied, nil
}

func (f *FakeInstanceStore) ListTriggerInstances(_ context.Context, query models.ListInstancesQuery) ([]models.TriggerInstance, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	retention := query.RetentionStatus
	if retention == "" {
		retention = string(models.RetentionStatusActive)
	}

	out := make([]models.TriggerInstance, 0, len(f.Instances))
	for _, instance := range f.Instances {
		if string(instance.RetentionStatus) != retention {
			continue
		}
		if query.TriggerID != "" && (instance.TriggerID == nil || *instance.TriggerID != query.TriggerID) {
			continue
		}
		if query.Status != "" && string(instance.Status) != query.Status {
			continue
		}
		if query.Source != "" && string(instance.Source) != query.Source {
			continue
		}
		out = append(out, *instance)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, int64(len(out)), nil
}
