// Package fakes provides in-memory store and collaborator doubles for
// service and engine tests.
package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
)

// FakeTriggerStore is an in-memory trigger store.
type FakeTriggerStore struct {
	mu        sync.Mutex
	Triggers  map[string]*models.Trigger
	Schedules map[string]*models.TriggerSchedule // keyed by schedule ID

	CreateErr error
	UpdateErr error
}

// NewFakeTriggerStore creates an empty fake trigger store.
func NewFakeTriggerStore() *FakeTriggerStore {
	return &FakeTriggerStore{
		Triggers:  make(map[string]*models.Trigger),
		Schedules: make(map[string]*models.TriggerSchedule),
	}
}

func (f *FakeTriggerStore) CreateTrigger(_ context.Context, trigger *models.Trigger, schedule *models.TriggerSchedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return f.CreateErr
	}

	now := time.Now().UTC()
	stored := *trigger
	stored.CreatedAt = now
	stored.UpdatedAt = now
	f.Triggers[trigger.ID] = &stored

	if schedule != nil {
		s := *schedule
		f.Schedules[schedule.ID] = &s
	}

	return nil
}

func (f *FakeTriggerStore) GetTrigger(_ context.Context, triggerID string) (*models.Trigger, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	trigger, ok := f.Triggers[triggerID]
	if !ok {
		return nil, nil, storage.ErrTriggerNotFound
	}

	copied := *trigger
	return &copied, f.nextFireAtLocked(triggerID), nil
}

func (f *FakeTriggerStore) ListTriggers(_ context.Context, query models.ListTriggersQuery) ([]models.Trigger, []*time.Time, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Trigger, 0, len(f.Triggers))
	nexts := make([]*time.Time, 0, len(f.Triggers))
	for _, trigger := range f.Triggers {
		if query.Type != "" && string(trigger.Type) != query.Type {
			continue
		}
		if query.Status != "" && string(trigger.Status) != query.Status {
			continue
		}
		out = append(out, *trigger)
		nexts = append(nexts, f.nextFireAtLocked(trigger.ID))
	}

	return out, nexts, int64(len(out)), nil
}

func (f *FakeTriggerStore) UpdateTrigger(_ context.Context, triggerID string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return f.UpdateErr
	}

	trigger, ok := f.Triggers[triggerID]
	if !ok {
		return storage.ErrTriggerNotFound
	}

	if name, ok := updates["name"].(string); ok {
		trigger.Name = name
	}
	if status, ok := updates["status"].(models.TriggerStatus); ok {
		trigger.Status = status
	}
	if config, ok := updates["config"].(string); ok {
		trigger.Config = []byte(config)
	}
	trigger.UpdatedAt = time.Now().UTC()

	return nil
}

func (f *FakeTriggerStore) DeleteTrigger(_ context.Context, triggerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.Triggers[triggerID]; !ok {
		return storage.ErrTriggerNotFound
	}
	delete(f.Triggers, triggerID)

	for id, schedule := range f.Schedules {
		if schedule.TriggerID == triggerID {
			delete(f.Schedules, id)
		}
	}

	return nil
}

func (f *FakeTriggerStore) UpsertTriggerSchedule(_ context.Context, triggerID string, schedule *models.TriggerSchedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.Schedules {
		if existing.TriggerID == triggerID &&
			(existing.Status == models.ScheduleStatusPending || existing.Status == models.ScheduleStatusProcessing) {
			existing.Status = models.ScheduleStatusCancelled
		}
	}

	s := *schedule
	f.Schedules[schedule.ID] = &s
	return nil
}

func (f *FakeTriggerStore) nextFireAtLocked(triggerID string) *time.Time {
	var next *time.Time
	for _, schedule := range f.Schedules {
		if schedule.TriggerID != triggerID || schedule.Status != models.ScheduleStatusPending {
			continue
		}
		if next == nil || schedule.FireAt.Before(*next) {
			fireAt := schedule.FireAt
			next = &fireAt
		}
	}
	return next
}
