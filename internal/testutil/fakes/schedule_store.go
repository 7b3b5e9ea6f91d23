package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
)

// FakeScheduleStore is an in-memory schedule store for timer engine tests.
type FakeScheduleStore struct {
	mu        sync.Mutex
	Due       []storage.ScheduleWithTrigger
	Statuses  map[string]models.ScheduleStatus
	Reverted  map[string]int
	Created   []models.TriggerSchedule
	Inactive  map[string]bool
	Archived  int64
	DueErr    error
	StatusErr error
}

// NewFakeScheduleStore creates an empty fake schedule store.
func NewFakeScheduleStore() *FakeScheduleStore {
	return &FakeScheduleStore{
		Statuses: make(map[string]models.ScheduleStatus),
		Reverted: make(map[string]int),
		Inactive: make(map[string]bool),
	}
}

func (f *FakeScheduleStore) GetDueSchedules(_ context.Context, limit int) ([]storage.ScheduleWithTrigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DueErr != nil {
		return nil, f.DueErr
	}

	due := f.Due
	f.Due = nil
	if len(due) > limit {
		f.Due = due[limit:]
		due = due[:limit]
	}
	return due, nil
}

func (f *FakeScheduleStore) UpdateScheduleStatus(_ context.Context, scheduleID string, status models.ScheduleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.StatusErr != nil {
		return f.StatusErr
	}
	f.Statuses[scheduleID] = status
	return nil
}

func (f *FakeScheduleStore) RevertScheduleToPending(_ context.Context, scheduleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Statuses[scheduleID] = models.ScheduleStatusPending
	f.Reverted[scheduleID]++
	return nil
}

func (f *FakeScheduleStore) CreateNextSchedule(_ context.Context, schedule *models.TriggerSchedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Created = append(f.Created, *schedule)
	return nil
}

func (f *FakeScheduleStore) DeactivateTrigger(_ context.Context, triggerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Inactive[triggerID] {
		return fmt.Errorf("trigger already inactive: %s", triggerID)
	}
	f.Inactive[triggerID] = true
	return nil
}

func (f *FakeScheduleStore) ArchiveTriggerInstances(_ context.Context, _ int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Archived, nil
}

// AddDue queues a schedule with its trigger context for the next poll.
func (f *FakeScheduleStore) AddDue(schedule models.TriggerSchedule, trigger models.Trigger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Due = append(f.Due, storage.ScheduleWithTrigger{Schedule: schedule, Trigger: trigger})
}

// StatusOf returns the last recorded status for a schedule.
func (f *FakeScheduleStore) StatusOf(scheduleID string) models.ScheduleStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Statuses[scheduleID]
}
