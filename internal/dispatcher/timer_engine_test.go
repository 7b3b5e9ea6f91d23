package dispatcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/sabihatasneem/st2/internal/dispatcher"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/testutil/fakes"
	"github.com/sabihatasneem/st2/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var engineNow = time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC)

func newTimerEngine(store *fakes.FakeScheduleStore, firer *fakes.FakeFirer) *dispatcher.TimerEngine {
	return dispatcher.NewTimerEngine(store, firer, logging.NewNoOpLogger(), clock.NewFixed(engineNow), time.Second, 10)
}

func cronTrigger(id string) models.Trigger {
	return models.Trigger{
		ID:     id,
		Name:   "nightly",
		Type:   models.TriggerTypeTimerCron,
		Status: models.TriggerStatusActive,
		Config: []byte(`{"cron":"0 9 * * *","payload":{"job":"report"}}`),
	}
}

func onceTrigger(id string) models.Trigger {
	return models.Trigger{
		ID:     id,
		Name:   "one-shot",
		Type:   models.TriggerTypeTimerOnce,
		Status: models.TriggerStatusActive,
		Config: []byte(`{"run_at":"2025-01-02T02:59:00Z","payload":{"kind":"reminder"}}`),
	}
}

func TestProcessDueSchedules_CronFiresAndReschedules(t *testing.T) {
	store := fakes.NewFakeScheduleStore()
	firer := fakes.NewFakeFirer()
	engine := newTimerEngine(store, firer)

	store.AddDue(models.TriggerSchedule{ID: "s1", TriggerID: "t1", FireAt: engineNow}, cronTrigger("t1"))

	engine.ProcessDueSchedules(context.Background())

	assert.Equal(t, models.ScheduleStatusCompleted, store.StatusOf("s1"))
	require.Equal(t, 1, firer.FireCount())
	assert.Equal(t, models.InstanceSourceTimer, firer.Fired[0].Source)
	assert.Equal(t, "report", firer.Fired[0].Payload["job"])

	require.Len(t, store.Created, 1)
	next := store.Created[0]
	assert.Equal(t, "t1", next.TriggerID)
	assert.Equal(t, models.ScheduleStatusPending, next.Status)
	assert.Equal(t, time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC), next.FireAt)
	assert.False(t, store.Inactive["t1"])
}

func TestProcessDueSchedules_OnceFiresAndDeactivates(t *testing.T) {
	store := fakes.NewFakeScheduleStore()
	firer := fakes.NewFakeFirer()
	engine := newTimerEngine(store, firer)

	store.AddDue(models.TriggerSchedule{ID: "s1", TriggerID: "t1", FireAt: engineNow}, onceTrigger("t1"))

	engine.ProcessDueSchedules(context.Background())

	assert.Equal(t, models.ScheduleStatusCompleted, store.StatusOf("s1"))
	assert.Equal(t, 1, firer.FireCount())
	assert.Equal(t, "reminder", firer.Fired[0].Payload["kind"])
	assert.True(t, store.Inactive["t1"])
	assert.Empty(t, store.Created)
}

func TestProcessDueSchedules_FailureRevertsToPending(t *testing.T) {
	store := fakes.NewFakeScheduleStore()
	firer := fakes.NewFakeFirer()
	firer.FireErr = assert.AnError
	engine := newTimerEngine(store, firer)

	store.AddDue(models.TriggerSchedule{ID: "s1", TriggerID: "t1", FireAt: engineNow, AttemptCount: 0}, cronTrigger("t1"))

	engine.ProcessDueSchedules(context.Background())

	assert.Equal(t, models.ScheduleStatusPending, store.StatusOf("s1"))
	assert.Equal(t, 1, store.Reverted["s1"])
	assert.Empty(t, store.Created)
}

func TestProcessDueSchedules_ExhaustedAttemptsCancels(t *testing.T) {
	store := fakes.NewFakeScheduleStore()
	firer := fakes.NewFakeFirer()
	firer.FireErr = assert.AnError
	engine := newTimerEngine(store, firer)

	store.AddDue(models.TriggerSchedule{ID: "s1", TriggerID: "t1", FireAt: engineNow, AttemptCount: 2}, cronTrigger("t1"))

	engine.ProcessDueSchedules(context.Background())

	assert.Equal(t, models.ScheduleStatusCancelled, store.StatusOf("s1"))
	assert.Zero(t, store.Reverted["s1"])
}

func TestProcessDueSchedules_BatchProcessesAll(t *testing.T) {
	store := fakes.NewFakeScheduleStore()
	firer := fakes.NewFakeFirer()
	engine := newTimerEngine(store, firer)

	store.AddDue(models.TriggerSchedule{ID: "s1", TriggerID: "t1", FireAt: engineNow}, cronTrigger("t1"))
	store.AddDue(models.TriggerSchedule{ID: "s2", TriggerID: "t2", FireAt: engineNow}, onceTrigger("t2"))

	engine.ProcessDueSchedules(context.Background())

	assert.Equal(t, 2, firer.FireCount())
	assert.Equal(t, models.ScheduleStatusCompleted, store.StatusOf("s1"))
	assert.Equal(t, models.ScheduleStatusCompleted, store.StatusOf("s2"))
}
