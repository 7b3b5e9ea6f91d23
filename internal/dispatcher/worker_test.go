package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/runners"
	"github.com/sabihatasneem/st2/internal/testutil/fakes"
	"github.com/sabihatasneem/st2/platform/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkerFixture(t *testing.T, runner *fakes.FakeRunner, maxAttempts int, timeoutSeconds int) (*Worker, *fakes.FakeExecutionStore, *fakes.FakePublisher) {
	t.Helper()

	actionStore := fakes.NewFakeActionStore()
	actionStore.Actions["debug.echo"] = &models.Action{
		Name:           "debug.echo",
		RunnerType:     models.RunnerTypeNoop,
		TimeoutSeconds: timeoutSeconds,
		Enabled:        true,
	}

	store := fakes.NewFakeExecutionStore(actionStore)
	publisher := fakes.NewFakePublisher()

	registry := runners.NewRegistry()
	registry.Register(models.RunnerTypeNoop, runner)

	worker := NewWorker(store, registry, publisher, logging.NewNoOpLogger(), time.Second, 10, maxAttempts, 30*time.Second)
	worker.baseBackoff = time.Millisecond
	return worker, store, publisher
}

func scheduleExecution(t *testing.T, store *fakes.FakeExecutionStore, id string) {
	t.Helper()
	require.NoError(t, store.CreateExecution(context.Background(), &models.Execution{
		ID:         id,
		ActionName: "debug.echo",
		Params:     json.RawMessage(`{}`),
		Status:     models.ExecutionStatusScheduled,
	}))
}

func TestWorker_Success(t *testing.T) {
	runner := fakes.NewFakeRunner()
	worker, store, publisher := newWorkerFixture(t, runner, 3, 0)
	scheduleExecution(t, store, "e1")

	worker.ProcessScheduled(context.Background())

	execution := store.Executions["e1"]
	assert.Equal(t, models.ExecutionStatusSucceeded, execution.Status)
	assert.Equal(t, 1, execution.AttemptCount)
	assert.JSONEq(t, `{"ok":true}`, string(execution.Result))
	assert.NotNil(t, execution.StartedAt)
	assert.NotNil(t, execution.EndedAt)
	assert.Len(t, publisher.EventsOfType(events.EventExecutionStateChanged), 1)
}

func TestWorker_RetriesThenSucceeds(t *testing.T) {
	runner := fakes.NewFakeRunner()
	runner.Errs = []error{assert.AnError, assert.AnError}
	worker, store, _ := newWorkerFixture(t, runner, 3, 0)
	scheduleExecution(t, store, "e1")

	worker.ProcessScheduled(context.Background())

	execution := store.Executions["e1"]
	assert.Equal(t, models.ExecutionStatusSucceeded, execution.Status)
	assert.Equal(t, 3, execution.AttemptCount)
	assert.Equal(t, 3, runner.CallCount())
}

func TestWorker_ExhaustedAttemptsFails(t *testing.T) {
	runner := fakes.NewFakeRunner()
	runner.Errs = []error{assert.AnError, assert.AnError, assert.AnError}
	worker, store, _ := newWorkerFixture(t, runner, 3, 0)
	scheduleExecution(t, store, "e1")

	worker.ProcessScheduled(context.Background())

	execution := store.Executions["e1"]
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, 3, execution.AttemptCount)
	require.NotNil(t, execution.ErrorMessage)
}

func TestWorker_PermanentErrorSkipsRetries(t *testing.T) {
	runner := fakes.NewFakeRunner()
	runner.Errs = []error{runners.NewPermanentError("status 422")}
	worker, store, _ := newWorkerFixture(t, runner, 3, 0)
	scheduleExecution(t, store, "e1")

	worker.ProcessScheduled(context.Background())

	execution := store.Executions["e1"]
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, 1, execution.AttemptCount)
	assert.Equal(t, 1, runner.CallCount())
}

func TestWorker_TimeoutStatus(t *testing.T) {
	runner := fakes.NewFakeRunner()
	runner.Block = true
	worker, store, _ := newWorkerFixture(t, runner, 1, 1)
	scheduleExecution(t, store, "e1")

	worker.ProcessScheduled(context.Background())

	execution := store.Executions["e1"]
	assert.Equal(t, models.ExecutionStatusTimeout, execution.Status)
	require.NotNil(t, execution.ErrorMessage)
	assert.Contains(t, *execution.ErrorMessage, "timed out")
}

func TestWorker_CancelRequestedBetweenAttempts(t *testing.T) {
	runner := fakes.NewFakeRunner()
	worker, store, _ := newWorkerFixture(t, runner, 3, 0)
	scheduleExecution(t, store, "e1")

	// Flag is set before the worker picks the row up; the first cancel
	// check runs before any attempt.
	store.Executions["e1"].CancelRequested = true

	worker.ProcessScheduled(context.Background())

	execution := store.Executions["e1"]
	assert.Equal(t, models.ExecutionStatusCanceled, execution.Status)
	assert.Zero(t, runner.CallCount())
}

func TestBackoffDelay(t *testing.T) {
	worker := &Worker{baseBackoff: defaultBaseBackoff}

	first := worker.backoffDelay(1)
	assert.GreaterOrEqual(t, first, defaultBaseBackoff)
	assert.Less(t, first, defaultBaseBackoff+defaultBaseBackoff/2)

	// High attempt numbers stay at the cap instead of overflowing into a
	// negative delay.
	for _, attempt := range []int{8, 34, 64, 1000} {
		delay := worker.backoffDelay(attempt)
		assert.GreaterOrEqual(t, delay, maxBackoff, "attempt %d", attempt)
		assert.LessOrEqual(t, delay, maxBackoff+maxBackoff/4, "attempt %d", attempt)
	}
}

func TestWorker_UnknownActionFails(t *testing.T) {
	runner := fakes.NewFakeRunner()
	worker, store, _ := newWorkerFixture(t, runner, 3, 0)
	require.NoError(t, store.CreateExecution(context.Background(), &models.Execution{
		ID:         "e1",
		ActionName: "gone.action",
		Status:     models.ExecutionStatusScheduled,
	}))

	worker.ProcessScheduled(context.Background())

	execution := store.Executions["e1"]
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	require.NotNil(t, execution.ErrorMessage)
	assert.Contains(t, *execution.ErrorMessage, "no longer registered")
}

func TestWorker_SkipsAlreadyClaimed(t *testing.T) {
	runner := fakes.NewFakeRunner()
	worker, store, _ := newWorkerFixture(t, runner, 3, 0)
	scheduleExecution(t, store, "e1")

	// Another worker moved it to running between poll and claim.
	require.NoError(t, store.TransitionExecution(context.Background(), "e1", models.ExecutionStatusScheduled, models.ExecutionStatusRunning))

	worker.processExecution(context.Background(), &models.Execution{ID: "e1", ActionName: "debug.echo", Status: models.ExecutionStatusScheduled})

	assert.Zero(t, runner.CallCount())
	assert.Equal(t, models.ExecutionStatusRunning, store.Executions["e1"].Status)
}
