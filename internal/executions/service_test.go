package executions_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sabihatasneem/st2/internal/executions"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/internal/testutil/fakes"
	"github.com/sabihatasneem/st2/internal/triggers"
	"github.com/sabihatasneem/st2/platform/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutionService() (*executions.Service, *fakes.FakeExecutionStore, *fakes.FakePublisher) {
	actionStore := fakes.NewFakeActionStore()
	actionStore.Actions["debug.echo"] = &models.Action{
		Name:       "debug.echo",
		RunnerType: models.RunnerTypeNoop,
		Enabled:    true,
	}
	actionStore.Actions["disabled.action"] = &models.Action{
		Name:       "disabled.action",
		RunnerType: models.RunnerTypeNoop,
		Enabled:    false,
	}
	actionStore.Actions["strict.notify"] = &models.Action{
		Name:         "strict.notify",
		RunnerType:   models.RunnerTypeNoop,
		ParamsSchema: json.RawMessage(`{"type":"object","required":["msg"]}`),
		Enabled:      true,
	}

	store := fakes.NewFakeExecutionStore(actionStore)
	publisher := fakes.NewFakePublisher()
	service := executions.NewService(store, publisher, logging.NewNoOpLogger())
	return service, store, publisher
}

func TestCreateManual(t *testing.T) {
	service, store, publisher := newExecutionService()

	resp, err := service.CreateManual(context.Background(), models.CreateExecutionRequest{
		ActionName: "debug.echo",
		Params:     json.RawMessage(`{"msg":"hi"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusScheduled, resp.Status)
	assert.Nil(t, resp.RuleID)
	assert.Len(t, store.Executions, 1)
	assert.Len(t, publisher.EventsOfType(events.EventExecutionStateChanged), 1)
}

func TestCreateManual_UnknownAction(t *testing.T) {
	service, _, _ := newExecutionService()

	_, err := service.CreateManual(context.Background(), models.CreateExecutionRequest{
		ActionName: "missing",
	})

	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateManual_DisabledAction(t *testing.T) {
	service, _, _ := newExecutionService()

	_, err := service.CreateManual(context.Background(), models.CreateExecutionRequest{
		ActionName: "disabled.action",
	})

	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateFromRule(t *testing.T) {
	service, store, _ := newExecutionService()

	resp, err := service.CreateFromRule(context.Background(), "rule-1", "instance-1", "debug.echo", json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NotNil(t, resp.RuleID)
	assert.Equal(t, "rule-1", *resp.RuleID)
	require.NotNil(t, resp.TriggerInstanceID)
	assert.Equal(t, "instance-1", *resp.TriggerInstanceID)
	assert.Equal(t, models.ExecutionStatusScheduled, resp.Status)
	assert.Len(t, store.Executions, 1)
}

func TestCreateFromRule_DisabledAction(t *testing.T) {
	service, store, _ := newExecutionService()

	_, err := service.CreateFromRule(context.Background(), "rule-1", "instance-1", "disabled.action", json.RawMessage(`{}`))

	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Empty(t, store.Executions)
}

func TestCreateFromRule_ParamsFailSchema(t *testing.T) {
	service, store, _ := newExecutionService()

	// Rendered params go through the action schema; a substitution that
	// dropped a required key must not reach the worker.
	_, err := service.CreateFromRule(context.Background(), "rule-1", "instance-1", "strict.notify", json.RawMessage(`{"other":1}`))

	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Empty(t, store.Executions)

	resp, err := service.CreateFromRule(context.Background(), "rule-1", "instance-1", "strict.notify", json.RawMessage(`{"msg":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusScheduled, resp.Status)
}

func TestCancel_Scheduled(t *testing.T) {
	service, _, _ := newExecutionService()

	created, err := service.CreateManual(context.Background(), models.CreateExecutionRequest{ActionName: "debug.echo"})
	require.NoError(t, err)

	canceled, err := service.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCanceled, canceled.Status)
	assert.NotNil(t, canceled.EndedAt)
}

func TestCancel_RunningSetsFlag(t *testing.T) {
	service, store, _ := newExecutionService()

	created, err := service.CreateManual(context.Background(), models.CreateExecutionRequest{ActionName: "debug.echo"})
	require.NoError(t, err)

	require.NoError(t, store.TransitionExecution(context.Background(), created.ID, models.ExecutionStatusScheduled, models.ExecutionStatusRunning))

	resp, err := service.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	// Still running; the worker finalizes the cancel between attempts.
	assert.Equal(t, models.ExecutionStatusRunning, resp.Status)

	flagged, err := store.IsCancelRequested(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, flagged)
}

func TestCancel_TerminalConflicts(t *testing.T) {
	service, store, _ := newExecutionService()

	created, err := service.CreateManual(context.Background(), models.CreateExecutionRequest{ActionName: "debug.echo"})
	require.NoError(t, err)

	require.NoError(t, store.TransitionExecution(context.Background(), created.ID, models.ExecutionStatusScheduled, models.ExecutionStatusRunning))
	require.NoError(t, store.FinishExecution(context.Background(), created.ID, models.ExecutionStatusSucceeded, nil, nil, 1))

	_, err = service.Cancel(context.Background(), created.ID)
	var conflictErr executions.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestRerun(t *testing.T) {
	service, store, _ := newExecutionService()

	created, err := service.CreateManual(context.Background(), models.CreateExecutionRequest{
		ActionName: "debug.echo",
		Params:     json.RawMessage(`{"msg":"hi"}`),
	})
	require.NoError(t, err)

	require.NoError(t, store.TransitionExecution(context.Background(), created.ID, models.ExecutionStatusScheduled, models.ExecutionStatusRunning))
	msg := "boom"
	require.NoError(t, store.FinishExecution(context.Background(), created.ID, models.ExecutionStatusFailed, nil, &msg, 3))

	rerun, err := service.Rerun(context.Background(), created.ID)
	require.NoError(t, err)

	assert.NotEqual(t, created.ID, rerun.ID)
	assert.Equal(t, created.ActionName, rerun.ActionName)
	assert.Equal(t, models.ExecutionStatusScheduled, rerun.Status)
	assert.Len(t, store.Executions, 2)

	// The original keeps its terminal state.
	original, err := service.GetExecution(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, original.Status)
}

func TestRerun_NotTerminalConflicts(t *testing.T) {
	service, _, _ := newExecutionService()

	created, err := service.CreateManual(context.Background(), models.CreateExecutionRequest{ActionName: "debug.echo"})
	require.NoError(t, err)

	_, err = service.Rerun(context.Background(), created.ID)
	var conflictErr executions.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestGetExecution_NotFound(t *testing.T) {
	service, _, _ := newExecutionService()

	_, err := service.GetExecution(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrExecutionNotFound)
}
