package actions_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sabihatasneem/st2/internal/actions"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/internal/testutil/fakes"
	"github.com/sabihatasneem/st2/internal/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActionService() (*actions.Service, *fakes.FakeActionStore) {
	store := fakes.NewFakeActionStore()
	return actions.NewService(store), store
}

func TestCreateAction_HTTPDefaults(t *testing.T) {
	service, _ := newActionService()

	action, err := service.CreateAction(context.Background(), models.CreateActionRequest{
		Name:       "slack.post",
		RunnerType: models.RunnerTypeHTTP,
		Endpoint:   "https://hooks.example.com/x",
	})

	require.NoError(t, err)
	assert.Equal(t, "POST", action.HTTPMethod)
	assert.Equal(t, 60, action.TimeoutSeconds)
	assert.True(t, action.Enabled)
}

func TestCreateAction_HTTPRequiresEndpoint(t *testing.T) {
	service, _ := newActionService()

	_, err := service.CreateAction(context.Background(), models.CreateActionRequest{
		Name:       "no-endpoint",
		RunnerType: models.RunnerTypeHTTP,
	})

	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateAction_RejectsBadEndpoint(t *testing.T) {
	service, _ := newActionService()

	_, err := service.CreateAction(context.Background(), models.CreateActionRequest{
		Name:       "bad-endpoint",
		RunnerType: models.RunnerTypeHTTP,
		Endpoint:   "ftp://example.com/drop",
	})

	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateAction_NoopIgnoresEndpoint(t *testing.T) {
	service, _ := newActionService()

	action, err := service.CreateAction(context.Background(), models.CreateActionRequest{
		Name:       "debug.echo",
		RunnerType: models.RunnerTypeNoop,
	})

	require.NoError(t, err)
	assert.Equal(t, models.RunnerTypeNoop, action.RunnerType)
}

func TestCreateAction_RejectsBadSchema(t *testing.T) {
	service, _ := newActionService()

	_, err := service.CreateAction(context.Background(), models.CreateActionRequest{
		Name:         "bad-schema",
		RunnerType:   models.RunnerTypeNoop,
		ParamsSchema: json.RawMessage(`{"type": 42}`),
	})

	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestUpdateAction(t *testing.T) {
	service, _ := newActionService()

	_, err := service.CreateAction(context.Background(), models.CreateActionRequest{
		Name:       "slack.post",
		RunnerType: models.RunnerTypeHTTP,
		Endpoint:   "https://hooks.example.com/x",
	})
	require.NoError(t, err)

	disabled := false
	timeout := 120
	updated, err := service.UpdateAction(context.Background(), "slack.post", models.UpdateActionRequest{
		Enabled:        &disabled,
		TimeoutSeconds: &timeout,
	})
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
	assert.Equal(t, 120, updated.TimeoutSeconds)
}

func TestUpdateAction_NotFound(t *testing.T) {
	service, _ := newActionService()

	_, err := service.UpdateAction(context.Background(), "missing", models.UpdateActionRequest{})
	assert.ErrorIs(t, err, storage.ErrActionNotFound)
}

func TestValidateParams(t *testing.T) {
	action := &models.Action{
		Name: "slack.post",
		ParamsSchema: json.RawMessage(`{
			"type": "object",
			"required": ["channel"],
			"properties": {"channel": {"type": "string"}}
		}`),
	}

	assert.NoError(t, actions.ValidateParams(action, json.RawMessage(`{"channel":"#ops"}`)))

	err := actions.ValidateParams(action, json.RawMessage(`{"channel":42}`))
	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	// Empty params validate against the schema as an empty object.
	err = actions.ValidateParams(action, nil)
	assert.ErrorAs(t, err, &validationErr)
}

func TestValidateParams_NoSchema(t *testing.T) {
	action := &models.Action{Name: "debug.echo"}
	assert.NoError(t, actions.ValidateParams(action, json.RawMessage(`{"anything":true}`)))
}
