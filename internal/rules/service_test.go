package rules_test

import (
	"context"
	"testing"
	"time"

	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/rules"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/internal/testutil/fakes"
	"github.com/sabihatasneem/st2/internal/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuleService(t *testing.T) (*rules.Service, *fakes.FakeRuleStore) {
	t.Helper()

	triggerStore := fakes.NewFakeTriggerStore()
	actionStore := fakes.NewFakeActionStore()
	store := fakes.NewFakeRuleStore(triggerStore, actionStore)

	triggerStore.Triggers["trigger-1"] = &models.Trigger{
		ID:        "trigger-1",
		Name:      "alerts",
		Type:      models.TriggerTypeWebhook,
		Status:    models.TriggerStatusActive,
		Config:    []byte(`{}`),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	actionStore.Actions["slack.post"] = &models.Action{
		Name:       "slack.post",
		RunnerType: models.RunnerTypeHTTP,
		Endpoint:   "https://hooks.example.com/x",
		Enabled:    true,
	}

	engine, err := rules.NewEngine()
	require.NoError(t, err)

	return rules.NewService(store, engine), store
}

func TestCreateRule(t *testing.T) {
	service, store := newRuleService(t)

	rule, err := service.CreateRule(context.Background(), models.CreateRuleRequest{
		Name:       "notify-on-failure",
		TriggerID:  "trigger-1",
		Criteria:   `payload.severity >= 3`,
		ActionName: "slack.post",
	})

	require.NoError(t, err)
	assert.True(t, rule.Enabled)
	assert.Len(t, store.Rules, 1)
}

func TestCreateRule_BadCriteria(t *testing.T) {
	service, _ := newRuleService(t)

	_, err := service.CreateRule(context.Background(), models.CreateRuleRequest{
		Name:       "broken",
		TriggerID:  "trigger-1",
		Criteria:   `payload.severity >=`,
		ActionName: "slack.post",
	})

	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateRule_UnknownTrigger(t *testing.T) {
	service, _ := newRuleService(t)

	_, err := service.CreateRule(context.Background(), models.CreateRuleRequest{
		Name:       "orphan",
		TriggerID:  "missing",
		Criteria:   `true`,
		ActionName: "slack.post",
	})

	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateRule_UnknownAction(t *testing.T) {
	service, _ := newRuleService(t)

	_, err := service.CreateRule(context.Background(), models.CreateRuleRequest{
		Name:       "orphan",
		TriggerID:  "trigger-1",
		Criteria:   `true`,
		ActionName: "missing.action",
	})

	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestUpdateRule_CriteriaValidated(t *testing.T) {
	service, _ := newRuleService(t)

	created, err := service.CreateRule(context.Background(), models.CreateRuleRequest{
		Name:       "r",
		TriggerID:  "trigger-1",
		Criteria:   `true`,
		ActionName: "slack.post",
	})
	require.NoError(t, err)

	bad := `payload.x ==`
	_, err = service.UpdateRule(context.Background(), created.ID, models.UpdateRuleRequest{Criteria: &bad})
	var validationErr triggers.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	good := `payload.x == 1`
	updated, err := service.UpdateRule(context.Background(), created.ID, models.UpdateRuleRequest{Criteria: &good})
	require.NoError(t, err)
	assert.Equal(t, good, updated.Criteria)
}

func TestDeleteRule(t *testing.T) {
	service, store := newRuleService(t)

	created, err := service.CreateRule(context.Background(), models.CreateRuleRequest{
		Name:       "r",
		TriggerID:  "trigger-1",
		Criteria:   `true`,
		ActionName: "slack.post",
	})
	require.NoError(t, err)

	require.NoError(t, service.DeleteRule(context.Background(), created.ID))
	assert.Len(t, store.Rules, 0)

	err = service.DeleteRule(context.Background(), created.ID)
	assert.ErrorIs(t, err, storage.ErrRuleNotFound)
}

func TestMatch(t *testing.T) {
	service, _ := newRuleService(t)

	_, err := service.CreateRule(context.Background(), models.CreateRuleRequest{
		Name:       "high-severity",
		TriggerID:  "trigger-1",
		Criteria:   `payload.severity >= 3`,
		ActionName: "slack.post",
	})
	require.NoError(t, err)

	_, err = service.CreateRule(context.Background(), models.CreateRuleRequest{
		Name:       "billing-only",
		TriggerID:  "trigger-1",
		Criteria:   `payload.service == "billing"`,
		ActionName: "slack.post",
	})
	require.NoError(t, err)

	trigger := &models.Trigger{ID: "trigger-1", Name: "alerts", Type: models.TriggerTypeWebhook}

	matched, evalErrors, err := service.Match(context.Background(), trigger, map[string]interface{}{
		"severity": 5,
		"service":  "payments",
	})
	require.NoError(t, err)
	assert.Empty(t, evalErrors)
	require.Len(t, matched, 1)
	assert.Equal(t, "high-severity", matched[0].Name)
}

func TestMatch_DisabledRulesSkipped(t *testing.T) {
	service, _ := newRuleService(t)

	created, err := service.CreateRule(context.Background(), models.CreateRuleRequest{
		Name:       "r",
		TriggerID:  "trigger-1",
		Criteria:   `true`,
		ActionName: "slack.post",
	})
	require.NoError(t, err)

	disabled := false
	_, err = service.UpdateRule(context.Background(), created.ID, models.UpdateRuleRequest{Enabled: &disabled})
	require.NoError(t, err)

	trigger := &models.Trigger{ID: "trigger-1", Name: "alerts", Type: models.TriggerTypeWebhook}
	matched, _, err := service.Match(context.Background(), trigger, map[string]interface{}{})
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestMatch_EvalErrorDoesNotMatch(t *testing.T) {
	service, _ := newRuleService(t)

	_, err := service.CreateRule(context.Background(), models.CreateRuleRequest{
		Name:       "needs-key",
		TriggerID:  "trigger-1",
		Criteria:   `payload.absent == 1`,
		ActionName: "slack.post",
	})
	require.NoError(t, err)

	trigger := &models.Trigger{ID: "trigger-1", Name: "alerts", Type: models.TriggerTypeWebhook}
	matched, evalErrors, err := service.Match(context.Background(), trigger, map[string]interface{}{})
	require.NoError(t, err)
	assert.Empty(t, matched)
	assert.Len(t, evalErrors, 1)
}
