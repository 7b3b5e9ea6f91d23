package ingestion_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sabihatasneem/st2/internal/executions"
	"github.com/sabihatasneem/st2/internal/ingestion"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/rules"
	"github.com/sabihatasneem/st2/internal/testutil/fakes"
	"github.com/sabihatasneem/st2/pkg/clock"
	"github.com/sabihatasneem/st2/platform/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeline struct {
	service    *ingestion.Service
	instances  *fakes.FakeInstanceStore
	rules      *fakes.FakeRuleStore
	execStore  *fakes.FakeExecutionStore
	publisher  *fakes.FakePublisher
	ruleEngine *rules.Engine
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	triggerStore := fakes.NewFakeTriggerStore()
	actionStore := fakes.NewFakeActionStore()
	actionStore.Actions["debug.echo"] = &models.Action{
		Name:       "debug.echo",
		RunnerType: models.RunnerTypeNoop,
		Enabled:    true,
	}

	ruleStore := fakes.NewFakeRuleStore(triggerStore, actionStore)
	execStore := fakes.NewFakeExecutionStore(actionStore)
	instanceStore := fakes.NewFakeInstanceStore()
	publisher := fakes.NewFakePublisher()
	logger := logging.NewNoOpLogger()

	engine, err := rules.NewEngine()
	require.NoError(t, err)

	ruleService := rules.NewService(ruleStore, engine)
	executionService := executions.NewService(execStore, publisher, logger)
	fixed := clock.NewFixed(time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC))

	return &pipeline{
		service:    ingestion.NewService(instanceStore, ruleService, executionService, publisher, logger, fixed),
		instances:  instanceStore,
		rules:      ruleStore,
		execStore:  execStore,
		publisher:  publisher,
		ruleEngine: engine,
	}
}

func (p *pipeline) addRule(id, criteria string, params json.RawMessage) {
	p.rules.Rules[id] = &models.Rule{
		ID:           id,
		Name:         id,
		TriggerID:    "trigger-1",
		Criteria:     criteria,
		ActionName:   "debug.echo",
		ActionParams: params,
		Enabled:      true,
	}
}

var testTrigger = &models.Trigger{
	ID:     "trigger-1",
	Name:   "alerts",
	Type:   models.TriggerTypeWebhook,
	Status: models.TriggerStatusActive,
}

func TestFire_MatchesAndCreatesExecutions(t *testing.T) {
	p := newPipeline(t)
	p.addRule("rule-1", `payload.severity >= 3`, json.RawMessage(`{"msg":"{{payload.severity}}"}`))
	p.addRule("rule-2", `payload.severity >= 100`, nil)

	result, err := p.service.Fire(context.Background(), testTrigger, map[string]interface{}{"severity": 5}, models.InstanceSourceWebhook)
	require.NoError(t, err)

	assert.Equal(t, 1, result.MatchedRules)
	require.Len(t, result.ExecutionIDs, 1)

	instance := p.instances.Instances[result.InstanceID]
	require.NotNil(t, instance)
	assert.Equal(t, models.InstanceStatusProcessed, instance.Status)
	assert.Equal(t, models.InstanceSourceWebhook, instance.Source)
	assert.Equal(t, models.RetentionStatusActive, instance.RetentionStatus)

	execution := p.execStore.Executions[result.ExecutionIDs[0]]
	require.NotNil(t, execution)
	assert.Equal(t, models.ExecutionStatusScheduled, execution.Status)
	require.NotNil(t, execution.RuleID)
	assert.Equal(t, "rule-1", *execution.RuleID)

	var params map[string]interface{}
	require.NoError(t, json.Unmarshal(execution.Params, &params))
	assert.Equal(t, float64(5), params["msg"])
}

func TestFire_NoMatchesStillProcessed(t *testing.T) {
	p := newPipeline(t)
	p.addRule("rule-1", `payload.severity >= 100`, nil)

	result, err := p.service.Fire(context.Background(), testTrigger, map[string]interface{}{"severity": 1}, models.InstanceSourceManual)
	require.NoError(t, err)

	assert.Equal(t, 0, result.MatchedRules)
	assert.Empty(t, result.ExecutionIDs)
	assert.Equal(t, models.InstanceStatusProcessed, p.instances.Instances[result.InstanceID].Status)
}

func TestFire_PublishesInstanceEvent(t *testing.T) {
	p := newPipeline(t)

	result, err := p.service.Fire(context.Background(), testTrigger, map[string]interface{}{}, models.InstanceSourceTimer)
	require.NoError(t, err)

	fired := p.publisher.EventsOfType(events.EventTriggerInstanceFired)
	require.Len(t, fired, 1)
	assert.Equal(t, result.InstanceID, fired[0].EntityID)
}

func TestFire_MatchFailureMarksInstanceFailed(t *testing.T) {
	p := newPipeline(t)
	p.rules.ListErr = assert.AnError

	_, err := p.service.Fire(context.Background(), testTrigger, map[string]interface{}{}, models.InstanceSourceWebhook)
	require.Error(t, err)

	require.Len(t, p.instances.Instances, 1)
	for _, instance := range p.instances.Instances {
		assert.Equal(t, models.InstanceStatusFailed, instance.Status)
		require.NotNil(t, instance.ErrorMessage)
	}
}

func TestFire_EvalErrorSkipsRule(t *testing.T) {
	p := newPipeline(t)
	p.addRule("rule-bad", `payload.absent == 1`, nil)
	p.addRule("rule-good", `true`, nil)

	result, err := p.service.Fire(context.Background(), testTrigger, map[string]interface{}{}, models.InstanceSourceWebhook)
	require.NoError(t, err)

	assert.Equal(t, 1, result.MatchedRules)
	assert.Len(t, result.ExecutionIDs, 1)
	assert.Equal(t, models.InstanceStatusProcessed, p.instances.Instances[result.InstanceID].Status)
}

func TestListInstances_DefaultsToActive(t *testing.T) {
	p := newPipeline(t)

	_, err := p.service.Fire(context.Background(), testTrigger, map[string]interface{}{}, models.InstanceSourceWebhook)
	require.NoError(t, err)

	for _, instance := range p.instances.Instances {
		instance.RetentionStatus = models.RetentionStatusArchived
	}

	list, err := p.service.ListInstances(context.Background(), models.ListInstancesQuery{})
	require.NoError(t, err)
	assert.Empty(t, list.Instances)

	list, err = p.service.ListInstances(context.Background(), models.ListInstancesQuery{RetentionStatus: "archived"})
	require.NoError(t, err)
	assert.Len(t, list.Instances, 1)
}

func TestGetInstance_Missing(t *testing.T) {
	p := newPipeline(t)

	instance, err := p.service.GetInstance(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, instance)
}
