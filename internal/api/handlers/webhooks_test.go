package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sabihatasneem/st2/internal/api/handlers"
	"github.com/sabihatasneem/st2/internal/executions"
	"github.com/sabihatasneem/st2/internal/ingestion"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/rules"
	"github.com/sabihatasneem/st2/internal/testutil/fakes"
	"github.com/sabihatasneem/st2/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookFixture struct {
	router    *gin.Engine
	triggers  *fakes.FakeTriggerStore
	rules     *fakes.FakeRuleStore
	execStore *fakes.FakeExecutionStore
	instances *fakes.FakeInstanceStore
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	ingestionService := ingestion.NewService(instanceStore, ruleService, executionService, publisher, logger, fixed)

	handler := handlers.NewWebhookHandler(triggerStore, ingestionService, logger)

	router := gin.New()
	router.POST("/api/v1/webhook/:trigger_id", handler.Receive)
	router.POST("/api/v1/triggers/:id/fire", handler.TestFire)

	return &webhookFixture{
		router:    router,
		triggers:  triggerStore,
		rules:     ruleStore,
		execStore: execStore,
		instances: instanceStore,
	}
}

func (f *webhookFixture) addWebhookTrigger(id string, schema map[string]interface{}) {
	config := map[string]interface{}{}
	if schema != nil {
		config["schema"] = schema
	}
	raw, _ := json.Marshal(config)
	f.triggers.Triggers[id] = &models.Trigger{
		ID:     id,
		Name:   "hook",
		Type:   models.TriggerTypeWebhook,
		Status: models.TriggerStatusActive,
		Config: raw,
	}
}

func (f *webhookFixture) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookReceive(t *testing.T) {
	f := newWebhookFixture(t)
	f.addWebhookTrigger("t1", nil)
	f.rules.Rules["r1"] = &models.Rule{
		ID:         "r1",
		Name:       "always",
		TriggerID:  "t1",
		Criteria:   "true",
		ActionName: "debug.echo",
		Enabled:    true,
	}

	rec := f.post(t, "/api/v1/webhook/t1", map[string]interface{}{"ref": "refs/heads/main"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, f.instances.Instances, 1)
	assert.Len(t, f.execStore.Executions, 1)
}

func TestWebhookReceive_UnknownTrigger(t *testing.T) {
	f := newWebhookFixture(t)

	rec := f.post(t, "/api/v1/webhook/missing", map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookReceive_InactiveTrigger(t *testing.T) {
	f := newWebhookFixture(t)
	f.addWebhookTrigger("t1", nil)
	f.triggers.Triggers["t1"].Status = models.TriggerStatusInactive

	rec := f.post(t, "/api/v1/webhook/t1", map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, f.instances.Instances)
}

func TestWebhookReceive_WrongTriggerType(t *testing.T) {
	f := newWebhookFixture(t)
	f.triggers.Triggers["t1"] = &models.Trigger{
		ID:     "t1",
		Name:   "timer",
		Type:   models.TriggerTypeTimerCron,
		Status: models.TriggerStatusActive,
		Config: []byte(`{"cron":"0 9 * * *"}`),
	}

	rec := f.post(t, "/api/v1/webhook/t1", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookReceive_SchemaRejectsPayload(t *testing.T) {
	f := newWebhookFixture(t)
	f.addWebhookTrigger("t1", map[string]interface{}{
		"type":     "object",
		"required": []string{"ref"},
	})

	rec := f.post(t, "/api/v1/webhook/t1", map[string]interface{}{"other": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.instances.Instances)
}

func TestTestFire_WorksForTimerTriggers(t *testing.T) {
	f := newWebhookFixture(t)
	f.triggers.Triggers["t1"] = &models.Trigger{
		ID:     "t1",
		Name:   "timer",
		Type:   models.TriggerTypeTimerCron,
		Status: models.TriggerStatusActive,
		Config: []byte(`{"cron":"0 9 * * *"}`),
	}

	rec := f.post(t, "/api/v1/triggers/t1/fire", map[string]interface{}{"test": true})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, f.instances.Instances, 1)
	for _, instance := range f.instances.Instances {
		assert.Equal(t, models.InstanceSourceManual, instance.Source)
	}
}

// Trigger lookup is served straight by the store fake.
var _ handlers.TriggerLookup = (*fakes.FakeTriggerStore)(nil)
