package triggers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/pkg/clock"
	"github.com/xeipuuv/gojsonschema"
)

// Service encapsulates trigger business logic.
type Service struct {
	store TriggerStore
	clock clock.Clock
}

// NewService creates a trigger service.
func NewService(store TriggerStore) *Service {
	return NewServiceWithClock(store, clock.RealClock{})
}

// NewServiceWithClock creates a trigger service with an explicit clock.
func NewServiceWithClock(store TriggerStore, clk clock.Clock) *Service {
	return &Service{store: store, clock: clk}
}

// CreateTrigger validates config, persists the trigger, and schedules the
// first occurrence for timer triggers.
func (s *Service) CreateTrigger(ctx context.Context, req models.CreateTriggerRequest) (*models.TriggerResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, NewValidationError("name is required")
	}

	trigger := models.Trigger{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Type:   req.Type,
		Status: models.TriggerStatusActive,
		Config: req.Config,
	}

	var schedule *models.TriggerSchedule
	var err error
	switch req.Type {
	case models.TriggerTypeWebhook:
		trigger.Config, err = normalizeWebhookConfig(req.Config)
	case models.TriggerTypeTimerOnce:
		trigger.Config, schedule, err = s.prepareOnceSchedule(trigger.ID, req.Config)
	case models.TriggerTypeTimerCron:
		trigger.Config, schedule, err = s.prepareCronSchedule(trigger.ID, req.Config)
	default:
		return nil, NewValidationError("unsupported trigger type: %s", req.Type)
	}
	if err != nil {
		return nil, err
	}

	if err = s.store.CreateTrigger(ctx, &trigger, schedule); err != nil {
		return nil, err
	}

	stored, next, err := s.store.GetTrigger(ctx, trigger.ID)
	if err != nil {
		return nil, err
	}

	resp := buildTriggerResponse(stored, next)
	return &resp, nil
}

// ListTriggers returns triggers along with pagination metadata.
func (s *Service) ListTriggers(ctx context.Context, query models.ListTriggersQuery) (models.TriggerListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	triggers, nextRuns, total, err := s.store.ListTriggers(ctx, query)
	if err != nil {
		return models.TriggerListResponse{}, err
	}

	responses := make([]models.TriggerResponse, 0, len(triggers))
	for i := range triggers {
		responses = append(responses, buildTriggerResponse(&triggers[i], nextRuns[i]))
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(query.Limit) - 1) / int64(query.Limit))
	}

	return models.TriggerListResponse{
		Triggers: responses,
		Pagination: models.Pagination{
			CurrentPage:  query.Page,
			PageSize:     query.Limit,
			TotalPages:   totalPages,
			TotalRecords: total,
		},
	}, nil
}

// GetTrigger fetches details for a trigger.
func (s *Service) GetTrigger(ctx context.Context, triggerID string) (*models.TriggerResponse, error) {
	trigger, next, err := s.store.GetTrigger(ctx, triggerID)
	if err != nil {
		if errors.Is(err, storage.ErrTriggerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get trigger: %w", err)
	}

	resp := buildTriggerResponse(trigger, next)
	return &resp, nil
}

// UpdateTrigger updates metadata/config for a trigger. Config changes
// replace pending schedules; status changes do not, because the dispatcher
// re-checks trigger status before firing.
func (s *Service) UpdateTrigger(ctx context.Context, triggerID string, req models.UpdateTriggerRequest) (*models.TriggerResponse, error) {
	current, _, err := s.store.GetTrigger(ctx, triggerID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	var schedule *models.TriggerSchedule

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, NewValidationError("name cannot be empty")
		}
		updates["name"] = name
	}

	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if len(req.Config) > 0 {
		var normalized json.RawMessage
		switch current.Type {
		case models.TriggerTypeWebhook:
			normalized, err = normalizeWebhookConfig(req.Config)
		case models.TriggerTypeTimerOnce:
			normalized, schedule, err = s.prepareOnceSchedule(current.ID, req.Config)
		case models.TriggerTypeTimerCron:
			normalized, schedule, err = s.prepareCronSchedule(current.ID, req.Config)
		default:
			err = NewValidationError("unsupported trigger type: %s", current.Type)
		}
		if err != nil {
			return nil, err
		}
		updates["config"] = string(normalized)
	}

	if len(updates) > 0 {
		if err := s.store.UpdateTrigger(ctx, triggerID, updates); err != nil {
			return nil, err
		}
	}

	if schedule != nil {
		if err := s.store.UpsertTriggerSchedule(ctx, current.ID, schedule); err != nil {
			return nil, err
		}
	}

	refreshed, refreshedNext, err := s.store.GetTrigger(ctx, triggerID)
	if err != nil {
		return nil, err
	}

	resp := buildTriggerResponse(refreshed, refreshedNext)
	return &resp, nil
}

// DeleteTrigger removes the trigger and its schedules. Recorded trigger
// instances stay and follow their retention lifecycle.
func (s *Service) DeleteTrigger(ctx context.Context, triggerID string) error {
	return s.store.DeleteTrigger(ctx, triggerID)
}

// ValidatePayload checks an inbound webhook payload against the trigger's
// configured JSON schema. A trigger without a schema accepts anything.
func ValidatePayload(config json.RawMessage, payload map[string]interface{}) error {
	var webhookConfig models.WebhookTriggerConfig
	if err := json.Unmarshal(config, &webhookConfig); err != nil {
		return fmt.Errorf("parse webhook config: %w", err)
	}

	if len(webhookConfig.Schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(webhookConfig.Schema),
		gojsonschema.NewGoLoader(payload),
	)
	if err != nil {
		return fmt.Errorf("validate payload schema: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return NewValidationError("payload schema validation failed: %s", strings.Join(msgs, "; "))
	}

	return nil
}

func (s *Service) prepareOnceSchedule(triggerID string, config json.RawMessage) (json.RawMessage, *models.TriggerSchedule, error) {
	var payload struct {
		RunAt    string                 `json:"run_at"`
		Timezone string                 `json:"timezone,omitempty"`
		Payload  map[string]interface{} `json:"payload,omitempty"`
	}
	if err := json.Unmarshal(config, &payload); err != nil {
		return nil, nil, fmt.Errorf("invalid timer_once config: %w", err)
	}

	if payload.RunAt == "" {
		return nil, nil, NewValidationError("run_at is required for timer_once triggers")
	}

	loc, err := resolveLocation(payload.Timezone)
	if err != nil {
		return nil, nil, err
	}

	runAt, err := time.ParseInLocation(time.RFC3339, payload.RunAt, loc)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid run_at: %w", err)
	}

	// Allow a small grace window for clock skew on callers.
	if runAt.Before(s.clock.Now().Add(-1 * time.Minute)) {
		return nil, nil, NewValidationError("run_at must be in the future")
	}

	payload.Timezone = loc.String()
	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal timer_once config: %w", err)
	}

	return normalized, &models.TriggerSchedule{
		ID:        uuid.New().String(),
		TriggerID: triggerID,
		FireAt:    runAt.UTC(),
		Status:    models.ScheduleStatusPending,
	}, nil
}

func (s *Service) prepareCronSchedule(triggerID string, config json.RawMessage) (json.RawMessage, *models.TriggerSchedule, error) {
	var payload struct {
		Cron     string                 `json:"cron"`
		Timezone string                 `json:"timezone,omitempty"`
		Payload  map[string]interface{} `json:"payload,omitempty"`
	}
	if err := json.Unmarshal(config, &payload); err != nil {
		return nil, nil, fmt.Errorf("invalid timer_cron config: %w", err)
	}

	if payload.Cron == "" {
		return nil, nil, NewValidationError("cron expression is required")
	}

	loc, err := resolveLocation(payload.Timezone)
	if err != nil {
		return nil, nil, err
	}
	payload.Timezone = loc.String()

	nextRun, err := CalculateNextFireTime(payload.Cron, payload.Timezone, s.clock.Now())
	if err != nil {
		return nil, nil, NewValidationError("%v", err)
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal timer_cron config: %w", err)
	}

	return normalized, &models.TriggerSchedule{
		ID:        uuid.New().String(),
		TriggerID: triggerID,
		FireAt:    nextRun,
		Status:    models.ScheduleStatusPending,
	}, nil
}

func normalizeWebhookConfig(config json.RawMessage) (json.RawMessage, error) {
	var payload models.WebhookTriggerConfig
	if err := json.Unmarshal(config, &payload); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}

	if len(payload.Schema) > 0 {
		// Reject schemas that gojsonschema cannot load instead of failing
		// every inbound payload later.
		if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(payload.Schema)); err != nil {
			return nil, NewValidationError("invalid payload schema: %v", err)
		}
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook config: %w", err)
	}

	return normalized, nil
}

func buildTriggerResponse(trigger *models.Trigger, next *time.Time) models.TriggerResponse {
	return models.TriggerResponse{
		ID:         trigger.ID,
		Name:       trigger.Name,
		Type:       trigger.Type,
		Status:     trigger.Status,
		Config:     trigger.Config,
		NextFireAt: next,
		CreatedAt:  trigger.CreatedAt,
		UpdatedAt:  trigger.UpdatedAt,
	}
}
