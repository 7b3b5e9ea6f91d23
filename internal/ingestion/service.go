package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/rules"
	"github.com/sabihatasneem/st2/pkg/clock"
	"github.com/sabihatasneem/st2/platform/events"
	"go.uber.org/zap"
)

// InstanceStore defines the storage methods required by the ingestion service.
type InstanceStore interface {
	CreateTriggerInstance(ctx context.Context, instance *models.TriggerInstance) error
	UpdateTriggerInstanceStatus(ctx context.Context, instanceID string, status models.InstanceStatus, errorMessage *string) error
	GetTriggerInstance(ctx context.Context, instanceID string) (*models.TriggerInstance, error)
	ListTriggerInstances(ctx context.Context, query models.ListInstancesQuery) ([]models.TriggerInstance, int64, error)
}

// ExecutionCreator requests executions for matched rules.
type ExecutionCreator interface {
	CreateFromRule(ctx context.Context, ruleID, instanceID, actionName string, params json.RawMessage) (*models.ExecutionResponse, error)
}

// RuleMatcher evaluates rules bound to a trigger against a payload.
type RuleMatcher interface {
	Match(ctx context.Context, trigger *models.Trigger, payload map[string]interface{}) ([]models.Rule, []error, error)
}

// FireResult summarizes what one trigger firing produced.
type FireResult struct {
	InstanceID   string   `json:"instance_id"`
	MatchedRules int      `json:"matched_rules"`
	ExecutionIDs []string `json:"execution_ids"`
}

// Service turns trigger firings into recorded instances and executions.
// Every firing, regardless of source, flows through Fire so webhook, timer
// and manual test paths behave identically.
type Service struct {
	store      InstanceStore
	matcher    RuleMatcher
	executions ExecutionCreator
	publisher  events.Publisher
	logger     logging.Logger
	clock      clock.Clock
}

// NewService creates an ingestion service.
func NewService(store InstanceStore, matcher RuleMatcher, creator ExecutionCreator, publisher events.Publisher, logger logging.Logger, clk clock.Clock) *Service {
	return &Service{
		store:      store,
		matcher:    matcher,
		executions: creator,
		publisher:  publisher,
		logger:     logger,
		clock:      clk,
	}
}

// Fire records a trigger instance, matches rules and requests executions.
// The instance is persisted before matching so a crash mid-pipeline leaves
// an auditable pending row rather than losing the event.
func (s *Service) Fire(ctx context.Context, trigger *models.Trigger, payload map[string]interface{}, source models.InstanceSource) (*FireResult, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	triggerID := trigger.ID
	instance := models.TriggerInstance{
		ID:              uuid.New().String(),
		TriggerID:       &triggerID,
		TriggerType:     trigger.Type,
		OccurredAt:      s.clock.Now().UTC(),
		Payload:         payloadJSON,
		Source:          source,
		Status:          models.InstanceStatusPending,
		RetentionStatus: models.RetentionStatusActive,
		CreatedAt:       s.clock.Now().UTC(),
	}

	if err := s.store.CreateTriggerInstance(ctx, &instance); err != nil {
		return nil, fmt.Errorf("record trigger instance: %w", err)
	}

	s.publishInstanceFired(ctx, &instance)

	matched, evalErrors, err := s.matcher.Match(ctx, trigger, payload)
	if err != nil {
		msg := err.Error()
		if updateErr := s.store.UpdateTriggerInstanceStatus(ctx, instance.ID, models.InstanceStatusFailed, &msg); updateErr != nil {
			s.logger.Error("mark instance failed", zap.Error(updateErr), zap.String("instance_id", instance.ID))
		}
		return nil, fmt.Errorf("match rules: %w", err)
	}

	result := FireResult{InstanceID: instance.ID, MatchedRules: len(matched)}
	creationErrors := make([]string, 0)

	for i := range matched {
		rule := matched[i]

		params, err := rules.RenderActionParams(rule.ActionParams, payload)
		if err != nil {
			creationErrors = append(creationErrors, fmt.Sprintf("rule %s: %v", rule.ID, err))
			continue
		}

		execution, err := s.executions.CreateFromRule(ctx, rule.ID, instance.ID, rule.ActionName, params)
		if err != nil {
			creationErrors = append(creationErrors, fmt.Sprintf("rule %s: %v", rule.ID, err))
			continue
		}

		result.ExecutionIDs = append(result.ExecutionIDs, execution.ID)
	}

	for _, evalErr := range evalErrors {
		s.logger.Warn("rule criteria evaluation failed",
			zap.String("instance_id", instance.ID),
			zap.String("error", evalErr.Error()),
		)
	}

	status := models.InstanceStatusProcessed
	var errorMessage *string
	if len(creationErrors) > 0 && len(result.ExecutionIDs) == 0 && len(matched) > 0 {
		status = models.InstanceStatusFailed
	}
	if len(creationErrors) > 0 {
		msg := strings.Join(creationErrors, "; ")
		errorMessage = &msg
	}

	if err := s.store.UpdateTriggerInstanceStatus(ctx, instance.ID, status, errorMessage); err != nil {
		s.logger.Error("update instance status", zap.Error(err), zap.String("instance_id", instance.ID))
	}

	s.logger.Info("trigger fired",
		zap.String("trigger_id", trigger.ID),
		zap.String("instance_id", instance.ID),
		zap.String("source", string(source)),
		zap.Int("matched_rules", len(matched)),
		zap.Int("executions", len(result.ExecutionIDs)),
	)

	return &result, nil
}

// GetInstance fetches a recorded trigger instance. Returns nil when absent.
func (s *Service) GetInstance(ctx context.Context, instanceID string) (*models.TriggerInstanceResponse, error) {
	instance, err := s.store.GetTriggerInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, nil
	}

	resp := buildInstanceResponse(instance)
	return &resp, nil
}

// ListInstances returns recorded trigger instances with pagination metadata.
func (s *Service) ListInstances(ctx context.Context, query models.ListInstancesQuery) (models.TriggerInstanceListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	instances, total, err := s.store.ListTriggerInstances(ctx, query)
	if err != nil {
		return models.TriggerInstanceListResponse{}, err
	}

	responses := make([]models.TriggerInstanceResponse, 0, len(instances))
	for i := range instances {
		responses = append(responses, buildInstanceResponse(&instances[i]))
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(query.Limit) - 1) / int64(query.Limit))
	}

	return models.TriggerInstanceListResponse{
		Instances: responses,
		Pagination: models.Pagination{
			CurrentPage:  query.Page,
			PageSize:     query.Limit,
			TotalPages:   totalPages,
			TotalRecords: total,
		},
	}, nil
}

func (s *Service) publishInstanceFired(ctx context.Context, instance *models.TriggerInstance) {
	if s.publisher == nil {
		return
	}

	data, err := json.Marshal(instance)
	if err != nil {
		s.logger.Error("marshal instance event", zap.Error(err), zap.String("instance_id", instance.ID))
		return
	}

	event := events.Event{
		Type:       events.EventTriggerInstanceFired,
		EntityID:   instance.ID,
		OccurredAt: instance.OccurredAt,
		Data:       data,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish instance event", zap.Error(err), zap.String("instance_id", instance.ID))
	}
}

func buildInstanceResponse(instance *models.TriggerInstance) models.TriggerInstanceResponse {
	return models.TriggerInstanceResponse{
		ID:              instance.ID,
		TriggerID:       instance.TriggerID,
		TriggerType:     instance.TriggerType,
		OccurredAt:      instance.OccurredAt,
		Payload:         instance.Payload,
		Source:          instance.Source,
		Status:          instance.Status,
		ErrorMessage:    instance.ErrorMessage,
		RetentionStatus: instance.RetentionStatus,
		CreatedAt:       instance.CreatedAt,
	}
}
