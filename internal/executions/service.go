package executions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sabihatasneem/st2/internal/actions"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/internal/triggers"
	"github.com/sabihatasneem/st2/platform/events"
	"go.uber.org/zap"
)

// Service encapsulates execution lifecycle logic up to the point where the
// dispatcher worker takes over.
type Service struct {
	store     ExecutionStore
	publisher events.Publisher
	logger    logging.Logger
}

// NewService creates an execution service.
func NewService(store ExecutionStore, publisher events.Publisher, logger logging.Logger) *Service {
	return &Service{store: store, publisher: publisher, logger: logger}
}

// CreateManual requests an execution directly, outside any rule. The action
// must be registered and enabled and the params must satisfy its schema.
func (s *Service) CreateManual(ctx context.Context, req models.CreateExecutionRequest) (*models.ExecutionResponse, error) {
	action, err := s.loadEnabledAction(ctx, req.ActionName)
	if err != nil {
		return nil, err
	}

	if err := actions.ValidateParams(action, req.Params); err != nil {
		return nil, err
	}

	return s.create(ctx, nil, nil, action.Name, req.Params)
}

// CreateFromRule requests an execution on behalf of a matched rule. Rendered
// params go through the same schema check as manual requests; a rule whose
// substitution produced an invalid document fails here instead of at the
// action endpoint.
func (s *Service) CreateFromRule(ctx context.Context, ruleID, instanceID, actionName string, params json.RawMessage) (*models.ExecutionResponse, error) {
	action, err := s.loadEnabledAction(ctx, actionName)
	if err != nil {
		return nil, err
	}

	if err := actions.ValidateParams(action, params); err != nil {
		return nil, err
	}

	return s.create(ctx, &ruleID, &instanceID, action.Name, params)
}

func (s *Service) loadEnabledAction(ctx context.Context, actionName string) (*models.Action, error) {
	action, err := s.store.GetAction(ctx, actionName)
	if err != nil {
		if errors.Is(err, storage.ErrActionNotFound) {
			return nil, triggers.NewValidationError("action %s is not registered", actionName)
		}
		return nil, fmt.Errorf("get action: %w", err)
	}

	if !action.Enabled {
		return nil, triggers.NewValidationError("action %s is disabled", action.Name)
	}

	return action, nil
}

func (s *Service) create(ctx context.Context, ruleID, instanceID *string, actionName string, params json.RawMessage) (*models.ExecutionResponse, error) {
	execution := models.Execution{
		ID:                uuid.New().String(),
		RuleID:            ruleID,
		TriggerInstanceID: instanceID,
		ActionName:        actionName,
		Params:            params,
		Status:            models.ExecutionStatusRequested,
	}

	if err := s.store.CreateExecution(ctx, &execution); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}

	// Admission is immediate; the requested state exists so a cancel can
	// land before scheduling.
	if err := s.store.TransitionExecution(ctx, execution.ID, models.ExecutionStatusRequested, models.ExecutionStatusScheduled); err != nil {
		if !errors.Is(err, storage.ErrExecutionNotClaimable) {
			return nil, fmt.Errorf("schedule execution: %w", err)
		}
	}

	stored, err := s.store.GetExecution(ctx, execution.ID)
	if err != nil {
		return nil, err
	}

	s.publishStateChange(ctx, stored)

	resp := buildExecutionResponse(stored)
	return &resp, nil
}

// GetExecution fetches an execution by ID.
func (s *Service) GetExecution(ctx context.Context, executionID string) (*models.ExecutionResponse, error) {
	execution, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	resp := buildExecutionResponse(execution)
	return &resp, nil
}

// ListExecutions returns executions with pagination metadata.
func (s *Service) ListExecutions(ctx context.Context, query models.ListExecutionsQuery) (models.ExecutionListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	list, total, err := s.store.ListExecutions(ctx, query)
	if err != nil {
		return models.ExecutionListResponse{}, err
	}

	responses := make([]models.ExecutionResponse, 0, len(list))
	for i := range list {
		responses = append(responses, buildExecutionResponse(&list[i]))
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(query.Limit) - 1) / int64(query.Limit))
	}

	return models.ExecutionListResponse{
		Executions: responses,
		Pagination: models.Pagination{
			CurrentPage:  query.Page,
			PageSize:     query.Limit,
			TotalPages:   totalPages,
			TotalRecords: total,
		},
	}, nil
}

// Cancel moves a pre-run execution straight to canceled, or flags a running
// one so the worker finalizes it between attempts. Terminal executions
// cannot be canceled.
func (s *Service) Cancel(ctx context.Context, executionID string) (*models.ExecutionResponse, error) {
	execution, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	switch execution.Status {
	case models.ExecutionStatusRequested, models.ExecutionStatusScheduled:
		err = s.store.TransitionExecution(ctx, executionID, execution.Status, models.ExecutionStatusCanceled)
		if errors.Is(err, storage.ErrExecutionNotClaimable) {
			// The worker won the race; fall through to flag it instead.
			err = s.store.RequestExecutionCancel(ctx, executionID)
		}
	case models.ExecutionStatusRunning:
		err = s.store.RequestExecutionCancel(ctx, executionID)
	default:
		return nil, NewConflictError("execution %s already finished with status %s", executionID, execution.Status)
	}

	if err != nil && !errors.Is(err, storage.ErrExecutionNotClaimable) {
		return nil, fmt.Errorf("cancel execution: %w", err)
	}

	refreshed, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	s.publishStateChange(ctx, refreshed)

	resp := buildExecutionResponse(refreshed)
	return &resp, nil
}

// Rerun creates a fresh execution of the same action with the same params.
// Only terminal executions can be rerun; the original is left untouched.
func (s *Service) Rerun(ctx context.Context, executionID string) (*models.ExecutionResponse, error) {
	original, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	switch original.Status {
	case models.ExecutionStatusSucceeded, models.ExecutionStatusFailed,
		models.ExecutionStatusTimeout, models.ExecutionStatusCanceled:
	default:
		return nil, NewConflictError("execution %s has not finished yet", executionID)
	}

	return s.create(ctx, original.RuleID, original.TriggerInstanceID, original.ActionName, original.Params)
}

func (s *Service) publishStateChange(ctx context.Context, execution *models.Execution) {
	if s.publisher == nil {
		return
	}

	data, err := json.Marshal(execution)
	if err != nil {
		s.logger.Error("marshal execution event", zap.Error(err), zap.String("execution_id", execution.ID))
		return
	}

	event := events.Event{
		Type:     events.EventExecutionStateChanged,
		EntityID: execution.ID,
		Data:     data,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The feed is best effort relative to the store of record.
		s.logger.Warn("publish execution event", zap.Error(err), zap.String("execution_id", execution.ID))
	}
}

func buildExecutionResponse(e *models.Execution) models.ExecutionResponse {
	return models.ExecutionResponse{
		ID:                e.ID,
		RuleID:            e.RuleID,
		TriggerInstanceID: e.TriggerInstanceID,
		ActionName:        e.ActionName,
		Params:            e.Params,
		Status:            e.Status,
		Result:            e.Result,
		ErrorMessage:      e.ErrorMessage,
		AttemptCount:      e.AttemptCount,
		StartedAt:         e.StartedAt,
		EndedAt:           e.EndedAt,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}
