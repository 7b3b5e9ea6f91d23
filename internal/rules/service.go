package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/internal/triggers"
)

// Service encapsulates rule business logic.
type Service struct {
	store  RuleStore
	engine *Engine
}

// NewService creates a rule service.
func NewService(store RuleStore, engine *Engine) *Service {
	return &Service{store: store, engine: engine}
}

// CreateRule validates and persists a rule. The criteria expression must
// compile, the trigger must exist, and the action must be registered.
func (s *Service) CreateRule(ctx context.Context, req models.CreateRuleRequest) (*models.RuleResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, triggers.NewValidationError("name is required")
	}

	if err := s.engine.Validate(req.Criteria); err != nil {
		return nil, triggers.NewValidationError("invalid criteria: %v", err)
	}

	if _, _, err := s.store.GetTrigger(ctx, req.TriggerID); err != nil {
		if errors.Is(err, storage.ErrTriggerNotFound) {
			return nil, triggers.NewValidationError("trigger %s does not exist", req.TriggerID)
		}
		return nil, fmt.Errorf("check trigger: %w", err)
	}

	if _, err := s.store.GetAction(ctx, req.ActionName); err != nil {
		if errors.Is(err, storage.ErrActionNotFound) {
			return nil, triggers.NewValidationError("action %s is not registered", req.ActionName)
		}
		return nil, fmt.Errorf("check action: %w", err)
	}

	rule := models.Rule{
		ID:           uuid.New().String(),
		Name:         req.Name,
		TriggerID:    req.TriggerID,
		Criteria:     req.Criteria,
		ActionName:   req.ActionName,
		ActionParams: req.ActionParams,
		Enabled:      true,
	}

	if err := s.store.CreateRule(ctx, &rule); err != nil {
		return nil, err
	}

	// Warm the cache so the first matching instance does not pay compile cost.
	_ = s.engine.Compile(rule.ID, rule.Criteria)

	stored, err := s.store.GetRule(ctx, rule.ID)
	if err != nil {
		return nil, err
	}

	resp := buildRuleResponse(stored)
	return &resp, nil
}

// GetRule fetches a rule by ID.
func (s *Service) GetRule(ctx context.Context, ruleID string) (*models.RuleResponse, error) {
	rule, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	resp := buildRuleResponse(rule)
	return &resp, nil
}

// ListRules returns rules with pagination metadata.
func (s *Service) ListRules(ctx context.Context, query models.ListRulesQuery) (models.RuleListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	rules, total, err := s.store.ListRules(ctx, query)
	if err != nil {
		return models.RuleListResponse{}, err
	}

	responses := make([]models.RuleResponse, 0, len(rules))
	for i := range rules {
		responses = append(responses, buildRuleResponse(&rules[i]))
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(query.Limit) - 1) / int64(query.Limit))
	}

	return models.RuleListResponse{
		Rules: responses,
		Pagination: models.Pagination{
			CurrentPage:  query.Page,
			PageSize:     query.Limit,
			TotalPages:   totalPages,
			TotalRecords: total,
		},
	}, nil
}

// UpdateRule updates the mutable fields of a rule. A new criteria expression
// must compile before it replaces the old one.
func (s *Service) UpdateRule(ctx context.Context, ruleID string, req models.UpdateRuleRequest) (*models.RuleResponse, error) {
	if _, err := s.store.GetRule(ctx, ruleID); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, triggers.NewValidationError("name cannot be empty")
		}
		updates["name"] = name
	}

	if req.Criteria != nil {
		if err := s.engine.Validate(*req.Criteria); err != nil {
			return nil, triggers.NewValidationError("invalid criteria: %v", err)
		}
		updates["criteria"] = *req.Criteria
	}

	if req.ActionName != nil {
		if _, err := s.store.GetAction(ctx, *req.ActionName); err != nil {
			if errors.Is(err, storage.ErrActionNotFound) {
				return nil, triggers.NewValidationError("action %s is not registered", *req.ActionName)
			}
			return nil, fmt.Errorf("check action: %w", err)
		}
		updates["action_name"] = *req.ActionName
	}

	if len(req.ActionParams) > 0 {
		updates["action_params"] = string(req.ActionParams)
	}

	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}

	if len(updates) > 0 {
		if err := s.store.UpdateRule(ctx, ruleID, updates); err != nil {
			return nil, err
		}
		s.engine.Invalidate(ruleID)
	}

	refreshed, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	resp := buildRuleResponse(refreshed)
	return &resp, nil
}

// DeleteRule removes a rule. Executions created by the rule are kept.
func (s *Service) DeleteRule(ctx context.Context, ruleID string) error {
	if err := s.store.DeleteRule(ctx, ruleID); err != nil {
		return err
	}
	s.engine.Invalidate(ruleID)
	return nil
}

// Match evaluates all enabled rules bound to a trigger against an instance's
// payload and returns the rules whose criteria hold. A rule whose criteria
// errors at evaluation time is skipped, not treated as a match.
func (s *Service) Match(ctx context.Context, trigger *models.Trigger, payload map[string]interface{}) ([]models.Rule, []error, error) {
	candidates, err := s.store.ListEnabledRulesForTrigger(ctx, trigger.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list rules for trigger: %w", err)
	}

	facts := map[string]interface{}{
		"payload": payload,
		"trigger": map[string]interface{}{
			"id":   trigger.ID,
			"name": trigger.Name,
			"type": string(trigger.Type),
		},
	}

	matched := make([]models.Rule, 0, len(candidates))
	evalErrors := make([]error, 0)
	for i := range candidates {
		rule := candidates[i]
		ok, err := s.engine.Evaluate(rule.ID, rule.Criteria, facts)
		if err != nil {
			evalErrors = append(evalErrors, fmt.Errorf("rule %s: %w", rule.ID, err))
			continue
		}
		if ok {
			matched = append(matched, rule)
		}
	}

	return matched, evalErrors, nil
}

func buildRuleResponse(rule *models.Rule) models.RuleResponse {
	return models.RuleResponse{
		ID:           rule.ID,
		Name:         rule.Name,
		TriggerID:    rule.TriggerID,
		Criteria:     rule.Criteria,
		ActionName:   rule.ActionName,
		ActionParams: rule.ActionParams,
		Enabled:      rule.Enabled,
		CreatedAt:    rule.CreatedAt,
		UpdatedAt:    rule.UpdatedAt,
	}
}
