package models

import (
	"encoding/json"
	"time"
)

// Rule binds a trigger to an action behind a declarative criteria expression.
// Criteria is a CEL expression evaluated against the variables `payload`
// (the trigger instance payload) and `trigger` (id, name, type).
type Rule struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	TriggerID    string          `json:"trigger_id"`
	Criteria     string          `json:"criteria"`
	ActionName   string          `json:"action_name"`
	ActionParams json.RawMessage `json:"action_params,omitempty"`
	Enabled      bool            `json:"enabled"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateRuleRequest represents the request to create a rule.
type CreateRuleRequest struct {
	Name         string          `json:"name" binding:"required" example:"notify-on-failure"`
	TriggerID    string          `json:"trigger_id" binding:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Criteria     string          `json:"criteria" binding:"required" example:"payload.severity >= 3"`
	ActionName   string          `json:"action_name" binding:"required" example:"slack.post"`
	ActionParams json.RawMessage `json:"action_params,omitempty" swaggertype:"object"`
} // @name CreateRuleRequest

// UpdateRuleRequest represents the request to update a rule.
type UpdateRuleRequest struct {
	Name         *string         `json:"name,omitempty" example:"notify-on-failure"`
	Criteria     *string         `json:"criteria,omitempty" example:"payload.severity >= 3"`
	ActionName   *string         `json:"action_name,omitempty" example:"slack.post"`
	ActionParams json.RawMessage `json:"action_params,omitempty" swaggertype:"object"`
	Enabled      *bool           `json:"enabled,omitempty" example:"true"`
} // @name UpdateRuleRequest

// RuleResponse represents the response for a single rule.
type RuleResponse struct {
	ID           string          `json:"id" example:"770e8400-e29b-41d4-a716-446655440000"`
	Name         string          `json:"name" example:"notify-on-failure"`
	TriggerID    string          `json:"trigger_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Criteria     string          `json:"criteria" example:"payload.severity >= 3"`
	ActionName   string          `json:"action_name" example:"slack.post"`
	ActionParams json.RawMessage `json:"action_params,omitempty" swaggertype:"object"`
	Enabled      bool            `json:"enabled" example:"true"`
	CreatedAt    time.Time       `json:"created_at" example:"2026-08-25T10:00:00Z"`
	UpdatedAt    time.Time       `json:"updated_at" example:"2026-08-25T10:00:00Z"`
} // @name RuleResponse

// ListRulesQuery represents query parameters for listing rules.
type ListRulesQuery struct {
	TriggerID string `form:"trigger_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Enabled   *bool  `form:"enabled" example:"true"`
	Page      int    `form:"page" binding:"omitempty,min=1" example:"1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100" example:"20"`
} // @name ListRulesQuery

// RuleListResponse represents the response for listing rules.
type RuleListResponse struct {
	Rules      []RuleResponse `json:"rules"`
	Pagination Pagination     `json:"pagination"`
} // @name RuleListResponse
