package models

import (
	"encoding/json"
	"time"
)

// RunnerType identifies the runner implementation an action uses.
type RunnerType string

const (
	RunnerTypeHTTP RunnerType = "http"
	RunnerTypeNoop RunnerType = "noop"
)

// Action is a registered, invocable unit of work.
// ParamsSchema, when present, is a JSON schema that execution parameters
// must satisfy before an execution is accepted.
type Action struct {
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	RunnerType     RunnerType        `json:"runner_type"`
	ParamsSchema   json.RawMessage   `json:"params_schema,omitempty"`
	Endpoint       string            `json:"endpoint,omitempty"`
	HTTPMethod     string            `json:"http_method,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	Enabled        bool              `json:"enabled"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// CreateActionRequest represents the request to register an action.
type CreateActionRequest struct {
	Name           string            `json:"name" binding:"required" example:"slack.post"`
	Description    string            `json:"description,omitempty" example:"Post a message to Slack"`
	RunnerType     RunnerType        `json:"runner_type" binding:"required,oneof=http noop" example:"http"`
	ParamsSchema   json.RawMessage   `json:"params_schema,omitempty" swaggertype:"object"`
	Endpoint       string            `json:"endpoint,omitempty" example:"https://hooks.slack.com/services/xyz"`
	HTTPMethod     string            `json:"http_method,omitempty" example:"POST"`
	Headers        map[string]string `json:"headers,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty" binding:"omitempty,min=1,max=3600" example:"60"`
} // @name CreateActionRequest

// UpdateActionRequest represents the request to update an action.
type UpdateActionRequest struct {
	Description    *string           `json:"description,omitempty"`
	ParamsSchema   json.RawMessage   `json:"params_schema,omitempty" swaggertype:"object"`
	Endpoint       *string           `json:"endpoint,omitempty"`
	HTTPMethod     *string           `json:"http_method,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	TimeoutSeconds *int              `json:"timeout_seconds,omitempty" binding:"omitempty,min=1,max=3600"`
	Enabled        *bool             `json:"enabled,omitempty"`
} // @name UpdateActionRequest

// ListActionsQuery represents query parameters for listing actions.
type ListActionsQuery struct {
	RunnerType string `form:"runner_type" binding:"omitempty,oneof=http noop" example:"http"`
	Page       int    `form:"page" binding:"omitempty,min=1" example:"1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100" example:"20"`
} // @name ListActionsQuery

// ActionListResponse represents the response for listing actions.
type ActionListResponse struct {
	Actions    []Action   `json:"actions"`
	Pagination Pagination `json:"pagination"`
} // @name ActionListResponse
