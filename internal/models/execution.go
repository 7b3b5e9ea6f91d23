package models

import (
	"encoding/json"
	"time"
)

// ExecutionStatus is a state in the execution lifecycle. Transitions only
// move forward: requested → scheduled → running → terminal. canceled is
// reachable from any non-terminal state.
type ExecutionStatus string

const (
	ExecutionStatusRequested ExecutionStatus = "requested"
	ExecutionStatusScheduled ExecutionStatus = "scheduled"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusSucceeded ExecutionStatus = "succeeded"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusTimeout   ExecutionStatus = "timeout"
	ExecutionStatusCanceled  ExecutionStatus = "canceled"
)

// Execution records one invocation of an action, from request to terminal state.
type Execution struct {
	ID                string          `json:"id"`
	RuleID            *string         `json:"rule_id,omitempty"`             // NULL for manual runs
	TriggerInstanceID *string         `json:"trigger_instance_id,omitempty"` // NULL for manual runs
	ActionName        string          `json:"action_name"`
	Params            json.RawMessage `json:"params,omitempty"`
	Status            ExecutionStatus `json:"status"`
	Result            json.RawMessage `json:"result,omitempty"`
	ErrorMessage      *string         `json:"error_message,omitempty"`
	AttemptCount      int             `json:"attempt_count"`
	CancelRequested   bool            `json:"cancel_requested"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	EndedAt           *time.Time      `json:"ended_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CreateExecutionRequest represents a manual execution request.
type CreateExecutionRequest struct {
	ActionName string          `json:"action_name" binding:"required" example:"slack.post"`
	Params     json.RawMessage `json:"params,omitempty" swaggertype:"object"`
} // @name CreateExecutionRequest

// ExecutionResponse represents the response for a single execution.
type ExecutionResponse struct {
	ID                string          `json:"id" example:"880e8400-e29b-41d4-a716-446655440000"`
	RuleID            *string         `json:"rule_id,omitempty"`
	TriggerInstanceID *string         `json:"trigger_instance_id,omitempty"`
	ActionName        string          `json:"action_name" example:"slack.post"`
	Params            json.RawMessage `json:"params,omitempty" swaggertype:"object"`
	Status            ExecutionStatus `json:"status" example:"succeeded"`
	Result            json.RawMessage `json:"result,omitempty" swaggertype:"object"`
	ErrorMessage      *string         `json:"error_message,omitempty"`
	AttemptCount      int             `json:"attempt_count" example:"1"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	EndedAt           *time.Time      `json:"ended_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at" example:"2026-08-25T10:30:00Z"`
	UpdatedAt         time.Time       `json:"updated_at" example:"2026-08-25T10:30:05Z"`
} // @name ExecutionResponse

// ListExecutionsQuery represents query parameters for listing executions.
type ListExecutionsQuery struct {
	Status            string `form:"status" binding:"omitempty,oneof=requested scheduled running succeeded failed timeout canceled" example:"succeeded"`
	RuleID            string `form:"rule_id"`
	TriggerInstanceID string `form:"trigger_instance_id"`
	ActionName        string `form:"action_name" example:"slack.post"`
	Page              int    `form:"page" binding:"omitempty,min=1" example:"1"`
	Limit             int    `form:"limit" binding:"omitempty,min=1,max=100" example:"20"`
} // @name ListExecutionsQuery

// ExecutionListResponse represents the response for listing executions.
type ExecutionListResponse struct {
	Executions []ExecutionResponse `json:"executions"`
	Pagination Pagination          `json:"pagination"`
} // @name ExecutionListResponse
