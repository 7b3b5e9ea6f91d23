package models

import (
	"encoding/json"
	"time"
)

// InstanceSource represents where a trigger instance originated.
type InstanceSource string

const (
	InstanceSourceWebhook InstanceSource = "webhook"
	InstanceSourceTimer   InstanceSource = "timer"
	InstanceSourceManual  InstanceSource = "manual"
)

// InstanceStatus represents the processing status of a trigger instance.
type InstanceStatus string

const (
	InstanceStatusPending   InstanceStatus = "pending"
	InstanceStatusProcessed InstanceStatus = "processed"
	InstanceStatusFailed    InstanceStatus = "failed"
)

// RetentionStatus represents the retention lifecycle of recorded instances.
type RetentionStatus string

const (
	RetentionStatusActive   RetentionStatus = "active"
	RetentionStatusArchived RetentionStatus = "archived"
)

// TriggerInstance is the normalized fact produced when a trigger fires.
// Rules are matched against its payload; executions reference it.
type TriggerInstance struct {
	ID              string          `json:"id"`
	TriggerID       *string         `json:"trigger_id,omitempty"` // NULL for ad-hoc test fires
	TriggerType     TriggerType     `json:"trigger_type"`
	OccurredAt      time.Time       `json:"occurred_at"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Source          InstanceSource  `json:"source"`
	Status          InstanceStatus  `json:"status"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	RetentionStatus RetentionStatus `json:"retention_status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TriggerInstanceResponse represents the response for a single instance.
type TriggerInstanceResponse struct {
	ID              string          `json:"id" example:"660e8400-e29b-41d4-a716-446655440000"`
	TriggerID       *string         `json:"trigger_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	TriggerType     TriggerType     `json:"trigger_type" example:"webhook"`
	OccurredAt      time.Time       `json:"occurred_at" example:"2026-08-25T10:30:00Z"`
	Payload         json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
	Source          InstanceSource  `json:"source" example:"webhook"`
	Status          InstanceStatus  `json:"status" example:"processed"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	RetentionStatus RetentionStatus `json:"retention_status" example:"active"`
	CreatedAt       time.Time       `json:"created_at" example:"2026-08-25T10:30:00Z"`
} // @name TriggerInstanceResponse

// ListInstancesQuery represents query parameters for listing trigger instances.
type ListInstancesQuery struct {
	TriggerID       string `form:"trigger_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status          string `form:"status" binding:"omitempty,oneof=pending processed failed" example:"processed"`
	Source          string `form:"source" binding:"omitempty,oneof=webhook timer manual" example:"webhook"`
	RetentionStatus string `form:"retention_status" binding:"omitempty,oneof=active archived" example:"active"`
	Page            int    `form:"page" binding:"omitempty,min=1" example:"1"`
	Limit           int    `form:"limit" binding:"omitempty,min=1,max=100" example:"20"`
} // @name ListInstancesQuery

// TriggerInstanceListResponse represents the response for listing instances.
type TriggerInstanceListResponse struct {
	Instances  []TriggerInstanceResponse `json:"instances"`
	Pagination Pagination                `json:"pagination"`
} // @name TriggerInstanceListResponse
