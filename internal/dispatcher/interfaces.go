package dispatcher

import (
	"context"

	"github.com/sabihatasneem/st2/internal/ingestion"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
)

// ScheduleStore defines the storage methods the timer engine needs.
type ScheduleStore interface {
	GetDueSchedules(ctx context.Context, limit int) ([]storage.ScheduleWithTrigger, error)
	UpdateScheduleStatus(ctx context.Context, scheduleID string, status models.ScheduleStatus) error
	RevertScheduleToPending(ctx context.Context, scheduleID string) error
	CreateNextSchedule(ctx context.Context, schedule *models.TriggerSchedule) error
	DeactivateTrigger(ctx context.Context, triggerID string) error
	ArchiveTriggerInstances(ctx context.Context, olderThanDays int) (int64, error)
}

// WorkStore defines the storage methods the execution worker needs.
type WorkStore interface {
	GetScheduledExecutions(ctx context.Context, limit int) ([]models.Execution, error)
	TransitionExecution(ctx context.Context, executionID string, from, to models.ExecutionStatus) error
	FinishExecution(ctx context.Context, executionID string, status models.ExecutionStatus, result []byte, errorMessage *string, attemptCount int) error
	IsCancelRequested(ctx context.Context, executionID string) (bool, error)
	GetAction(ctx context.Context, name string) (*models.Action, error)
}

// TriggerFirer turns a due timer occurrence into a trigger instance.
type TriggerFirer interface {
	Fire(ctx context.Context, trigger *models.Trigger, payload map[string]interface{}, source models.InstanceSource) (*ingestion.FireResult, error)
}
