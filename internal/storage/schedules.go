package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sabihatasneem/st2/internal/models"
)

// ScheduleWithTrigger combines a timer schedule with its parent trigger
// context, so the dispatcher has everything it needs to fire.
type ScheduleWithTrigger struct {
	Schedule models.TriggerSchedule
	Trigger  models.Trigger
}

// GetDueSchedules retrieves pending schedules that are due to fire, along
// with their trigger context. Oldest first.
func (c *MySQLClient) GetDueSchedules(ctx context.Context, limit int) ([]ScheduleWithTrigger, error) {
	query := `
		SELECT
			ts.id, ts.trigger_id, ts.fire_at, ts.status, ts.attempt_count, ts.last_attempt_at, ts.created_at, ts.updated_at,
			t.id, t.name, t.type, t.status, t.config, t.created_at, t.updated_at
		FROM trigger_schedules ts
		INNER JOIN triggers t ON ts.trigger_id = t.id
		WHERE ts.fire_at <= NOW()
		  AND ts.status = 'pending'
		  AND t.status = 'active'
		ORDER BY ts.fire_at ASC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []ScheduleWithTrigger
	for rows.Next() {
		var s ScheduleWithTrigger
		var lastAttemptAt sql.NullTime

		err := rows.Scan(
			&s.Schedule.ID,
			&s.Schedule.TriggerID,
			&s.Schedule.FireAt,
			&s.Schedule.Status,
			&s.Schedule.AttemptCount,
			&lastAttemptAt,
			&s.Schedule.CreatedAt,
			&s.Schedule.UpdatedAt,
			&s.Trigger.ID,
			&s.Trigger.Name,
			&s.Trigger.Type,
			&s.Trigger.Status,
			&s.Trigger.Config,
			&s.Trigger.CreatedAt,
			&s.Trigger.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan schedule with trigger: %w", err)
		}

		if lastAttemptAt.Valid {
			s.Schedule.LastAttemptAt = &lastAttemptAt.Time
		}

		schedules = append(schedules, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due schedules: %w", err)
	}

	return schedules, nil
}

// UpdateScheduleStatus moves a schedule row through its processing states
// (pending → processing, processing → completed).
func (c *MySQLClient) UpdateScheduleStatus(ctx context.Context, scheduleID string, status models.ScheduleStatus) error {
	query := `
		UPDATE trigger_schedules
		SET status = ?,
		    updated_at = NOW()
		WHERE id = ?
	`

	result, err := c.db.ExecContext(ctx, query, status, scheduleID)
	if err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("schedule not found: %s", scheduleID)
	}

	return nil
}

// RevertScheduleToPending reverts a schedule from 'processing' to 'pending'
// for retry, incrementing attempt_count and stamping last_attempt_at.
func (c *MySQLClient) RevertScheduleToPending(ctx context.Context, scheduleID string) error {
	query := `
		UPDATE trigger_schedules
		SET status = 'pending',
		    attempt_count = attempt_count + 1,
		    last_attempt_at = NOW(),
		    updated_at = NOW()
		WHERE id = ?
	`

	result, err := c.db.ExecContext(ctx, query, scheduleID)
	if err != nil {
		return fmt.Errorf("revert schedule to pending: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("schedule not found: %s", scheduleID)
	}

	return nil
}

// CreateNextSchedule inserts the next occurrence row for a cron trigger
// after a successful firing.
func (c *MySQLClient) CreateNextSchedule(ctx context.Context, schedule *models.TriggerSchedule) error {
	query := `
		INSERT INTO trigger_schedules (id, trigger_id, fire_at, status, attempt_count)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.TriggerID,
		schedule.FireAt,
		schedule.Status,
		schedule.AttemptCount,
	)

	if err != nil {
		return fmt.Errorf("create next schedule: %w", err)
	}

	return nil
}

// DeactivateTrigger marks a trigger as inactive. Used for one-shot timer
// triggers after they fire.
func (c *MySQLClient) DeactivateTrigger(ctx context.Context, triggerID string) error {
	query := `
		UPDATE triggers
		SET status = 'inactive', updated_at = NOW()
		WHERE id = ?
	`

	result, err := c.db.ExecContext(ctx, query, triggerID)
	if err != nil {
		return fmt.Errorf("deactivate trigger: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("trigger not found: %s", triggerID)
	}

	return nil
}
