package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sabihatasneem/st2/internal/models"
)

// CreateTriggerInstance records a fired trigger instance.
func (c *MySQLClient) CreateTriggerInstance(ctx context.Context, instance *models.TriggerInstance) error {
	query := `
		INSERT INTO trigger_instances (
			id, trigger_id, trigger_type, occurred_at, payload, source,
			status, error_message, retention_status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var payload []byte
	if instance.Payload != nil {
		payload = instance.Payload
	}

	_, err := c.db.ExecContext(ctx, query,
		instance.ID,
		instance.TriggerID,
		instance.TriggerType,
		instance.OccurredAt,
		payload,
		instance.Source,
		instance.Status,
		instance.ErrorMessage,
		instance.RetentionStatus,
		instance.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("create trigger instance: %w", err)
	}

	return nil
}

// UpdateTriggerInstanceStatus moves an instance to processed or failed,
// recording the error when matching failed.
func (c *MySQLClient) UpdateTriggerInstanceStatus(ctx context.Context, instanceID string, status models.InstanceStatus, errorMessage *string) error {
	query := `
		UPDATE trigger_instances
		SET status = ?, error_message = ?
		WHERE id = ?
	`

	_, err := c.db.ExecContext(ctx, query, status, errorMessage, instanceID)
	if err != nil {
		return fmt.Errorf("update trigger instance status: %w", err)
	}

	return nil
}

// GetTriggerInstance retrieves a single trigger instance by ID.
// Returns nil when not found.
func (c *MySQLClient) GetTriggerInstance(ctx context.Context, instanceID string) (*models.TriggerInstance, error) {
	query := `
		SELECT id, trigger_id, trigger_type, occurred_at, payload, source,
		       status, error_message, retention_status, created_at
		FROM trigger_instances
		WHERE id = ?
	`

	instance, err := scanTriggerInstance(c.db.QueryRowContext(ctx, query, instanceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trigger instance: %w", err)
	}

	return instance, nil
}

// ListTriggerInstances retrieves trigger instances with filtering and
// pagination, newest first. Defaults to active retention rows.
func (c *MySQLClient) ListTriggerInstances(ctx context.Context, query models.ListInstancesQuery) ([]models.TriggerInstance, int64, error) {
	whereClauses := []string{"retention_status = ?"}
	retention := query.RetentionStatus
	if retention == "" {
		retention = string(models.RetentionStatusActive)
	}
	args := []interface{}{retention}

	if query.TriggerID != "" {
		whereClauses = append(whereClauses, "trigger_id = ?")
		args = append(args, query.TriggerID)
	}
	if query.Status != "" {
		whereClauses = append(whereClauses, "status = ?")
		args = append(args, query.Status)
	}
	if query.Source != "" {
		whereClauses = append(whereClauses, "source = ?")
		args = append(args, query.Source)
	}

	where := "WHERE " + strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM trigger_instances %s", where)
	var total int64
	if err := c.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count trigger instances: %w", err)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	listQuery := fmt.Sprintf(`
		SELECT id, trigger_id, trigger_type, occurred_at, payload, source,
		       status, error_message, retention_status, created_at
		FROM trigger_instances
		%s
		ORDER BY occurred_at DESC
		LIMIT ? OFFSET ?
	`, where)

	args = append(args, limit, offset)

	rows, err := c.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list trigger instances: %w", err)
	}
	defer rows.Close()

	instances := []models.TriggerInstance{}
	for rows.Next() {
		instance, err := scanTriggerInstance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan trigger instance: %w", err)
		}
		instances = append(instances, *instance)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate trigger instances: %w", err)
	}

	return instances, total, nil
}

// ArchiveTriggerInstances flips active instances older than the cutoff to
// archived. Returns the number of rows archived.
func (c *MySQLClient) ArchiveTriggerInstances(ctx context.Context, olderThanDays int) (int64, error) {
	query := `
		UPDATE trigger_instances
		SET retention_status = 'archived'
		WHERE retention_status = 'active'
		  AND occurred_at < DATE_SUB(NOW(), INTERVAL ? DAY)
	`

	res, err := c.db.ExecContext(ctx, query, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("archive trigger instances: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return rows, nil
}

func scanTriggerInstance(row rowScanner) (*models.TriggerInstance, error) {
	var instance models.TriggerInstance
	var triggerID sql.NullString
	var errorMessage sql.NullString
	var payload sql.NullString

	err := row.Scan(
		&instance.ID,
		&triggerID,
		&instance.TriggerType,
		&instance.OccurredAt,
		&payload,
		&instance.Source,
		&instance.Status,
		&errorMessage,
		&instance.RetentionStatus,
		&instance.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if triggerID.Valid {
		instance.TriggerID = &triggerID.String
	}
	if errorMessage.Valid {
		instance.ErrorMessage = &errorMessage.String
	}
	if payload.Valid {
		instance.Payload = jsonRawMessage(payload.String)
	}

	return &instance, nil
}
