package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sabihatasneem/st2/internal/models"
)

// ErrExecutionNotFound is returned when an execution is not found.
var ErrExecutionNotFound = errors.New("execution not found")

// ErrExecutionNotClaimable is returned when a conditional status update
// matched no row, meaning another worker claimed it or the state moved on.
var ErrExecutionNotClaimable = errors.New("execution not claimable")

// CreateExecution inserts an execution row.
func (c *MySQLClient) CreateExecution(ctx context.Context, execution *models.Execution) error {
	var params interface{}
	if len(execution.Params) > 0 {
		params = string(execution.Params)
	}

	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO executions (id, rule_id, trigger_instance_id, action_name, params, status, attempt_count, cancel_requested)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		execution.ID,
		execution.RuleID,
		execution.TriggerInstanceID,
		execution.ActionName,
		params,
		execution.Status,
		execution.AttemptCount,
		execution.CancelRequested,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	return nil
}

// GetExecution fetches an execution by ID.
func (c *MySQLClient) GetExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT id, rule_id, trigger_instance_id, action_name, params, status, result,
		        error_message, attempt_count, cancel_requested, started_at, ended_at, created_at, updated_at
		 FROM executions WHERE id = ?`,
		executionID,
	)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	return execution, nil
}

// ListExecutions retrieves executions with filtering and pagination, newest first.
func (c *MySQLClient) ListExecutions(ctx context.Context, query models.ListExecutionsQuery) ([]models.Execution, int64, error) {
	criteria := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if query.Status != "" {
		criteria = append(criteria, "status = ?")
		args = append(args, query.Status)
	}
	if query.RuleID != "" {
		criteria = append(criteria, "rule_id = ?")
		args = append(args, query.RuleID)
	}
	if query.TriggerInstanceID != "" {
		criteria = append(criteria, "trigger_instance_id = ?")
		args = append(args, query.TriggerInstanceID)
	}
	if query.ActionName != "" {
		criteria = append(criteria, "action_name = ?")
		args = append(args, query.ActionName)
	}

	where := ""
	if len(criteria) > 0 {
		where = "WHERE " + strings.Join(criteria, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM executions %s", where)
	if err := c.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count executions: %w", err)
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

	dataQuery := fmt.Sprintf(`
		SELECT id, rule_id, trigger_instance_id, action_name, params, status, result,
		       error_message, attempt_count, cancel_requested, started_at, ended_at, created_at, updated_at
		FROM executions
		%s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, where)

	args = append(args, limit, offset)

	rows, err := c.db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	executions := []models.Execution{}
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan execution row: %w", err)
		}
		executions = append(executions, *execution)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate executions: %w", err)
	}

	return executions, total, nil
}

// GetScheduledExecutions retrieves scheduled executions for the worker to
// claim, oldest first.
func (c *MySQLClient) GetScheduledExecutions(ctx context.Context, limit int) ([]models.Execution, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT id, rule_id, trigger_instance_id, action_name, params, status, result,
		        error_message, attempt_count, cancel_requested, started_at, ended_at, created_at, updated_at
		 FROM executions
		 WHERE status = 'scheduled'
		 ORDER BY created_at ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query scheduled executions: %w", err)
	}
	defer rows.Close()

	executions := []models.Execution{}
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled execution: %w", err)
		}
		executions = append(executions, *execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheduled executions: %w", err)
	}

	return executions, nil
}

// TransitionExecution performs a conditional state transition. The update
// only matches when the row is still in fromStatus, so concurrent workers
// cannot claim the same execution twice.
func (c *MySQLClient) TransitionExecution(ctx context.Context, executionID string, from, to models.ExecutionStatus) error {
	extra := ""
	switch to {
	case models.ExecutionStatusRunning:
		extra = ", started_at = NOW()"
	case models.ExecutionStatusSucceeded, models.ExecutionStatusFailed,
		models.ExecutionStatusTimeout, models.ExecutionStatusCanceled:
		extra = ", ended_at = NOW()"
	}

	query := fmt.Sprintf(`
		UPDATE executions
		SET status = ?%s, updated_at = NOW()
		WHERE id = ? AND status = ?`, extra)

	res, err := c.db.ExecContext(ctx, query, to, executionID, from)
	if err != nil {
		return fmt.Errorf("transition execution: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rows == 0 {
		return ErrExecutionNotClaimable
	}

	return nil
}

// FinishExecution records the terminal status, result and error for an
// execution that was running.
func (c *MySQLClient) FinishExecution(ctx context.Context, executionID string, status models.ExecutionStatus, result []byte, errorMessage *string, attemptCount int) error {
	var res interface{}
	if len(result) > 0 {
		res = string(result)
	}

	query := `
		UPDATE executions
		SET status = ?, result = ?, error_message = ?, attempt_count = ?,
		    ended_at = NOW(), updated_at = NOW()
		WHERE id = ? AND status = 'running'
	`

	r, err := c.db.ExecContext(ctx, query, status, res, errorMessage, attemptCount, executionID)
	if err != nil {
		return fmt.Errorf("finish execution: %w", err)
	}

	rows, err := r.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rows == 0 {
		return ErrExecutionNotClaimable
	}

	return nil
}

// RequestExecutionCancel flags a running execution for cancellation. The
// worker observes the flag between attempts and finalizes the state.
func (c *MySQLClient) RequestExecutionCancel(ctx context.Context, executionID string) error {
	res, err := c.db.ExecContext(
		ctx,
		`UPDATE executions
		 SET cancel_requested = TRUE, updated_at = NOW()
		 WHERE id = ? AND status = 'running'`,
		executionID,
	)
	if err != nil {
		return fmt.Errorf("request execution cancel: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rows == 0 {
		return ErrExecutionNotClaimable
	}

	return nil
}

// IsCancelRequested reads the cancel flag for an execution.
func (c *MySQLClient) IsCancelRequested(ctx context.Context, executionID string) (bool, error) {
	var requested bool
	err := c.db.QueryRowContext(
		ctx,
		`SELECT cancel_requested FROM executions WHERE id = ?`,
		executionID,
	).Scan(&requested)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrExecutionNotFound
		}
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return requested, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var e models.Execution
	var ruleID sql.NullString
	var instanceID sql.NullString
	var params sql.NullString
	var result sql.NullString
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var endedAt sql.NullTime

	err := row.Scan(
		&e.ID,
		&ruleID,
		&instanceID,
		&e.ActionName,
		&params,
		&e.Status,
		&result,
		&errorMessage,
		&e.AttemptCount,
		&e.CancelRequested,
		&startedAt,
		&endedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ruleID.Valid {
		e.RuleID = &ruleID.String
	}
	if instanceID.Valid {
		e.TriggerInstanceID = &instanceID.String
	}
	if params.Valid {
		e.Params = jsonRawMessage(params.String)
	}
	if result.Valid {
		e.Result = jsonRawMessage(result.String)
	}
	if errorMessage.Valid {
		e.ErrorMessage = &errorMessage.String
	}
	if startedAt.Valid {
		e.StartedAt = &startedAt.Time
	}
	if endedAt.Valid {
		e.EndedAt = &endedAt.Time
	}

	return &e, nil
}
