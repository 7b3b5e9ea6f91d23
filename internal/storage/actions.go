package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sabihatasneem/st2/internal/models"
)

// ErrActionNotFound is returned when an action is not found.
var ErrActionNotFound = errors.New("action not found")

// CreateAction registers an action, keyed by name.
func (c *MySQLClient) CreateAction(ctx context.Context, action *models.Action) error {
	var schema interface{}
	if len(action.ParamsSchema) > 0 {
		schema = string(action.ParamsSchema)
	}

	var headers interface{}
	if len(action.Headers) > 0 {
		b, err := json.Marshal(action.Headers)
		if err != nil {
			return fmt.Errorf("marshal headers: %w", err)
		}
		headers = string(b)
	}

	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO actions (name, description, runner_type, params_schema, endpoint, http_method, headers, timeout_seconds, enabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		action.Name,
		action.Description,
		action.RunnerType,
		schema,
		action.Endpoint,
		action.HTTPMethod,
		headers,
		action.TimeoutSeconds,
		action.Enabled,
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}

	return nil
}

// GetAction fetches an action by name.
func (c *MySQLClient) GetAction(ctx context.Context, name string) (*models.Action, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT name, description, runner_type, params_schema, endpoint, http_method, headers, timeout_seconds, enabled, created_at, updated_at
		 FROM actions WHERE name = ?`,
		name,
	)

	action, err := scanAction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActionNotFound
		}
		return nil, fmt.Errorf("scan action: %w", err)
	}

	return action, nil
}

// ListActions returns actions matching the filters with pagination information.
func (c *MySQLClient) ListActions(ctx context.Context, query models.ListActionsQuery) ([]models.Action, int64, error) {
	where := ""
	args := make([]interface{}, 0, 3)
	if query.RunnerType != "" {
		where = "WHERE runner_type = ?"
		args = append(args, query.RunnerType)
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM actions %s", where)
	if err := c.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count actions: %w", err)
	}

	offset := (query.Page - 1) * query.Limit
	args = append(args, query.Limit, offset)

	dataQuery := fmt.Sprintf(`
		SELECT name, description, runner_type, params_schema, endpoint, http_method, headers, timeout_seconds, enabled, created_at, updated_at
		FROM actions
		%s
		ORDER BY name ASC
		LIMIT ? OFFSET ?`, where)

	rows, err := c.db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	actions := make([]models.Action, 0)
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan action row: %w", err)
		}
		actions = append(actions, *action)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate actions: %w", err)
	}

	return actions, total, nil
}

// UpdateAction updates the mutable fields of an action.
func (c *MySQLClient) UpdateAction(ctx context.Context, name string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setParts := make([]string, 0, len(updates)+1)
	args := make([]interface{}, 0, len(updates)+1)

	for column, value := range updates {
		setParts = append(setParts, fmt.Sprintf("%s = ?", column))
		args = append(args, value)
	}

	setParts = append(setParts, "updated_at = NOW()")
	args = append(args, name)

	query := fmt.Sprintf("UPDATE actions SET %s WHERE name = ?", strings.Join(setParts, ", "))
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update action: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrActionNotFound
	}

	return nil
}

// DeleteAction removes an action. Execution history referencing the action
// name is kept.
func (c *MySQLClient) DeleteAction(ctx context.Context, name string) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM actions WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete action: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rows == 0 {
		return ErrActionNotFound
	}

	return nil
}

func scanAction(row rowScanner) (*models.Action, error) {
	var action models.Action
	var schema sql.NullString
	var headers sql.NullString
	var endpoint sql.NullString
	var method sql.NullString

	err := row.Scan(
		&action.Name,
		&action.Description,
		&action.RunnerType,
		&schema,
		&endpoint,
		&method,
		&headers,
		&action.TimeoutSeconds,
		&action.Enabled,
		&action.CreatedAt,
		&action.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if schema.Valid {
		action.ParamsSchema = jsonRawMessage(schema.String)
	}
	if endpoint.Valid {
		action.Endpoint = endpoint.String
	}
	if method.Valid {
		action.HTTPMethod = method.String
	}
	if headers.Valid && headers.String != "" {
		if err := json.Unmarshal([]byte(headers.String), &action.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
	}

	return &action, nil
}
