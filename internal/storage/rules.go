package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sabihatasneem/st2/internal/models"
)

// ErrRuleNotFound is returned when a rule is not found.
var ErrRuleNotFound = errors.New("rule not found")

// CreateRule inserts a rule.
func (c *MySQLClient) CreateRule(ctx context.Context, rule *models.Rule) error {
	var params interface{}
	if len(rule.ActionParams) > 0 {
		params = string(rule.ActionParams)
	}

	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO rules (id, name, trigger_id, criteria, action_name, action_params, enabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.Name,
		rule.TriggerID,
		rule.Criteria,
		rule.ActionName,
		params,
		rule.Enabled,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}

	return nil
}

// GetRule fetches a rule by ID.
func (c *MySQLClient) GetRule(ctx context.Context, ruleID string) (*models.Rule, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT id, name, trigger_id, criteria, action_name, action_params, enabled, created_at, updated_at
		 FROM rules WHERE id = ?`,
		ruleID,
	)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("scan rule: %w", err)
	}

	return rule, nil
}

// ListRules returns rules matching the filters with pagination information.
func (c *MySQLClient) ListRules(ctx context.Context, query models.ListRulesQuery) ([]models.Rule, int64, error) {
	criteria := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if query.TriggerID != "" {
		criteria = append(criteria, "trigger_id = ?")
		args = append(args, query.TriggerID)
	}
	if query.Enabled != nil {
		criteria = append(criteria, "enabled = ?")
		args = append(args, *query.Enabled)
	}

	where := ""
	if len(criteria) > 0 {
		where = "WHERE " + strings.Join(criteria, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM rules %s", where)
	if err := c.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rules: %w", err)
	}

	offset := (query.Page - 1) * query.Limit
	args = append(args, query.Limit, offset)

	dataQuery := fmt.Sprintf(`
		SELECT id, name, trigger_id, criteria, action_name, action_params, enabled, created_at, updated_at
		FROM rules
		%s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, where)

	rows, err := c.db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := make([]models.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan rule row: %w", err)
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rules: %w", err)
	}

	return rules, total, nil
}

// ListEnabledRulesForTrigger returns all enabled rules bound to a trigger.
// Used by the matcher on every trigger instance.
func (c *MySQLClient) ListEnabledRulesForTrigger(ctx context.Context, triggerID string) ([]models.Rule, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT id, name, trigger_id, criteria, action_name, action_params, enabled, created_at, updated_at
		 FROM rules
		 WHERE trigger_id = ? AND enabled = TRUE
		 ORDER BY created_at ASC`,
		triggerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query enabled rules: %w", err)
	}
	defer rows.Close()

	rules := make([]models.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enabled rules: %w", err)
	}

	return rules, nil
}

// UpdateRule updates the mutable fields of a rule.
func (c *MySQLClient) UpdateRule(ctx context.Context, ruleID string, updates map[string]interface{}) error {
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
	args = append(args, ruleID)

	query := fmt.Sprintf("UPDATE rules SET %s WHERE id = ?", strings.Join(setParts, ", "))
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrRuleNotFound
	}

	return nil
}

// DeleteRule removes a rule. Execution history is untouched.
func (c *MySQLClient) DeleteRule(ctx context.Context, ruleID string) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", ruleID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rows == 0 {
		return ErrRuleNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*models.Rule, error) {
	var rule models.Rule
	var params sql.NullString

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.TriggerID,
		&rule.Criteria,
		&rule.ActionName,
		&params,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if params.Valid {
		rule.ActionParams = jsonRawMessage(params.String)
	}

	return &rule, nil
}
