package rules

import (
	"context"
	"time"

	"github.com/sabihatasneem/st2/internal/models"
)

// RuleStore defines the storage methods required by the rule service.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *models.Rule) error
	GetRule(ctx context.Context, ruleID string) (*models.Rule, error)
	ListRules(ctx context.Context, query models.ListRulesQuery) ([]models.Rule, int64, error)
	ListEnabledRulesForTrigger(ctx context.Context, triggerID string) ([]models.Rule, error)
	UpdateRule(ctx context.Context, ruleID string, updates map[string]interface{}) error
	DeleteRule(ctx context.Context, ruleID string) error
	GetTrigger(ctx context.Context, triggerID string) (*models.Trigger, *time.Time, error)
	GetAction(ctx context.Context, name string) (*models.Action, error)
}
