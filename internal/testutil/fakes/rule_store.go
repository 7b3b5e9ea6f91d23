package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
)

// FakeRuleStore is an in-memory rule store. It embeds trigger and action
// lookups so the rule service's referential checks work against it.
type FakeRuleStore struct {
	mu      sync.Mutex
	Rules   map[string]*models.Rule
	TrigSt  *FakeTriggerStore
	ActSt   *FakeActionStore
	ListErr error
}

// NewFakeRuleStore creates a fake rule store backed by the given trigger and
// action fakes.
func NewFakeRuleStore(triggerStore *FakeTriggerStore, actionStore *FakeActionStore) *FakeRuleStore {
	return &FakeRuleStore{
		Rules:  make(map[string]*models.Rule),
		TrigSt: triggerStore,
		ActSt:  actionStore,
	}
}

func (f *FakeRuleStore) CreateRule(_ context.Context, rule *models.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	stored := *rule
	stored.CreatedAt = now
	stored.UpdatedAt = now
	f.Rules[rule.ID] = &stored
	return nil
}

func (f *FakeRuleStore) GetRule(_ context.Context, ruleID string) (*models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rule, ok := f.Rules[ruleID]
	if !ok {
		return nil, storage.ErrRuleNotFound
	}
	copied := *rule
	return &copied, nil
}

func (f *FakeRuleStore) ListRules(_ context.Context, query models.ListRulesQuery) ([]models.Rule, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ListErr != nil {
		return nil, 0, f.ListErr
	}

	out := make([]models.Rule, 0, len(f.Rules))
	for _, rule := range f.Rules {
		if query.TriggerID != "" && rule.TriggerID != query.TriggerID {
			continue
		}
		if query.Enabled != nil && rule.Enabled != *query.Enabled {
			continue
		}
		out = append(out, *rule)
	}
	return out, int64(len(out)), nil
}

func (f *FakeRuleStore) ListEnabledRulesForTrigger(_ context.Context, triggerID string) ([]models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ListErr != nil {
		return nil, f.ListErr
	}

	out := make([]models.Rule, 0)
	for _, rule := range f.Rules {
		if rule.TriggerID == triggerID && rule.Enabled {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (f *FakeRuleStore) UpdateRule(_ context.Context, ruleID string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rule, ok := f.Rules[ruleID]
	if !ok {
		return storage.ErrRuleNotFound
	}

	if name, ok := updates["name"].(string); ok {
		rule.Name = name
	}
	if criteria, ok := updates["criteria"].(string); ok {
		rule.Criteria = criteria
	}
	if actionName, ok := updates["action_name"].(string); ok {
		rule.ActionName = actionName
	}
	if params, ok := updates["action_params"].(string); ok {
		rule.ActionParams = []byte(params)
	}
	if enabled, ok := updates["enabled"].(bool); ok {
		rule.Enabled = enabled
	}
	rule.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *FakeRuleStore) DeleteRule(_ context.Context, ruleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.Rules[ruleID]; !ok {
		return storage.ErrRuleNotFound
	}
	delete(f.Rules, ruleID)
	return nil
}

func (f *FakeRuleStore) GetTrigger(ctx context.Context, triggerID string) (*models.Trigger, *time.Time, error) {
	return f.TrigSt.GetTrigger(ctx, triggerID)
}

func (f *FakeRuleStore) GetAction(ctx context.Context, name string) (*models.Action, error) {
	return f.ActSt.GetAction(ctx, name)
}
