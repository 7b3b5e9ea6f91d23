package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Engine compiles and evaluates rule criteria expressions. Criteria are CEL
// expressions over the variables `payload` (trigger instance payload) and
// `trigger` (id, name, type). Compiled programs are cached per rule together
// with the criteria text they were built from, so a cache entry compiled in
// one process never outlives a rule update made in another. The cache is
// safe for concurrent readers.
type Engine struct {
	env      *cel.Env
	programs map[string]compiledCriteria // keyed by rule ID
	mu       sync.RWMutex
}

type compiledCriteria struct {
	criteria string
	program  cel.Program
}

// NewEngine creates a criteria engine with the standard environment.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("payload", cel.DynType),
		cel.Variable("trigger", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}

	return &Engine{
		env:      env,
		programs: make(map[string]compiledCriteria),
	}, nil
}

// Compile compiles a criteria expression and caches the program under the
// rule ID. Returns a descriptive error for expressions that do not compile.
func (en *Engine) Compile(ruleID, criteria string) error {
	ast, issues := en.env.Compile(criteria)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile criteria: %w", issues.Err())
	}

	// Cost limit bounds runaway expressions from user-supplied criteria.
	prog, err := en.env.Program(ast, cel.CostLimit(1000000))
	if err != nil {
		return fmt.Errorf("build criteria program: %w", err)
	}

	en.mu.Lock()
	en.programs[ruleID] = compiledCriteria{criteria: criteria, program: prog}
	en.mu.Unlock()

	return nil
}

// Validate checks that a criteria expression compiles without caching it.
func (en *Engine) Validate(criteria string) error {
	ast, issues := en.env.Compile(criteria)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile criteria: %w", issues.Err())
	}
	if _, err := en.env.Program(ast, cel.CostLimit(1000000)); err != nil {
		return fmt.Errorf("build criteria program: %w", err)
	}
	return nil
}

// Evaluate runs the compiled program for a rule against the given facts.
// Non-boolean results evaluate to false. The rule is compiled on demand
// when the cache has no entry (fresh process, rule created elsewhere) or
// when the cached entry was built from different criteria text (rule
// updated in another process).
func (en *Engine) Evaluate(ruleID, criteria string, facts map[string]interface{}) (bool, error) {
	en.mu.RLock()
	entry, exists := en.programs[ruleID]
	en.mu.RUnlock()

	if !exists || entry.criteria != criteria {
		if err := en.Compile(ruleID, criteria); err != nil {
			return false, err
		}
		en.mu.RLock()
		entry = en.programs[ruleID]
		en.mu.RUnlock()
	}

	out, _, err := entry.program.Eval(facts)
	if err != nil {
		return false, fmt.Errorf("evaluate criteria: %w", err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, nil
	}

	return matched, nil
}

// Invalidate drops the cached program for a rule after update or delete.
func (en *Engine) Invalidate(ruleID string) {
	en.mu.Lock()
	delete(en.programs, ruleID)
	en.mu.Unlock()
}
