package runners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sabihatasneem/st2/internal/models"
)

// Runner executes an action with rendered parameters and returns a JSON
// result document. Implementations must honor context cancellation and
// deadlines; the worker derives a deadline from the action's timeout.
type Runner interface {
	Run(ctx context.Context, action *models.Action, params json.RawMessage) (json.RawMessage, error)
}

// Registry maps runner types to implementations.
type Registry struct {
	runners map[models.RunnerType]Runner
}

// NewRegistry creates a registry with the built-in runners.
func NewRegistry() *Registry {
	return &Registry{
		runners: map[models.RunnerType]Runner{
			models.RunnerTypeHTTP: NewHTTPRunner(),
			models.RunnerTypeNoop: NoopRunner{},
		},
	}
}

// Get returns the runner for a runner type.
func (r *Registry) Get(runnerType models.RunnerType) (Runner, error) {
	runner, ok := r.runners[runnerType]
	if !ok {
		return nil, fmt.Errorf("no runner registered for type %q", runnerType)
	}
	return runner, nil
}

// Register adds or replaces a runner implementation.
func (r *Registry) Register(runnerType models.RunnerType, runner Runner) {
	r.runners[runnerType] = runner
}

// NoopRunner accepts any parameters and reports success without side effects.
// Useful for wiring rules end to end before the real action exists.
type NoopRunner struct{}

// Run echoes the parameters back as the result.
func (NoopRunner) Run(_ context.Context, _ *models.Action, params json.RawMessage) (json.RawMessage, error) {
	result := map[string]interface{}{"noop": true}
	if len(params) > 0 {
		result["params"] = json.RawMessage(params)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal noop result: %w", err)
	}
	return out, nil
}
