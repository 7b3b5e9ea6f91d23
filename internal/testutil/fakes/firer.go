package fakes

import (
	"context"
	"sync"

	"github.com/sabihatasneem/st2/internal/ingestion"
	"github.com/sabihatasneem/st2/internal/models"
)

// FiredTrigger records one call to the fake firer.
type FiredTrigger struct {
	Trigger models.Trigger
	Payload map[string]interface{}
	Source  models.InstanceSource
}

// FakeFirer records fire calls for timer engine tests.
type FakeFirer struct {
	mu      sync.Mutex
	Fired   []FiredTrigger
	FireErr error
}

// NewFakeFirer creates an empty fake firer.
func NewFakeFirer() *FakeFirer {
	return &FakeFirer{}
}

func (f *FakeFirer) Fire(_ context.Context, trigger *models.Trigger, payload map[string]interface{}, source models.InstanceSource) (*ingestion.FireResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FireErr != nil {
		return nil, f.FireErr
	}

	f.Fired = append(f.Fired, FiredTrigger{Trigger: *trigger, Payload: payload, Source: source})
	return &ingestion.FireResult{InstanceID: "fake-instance"}, nil
}

// FireCount returns how many fires succeeded.
func (f *FakeFirer) FireCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Fired)
}
