package fakes

import (
	"context"
	"sync"

	"github.com/sabihatasneem/st2/platform/events"
)

// FakePublisher records published events in memory.
type FakePublisher struct {
	mu         sync.Mutex
	Events     []events.Event
	PublishErr error
}

// NewFakePublisher creates an empty fake publisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Events = append(f.Events, event)
	return nil
}

func (f *FakePublisher) Close() error { return nil }

// EventsOfType returns the recorded events with the given type.
func (f *FakePublisher) EventsOfType(eventType string) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]events.Event, 0)
	for _, event := range f.Events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
