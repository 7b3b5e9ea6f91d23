package fakes

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sabihatasneem/st2/internal/models"
)

// FakeRunner scripts runner behavior per attempt. When Errs is exhausted the
// runner succeeds with Result.
type FakeRunner struct {
	mu     sync.Mutex
	Calls  int
	Errs   []error
	Result json.RawMessage
	Block  bool // when true, waits for ctx and returns ctx.Err()
}

// NewFakeRunner creates a fake runner that succeeds immediately.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Result: json.RawMessage(`{"ok":true}`)}
}

func (f *FakeRunner) Run(ctx context.Context, _ *models.Action, _ json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	call := f.Calls
	f.Calls++
	var scripted error
	if call < len(f.Errs) {
		scripted = f.Errs[call]
	}
	block := f.Block
	result := f.Result
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if scripted != nil {
		return nil, scripted
	}
	return result, nil
}

// CallCount returns how many times Run was invoked.
func (f *FakeRunner) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}
