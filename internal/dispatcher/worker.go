package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/runners"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/platform/events"
	"go.uber.org/zap"
)

const (
	defaultBaseBackoff = 2 * time.Second
	maxBackoff         = 2 * time.Minute
)

// Worker claims scheduled executions and runs their actions. Claiming is a
// conditional scheduled → running update, so multiple workers can poll the
// same store without double-running. Retries stay inside the running state;
// the terminal status is set exactly once per execution.
type Worker struct {
	store     WorkStore
	registry  *runners.Registry
	publisher events.Publisher
	logger    logging.Logger

	tick          time.Duration
	batch         int
	maxAttempts   int
	actionTimeout time.Duration
	baseBackoff   time.Duration
}

// NewWorker creates an execution worker.
func NewWorker(store WorkStore, registry *runners.Registry, publisher events.Publisher, logger logging.Logger, tick time.Duration, batch, maxAttempts int, actionTimeout time.Duration) *Worker {
	return &Worker{
		store:         store,
		registry:      registry,
		publisher:     publisher,
		logger:        logger,
		tick:          tick,
		batch:         batch,
		maxAttempts:   maxAttempts,
		actionTimeout: actionTimeout,
		baseBackoff:   defaultBaseBackoff,
	}
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("execution worker started",
		zap.Duration("tick", w.tick),
		zap.Int("batch", w.batch),
		zap.Int("max_attempts", w.maxAttempts),
	)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("execution worker stopped")
			return
		case <-ticker.C:
			w.ProcessScheduled(ctx)
		}
	}
}

// ProcessScheduled claims and runs one batch of scheduled executions.
// Exported so tests can drive single passes without the ticker.
func (w *Worker) ProcessScheduled(ctx context.Context) {
	scheduled, err := w.store.GetScheduledExecutions(ctx, w.batch)
	if err != nil {
		w.logger.Error("fetch scheduled executions", zap.Error(err))
		return
	}

	for i := range scheduled {
		w.processExecution(ctx, &scheduled[i])
	}
}

func (w *Worker) processExecution(ctx context.Context, execution *models.Execution) {
	err := w.store.TransitionExecution(ctx, execution.ID, models.ExecutionStatusScheduled, models.ExecutionStatusRunning)
	if err != nil {
		if errors.Is(err, storage.ErrExecutionNotClaimable) {
			// Another worker claimed it or it was canceled.
			return
		}
		w.logger.Error("claim execution", zap.Error(err), zap.String("execution_id", execution.ID))
		return
	}

	status, result, attempts, runErr := w.runWithRetries(ctx, execution)

	var errorMessage *string
	if runErr != nil {
		msg := runErr.Error()
		errorMessage = &msg
	}

	if err := w.store.FinishExecution(ctx, execution.ID, status, result, errorMessage, attempts); err != nil {
		w.logger.Error("finish execution", zap.Error(err), zap.String("execution_id", execution.ID))
		return
	}

	w.logger.Info("execution finished",
		zap.String("execution_id", execution.ID),
		zap.String("action", execution.ActionName),
		zap.String("status", string(status)),
		zap.Int("attempts", attempts),
	)

	w.publishStateChange(ctx, execution.ID, status, attempts)
}

// runWithRetries runs the action up to maxAttempts times with exponential
// backoff and jitter between attempts. Returns the terminal status, the last
// result document, the attempt count and the last error.
func (w *Worker) runWithRetries(ctx context.Context, execution *models.Execution) (models.ExecutionStatus, []byte, int, error) {
	action, err := w.store.GetAction(ctx, execution.ActionName)
	if err != nil {
		if errors.Is(err, storage.ErrActionNotFound) {
			return models.ExecutionStatusFailed, nil, 0, fmt.Errorf("action %s is no longer registered", execution.ActionName)
		}
		return models.ExecutionStatusFailed, nil, 0, fmt.Errorf("load action: %w", err)
	}

	if !action.Enabled {
		return models.ExecutionStatusFailed, nil, 0, fmt.Errorf("action %s is disabled", action.Name)
	}

	runner, err := w.registry.Get(action.RunnerType)
	if err != nil {
		return models.ExecutionStatusFailed, nil, 0, err
	}

	timeout := w.actionTimeout
	if action.TimeoutSeconds > 0 {
		timeout = time.Duration(action.TimeoutSeconds) * time.Second
	}

	var lastErr error
	var lastResult []byte

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		canceled, err := w.store.IsCancelRequested(ctx, execution.ID)
		if err != nil {
			w.logger.Warn("read cancel flag", zap.Error(err), zap.String("execution_id", execution.ID))
		}
		if canceled {
			return models.ExecutionStatusCanceled, lastResult, attempt - 1, errors.New("canceled by request")
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, runErr := runner.Run(attemptCtx, action, execution.Params)
		timedOut := attemptCtx.Err() == context.DeadlineExceeded
		cancel()

		if result != nil {
			lastResult = result
		}

		if runErr == nil {
			return models.ExecutionStatusSucceeded, lastResult, attempt, nil
		}
		lastErr = runErr

		if timedOut {
			lastErr = fmt.Errorf("action timed out after %s: %w", timeout, runErr)
			if attempt >= w.maxAttempts {
				return models.ExecutionStatusTimeout, lastResult, attempt, lastErr
			}
		} else if runners.IsPermanent(runErr) || attempt >= w.maxAttempts {
			return models.ExecutionStatusFailed, lastResult, attempt, lastErr
		}

		select {
		case <-ctx.Done():
			return models.ExecutionStatusFailed, lastResult, attempt, ctx.Err()
		case <-time.After(w.backoffDelay(attempt)):
		}
	}

	return models.ExecutionStatusFailed, lastResult, w.maxAttempts, lastErr
}

// backoffDelay computes the wait before the next attempt: exponential in the
// attempt number with up to 25% jitter, capped at maxBackoff. The shift is
// clamped so large configured attempt limits cannot overflow the duration.
func (w *Worker) backoffDelay(attempt int) time.Duration {
	shift := attempt - 1
	if shift > 20 {
		shift = 20
	}
	delay := w.baseBackoff << shift
	if delay <= 0 || delay > maxBackoff {
		delay = maxBackoff
	}
	if quarter := int64(delay) / 4; quarter > 0 {
		delay += time.Duration(rand.Int63n(quarter))
	}
	return delay
}

func (w *Worker) publishStateChange(ctx context.Context, executionID string, status models.ExecutionStatus, attempts int) {
	if w.publisher == nil {
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"id":            executionID,
		"status":        status,
		"attempt_count": attempts,
	})
	if err != nil {
		return
	}

	event := events.Event{
		Type:     events.EventExecutionStateChanged,
		EntityID: executionID,
		Data:     data,
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Warn("publish execution event", zap.Error(err), zap.String("execution_id", executionID))
	}
}
