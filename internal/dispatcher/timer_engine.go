package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/internal/triggers"
	"github.com/sabihatasneem/st2/pkg/clock"
	"go.uber.org/zap"
)

const (
	// maxScheduleAttempts bounds retries for a single timer occurrence.
	maxScheduleAttempts = 3

	// instanceRetentionDays is how long fired instances stay active before
	// the maintenance pass archives them.
	instanceRetentionDays = 30

	// archiveInterval is how often the maintenance pass runs.
	archiveInterval = 1 * time.Hour
)

// TimerEngine polls for due timer schedules and fires their triggers.
// One occurrence fires at most once: rows move pending → processing before
// firing, and failed occurrences revert to pending for a bounded number of
// retries.
type TimerEngine struct {
	store  ScheduleStore
	firer  TriggerFirer
	logger logging.Logger
	clock  clock.Clock

	tick  time.Duration
	batch int
}

// NewTimerEngine creates a timer engine.
func NewTimerEngine(store ScheduleStore, firer TriggerFirer, logger logging.Logger, clk clock.Clock, tick time.Duration, batch int) *TimerEngine {
	return &TimerEngine{
		store:  store,
		firer:  firer,
		logger: logger,
		clock:  clk,
		tick:   tick,
		batch:  batch,
	}
}

// Run polls until the context is canceled.
func (e *TimerEngine) Run(ctx context.Context) {
	e.logger.Info("timer engine started",
		zap.Duration("tick", e.tick),
		zap.Int("batch", e.batch),
	)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	archiveTicker := time.NewTicker(archiveInterval)
	defer archiveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("timer engine stopped")
			return
		case <-ticker.C:
			e.ProcessDueSchedules(ctx)
		case <-archiveTicker.C:
			e.archiveOldInstances(ctx)
		}
	}
}

// ProcessDueSchedules fires every due schedule in one batch. Exported so
// tests can drive single passes without the ticker.
func (e *TimerEngine) ProcessDueSchedules(ctx context.Context) {
	due, err := e.store.GetDueSchedules(ctx, e.batch)
	if err != nil {
		e.logger.Error("fetch due schedules", zap.Error(err))
		return
	}

	for i := range due {
		e.processSchedule(ctx, &due[i])
	}
}

func (e *TimerEngine) processSchedule(ctx context.Context, item *storage.ScheduleWithTrigger) {
	schedule := item.Schedule
	trigger := item.Trigger

	if err := e.store.UpdateScheduleStatus(ctx, schedule.ID, models.ScheduleStatusProcessing); err != nil {
		e.logger.Error("claim schedule", zap.Error(err), zap.String("schedule_id", schedule.ID))
		return
	}

	err := e.fire(ctx, &trigger)
	if err != nil {
		e.handleFireFailure(ctx, &schedule, err)
		return
	}

	if err := e.store.UpdateScheduleStatus(ctx, schedule.ID, models.ScheduleStatusCompleted); err != nil {
		e.logger.Error("complete schedule", zap.Error(err), zap.String("schedule_id", schedule.ID))
	}

	switch trigger.Type {
	case models.TriggerTypeTimerCron:
		e.scheduleNextOccurrence(ctx, &trigger)
	case models.TriggerTypeTimerOnce:
		if err := e.store.DeactivateTrigger(ctx, trigger.ID); err != nil {
			e.logger.Error("deactivate one-shot trigger", zap.Error(err), zap.String("trigger_id", trigger.ID))
		}
	}
}

func (e *TimerEngine) fire(ctx context.Context, trigger *models.Trigger) error {
	payload, err := timerPayload(trigger)
	if err != nil {
		return err
	}

	_, err = e.firer.Fire(ctx, trigger, payload, models.InstanceSourceTimer)
	return err
}

func (e *TimerEngine) handleFireFailure(ctx context.Context, schedule *models.TriggerSchedule, fireErr error) {
	e.logger.Warn("fire timer trigger",
		zap.Error(fireErr),
		zap.String("schedule_id", schedule.ID),
		zap.String("trigger_id", schedule.TriggerID),
		zap.Int("attempt_count", schedule.AttemptCount),
	)

	// AttemptCount counts previous failures; this failure makes one more.
	if schedule.AttemptCount+1 >= maxScheduleAttempts {
		if err := e.store.UpdateScheduleStatus(ctx, schedule.ID, models.ScheduleStatusCancelled); err != nil {
			e.logger.Error("cancel exhausted schedule", zap.Error(err), zap.String("schedule_id", schedule.ID))
		}
		return
	}

	if err := e.store.RevertScheduleToPending(ctx, schedule.ID); err != nil {
		e.logger.Error("revert schedule", zap.Error(err), zap.String("schedule_id", schedule.ID))
	}
}

func (e *TimerEngine) scheduleNextOccurrence(ctx context.Context, trigger *models.Trigger) {
	config, err := triggers.ParseCronConfig(trigger.Config)
	if err != nil {
		e.logger.Error("parse cron config", zap.Error(err), zap.String("trigger_id", trigger.ID))
		return
	}

	next, err := triggers.CalculateNextFireTime(config.Cron, config.Timezone, e.clock.Now())
	if err != nil {
		e.logger.Error("calculate next occurrence", zap.Error(err), zap.String("trigger_id", trigger.ID))
		return
	}

	schedule := models.TriggerSchedule{
		ID:        uuid.New().String(),
		TriggerID: trigger.ID,
		FireAt:    next,
		Status:    models.ScheduleStatusPending,
	}

	if err := e.store.CreateNextSchedule(ctx, &schedule); err != nil {
		e.logger.Error("create next schedule", zap.Error(err), zap.String("trigger_id", trigger.ID))
		return
	}

	e.logger.Debug("next occurrence scheduled",
		zap.String("trigger_id", trigger.ID),
		zap.Time("fire_at", next),
	)
}

func (e *TimerEngine) archiveOldInstances(ctx context.Context) {
	archived, err := e.store.ArchiveTriggerInstances(ctx, instanceRetentionDays)
	if err != nil {
		e.logger.Error("archive trigger instances", zap.Error(err))
		return
	}
	if archived > 0 {
		e.logger.Info("archived trigger instances", zap.Int64("count", archived))
	}
}

// timerPayload extracts the static payload configured on a timer trigger.
func timerPayload(trigger *models.Trigger) (map[string]interface{}, error) {
	var config struct {
		Payload map[string]interface{} `json:"payload,omitempty"`
	}
	if err := json.Unmarshal(trigger.Config, &config); err != nil {
		return nil, fmt.Errorf("parse timer config: %w", err)
	}
	if config.Payload == nil {
		config.Payload = map[string]interface{}{}
	}
	return config.Payload, nil
}
