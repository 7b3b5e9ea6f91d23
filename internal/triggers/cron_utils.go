package triggers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sabihatasneem/st2/internal/models"
)

// CalculateNextFireTime calculates the next fire time for a cron expression.
// Shared between the trigger service (first occurrence on create) and the
// dispatcher (next occurrence after firing).
//
// The returned time is in UTC; timezone affects when the expression matches.
func CalculateNextFireTime(cronExpr string, timezone string, from time.Time) (time.Time, error) {
	loc, err := resolveLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}

	return schedule.Next(from.In(loc)).UTC(), nil
}

// ParseCronConfig extracts cron configuration from a timer_cron trigger's
// config JSON.
func ParseCronConfig(configJSON json.RawMessage) (*models.TimerCronTriggerConfig, error) {
	var config models.TimerCronTriggerConfig
	if err := json.Unmarshal(configJSON, &config); err != nil {
		return nil, fmt.Errorf("parse cron config: %w", err)
	}

	if config.Cron == "" {
		return nil, fmt.Errorf("cron expression is required")
	}

	return &config, nil
}

// resolveLocation resolves a timezone string; empty defaults to UTC.
func resolveLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, NewValidationError("invalid timezone: %v", err)
	}
	return loc, nil
}
