package storage

import (
	"context"
	"fmt"

	"github.com/sabihatasneem/st2/internal/models"
)

// CollectStats counts stored entities grouped the way the metrics
// endpoint reports them.
func (c *MySQLClient) CollectStats(ctx context.Context) (*models.PlatformStats, error) {
	stats := &models.PlatformStats{}

	counts := []struct {
		dest  *int64
		query string
	}{
		{&stats.TriggerCountWebhook, `SELECT COUNT(*) FROM triggers WHERE type = 'webhook'`},
		{&stats.TriggerCountTimer, `SELECT COUNT(*) FROM triggers WHERE type IN ('timer_once', 'timer_cron')`},
		{&stats.RuleCountEnabled, `SELECT COUNT(*) FROM rules WHERE enabled = TRUE`},
		{&stats.ActionCountEnabled, `SELECT COUNT(*) FROM actions WHERE enabled = TRUE`},
		{&stats.InstanceCountActive, `SELECT COUNT(*) FROM trigger_instances WHERE retention_status = 'active'`},
		{&stats.InstanceCountArchived, `SELECT COUNT(*) FROM trigger_instances WHERE retention_status = 'archived'`},
		{&stats.ExecutionCountPending, `SELECT COUNT(*) FROM executions WHERE status IN ('requested', 'scheduled')`},
		{&stats.ExecutionCountRunning, `SELECT COUNT(*) FROM executions WHERE status = 'running'`},
		{&stats.ExecutionCountDone, `SELECT COUNT(*) FROM executions WHERE status IN ('succeeded', 'failed', 'timeout', 'canceled')`},
	}

	for _, count := range counts {
		if err := c.db.QueryRowContext(ctx, count.query).Scan(count.dest); err != nil {
			return nil, fmt.Errorf("collect stats: %w", err)
		}
	}

	return stats, nil
}
