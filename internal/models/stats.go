package models

// PlatformStats summarizes stored entity counts for the metrics endpoint.
type PlatformStats struct {
	TriggerCountWebhook   int64 `json:"trigger_count_webhook" example:"18"`
	TriggerCountTimer     int64 `json:"trigger_count_timer" example:"32"`
	RuleCountEnabled      int64 `json:"rule_count_enabled" example:"40"`
	ActionCountEnabled    int64 `json:"action_count_enabled" example:"12"`
	InstanceCountActive   int64 `json:"instance_count_active" example:"45"`
	InstanceCountArchived int64 `json:"instance_count_archived" example:"1205"`
	ExecutionCountPending int64 `json:"execution_count_pending" example:"3"`
	ExecutionCountRunning int64 `json:"execution_count_running" example:"2"`
	ExecutionCountDone    int64 `json:"execution_count_done" example:"1180"`
} // @name PlatformStats
