package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup rebuilds the cached report set for the current cache version.
	TaskReportsWarmup = "reports:warmup"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// warmupDedupeWindow collapses bursts of ledger writes into a single warmup.
const warmupDedupeWindow = 30 * time.Second

// ReportsWarmupPayload describes why a warmup was requested.
type ReportsWarmupPayload struct {
	Reason string `json:"reason"`
}

// IdempotencyCleanupPayload carries the retention applied by a cleanup run.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewReportsWarmupTask constructs a warmup task.
func NewReportsWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportsWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}

// NewIdempotencyCleanupTask constructs a cleanup task for keys older than retention.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
