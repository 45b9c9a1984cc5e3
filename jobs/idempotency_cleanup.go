package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/weavetrack/weavetrack/internal/jobs"
)

// DefaultIdempotencyRetention is applied when a task carries no retention.
const DefaultIdempotencyRetention = 72 * time.Hour

// KeyCleaner removes stale idempotency keys.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob purges idempotency keys past their retention.
type IdempotencyCleanupJob struct {
	Keys    KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob wires the cleanup handler.
func NewIdempotencyCleanupJob(keys KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Keys: keys, Logger: logger, Metrics: metrics}
}

// Handle processes cleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskIdempotencyCleanup)
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskIdempotencyCleanup))

	removed, err := j.Keys.Cleanup(ctx, retention)
	if err != nil {
		logger.Error("cleanup idempotency keys", slog.Any("error", err))
		return tracker.End(err)
	}
	metrics.AddItems(TaskIdempotencyCleanup, removed)
	logger.Info("purged idempotency keys", slog.Int64("removed", removed), slog.Duration("retention", retention))
	return tracker.End(nil)
}
