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

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// warmedReports is the number of cached reports a warmup rebuilds.
const warmedReports = 4

// ReportWarmer rebuilds the cached reports.
type ReportWarmer interface {
	Warm(ctx context.Context) error
}

// ReportsWarmupJob pre-populates the report cache for the current version.
type ReportsWarmupJob struct {
	Reports ReportWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
	clock   func() time.Time
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(reports ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		Timeout: time.Minute,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Reason == "" {
		payload.Reason = "scheduled"
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	logger := j.logger().With(slog.String("reason", payload.Reason))
	started := j.now()

	warmCtx := ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		warmCtx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	if err := j.Reports.Warm(warmCtx); err != nil {
		logger.Error("warm reports", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddItems(TaskReportsWarmup, warmedReports)
	logger.Info("completed reports warmup", slog.Duration("duration", j.now().Sub(started)))
	return tracker.End(nil)
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
