package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/weavetrack/weavetrack/internal/jobs"
)

type warmerStub struct {
	calls int
	err   error
}

func (w *warmerStub) Warm(ctx context.Context) error {
	w.calls++
	return w.err
}

type cleanerStub struct {
	removed   int64
	retention time.Duration
	err       error
}

func (c *cleanerStub) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	c.retention = olderThan
	return c.removed, c.err
}

func newMetrics(t *testing.T) (*jobmetrics.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return jobmetrics.NewMetrics(reg), reg
}

func seriesCount(reg *prometheus.Registry, name string) (int, error) {
	families, err := reg.Gather()
	if err != nil {
		return 0, err
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return len(mf.GetMetric()), nil
		}
	}
	return 0, nil
}

func TestReportsWarmupJobWarmsAndCounts(t *testing.T) {
	metrics, reg := newMetrics(t)
	warmer := &warmerStub{}
	job := NewReportsWarmupJob(warmer, nil, metrics)

	task, err := NewReportsWarmupTask("ledger_changed")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 1, warmer.calls)
	count, err := seriesCount(reg, "weavetrack_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	items, err := seriesCount(reg, "weavetrack_job_items_total")
	require.NoError(t, err)
	assert.Equal(t, 1, items)
}

func TestReportsWarmupJobRecordsFailure(t *testing.T) {
	metrics, reg := newMetrics(t)
	job := NewReportsWarmupJob(&warmerStub{err: errors.New("redis down")}, nil, metrics)

	err := job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, nil))
	require.Error(t, err)

	failures, err := seriesCount(reg, "weavetrack_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failures)
}

func TestReportsWarmupJobSkipsBadPayload(t *testing.T) {
	metrics, _ := newMetrics(t)
	warmer := &warmerStub{}
	job := NewReportsWarmupJob(warmer, nil, metrics)

	err := job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, warmer.calls)
}

func TestReportsWarmupJobNotConfigured(t *testing.T) {
	var job *ReportsWarmupJob
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, nil)))
}

func TestIdempotencyCleanupUsesPayloadRetention(t *testing.T) {
	metrics, _ := newMetrics(t)
	cleaner := &cleanerStub{removed: 7}
	job := NewIdempotencyCleanupJob(cleaner, nil, metrics)

	task, err := NewIdempotencyCleanupTask(24 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 24*time.Hour, cleaner.retention)
}

func TestIdempotencyCleanupDefaultsRetention(t *testing.T) {
	metrics, _ := newMetrics(t)
	cleaner := &cleanerStub{}
	job := NewIdempotencyCleanupJob(cleaner, nil, metrics)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, DefaultIdempotencyRetention, cleaner.retention)
}

func TestIdempotencyCleanupPropagatesError(t *testing.T) {
	metrics, _ := newMetrics(t)
	job := NewIdempotencyCleanupJob(&cleanerStub{err: errors.New("boom")}, nil, metrics)
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:1"}})
	require.Error(t, err)
}

func TestNilClientIsNoop(t *testing.T) {
	var client *Client
	require.NoError(t, client.EnqueueReportWarmup(context.Background()))
	require.NoError(t, client.Close())
}

func TestHealthWithoutInspector(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body queueHealth
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, QueueDefault, body.Queue)
	assert.Zero(t, body.Pending)
}
