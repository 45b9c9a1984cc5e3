package reports

import (
	"context"
	"log/slog"
	"time"
)

const invalidateTimeout = 5 * time.Second

// WarmupEnqueuer schedules a background rebuild of the cached reports.
type WarmupEnqueuer interface {
	EnqueueReportWarmup(ctx context.Context) error
}

// Invalidator drops cached reports whenever the ledger or lots change.
type Invalidator struct {
	cache  *Cache
	warmer WarmupEnqueuer
	logger *slog.Logger
}

// NewInvalidator constructs an Invalidator. warmer may be nil.
func NewInvalidator(cache *Cache, warmer WarmupEnqueuer, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{cache: cache, warmer: warmer, logger: logger}
}

// LedgerChanged bumps the cache version and asks the worker to rebuild.
// Failures are logged; the write that triggered them has already committed,
// so the work outlives a cancelled request.
func (i *Invalidator) LedgerChanged(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()
	ver, err := i.cache.Bump(ctx)
	if err != nil {
		i.logger.Warn("bump report cache", slog.Any("error", err))
	} else {
		i.logger.Debug("report cache bumped", slog.Int64("version", ver))
	}
	if i.warmer == nil {
		return
	}
	if err := i.warmer.EnqueueReportWarmup(ctx); err != nil {
		i.logger.Warn("enqueue report warmup", slog.Any("error", err))
	}
}
