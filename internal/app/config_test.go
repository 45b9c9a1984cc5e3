package app

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://example")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 5, cfg.WorkerConcurrency)
	assert.Equal(t, "*/30 * * * *", cfg.ReportWarmupCron)
	assert.Equal(t, 72*time.Hour, cfg.IdempotencyRetention)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{PGDSN: "postgres://example", RateLimitPerMinute: 1, WorkerConcurrency: 1}
	require.NoError(t, base.Validate())

	noDSN := base
	noDSN.PGDSN = "  "
	require.Error(t, noDSN.Validate())

	noWorkers := base
	noWorkers.WorkerConcurrency = 0
	require.Error(t, noWorkers.Validate())
}

func TestIsProductionNilSafe(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.IsProduction())
	assert.True(t, (&Config{AppEnv: "production"}).IsProduction())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
