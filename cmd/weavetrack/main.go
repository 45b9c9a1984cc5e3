package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/weavetrack/weavetrack/internal/app"
	"github.com/weavetrack/weavetrack/internal/lots"
	"github.com/weavetrack/weavetrack/internal/masterdata"
	"github.com/weavetrack/weavetrack/internal/observability"
	"github.com/weavetrack/weavetrack/internal/orders"
	"github.com/weavetrack/weavetrack/internal/platform/cache"
	"github.com/weavetrack/weavetrack/internal/platform/db"
	"github.com/weavetrack/weavetrack/internal/reports"
	reporthttp "github.com/weavetrack/weavetrack/internal/reports/http"
	"github.com/weavetrack/weavetrack/internal/shared"
	"github.com/weavetrack/weavetrack/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Reports degrade to uncached reads when redis is unavailable.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	var reportCache *reports.Cache
	if redisClient != nil {
		reportCache = reports.NewCache(redisClient, cfg.ReportCacheTTL)
	}
	reportService := reports.NewService(reports.NewRepository(dbpool), reportCache, logger)
	if err := reportCache.ListenForBumps(ctx, metrics.SetReportCacheVersion); err != nil {
		logger.Warn("subscribe report cache bumps", slog.Any("error", err))
	}
	invalidator := reports.NewInvalidator(reportCache, jobClient, logger)

	masterService := masterdata.NewService(masterdata.NewRepository(dbpool))
	masterHandler := masterdata.NewHandler(logger, masterService)

	orderService := orders.NewService(orders.NewRepository(dbpool), masterService, auditLogger, invalidator, logger)
	orderHandler := orders.NewHandler(logger, orderService)

	lotService := lots.NewService(lots.NewRepository(dbpool), masterService, auditLogger, idempotencyStore, logger)
	lotService.SetNotifier(invalidator)
	lotService.SetObserver(metrics)
	lotHandler := lots.NewHandler(logger, lotService)

	reportHandler := reporthttp.NewHandler(logger, reportService)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		MasterDataHandler: masterHandler,
		OrdersHandler:     orderHandler,
		LotsHandler:       lotHandler,
		ReportsHandler:    reportHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
