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

	"github.com/pumpline-erp/pumpline/internal/app"
	"github.com/pumpline-erp/pumpline/internal/observability"
	"github.com/pumpline-erp/pumpline/internal/offload"
	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/platform/db"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/shifts"
	"github.com/pumpline-erp/pumpline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))
	metrics := observability.NewMetrics()

	if cfg.BackendServiceToken == "" {
		logger.Warn("BACKEND_SERVICE_TOKEN not set, stale scans will be rejected by the backend")
	}
	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, backend.WithObserver(metrics))
	staleJob := jobs.NewStaleScanJob(
		shifts.NewBackendGateway(backendClient),
		offload.NewBackendGateway(backendClient),
		cfg.BackendServiceToken,
		cfg.StaleShiftAfter,
		cfg.StaleOffloadAfter,
		logger,
		metrics.Jobs(),
	)
	staleTask, err := jobs.NewStaleScanTask(jobs.StaleScanPayload{})
	if err != nil {
		logger.Error("build stale scan task", slog.Any("error", err))
		os.Exit(1)
	}

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskStaleWorkflowScan, Handler: staleJob.Handle},
	}
	cron := []jobs.CronRegistration{
		{Spec: "*/30 * * * *", Task: staleTask, Options: []asynq.Option{asynq.MaxRetry(1), asynq.Unique(time.Minute)}},
	}

	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()

		cleanupJob := jobs.NewJournalCleanupJob(shared.NewSubmissionJournal(pool), cfg.JournalRetention, logger, metrics.Jobs())
		cleanupTask, err := jobs.NewJournalCleanupTask(jobs.JournalCleanupPayload{})
		if err != nil {
			logger.Error("build journal cleanup task", slog.Any("error", err))
			os.Exit(1)
		}
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskJournalCleanup, Handler: cleanupJob.Handle})
		cron = append(cron, jobs.CronRegistration{Spec: "20 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	} else {
		logger.Info("PG_DSN not set, journal cleanup disabled")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// The worker exposes its own metrics; the console process has a separate registry.
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadTimeout: 5 * time.Second}
	if cfg.WorkerMetricsAddr != "" {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
