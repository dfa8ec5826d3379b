package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pumpline-erp/pumpline/cmd/pumpline/cli"
	"github.com/pumpline-erp/pumpline/internal/activitylog"
	activityloghttp "github.com/pumpline-erp/pumpline/internal/activitylog/http"
	"github.com/pumpline-erp/pumpline/internal/app"
	"github.com/pumpline-erp/pumpline/internal/auth"
	"github.com/pumpline-erp/pumpline/internal/dashboard"
	"github.com/pumpline-erp/pumpline/internal/masterdata/companies"
	"github.com/pumpline-erp/pumpline/internal/masterdata/stations"
	"github.com/pumpline-erp/pumpline/internal/masterdata/suppliers"
	"github.com/pumpline-erp/pumpline/internal/observability"
	"github.com/pumpline-erp/pumpline/internal/offload"
	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/platform/cache"
	"github.com/pumpline-erp/pumpline/internal/platform/db"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/shiftclose"
	shiftclosehttp "github.com/pumpline-erp/pumpline/internal/shiftclose/http"
	"github.com/pumpline-erp/pumpline/internal/shifts"
	"github.com/pumpline-erp/pumpline/internal/users"
	"github.com/pumpline-erp/pumpline/internal/view"
	"github.com/pumpline-erp/pumpline/internal/wizard"
	"github.com/pumpline-erp/pumpline/jobs"
	"github.com/pumpline-erp/pumpline/migrations"
	"github.com/pumpline-erp/pumpline/report"
)

const submitLockTTL = 30 * time.Second

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

	if len(os.Args) > 1 {
		os.Exit(runCommand(ctx, cfg, os.Args[1:]))
	}

	logger := app.NewLogger(cfg)
	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// runCommand handles the operational subcommands: migrate and jobs.
func runCommand(ctx context.Context, cfg *app.Config, args []string) int {
	switch args[0] {
	case "migrate":
		return cli.MigrateCommand(ctx, cli.MigrateOptions{DSN: cfg.PGDSN})
	case "jobs":
		fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
		jsonOutput := fs.Bool("json", false, "print JSON")
		if len(args) < 2 {
			_, _ = os.Stderr.WriteString("usage: pumpline jobs trigger <task> | pumpline jobs stats [-json]\n")
			return 2
		}
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			_, _ = os.Stderr.WriteString(err.Error() + "\n")
			return 1
		}
		defer func() { _ = jobsCLI.Close() }()
		return jobsCLI.Command(ctx, cli.JobsOptions{Action: args[1], Task: fs.Arg(0), JSONOutput: *jsonOutput})
	default:
		_, _ = os.Stderr.WriteString("unknown command " + args[0] + " (expected migrate or jobs)\n")
		return 2
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	var journal *shared.SubmissionJournal
	if cfg.PGDSN != "" {
		pool, err := openJournal(ctx, cfg.PGDSN, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		journal = shared.NewSubmissionJournal(pool)
	} else {
		logger.Warn("PG_DSN not set, submissions are not journaled")
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	wizardStore := wizard.NewStore(redisClient, cfg.WizardTTL)
	sessionManager := shared.NewSessionManager(redisClient, "pumpline_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	sessionManager.OnDestroy(wizardStore.ClearSession)
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}
	responder := view.NewResponder(templates, csrfManager, sessionManager, logger)

	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, backend.WithObserver(metrics))

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Sessions: sessionManager, Logger: logger}

	reportClient := report.NewClient(cfg.GotenbergURL, cfg.BackendTimeout)
	pdfRenderer := report.NewRenderer(reportClient, templates)

	authService := auth.NewService(auth.NewBackendGateway(backendClient))
	authHandler := auth.NewHandler(logger, authService, responder, sessionManager)

	companiesService := companies.NewService(companies.NewRepository(backendClient), cfg.DefaultPhoneRegion)
	stationsService := stations.NewService(stations.NewRepository(backendClient), cfg.DefaultPhoneRegion)
	suppliersService := suppliers.NewService(suppliers.NewRepository(backendClient), cfg.DefaultPhoneRegion)
	usersService := users.NewService(users.NewRepository(backendClient), stationsService, cfg.DefaultPhoneRegion)

	closeOpts := []shiftclose.Option{
		shiftclose.WithLocker(shared.NewLocker(redisClient, submitLockTTL)),
		shiftclose.WithRecorder(metrics),
	}
	offloadOpts := []offload.Option{
		offload.WithLocker(shared.NewLocker(redisClient, submitLockTTL)),
		offload.WithRecorder(metrics),
	}
	if journal != nil {
		closeOpts = append(closeOpts, shiftclose.WithJournal(journal))
		offloadOpts = append(offloadOpts, offload.WithJournal(journal))
	}
	closeService := shiftclose.NewService(shiftclose.NewBackendGateway(backendClient), wizardStore, logger,
		shiftclose.Config{FuelTolerance: cfg.ReconToleranceLiters}, closeOpts...)
	offloadService := offload.NewService(offload.NewBackendGateway(backendClient), wizardStore, logger,
		cfg.DefaultPhoneRegion, offloadOpts...)
	shiftsService := shifts.NewService(shifts.NewBackendGateway(backendClient))
	activityService := activitylog.NewService(activitylog.NewRepository(backendClient))
	dashboardService := dashboard.NewService(dashboard.NewBackendGateway(backendClient), redisClient, cfg.DashboardCacheTTL, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		DashboardHandler:   dashboard.NewHandler(logger, dashboardService, responder),
		CompaniesHandler:   companies.NewHandler(logger, companiesService, responder, rbacMiddleware),
		StationsHandler:    stations.NewHandler(logger, stationsService, companiesService, responder, rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, usersService, users.Pickers{Companies: companiesService, Stations: stationsService}, responder, rbacMiddleware),
		SuppliersHandler:   suppliers.NewHandler(logger, suppliersService, companiesService, responder, rbacMiddleware),
		ShiftsHandler:      shifts.NewHandler(logger, shiftsService, responder, rbacMiddleware).WithClosingDrafts(closeService),
		ShiftCloseHandler:  shiftclosehttp.NewHandler(logger, closeService, responder, rbacMiddleware, pdfRenderer),
		OffloadHandler:     offload.NewHandler(logger, offloadService, responder, rbacMiddleware),
		ActivityHandler:    activityloghttp.NewHandler(logger, activityService, responder, rbacMiddleware, pdfRenderer),
		PermissionsHandler: rbac.NewPermissionsHandler(rbacService, responder),
		ReportHandler:      report.NewHandler(reportClient, logger),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openJournal connects to Postgres and applies pending migrations.
func openJournal(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := db.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	applied, err := db.Migrate(ctx, pool, migrations.FS)
	if err != nil {
		pool.Close()
		return nil, err
	}
	for _, name := range applied {
		logger.Info("applied migration", slog.String("name", name))
	}
	return pool, nil
}
