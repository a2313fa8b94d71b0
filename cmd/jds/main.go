package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/skk/jds-backend/internal/activity"
	"github.com/skk/jds-backend/internal/analytics"
	"github.com/skk/jds-backend/internal/app"
	"github.com/skk/jds-backend/internal/auth"
	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/cases"
	"github.com/skk/jds-backend/internal/clients"
	"github.com/skk/jds-backend/internal/documents"
	"github.com/skk/jds-backend/internal/notes"
	"github.com/skk/jds-backend/internal/observability"
	"github.com/skk/jds-backend/internal/platform/cache"
	"github.com/skk/jds-backend/internal/platform/db"
	"github.com/skk/jds-backend/internal/shared"
	"github.com/skk/jds-backend/internal/tasks"
	"github.com/skk/jds-backend/internal/users"
	"github.com/skk/jds-backend/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	registry := authz.NewRegistry()
	authzMiddleware := authz.Middleware{Logger: logger}

	sequences := shared.NewReferenceSequence(dbpool)

	usersService := users.NewService(users.NewRepository(dbpool))
	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, registry, sessionManager, csrfManager)

	activityService := activity.NewService(activity.NewRepository(dbpool))
	activityHandler := activity.NewHandler(logger, activityService, authzMiddleware)

	casesService := cases.NewService(cases.NewRepository(dbpool), sequences, activityService, logger)
	evaluator := authz.NewEvaluator(usersService, casesService)
	casesHandler := cases.NewHandler(logger, casesService, evaluator, authzMiddleware)

	clientsService := clients.NewService(clients.NewRepository(dbpool), sequences)
	clientsHandler := clients.NewHandler(logger, clientsService, casesService, authzMiddleware)

	tasksService := tasks.NewService(tasks.NewRepository(dbpool))
	tasksHandler := tasks.NewHandler(logger, tasksService, authzMiddleware)

	notesService := notes.NewService(notes.NewRepository(dbpool))
	notesHandler := notes.NewHandler(logger, notesService, authzMiddleware)

	blobs, err := documents.NewFSStore(cfg.DocumentDir)
	if err != nil {
		logger.Error("open document store", slog.Any("error", err))
		os.Exit(1)
	}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect job queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	documentsService := documents.NewService(documents.NewRepository(dbpool), blobs, jobClient, logger)
	documentsService.SetNotifier(&jobs.SignatureNotifier{
		Mail:     jobClient,
		Accounts: usersService,
		BaseURL:  cfg.SignatureBaseURL,
	})
	documentsHandler := documents.NewHandler(logger, documentsService, authzMiddleware)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsCache.ListenForInvalidation(ctx)
	analyticsService := analytics.NewService(analytics.NewRepository(dbpool), analyticsCache)
	analyticsHandler := analytics.NewHandler(logger, analyticsService, authzMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Registry:         registry,
		UserSource:       usersService,
		AuthHandler:      authHandler,
		UsersHandler:     users.NewHandler(logger, usersService, authzMiddleware),
		ClientsHandler:   clientsHandler,
		CasesHandler:     casesHandler,
		TasksHandler:     tasksHandler,
		NotesHandler:     notesHandler,
		DocumentsHandler: documentsHandler,
		ActivityHandler:  activityHandler,
		AnalyticsHandler: analyticsHandler,
		JobsHandler:      jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
