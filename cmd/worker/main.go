package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/skk/jds-backend/internal/analytics"
	"github.com/skk/jds-backend/internal/app"
	"github.com/skk/jds-backend/internal/documents"
	jobmetrics "github.com/skk/jds-backend/internal/jobs"
	"github.com/skk/jds-backend/internal/platform/cache"
	"github.com/skk/jds-backend/internal/platform/db"
	"github.com/skk/jds-backend/internal/shared"
	"github.com/skk/jds-backend/internal/tasks"
	"github.com/skk/jds-backend/internal/users"
	"github.com/skk/jds-backend/jobs"
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

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	metrics := jobmetrics.NewMetrics(nil)

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

	documentsService := documents.NewService(documents.NewRepository(pool), blobs, jobClient, logger)
	tasksService := tasks.NewService(tasks.NewRepository(pool))
	usersService := users.NewService(users.NewRepository(pool))
	sequences := shared.NewReferenceSequence(pool)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsCache.ListenForInvalidation(ctx)
	analyticsService := analytics.NewService(analytics.NewRepository(pool), analyticsCache)

	mailer := &jobs.SMTPMailer{
		Addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From: cfg.SMTPFrom,
	}

	mailJob := jobs.NewMailJob(mailer, logger, metrics)
	ocrJob := jobs.NewOCRJob(documentsService, jobs.PassthroughEngine{}, logger, metrics)
	reminderJob := jobs.NewReminderJob(tasksService, usersService, jobClient, logger, metrics)
	warmupJob := jobs.NewWarmupJob(analyticsService, logger, metrics)
	pruneJob := jobs.NewPruneJob(sequences, logger, metrics)

	remindersTask, err := jobs.NewTaskRemindersTask(jobs.TaskRemindersPayload{WindowHours: 24})
	if err != nil {
		logger.Error("build reminders task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskTypeDocumentOCR, Handler: ocrJob.Handle},
			{Type: jobs.TaskTypeTaskReminders, Handler: reminderJob.Handle},
			{Type: jobs.TaskTypeAnalyticsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskTypeSequencePrune, Handler: pruneJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 7 * * *", Task: remindersTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "15 1 * * *", Task: jobs.NewAnalyticsWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * 0", Task: jobs.NewSequencePruneTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
