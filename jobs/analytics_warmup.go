package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/skk/jds-backend/internal/jobs"
)

// Warmer precomputes the dashboard caches.
type Warmer interface {
	Warm(ctx context.Context) error
}

// WarmupJob keeps the analytics caches hot so dashboards never pay for a
// cold aggregation.
type WarmupJob struct {
	Analytics Warmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewWarmupJob wires the warmup handler.
func NewWarmupJob(analytics Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{Analytics: analytics, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeAnalyticsWarmup tasks.
func (j *WarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("warmup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskTypeAnalyticsWarmup)
	err := j.Analytics.Warm(ctx)
	if err != nil {
		j.Logger.Error("analytics warmup", slog.Any("error", err))
	} else {
		j.Logger.Info("analytics caches warmed")
	}
	return tracker.End(err)
}
