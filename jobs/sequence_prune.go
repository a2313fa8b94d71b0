package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/skk/jds-backend/internal/jobs"
)

// TaskTypeSequencePrune drops stale daily reference counters.
const TaskTypeSequencePrune = "sequences:prune"

const sequenceRetention = 90 * 24 * time.Hour

// NewSequencePruneTask constructs a prune task.
func NewSequencePruneTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSequencePrune, nil)
}

// SequencePruner removes counters older than the retention window.
type SequencePruner interface {
	Prune(ctx context.Context, olderThan time.Duration) error
}

// PruneJob clears daily sequence counters nobody will read again.
type PruneJob struct {
	Sequences SequencePruner
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewPruneJob wires the prune handler.
func NewPruneJob(sequences SequencePruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *PruneJob {
	return &PruneJob{Sequences: sequences, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSequencePrune tasks.
func (j *PruneJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Sequences == nil {
		return errors.New("prune: handler not configured")
	}
	tracker := j.Metrics.Track(TaskTypeSequencePrune)
	err := j.Sequences.Prune(ctx, sequenceRetention)
	if err != nil {
		j.Logger.Error("sequence prune", slog.Any("error", err))
	}
	return tracker.End(err)
}
