package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/skk/jds-backend/internal/jobs"
	"github.com/skk/jds-backend/internal/tasks"
	"github.com/skk/jds-backend/internal/users"
)

const defaultReminderWindow = 24 * time.Hour

// TaskSource lists tasks approaching their due date.
type TaskSource interface {
	DueWithin(ctx context.Context, horizon time.Duration) ([]tasks.Task, error)
}

// AccountSource resolves assignees to their email addresses.
type AccountSource interface {
	Get(ctx context.Context, id int64) (*users.User, error)
}

// MailEnqueuer queues outbound mail.
type MailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) error
}

// ReminderJob mails assignees about tasks that come due soon.
type ReminderJob struct {
	Tasks    TaskSource
	Accounts AccountSource
	Mail     MailEnqueuer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewReminderJob wires the reminder handler.
func NewReminderJob(taskSrc TaskSource, accounts AccountSource, mail MailEnqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReminderJob {
	return &ReminderJob{Tasks: taskSrc, Accounts: accounts, Mail: mail, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeTaskReminders tasks.
func (j *ReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Tasks == nil || j.Accounts == nil || j.Mail == nil {
		return errors.New("reminders: handler not configured")
	}
	var payload TaskRemindersPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	window := defaultReminderWindow
	if payload.WindowHours > 0 {
		window = time.Duration(payload.WindowHours) * time.Hour
	}

	tracker := j.Metrics.Track(TaskTypeTaskReminders)
	sent, err := j.sweep(ctx, window)
	if err != nil {
		j.Logger.Error("reminder sweep", slog.Any("error", err))
	} else {
		j.Logger.Info("reminder sweep complete", slog.Int("sent", sent))
	}
	return tracker.End(err)
}

func (j *ReminderJob) sweep(ctx context.Context, window time.Duration) (int, error) {
	due, err := j.Tasks.DueWithin(ctx, window)
	if err != nil {
		return 0, fmt.Errorf("list due tasks: %w", err)
	}

	sent := 0
	for _, task := range due {
		if task.AssignedTo == nil || task.DueDate == nil {
			continue
		}
		account, err := j.Accounts.Get(ctx, *task.AssignedTo)
		if err != nil {
			j.Logger.Warn("reminder assignee lookup",
				slog.Int64("task_id", task.ID), slog.Int64("user_id", *task.AssignedTo), slog.Any("error", err))
			continue
		}
		payload := SendEmailPayload{
			To:      account.Email,
			Subject: fmt.Sprintf("Task due soon: %s", task.Title),
			Body: fmt.Sprintf("Task %q is due on %s. Priority: %s.",
				task.Title, task.DueDate.Format("2006-01-02"), task.Priority),
		}
		if err := j.Mail.EnqueueSendEmail(ctx, payload); err != nil {
			return sent, fmt.Errorf("enqueue reminder: %w", err)
		}
		sent++
	}
	return sent, nil
}
