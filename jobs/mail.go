package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/skk/jds-backend/internal/jobs"
)

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	Addr string
	From string
}

// Send submits the message to the relay.
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg))
}

// MailJob processes queued emails.
type MailJob struct {
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewMailJob wires the mail handler.
func NewMailJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *MailJob {
	return &MailJob{Mailer: mailer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Mailer == nil {
		return errors.New("mail: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTypeSendEmail)
	err := j.Mailer.Send(ctx, payload.To, payload.Subject, payload.Body)
	if err != nil {
		j.Logger.Error("send email",
			slog.String("to", payload.To), slog.Any("error", err))
		return tracker.End(fmt.Errorf("send email: %w", err))
	}
	j.Logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return tracker.End(nil)
}
