package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeDocumentOCR extracts text from an uploaded document.
	TaskTypeDocumentOCR = "document:ocr_extract"
	// TaskTypeTaskReminders mails assignees about tasks approaching their
	// due date.
	TaskTypeTaskReminders = "tasks:due_reminders"
	// TaskTypeAnalyticsWarmup precomputes the dashboard caches.
	TaskTypeAnalyticsWarmup = "analytics:warmup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// DocumentOCRPayload identifies the document to extract text from.
type DocumentOCRPayload struct {
	DocumentID int64 `json:"document_id"`
}

// NewDocumentOCRTask constructs an OCR extraction task.
func NewDocumentOCRTask(payload DocumentOCRPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDocumentOCR, data), nil
}

// TaskRemindersPayload bounds the reminder window.
type TaskRemindersPayload struct {
	WindowHours int `json:"window_hours"`
}

// NewTaskRemindersTask constructs a due-date reminder sweep.
func NewTaskRemindersTask(payload TaskRemindersPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTaskReminders, data), nil
}

// NewAnalyticsWarmupTask constructs a cache warmup task.
func NewAnalyticsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAnalyticsWarmup, nil)
}
