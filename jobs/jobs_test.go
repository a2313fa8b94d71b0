package jobs

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skk/jds-backend/internal/documents"
	"github.com/skk/jds-backend/internal/shared"
	"github.com/skk/jds-backend/internal/tasks"
	"github.com/skk/jds-backend/internal/users"
)

type stubDocSource struct {
	doc    documents.Document
	body   string
	stored map[int64]string
}

func (s *stubDocSource) Download(_ context.Context, id int64) (*documents.Document, io.ReadCloser, error) {
	if id != s.doc.ID {
		return nil, nil, shared.ErrNotFound
	}
	d := s.doc
	return &d, io.NopCloser(bytes.NewReader([]byte(s.body))), nil
}

func (s *stubDocSource) StoreOCRText(_ context.Context, documentID int64, text string) error {
	if s.stored == nil {
		s.stored = make(map[int64]string)
	}
	s.stored[documentID] = text
	return nil
}

func TestOCRJobExtractsPlainText(t *testing.T) {
	source := &stubDocSource{
		doc:  documents.Document{ID: 4, FileName: "notes.txt", FileType: "text/plain"},
		body: "statement of facts",
	}
	job := NewOCRJob(source, PassthroughEngine{}, slog.Default(), nil)

	task, err := NewDocumentOCRTask(DocumentOCRPayload{DocumentID: 4})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, "statement of facts", source.stored[4])
}

func TestOCRJobMarksUnsupportedTypes(t *testing.T) {
	source := &stubDocSource{
		doc: documents.Document{ID: 9, FileName: "bundle.zip", FileType: "application/zip"},
	}
	job := NewOCRJob(source, PassthroughEngine{}, slog.Default(), nil)

	task, err := NewDocumentOCRTask(DocumentOCRPayload{DocumentID: 9})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Contains(t, source.stored[9], "not supported")
}

func TestOCRJobMissingDocumentFails(t *testing.T) {
	source := &stubDocSource{doc: documents.Document{ID: 1}}
	job := NewOCRJob(source, PassthroughEngine{}, slog.Default(), nil)

	task, err := NewDocumentOCRTask(DocumentOCRPayload{DocumentID: 42})
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}

type stubTaskSource struct {
	due []tasks.Task
}

func (s *stubTaskSource) DueWithin(_ context.Context, _ time.Duration) ([]tasks.Task, error) {
	return s.due, nil
}

type stubAccounts struct {
	users map[int64]*users.User
}

func (s *stubAccounts) Get(_ context.Context, id int64) (*users.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

type recordingMail struct {
	sent []SendEmailPayload
}

func (m *recordingMail) EnqueueSendEmail(_ context.Context, payload SendEmailPayload) error {
	m.sent = append(m.sent, payload)
	return nil
}

func TestReminderJobMailsAssignees(t *testing.T) {
	due := time.Now().Add(6 * time.Hour)
	assignee := int64(3)
	source := &stubTaskSource{due: []tasks.Task{
		{ID: 1, Title: "File bundle", Priority: tasks.PriorityHigh, DueDate: &due, AssignedTo: &assignee},
		{ID: 2, Title: "Unassigned", DueDate: &due},
	}}
	accounts := &stubAccounts{users: map[int64]*users.User{
		3: {ID: 3, Username: "worker", Email: "worker@jds.local"},
	}}
	mail := &recordingMail{}
	job := NewReminderJob(source, accounts, mail, slog.Default(), nil)

	task, err := NewTaskRemindersTask(TaskRemindersPayload{WindowHours: 24})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, mail.sent, 1)
	require.Equal(t, "worker@jds.local", mail.sent[0].To)
	require.Contains(t, mail.sent[0].Subject, "File bundle")
}

func TestReminderJobSkipsUnknownAssignee(t *testing.T) {
	due := time.Now().Add(2 * time.Hour)
	assignee := int64(77)
	source := &stubTaskSource{due: []tasks.Task{
		{ID: 1, Title: "Orphaned", DueDate: &due, AssignedTo: &assignee},
	}}
	mail := &recordingMail{}
	job := NewReminderJob(source, &stubAccounts{}, mail, slog.Default(), nil)

	task, err := NewTaskRemindersTask(TaskRemindersPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Empty(t, mail.sent)
}

type stubWarmer struct {
	calls int
	err   error
}

func (s *stubWarmer) Warm(_ context.Context) error {
	s.calls++
	return s.err
}

func TestWarmupJob(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewWarmupJob(warmer, slog.Default(), nil)

	require.NoError(t, job.Handle(context.Background(), NewAnalyticsWarmupTask()))
	require.Equal(t, 1, warmer.calls)
}

func TestSignatureNotifierBuildsLink(t *testing.T) {
	accounts := &stubAccounts{users: map[int64]*users.User{
		5: {ID: 5, Username: "signer", Email: "signer@jds.local"},
	}}
	mail := &recordingMail{}
	notifier := &SignatureNotifier{Mail: mail, Accounts: accounts, BaseURL: "https://jds.example.com"}

	doc := documents.Document{ID: 2, FileName: "agreement.pdf"}
	sig := documents.Signature{DocumentID: 2, SignerID: 5, Token: "tok-123", ExpiresAt: time.Now().Add(24 * time.Hour)}
	require.NoError(t, notifier.SignatureRequested(context.Background(), doc, sig))

	require.Len(t, mail.sent, 1)
	require.Equal(t, "signer@jds.local", mail.sent[0].To)
	require.Contains(t, mail.sent[0].Body, "tok-123")
	require.Contains(t, mail.sent[0].Body, "https://jds.example.com")
}
