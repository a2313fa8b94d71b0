package cases

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skk/jds-backend/internal/activity"
	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/shared"
)

type memoryCaseRepo struct {
	nextID       int64
	cases        map[int64]*Case
	participants map[int64][]Participant
}

func newMemoryCaseRepo() *memoryCaseRepo {
	return &memoryCaseRepo{
		nextID:       1,
		cases:        make(map[int64]*Case),
		participants: make(map[int64][]Participant),
	}
}

func (m *memoryCaseRepo) Create(_ context.Context, c Case) (int64, error) {
	id := m.nextID
	m.nextID++
	c.ID = id
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.cases[id] = &c
	return id, nil
}

func (m *memoryCaseRepo) Get(_ context.Context, id int64) (*Case, error) {
	c, ok := m.cases[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *memoryCaseRepo) List(_ context.Context, req ListCasesRequest) ([]Case, int, error) {
	var out []Case
	for _, c := range m.cases {
		if req.Status != nil && string(c.Status) != *req.Status {
			continue
		}
		if req.Priority != nil && string(c.Priority) != *req.Priority {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *memoryCaseRepo) ListByAssignedUser(_ context.Context, userID int64) ([]Case, error) {
	var out []Case
	for _, c := range m.cases {
		if c.AssignedTo != nil && *c.AssignedTo == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryCaseRepo) ListByParticipant(_ context.Context, userID int64) ([]Case, error) {
	var out []Case
	for id, parts := range m.participants {
		for _, p := range parts {
			if p.UserID == userID {
				out = append(out, *m.cases[id])
				break
			}
		}
	}
	return out, nil
}

func (m *memoryCaseRepo) ListRelatedTo(_ context.Context, userID int64) ([]Case, error) {
	seen := make(map[int64]bool)
	var out []Case
	for id, c := range m.cases {
		related := (c.CreatedBy != nil && *c.CreatedBy == userID) ||
			(c.AssignedTo != nil && *c.AssignedTo == userID)
		for _, p := range m.participants[id] {
			if p.UserID == userID {
				related = true
			}
		}
		if related && !seen[id] {
			seen[id] = true
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryCaseRepo) ListByClient(_ context.Context, clientID int64) ([]Case, error) {
	var out []Case
	for _, c := range m.cases {
		if c.ClientID != nil && *c.ClientID == clientID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryCaseRepo) Update(_ context.Context, id int64, updates map[string]any) error {
	c, ok := m.cases[id]
	if !ok {
		return shared.ErrNotFound
	}
	if v, ok := updates["title"]; ok {
		c.Title = v.(string)
	}
	if v, ok := updates["status"]; ok {
		c.Status = CaseStatus(v.(string))
	}
	if v, ok := updates["priority"]; ok {
		c.Priority = CasePriority(v.(string))
	}
	if v, ok := updates["assigned_user_id"]; ok {
		assigned := v.(int64)
		c.AssignedTo = &assigned
	}
	if v, ok := updates["last_modified_by_user_id"]; ok {
		modifier := v.(int64)
		c.LastModifiedBy = &modifier
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (m *memoryCaseRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.cases[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.cases, id)
	delete(m.participants, id)
	return nil
}

func (m *memoryCaseRepo) AddParticipant(_ context.Context, caseID, userID int64, role authz.ParticipantRole) error {
	if _, ok := m.cases[caseID]; !ok {
		return shared.ErrNotFound
	}
	for _, p := range m.participants[caseID] {
		if p.UserID == userID {
			return shared.ErrDuplicate
		}
	}
	m.participants[caseID] = append(m.participants[caseID], Participant{
		UserID:   userID,
		Username: fmt.Sprintf("user%d", userID),
		Role:     role,
		AddedAt:  time.Now(),
	})
	return nil
}

func (m *memoryCaseRepo) RemoveParticipant(_ context.Context, caseID, userID int64) error {
	parts := m.participants[caseID]
	for i, p := range parts {
		if p.UserID == userID {
			m.participants[caseID] = append(parts[:i], parts[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryCaseRepo) ListParticipants(_ context.Context, caseID int64) ([]Participant, error) {
	return m.participants[caseID], nil
}

func (m *memoryCaseRepo) AccessContext(_ context.Context, caseID int64) (authz.CaseAccess, error) {
	c, ok := m.cases[caseID]
	if !ok {
		return authz.CaseAccess{}, shared.ErrNotFound
	}
	access := authz.CaseAccess{CreatedBy: c.CreatedBy, AssignedTo: c.AssignedTo}
	for _, p := range m.participants[caseID] {
		access.Participants = append(access.Participants, authz.Participant{UserID: p.UserID, Role: p.Role})
	}
	return access, nil
}

type fixedSequence struct{ value string }

func (f *fixedSequence) Next(context.Context, string) (string, error) {
	return f.value, nil
}

type memoryTrail struct{ entries []activity.Entry }

func (m *memoryTrail) Log(_ context.Context, e activity.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func newCaseService(t *testing.T) (*Service, *memoryCaseRepo, *memoryTrail) {
	t.Helper()
	repo := newMemoryCaseRepo()
	trail := &memoryTrail{}
	svc := NewService(repo, &fixedSequence{value: "2025-06-01-0001"}, trail, slog.Default())
	return svc, repo, trail
}

func TestCreateIssuesReferenceWhenMissing(t *testing.T) {
	svc, _, trail := newCaseService(t)

	c, err := svc.Create(context.Background(), CreateCaseRequest{
		Title:    "Housing application",
		Priority: "HIGH",
	}, 7)
	require.NoError(t, err)
	require.Equal(t, "2025-06-01-0001", c.ReferenceNumber)
	require.Equal(t, StatusOpen, c.Status)
	require.NotNil(t, c.CreatedBy)
	require.Equal(t, int64(7), *c.CreatedBy)

	require.Len(t, trail.entries, 1)
	require.Equal(t, "case_created", trail.entries[0].Action)
}

func TestCreateKeepsSuppliedReference(t *testing.T) {
	svc, _, _ := newCaseService(t)

	ref := "CUSTOM-42"
	c, err := svc.Create(context.Background(), CreateCaseRequest{
		Title:           "Benefits review",
		Priority:        "LOW",
		ReferenceNumber: &ref,
	}, 1)
	require.NoError(t, err)
	require.Equal(t, "CUSTOM-42", c.ReferenceNumber)
}

func TestUpdateRecordsStatusTransition(t *testing.T) {
	svc, _, trail := newCaseService(t)

	c, err := svc.Create(context.Background(), CreateCaseRequest{Title: "Intake", Priority: "MEDIUM"}, 1)
	require.NoError(t, err)

	status := "IN_PROGRESS"
	updated, err := svc.Update(context.Background(), c.ID, UpdateCaseRequest{Status: &status}, 2)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, updated.Status)
	require.NotNil(t, updated.LastModifiedBy)
	require.Equal(t, int64(2), *updated.LastModifiedBy)

	last := trail.entries[len(trail.entries)-1]
	require.Equal(t, "case_status_changed", last.Action)
	require.Contains(t, last.Details, "OPEN -> IN_PROGRESS")
}

func TestUpdateWithoutStatusChangeRecordsPlainUpdate(t *testing.T) {
	svc, _, trail := newCaseService(t)

	c, err := svc.Create(context.Background(), CreateCaseRequest{Title: "Intake", Priority: "MEDIUM"}, 1)
	require.NoError(t, err)

	title := "Intake interview"
	_, err = svc.Update(context.Background(), c.ID, UpdateCaseRequest{Title: &title}, 1)
	require.NoError(t, err)

	last := trail.entries[len(trail.entries)-1]
	require.Equal(t, "case_updated", last.Action)
}

func TestUpdateMissingCase(t *testing.T) {
	svc, _, _ := newCaseService(t)

	title := "x"
	_, err := svc.Update(context.Background(), 99, UpdateCaseRequest{Title: &title}, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAddParticipantRejectsDuplicates(t *testing.T) {
	svc, _, _ := newCaseService(t)

	c, err := svc.Create(context.Background(), CreateCaseRequest{Title: "Shared case", Priority: "LOW"}, 1)
	require.NoError(t, err)

	list, err := svc.AddParticipant(context.Background(), c.ID, AddParticipantRequest{UserID: 5, Role: "EDITOR"}, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, authz.ParticipantEditor, list[0].Role)

	_, err = svc.AddParticipant(context.Background(), c.ID, AddParticipantRequest{UserID: 5, Role: "READ_ONLY"}, 1)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestRemoveParticipant(t *testing.T) {
	svc, _, _ := newCaseService(t)

	c, err := svc.Create(context.Background(), CreateCaseRequest{Title: "Shared case", Priority: "LOW"}, 1)
	require.NoError(t, err)

	_, err = svc.AddParticipant(context.Background(), c.ID, AddParticipantRequest{UserID: 5, Role: "READ_ONLY"}, 1)
	require.NoError(t, err)

	list, err := svc.RemoveParticipant(context.Background(), c.ID, 5, 1)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.RemoveParticipant(context.Background(), c.ID, 5, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAccessContextReflectsOwnership(t *testing.T) {
	svc, _, _ := newCaseService(t)

	assignee := int64(3)
	c, err := svc.Create(context.Background(), CreateCaseRequest{
		Title:          "Owned case",
		Priority:       "URGENT",
		AssignedUserID: &assignee,
	}, 2)
	require.NoError(t, err)

	_, err = svc.AddParticipant(context.Background(), c.ID, AddParticipantRequest{UserID: 9, Role: "EDITOR"}, 2)
	require.NoError(t, err)

	access, err := svc.AccessContext(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), *access.CreatedBy)
	require.Equal(t, int64(3), *access.AssignedTo)
	require.Len(t, access.Participants, 1)
	require.Equal(t, int64(9), access.Participants[0].UserID)
}

func TestDeleteRecordsActivity(t *testing.T) {
	svc, repo, trail := newCaseService(t)

	c, err := svc.Create(context.Background(), CreateCaseRequest{Title: "Short lived", Priority: "LOW"}, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), c.ID, 1))
	require.Empty(t, repo.cases)
	require.Equal(t, "case_deleted", trail.entries[len(trail.entries)-1].Action)
}
