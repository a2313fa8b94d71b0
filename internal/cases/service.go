package cases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skk/jds-backend/internal/activity"
	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/shared"
)

// RepositoryPort defines data access methods for cases.
type RepositoryPort interface {
	Create(ctx context.Context, c Case) (int64, error)
	Get(ctx context.Context, id int64) (*Case, error)
	List(ctx context.Context, req ListCasesRequest) ([]Case, int, error)
	ListByAssignedUser(ctx context.Context, userID int64) ([]Case, error)
	ListByParticipant(ctx context.Context, userID int64) ([]Case, error)
	ListRelatedTo(ctx context.Context, userID int64) ([]Case, error)
	ListByClient(ctx context.Context, clientID int64) ([]Case, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	AddParticipant(ctx context.Context, caseID, userID int64, role authz.ParticipantRole) error
	RemoveParticipant(ctx context.Context, caseID, userID int64) error
	ListParticipants(ctx context.Context, caseID int64) ([]Participant, error)
	AccessContext(ctx context.Context, caseID int64) (authz.CaseAccess, error)
}

// ReferenceSource issues reference numbers for newly opened cases.
type ReferenceSource interface {
	Next(ctx context.Context, scope string) (string, error)
}

// Service handles case business logic.
type Service struct {
	repo     RepositoryPort
	sequence ReferenceSource
	trail    activity.Recorder
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, sequence ReferenceSource, trail activity.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, sequence: sequence, trail: trail, logger: logger}
}

// Create opens a new case, issuing a reference number when none is supplied.
func (s *Service) Create(ctx context.Context, req CreateCaseRequest, creatorID int64) (*Case, error) {
	status := StatusOpen
	if req.Status != nil {
		status = CaseStatus(*req.Status)
	}

	ref := ""
	if req.ReferenceNumber != nil && *req.ReferenceNumber != "" {
		ref = *req.ReferenceNumber
	} else {
		var err error
		ref, err = s.sequence.Next(ctx, shared.SequenceScopeCase)
		if err != nil {
			return nil, fmt.Errorf("issue case reference: %w", err)
		}
	}

	c := Case{
		ReferenceNumber: ref,
		Title:           req.Title,
		Description:     req.Description,
		Status:          status,
		Priority:        CasePriority(req.Priority),
		DueDate:         req.DueDate,
		ClientID:        req.ClientID,
		CreatedBy:       &creatorID,
		AssignedTo:      req.AssignedUserID,
		LastModifiedBy:  &creatorID,
	}
	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}
	c.ID = id

	s.record(ctx, activity.Entry{
		Action:     "case_created",
		EntityType: "CASE",
		EntityID:   id,
		CaseID:     &id,
		ActorID:    &creatorID,
		Details:    fmt.Sprintf("Created case: %s (Priority: %s)", c.Title, c.Priority),
	})
	return &c, nil
}

// Get returns one case.
func (s *Service) Get(ctx context.Context, id int64) (*Case, error) {
	return s.repo.Get(ctx, id)
}

// List returns cases matching the filters.
func (s *Service) List(ctx context.Context, req ListCasesRequest) ([]Case, int, error) {
	return s.repo.List(ctx, req)
}

// ListByAssignedUser returns cases assigned to the user.
func (s *Service) ListByAssignedUser(ctx context.Context, userID int64) ([]Case, error) {
	return s.repo.ListByAssignedUser(ctx, userID)
}

// ListByParticipant returns cases where the user participates.
func (s *Service) ListByParticipant(ctx context.Context, userID int64) ([]Case, error) {
	return s.repo.ListByParticipant(ctx, userID)
}

// ListRelatedTo returns the caller's cases (created, assigned or shared).
func (s *Service) ListRelatedTo(ctx context.Context, userID int64) ([]Case, error) {
	return s.repo.ListRelatedTo(ctx, userID)
}

// ListByClient returns the cases opened for one client.
func (s *Service) ListByClient(ctx context.Context, clientID int64) ([]Case, error) {
	return s.repo.ListByClient(ctx, clientID)
}

// Update applies the requested changes to a case.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCaseRequest, modifierID int64) (*Case, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"last_modified_by_user_id": modifierID}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.IDChecked != nil {
		updates["id_checked"] = *req.IDChecked
	}
	if req.IDCheckedNote != nil {
		updates["id_checked_comment"] = *req.IDCheckedNote
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.ClientID != nil {
		updates["client_id"] = *req.ClientID
	}
	if req.AssignedUserID != nil {
		updates["assigned_user_id"] = *req.AssignedUserID
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update case: %w", err)
	}

	if req.Status != nil && CaseStatus(*req.Status) != existing.Status {
		s.record(ctx, activity.Entry{
			Action:     "case_status_changed",
			EntityType: "CASE",
			EntityID:   id,
			CaseID:     &id,
			ActorID:    &modifierID,
			Details:    fmt.Sprintf("Status %s -> %s", existing.Status, *req.Status),
		})
	} else {
		s.record(ctx, activity.Entry{
			Action:     "case_updated",
			EntityType: "CASE",
			EntityID:   id,
			CaseID:     &id,
			ActorID:    &modifierID,
			Details:    fmt.Sprintf("Updated case: %s", existing.Title),
		})
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a case and everything attached to it.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, activity.Entry{
		Action:     "case_deleted",
		EntityType: "CASE",
		EntityID:   id,
		ActorID:    &actorID,
	})
	return nil
}

// AddParticipant grants one user case-scoped access. Duplicate grants are
// rejected by the storage layer, keeping the participant set unique.
func (s *Service) AddParticipant(ctx context.Context, caseID int64, req AddParticipantRequest, actorID int64) ([]Participant, error) {
	if err := s.repo.AddParticipant(ctx, caseID, req.UserID, authz.ParticipantRole(req.Role)); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}
	s.record(ctx, activity.Entry{
		Action:     "participant_added",
		EntityType: "CASE",
		EntityID:   caseID,
		CaseID:     &caseID,
		ActorID:    &actorID,
		Details:    fmt.Sprintf("Added user %d as %s", req.UserID, req.Role),
	})
	return s.repo.ListParticipants(ctx, caseID)
}

// RemoveParticipant revokes case-scoped access.
func (s *Service) RemoveParticipant(ctx context.Context, caseID, userID, actorID int64) ([]Participant, error) {
	if err := s.repo.RemoveParticipant(ctx, caseID, userID); err != nil {
		return nil, err
	}
	s.record(ctx, activity.Entry{
		Action:     "participant_removed",
		EntityType: "CASE",
		EntityID:   caseID,
		CaseID:     &caseID,
		ActorID:    &actorID,
		Details:    fmt.Sprintf("Removed user %d", userID),
	})
	return s.repo.ListParticipants(ctx, caseID)
}

// Participants returns the participant set of a case.
func (s *Service) Participants(ctx context.Context, caseID int64) ([]Participant, error) {
	return s.repo.ListParticipants(ctx, caseID)
}

// AccessContext implements the authz case directory.
func (s *Service) AccessContext(ctx context.Context, caseID int64) (authz.CaseAccess, error) {
	return s.repo.AccessContext(ctx, caseID)
}

// record writes to the activity trail; a trail failure never fails the
// operation that triggered it.
func (s *Service) record(ctx context.Context, e activity.Entry) {
	if s.trail == nil {
		return
	}
	if err := s.trail.Log(ctx, e); err != nil && s.logger != nil {
		s.logger.Warn("record activity", slog.String("action", e.Action), slog.Any("error", err))
	}
}
