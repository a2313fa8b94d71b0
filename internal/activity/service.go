package activity

import (
	"context"
	"errors"
)

// RepositoryPort defines data access methods for the activity log.
type RepositoryPort interface {
	Insert(ctx context.Context, e Entry) error
	ListByCase(ctx context.Context, caseID int64) ([]Entry, error)
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]Entry, error)
	ListByActor(ctx context.Context, actorID int64) ([]Entry, error)
	ListAll(ctx context.Context) ([]Entry, error)
}

// Service records and lists activity entries.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Log appends one entry to the activity trail.
func (s *Service) Log(ctx context.Context, e Entry) error {
	if e.Action == "" || e.EntityType == "" {
		return errors.New("activity: action and entity type required")
	}
	return s.repo.Insert(ctx, e)
}

// ByCase lists recent entries for one case.
func (s *Service) ByCase(ctx context.Context, caseID int64) ([]Entry, error) {
	return s.repo.ListByCase(ctx, caseID)
}

// ByEntity lists recent entries for one entity.
func (s *Service) ByEntity(ctx context.Context, entityType string, entityID int64) ([]Entry, error) {
	return s.repo.ListByEntity(ctx, entityType, entityID)
}

// ByActor lists recent entries recorded for one user.
func (s *Service) ByActor(ctx context.Context, actorID int64) ([]Entry, error) {
	return s.repo.ListByActor(ctx, actorID)
}

// All lists the most recent entries across the system.
func (s *Service) All(ctx context.Context) ([]Entry, error) {
	return s.repo.ListAll(ctx)
}
