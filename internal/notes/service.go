package notes

import (
	"context"
	"fmt"

	"github.com/skk/jds-backend/internal/shared"
)

// RepositoryPort defines data access methods for notes.
type RepositoryPort interface {
	List(ctx context.Context) ([]Note, error)
	Get(ctx context.Context, id int64) (*Note, error)
	ListByCase(ctx context.Context, caseID int64) ([]Note, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]Note, error)
	Create(ctx context.Context, n Note) (int64, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	Delete(ctx context.Context, id int64) error
}

// Service handles note business logic. Notes may only be edited or
// removed by their author.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all notes.
func (s *Service) List(ctx context.Context) ([]Note, error) {
	return s.repo.List(ctx)
}

// Get returns one note.
func (s *Service) Get(ctx context.Context, id int64) (*Note, error) {
	return s.repo.Get(ctx, id)
}

// ListByCase returns the notes on a case.
func (s *Service) ListByCase(ctx context.Context, caseID int64) ([]Note, error) {
	return s.repo.ListByCase(ctx, caseID)
}

// ListByAuthor returns the notes one user wrote.
func (s *Service) ListByAuthor(ctx context.Context, authorID int64) ([]Note, error) {
	return s.repo.ListByAuthor(ctx, authorID)
}

// Create attaches a note to a case.
func (s *Service) Create(ctx context.Context, req CreateNoteRequest, authorID int64) (*Note, error) {
	id, err := s.repo.Create(ctx, Note{
		Content:  req.Content,
		AuthorID: authorID,
		CaseID:   req.CaseID,
	})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Update rewrites a note's content when the caller wrote it.
func (s *Service) Update(ctx context.Context, id int64, req UpdateNoteRequest, actorID int64) (*Note, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.AuthorID != actorID {
		return nil, fmt.Errorf("update note %d: %w", id, shared.ErrForbidden)
	}
	if err := s.repo.UpdateContent(ctx, id, req.Content); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a note when the caller wrote it.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.AuthorID != actorID {
		return fmt.Errorf("delete note %d: %w", id, shared.ErrForbidden)
	}
	return s.repo.Delete(ctx, id)
}
