package tasks

import (
	"context"
	"fmt"
	"time"
)

// RepositoryPort defines data access methods for tasks.
type RepositoryPort interface {
	List(ctx context.Context) ([]Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	ListByCase(ctx context.Context, caseID int64) ([]Task, error)
	ListByAssignedUser(ctx context.Context, userID int64) ([]Task, error)
	ListByStatus(ctx context.Context, status TaskStatus) ([]Task, error)
	ListOverdue(ctx context.Context, now time.Time) ([]Task, error)
	ListDueWithin(ctx context.Context, now time.Time, horizon time.Duration) ([]Task, error)
	Create(ctx context.Context, t Task) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
}

// Service handles task business logic.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns all tasks.
func (s *Service) List(ctx context.Context) ([]Task, error) {
	return s.repo.List(ctx)
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id int64) (*Task, error) {
	return s.repo.Get(ctx, id)
}

// ListByCase returns the tasks attached to a case.
func (s *Service) ListByCase(ctx context.Context, caseID int64) ([]Task, error) {
	return s.repo.ListByCase(ctx, caseID)
}

// ListByAssignedUser returns the tasks assigned to a user.
func (s *Service) ListByAssignedUser(ctx context.Context, userID int64) ([]Task, error) {
	return s.repo.ListByAssignedUser(ctx, userID)
}

// ListByStatus returns the tasks in one lifecycle state.
func (s *Service) ListByStatus(ctx context.Context, status TaskStatus) ([]Task, error) {
	return s.repo.ListByStatus(ctx, status)
}

// ListOverdue returns open tasks whose due date has passed.
func (s *Service) ListOverdue(ctx context.Context) ([]Task, error) {
	return s.repo.ListOverdue(ctx, s.now())
}

// Create opens a task on a case.
func (s *Service) Create(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	t := Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      StatusTodo,
		Priority:    PriorityMedium,
		DueDate:     req.DueDate,
		CaseID:      req.CaseID,
		AssignedTo:  req.AssignedUserID,
	}
	if req.Status != nil {
		t.Status = TaskStatus(*req.Status)
	}
	if req.Priority != nil {
		t.Priority = TaskPriority(*req.Priority)
	}

	id, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Update applies the requested changes to a task.
func (s *Service) Update(ctx context.Context, id int64, req UpdateTaskRequest) (*Task, error) {
	updates := map[string]any{}
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
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.AssignedUserID != nil {
		updates["assigned_user_id"] = *req.AssignedUserID
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Assign moves the task to another user.
func (s *Service) Assign(ctx context.Context, id, userID int64) (*Task, error) {
	if err := s.repo.Update(ctx, id, map[string]any{"assigned_user_id": userID}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// DueWithin lists open tasks whose due date falls inside the horizon,
// used by the reminder job.
func (s *Service) DueWithin(ctx context.Context, horizon time.Duration) ([]Task, error) {
	return s.repo.ListDueWithin(ctx, s.now(), horizon)
}
