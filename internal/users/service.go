package users

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/skk/jds-backend/internal/authz"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u User) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	SetRoles(ctx context.Context, id int64, roles []authz.Role) error
	Delete(ctx context.Context, id int64) error
	RolesOf(ctx context.Context, id int64) ([]authz.Role, error)
}

// Service handles user management business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new user account with hashed credentials.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Roles:        parseRoles(req.Roles),
		IsActive:     true,
	}
	id, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.ID = id
	return &user, nil
}

// Update applies the requested changes to a user account.
func (s *Service) Update(ctx context.Context, id int64, req UpdateUserRequest) (*User, error) {
	updates := make(map[string]any)
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updates["password_hash"] = string(hash)
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	if req.Roles != nil {
		if err := s.repo.SetRoles(ctx, id, parseRoles(req.Roles)); err != nil {
			return nil, fmt.Errorf("set roles: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a user account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// RolesOf implements the authz user directory over stored assignments.
func (s *Service) RolesOf(ctx context.Context, id int64) ([]authz.Role, error) {
	return s.repo.RolesOf(ctx, id)
}

func parseRoles(raw []string) []authz.Role {
	roles := make([]authz.Role, 0, len(raw))
	seen := make(map[authz.Role]struct{}, len(raw))
	for _, r := range raw {
		role := authz.Role(r)
		if !role.Valid() {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles
}
