package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/shared"
)

type memoryUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]User)}
}

func (r *memoryUserRepo) List(ctx context.Context) ([]User, error) {
	list := make([]User, 0, len(r.users))
	for _, u := range r.users {
		list = append(list, u)
	}
	return list, nil
}

func (r *memoryUserRepo) Get(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (r *memoryUserRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryUserRepo) Create(ctx context.Context, u User) (int64, error) {
	r.nextID++
	u.ID = r.nextID
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	if v, ok := updates["email"]; ok {
		u.Email = v.(string)
	}
	if v, ok := updates["is_active"]; ok {
		u.IsActive = v.(bool)
	}
	if v, ok := updates["password_hash"]; ok {
		u.PasswordHash = v.(string)
	}
	r.users[id] = u
	return nil
}

func (r *memoryUserRepo) SetRoles(ctx context.Context, id int64, roles []authz.Role) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Roles = roles
	r.users[id] = u
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) RolesOf(ctx context.Context, id int64) ([]authz.Role, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u.Roles, nil
}

func TestCreateUserHashesPasswordAndFiltersRoles(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "worker",
		Email:    "worker@jds.local",
		Password: "hunter2hunter2",
		Roles:    []string{"CASE_WORKER", "CASE_WORKER", "WIZARD"},
	})
	require.NoError(t, err)
	require.Equal(t, []authz.Role{authz.RoleCaseWorker}, user.Roles)
	require.True(t, user.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2hunter2")))
}

func TestUpdateUserRoles(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "sup",
		Email:    "sup@jds.local",
		Password: "hunter2hunter2",
		Roles:    []string{"CASE_WORKER"},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateUserRequest{
		Roles: []string{"SUPERVISOR", "CASE_WORKER"},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []authz.Role{authz.RoleSupervisor, authz.RoleCaseWorker}, updated.Roles)

	roles, err := svc.RolesOf(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, roles, 2)
}

func TestRolesOfMissingUser(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	_, err := svc.RolesOf(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
