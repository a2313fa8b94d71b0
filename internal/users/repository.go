package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/platform/db"
	"github.com/skk/jds-backend/internal/shared"
)

// Repository provides PostgreSQL backed persistence for user accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, email, password_hash, is_active, created_at, updated_at`

func (r *Repository) scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// List returns all users with their role assignments.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var list []User
	index := make(map[int64]int)
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		index[u.ID] = len(list)
		list = append(list, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	roleRows, err := r.pool.Query(ctx, `SELECT user_id, role FROM user_roles ORDER BY user_id, role`)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var userID int64
		var role string
		if err := roleRows.Scan(&userID, &role); err != nil {
			return nil, err
		}
		if i, ok := index[userID]; ok {
			list[i].Roles = append(list[i].Roles, authz.Role(role))
		}
	}
	return list, roleRows.Err()
}

// Get returns one user by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*User, error) {
	u, err := r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	u.Roles, err = r.rolesOf(ctx, id)
	return u, err
}

// FindByUsername returns one user by username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	u, err := r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, err
	}
	u.Roles, err = r.rolesOf(ctx, u.ID)
	return u, err
}

// Create inserts a user and its role assignments.
func (r *Repository) Create(ctx context.Context, u User) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (username, email, password_hash, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING id`,
			u.Username, u.Email, u.PasswordHash, u.IsActive).Scan(&id)
		if err != nil {
			return mapUniqueViolation(err)
		}
		for _, role := range u.Roles {
			if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, id, string(role)); err != nil {
				return mapUniqueViolation(err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update applies column updates to a user.
func (r *Repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := `updated_at = NOW()`
	args := []any{id}
	i := 2
	for col, val := range updates {
		set += fmt.Sprintf(", %s = $%d", col, i)
		args = append(args, val)
		i++
	}
	tag, err := r.pool.Exec(ctx, `UPDATE users SET `+set+` WHERE id = $1`, args...)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetRoles replaces the role assignments of a user.
func (r *Repository) SetRoles(ctx context.Context, id int64, roles []authz.Role) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		for _, role := range roles {
			if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, id, string(role)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a user.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RolesOf returns the roles held by a user, or shared.ErrNotFound when the
// user record does not exist. A user without roles yields an empty set.
func (r *Repository) RolesOf(ctx context.Context, id int64) ([]authz.Role, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return r.rolesOf(ctx, id)
}

func (r *Repository) rolesOf(ctx context.Context, id int64) ([]authz.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []authz.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, authz.Role(role))
	}
	return roles, rows.Err()
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
