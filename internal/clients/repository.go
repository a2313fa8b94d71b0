package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skk/jds-backend/internal/shared"
)

// Repository provides PostgreSQL backed persistence for clients.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, reference_number, firstname, lastname, email, ni_number,
	phone, address, company, occupation, additional_note,
	has_conflict_of_interest, conflict_of_interest_comment,
	created_by_user_id, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.ReferenceNumber, &c.FirstName, &c.LastName, &c.Email, &c.NINumber,
		&c.Phone, &c.Address, &c.Company, &c.Occupation, &c.AdditionalNote,
		&c.HasConflict, &c.ConflictComment,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func collectClients(rows pgx.Rows) ([]Client, error) {
	defer rows.Close()
	var list []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// List returns all clients.
func (r *Repository) List(ctx context.Context) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY lastname, firstname`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return collectClients(rows)
}

// Get returns one client.
func (r *Repository) Get(ctx context.Context, id int64) (*Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
}

// Search matches the term against first or last name, case-insensitively.
func (r *Repository) Search(ctx context.Context, name string) ([]Client, error) {
	pattern := "%" + strings.ReplaceAll(name, "%", `\%`) + "%"
	rows, err := r.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients
		 WHERE firstname ILIKE $1 OR lastname ILIKE $1
		 ORDER BY lastname, firstname`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	return collectClients(rows)
}

// ListAssignedTo returns the clients assigned to a user.
func (r *Repository) ListAssignedTo(ctx context.Context, userID int64) ([]Client, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients c
		 JOIN user_clients uc ON uc.client_id = c.id
		 WHERE uc.user_id = $1
		 ORDER BY c.lastname, c.firstname`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assigned clients: %w", err)
	}
	return collectClients(rows)
}

// Create inserts a client and returns its id.
func (r *Repository) Create(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO clients (reference_number, firstname, lastname, email, ni_number,
			phone, address, company, occupation, additional_note,
			has_conflict_of_interest, conflict_of_interest_comment,
			created_by_user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		 RETURNING id`,
		c.ReferenceNumber, c.FirstName, c.LastName, c.Email, c.NINumber,
		c.Phone, c.Address, c.Company, c.Occupation, c.AdditionalNote,
		c.HasConflict, c.ConflictComment, c.CreatedBy).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err)
	}
	return id, nil
}

// Update applies the given column updates to a client.
func (r *Repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := make([]string, 0, len(updates)+1)
	args := make([]any, 0, len(updates)+1)
	for column, value := range updates {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	set = append(set, "updated_at = now()")
	args = append(args, id)

	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE clients SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args)), args...)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a client.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignUser links a user to the client, replacing any previous link.
func (r *Repository) AssignUser(ctx context.Context, clientID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_clients (client_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (client_id) DO UPDATE SET user_id = EXCLUDED.user_id`,
		clientID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.ErrNotFound
		}
		return err
	}
	return nil
}

// RemoveUser clears the client's user assignment.
func (r *Repository) RemoveUser(ctx context.Context, clientID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_clients WHERE client_id = $1`, clientID)
	return err
}

// AssignedUser returns the user currently assigned to the client.
func (r *Repository) AssignedUser(ctx context.Context, clientID int64) (*UserSummary, error) {
	var u UserSummary
	err := r.pool.QueryRow(ctx,
		`SELECT u.id, u.username, u.email
		 FROM users u
		 JOIN user_clients uc ON uc.user_id = u.id
		 WHERE uc.client_id = $1`, clientID).
		Scan(&u.ID, &u.Username, &u.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}
