package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skk/jds-backend/internal/shared"
)

// Repository provides PostgreSQL backed persistence for notes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const noteColumns = `id, content, author_user_id, case_id, created_at, updated_at`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.Content, &n.AuthorID, &n.CaseID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func collectNotes(rows pgx.Rows) ([]Note, error) {
	defer rows.Close()
	var list []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

// List returns all notes.
func (r *Repository) List(ctx context.Context) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return collectNotes(rows)
}

// Get returns one note.
func (r *Repository) Get(ctx context.Context, id int64) (*Note, error) {
	return scanNote(r.pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1`, id))
}

// ListByCase returns the notes on a case.
func (r *Repository) ListByCase(ctx context.Context, caseID int64) ([]Note, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE case_id = $1 ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list notes by case: %w", err)
	}
	return collectNotes(rows)
}

// ListByAuthor returns the notes one user wrote.
func (r *Repository) ListByAuthor(ctx context.Context, authorID int64) ([]Note, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE author_user_id = $1 ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list notes by author: %w", err)
	}
	return collectNotes(rows)
}

// Create inserts a note and returns its id.
func (r *Repository) Create(ctx context.Context, n Note) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notes (content, author_user_id, case_id, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 RETURNING id`,
		n.Content, n.AuthorID, n.CaseID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// UpdateContent rewrites a note's content.
func (r *Repository) UpdateContent(ctx context.Context, id int64, content string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notes SET content = $1, updated_at = now() WHERE id = $2`, content, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a note.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
