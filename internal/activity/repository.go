package activity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for the activity log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one entry.
func (r *Repository) Insert(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activities (action, entity_type, entity_id, case_id, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		e.Action, e.EntityType, e.EntityID, e.CaseID, e.ActorID, e.Details)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

const listColumns = `id, action, entity_type, entity_id, case_id, actor_id, details, created_at`

func (r *Repository) query(ctx context.Context, where string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+listColumns+` FROM activities WHERE `+where+` ORDER BY created_at DESC LIMIT 200`, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var list []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.CaseID, &e.ActorID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// ListByCase returns recent entries for one case.
func (r *Repository) ListByCase(ctx context.Context, caseID int64) ([]Entry, error) {
	return r.query(ctx, `case_id = $1`, caseID)
}

// ListByEntity returns recent entries for one entity.
func (r *Repository) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]Entry, error) {
	return r.query(ctx, `entity_type = $1 AND entity_id = $2`, entityType, entityID)
}

// ListByActor returns recent entries recorded for one user.
func (r *Repository) ListByActor(ctx context.Context, actorID int64) ([]Entry, error) {
	return r.query(ctx, `actor_id = $1`, actorID)
}

// ListAll returns the most recent entries across the system.
func (r *Repository) ListAll(ctx context.Context) ([]Entry, error) {
	return r.query(ctx, `TRUE`)
}
