package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skk/jds-backend/internal/shared"
)

// Repository provides PostgreSQL backed persistence for tasks.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = `id, title, description, status, priority, due_date,
	case_id, assigned_user_id, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate,
		&t.CaseID, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func collectTasks(rows pgx.Rows) ([]Task, error) {
	defer rows.Close()
	var list []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// List returns all tasks.
func (r *Repository) List(ctx context.Context) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return collectTasks(rows)
}

// Get returns one task.
func (r *Repository) Get(ctx context.Context, id int64) (*Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// ListByCase returns the tasks attached to a case.
func (r *Repository) ListByCase(ctx context.Context, caseID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE case_id = $1 ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by case: %w", err)
	}
	return collectTasks(rows)
}

// ListByAssignedUser returns the tasks assigned to a user.
func (r *Repository) ListByAssignedUser(ctx context.Context, userID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assigned_user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by assignee: %w", err)
	}
	return collectTasks(rows)
}

// ListByStatus returns the tasks in one lifecycle state.
func (r *Repository) ListByStatus(ctx context.Context, status TaskStatus) ([]Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, fmt.Errorf("list tasks by status: %w", err)
	}
	return collectTasks(rows)
}

// ListOverdue returns open tasks whose due date has passed.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time) ([]Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE due_date < $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
		 ORDER BY due_date`, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	return collectTasks(rows)
}

// ListDueWithin returns open tasks due between now and the horizon.
func (r *Repository) ListDueWithin(ctx context.Context, now time.Time, horizon time.Duration) ([]Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE due_date >= $1 AND due_date < $2 AND status NOT IN ('COMPLETED', 'CANCELLED')
		 ORDER BY due_date`, now, now.Add(horizon))
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	return collectTasks(rows)
}

// Create inserts a task and returns its id.
func (r *Repository) Create(ctx context.Context, t Task) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, status, priority, due_date, case_id, assigned_user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		 RETURNING id`,
		t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.CaseID, t.AssignedTo).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// Update applies the given column updates to a task.
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
		fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args)), args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a task.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
