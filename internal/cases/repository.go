package cases

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/shared"
)

// Repository provides PostgreSQL backed persistence for cases and their
// participant sets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const caseColumns = `
	c.id, c.reference_number, c.title, c.description, c.status, c.priority,
	c.id_checked, c.id_checked_comment, c.due_date, c.client_id,
	c.created_by_user_id, c.assigned_user_id, c.last_modified_by_user_id,
	(SELECT COUNT(*) FROM notes n WHERE n.case_id = c.id),
	(SELECT COUNT(*) FROM documents d WHERE d.case_id = c.id),
	c.created_at, c.updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(
		&c.ID, &c.ReferenceNumber, &c.Title, &c.Description, &c.Status, &c.Priority,
		&c.IDChecked, &c.IDCheckedNote, &c.DueDate, &c.ClientID,
		&c.CreatedBy, &c.AssignedTo, &c.LastModifiedBy,
		&c.NoteCount, &c.DocumentCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func collectCases(rows pgx.Rows) ([]Case, error) {
	defer rows.Close()
	var list []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// Create inserts a case and returns its ID.
func (r *Repository) Create(ctx context.Context, c Case) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cases (
			reference_number, title, description, status, priority,
			id_checked, id_checked_comment, due_date, client_id,
			created_by_user_id, assigned_user_id, last_modified_by_user_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id`,
		c.ReferenceNumber, c.Title, c.Description, c.Status, c.Priority,
		c.IDChecked, c.IDCheckedNote, c.DueDate, c.ClientID,
		c.CreatedBy, c.AssignedTo, c.LastModifiedBy,
	).Scan(&id)
	if err != nil {
		return 0, mapConstraintError(err)
	}
	return id, nil
}

// Get returns one case with its note and document counts.
func (r *Repository) Get(ctx context.Context, id int64) (*Case, error) {
	c, err := scanCase(r.pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases c WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("case %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// List returns cases matching the filters plus the unfiltered match count.
func (r *Repository) List(ctx context.Context, req ListCasesRequest) ([]Case, int, error) {
	where := `TRUE`
	args := []any{}
	i := 1
	if req.Status != nil {
		where += fmt.Sprintf(" AND c.status = $%d", i)
		args = append(args, *req.Status)
		i++
	}
	if req.Priority != nil {
		where += fmt.Sprintf(" AND c.priority = $%d", i)
		args = append(args, *req.Priority)
		i++
	}
	if req.Search != nil {
		where += fmt.Sprintf(" AND c.title ILIKE $%d", i)
		args = append(args, "%"+*req.Search+"%")
		i++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cases c WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}

	query := `SELECT ` + caseColumns + ` FROM cases c WHERE ` + where + ` ORDER BY c.created_at DESC`
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", i, i+1)
		args = append(args, req.Limit, req.Offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}
	list, err := collectCases(rows)
	return list, total, err
}

// ListByAssignedUser returns cases assigned to the user.
func (r *Repository) ListByAssignedUser(ctx context.Context, userID int64) ([]Case, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+caseColumns+` FROM cases c WHERE c.assigned_user_id = $1 ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cases by assignee: %w", err)
	}
	return collectCases(rows)
}

// ListByParticipant returns cases where the user is an explicit participant.
func (r *Repository) ListByParticipant(ctx context.Context, userID int64) ([]Case, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+caseColumns+` FROM cases c
		JOIN case_participants p ON p.case_id = c.id
		WHERE p.user_id = $1
		ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cases by participant: %w", err)
	}
	return collectCases(rows)
}

// ListRelatedTo returns cases the user created, is assigned to, or
// participates in.
func (r *Repository) ListRelatedTo(ctx context.Context, userID int64) ([]Case, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT `+caseColumns+` FROM cases c
		LEFT JOIN case_participants p ON p.case_id = c.id
		WHERE c.created_by_user_id = $1 OR c.assigned_user_id = $1 OR p.user_id = $1
		ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list related cases: %w", err)
	}
	return collectCases(rows)
}

// ListByClient returns the cases opened for one client.
func (r *Repository) ListByClient(ctx context.Context, clientID int64) ([]Case, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+caseColumns+` FROM cases c WHERE c.client_id = $1 ORDER BY c.created_at DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list cases by client: %w", err)
	}
	return collectCases(rows)
}

// Update applies column updates to a case.
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
	tag, err := r.pool.Exec(ctx, `UPDATE cases SET `+set+` WHERE id = $1`, args...)
	if err != nil {
		return mapConstraintError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("case %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// Delete removes a case; notes, tasks, documents and participants cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("case %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// AddParticipant grants one user case-scoped access. The unique index on
// (case_id, user_id) keeps the participant set free of duplicates; a second
// grant for the same user surfaces as shared.ErrDuplicate.
func (r *Repository) AddParticipant(ctx context.Context, caseID, userID int64, role authz.ParticipantRole) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO case_participants (case_id, user_id, role, added_at)
		VALUES ($1, $2, $3, NOW())`,
		caseID, userID, string(role))
	return mapConstraintError(err)
}

// RemoveParticipant revokes case-scoped access.
func (r *Repository) RemoveParticipant(ctx context.Context, caseID, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM case_participants WHERE case_id = $1 AND user_id = $2`, caseID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant %d on case %d: %w", userID, caseID, shared.ErrNotFound)
	}
	return nil
}

// ListParticipants returns the participant set of a case.
func (r *Repository) ListParticipants(ctx context.Context, caseID int64) ([]Participant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.user_id, u.username, p.role, p.added_at
		FROM case_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.case_id = $1
		ORDER BY p.added_at`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var list []Participant
	for rows.Next() {
		var p Participant
		var role string
		if err := rows.Scan(&p.UserID, &p.Username, &role, &p.AddedAt); err != nil {
			return nil, err
		}
		p.Role = authz.ParticipantRole(role)
		list = append(list, p)
	}
	return list, rows.Err()
}

// AccessContext returns the ownership and participant slice the access
// evaluator decides against, or shared.ErrNotFound for a missing case.
func (r *Repository) AccessContext(ctx context.Context, caseID int64) (authz.CaseAccess, error) {
	var access authz.CaseAccess
	err := r.pool.QueryRow(ctx,
		`SELECT created_by_user_id, assigned_user_id FROM cases WHERE id = $1`, caseID).
		Scan(&access.CreatedBy, &access.AssignedTo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.CaseAccess{}, fmt.Errorf("case %d: %w", caseID, shared.ErrNotFound)
		}
		return authz.CaseAccess{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT user_id, role FROM case_participants WHERE case_id = $1 ORDER BY added_at`, caseID)
	if err != nil {
		return authz.CaseAccess{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var p authz.Participant
		var role string
		if err := rows.Scan(&p.UserID, &role); err != nil {
			return authz.CaseAccess{}, err
		}
		p.Role = authz.ParticipantRole(role)
		access.Participants = append(access.Participants, p)
	}
	return access, rows.Err()
}

func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", shared.ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", shared.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
