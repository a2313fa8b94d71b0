package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the dashboard. All
// grouping happens in SQL so nothing pages entire tables into memory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activeStatuses = `('OPEN', 'IN_PROGRESS', 'PENDING')`
const closedStatuses = `('RESOLVED', 'CLOSED')`

func (r *Repository) DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error) {
	var s DashboardStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM cases),
			(SELECT count(*) FROM cases WHERE status IN `+activeStatuses+`),
			(SELECT count(*) FROM cases WHERE status IN `+closedStatuses+`),
			(SELECT count(*) FROM tasks),
			(SELECT count(*) FROM tasks
				WHERE due_date < $1 AND status NOT IN ('COMPLETED', 'CANCELLED')),
			(SELECT count(*) FROM tasks WHERE status = 'COMPLETED'),
			(SELECT count(*) FROM clients),
			(SELECT count(*) FROM documents),
			COALESCE((SELECT avg(EXTRACT(EPOCH FROM updated_at - created_at)) / 86400
				FROM cases WHERE status IN `+closedStatuses+`), 0)`,
		now).
		Scan(&s.TotalCases, &s.ActiveCases, &s.ClosedCases,
			&s.TotalTasks, &s.OverdueTasks, &s.CompletedTasks,
			&s.TotalClients, &s.TotalDocuments, &s.AverageCaseResolutionDays)
	return s, err
}

func (r *Repository) CaseCountsByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, count(*) FROM cases GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	return scanStatusCounts(rows)
}

func (r *Repository) CaseCountsByPriority(ctx context.Context) ([]PriorityCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT priority, count(*) FROM cases GROUP BY priority ORDER BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PriorityCount
	for rows.Next() {
		var c PriorityCount
		if err := rows.Scan(&c.Priority, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) TaskCountsByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, count(*) FROM tasks GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	return scanStatusCounts(rows)
}

func scanStatusCounts(rows pgx.Rows) ([]StatusCount, error) {
	defer rows.Close()
	var out []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CasePerformance(ctx context.Context, now time.Time) (CasePerformance, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	var p CasePerformance
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*),
			COALESCE(avg(EXTRACT(EPOCH FROM updated_at - created_at)) / 86400, 0),
			min(FLOOR(EXTRACT(EPOCH FROM updated_at - created_at) / 86400))::bigint,
			max(FLOOR(EXTRACT(EPOCH FROM updated_at - created_at) / 86400))::bigint,
			count(*) FILTER (WHERE updated_at >= $1),
			count(*) FILTER (WHERE updated_at >= $2 AND updated_at < $1)
		FROM cases WHERE status IN `+closedStatuses,
		monthStart, lastMonthStart).
		Scan(&p.TotalCasesResolved, &p.AverageResolutionDays,
			&p.FastestResolutionDays, &p.SlowestResolutionDays,
			&p.CasesResolvedThisMonth, &p.CasesResolvedLastMonth)
	return p, err
}

func (r *Repository) UserWorkload(ctx context.Context, now time.Time) ([]UserWorkload, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username,
			count(DISTINCT c.id),
			count(DISTINCT c.id) FILTER (WHERE c.status IN `+activeStatuses+`),
			count(DISTINCT t.id),
			count(DISTINCT t.id) FILTER (WHERE t.status = 'COMPLETED'),
			count(DISTINCT t.id) FILTER (WHERE t.due_date < $1
				AND t.status NOT IN ('COMPLETED', 'CANCELLED'))
		FROM users u
		LEFT JOIN cases c ON c.assigned_user_id = u.id
		LEFT JOIN tasks t ON t.assigned_user_id = u.id
		GROUP BY u.id, u.username
		HAVING count(DISTINCT c.id) > 0 OR count(DISTINCT t.id) > 0
		ORDER BY count(DISTINCT c.id) FILTER (WHERE c.status IN `+activeStatuses+`) DESC`,
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UserWorkload
	for rows.Next() {
		var w UserWorkload
		if err := rows.Scan(&w.UserID, &w.Username, &w.AssignedCases, &w.ActiveCases,
			&w.AssignedTasks, &w.CompletedTasks, &w.OverdueTasks); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repository) ClientStats(ctx context.Context) ([]ClientStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cl.id, cl.firstname || ' ' || cl.lastname, cl.email,
			count(DISTINCT c.id),
			count(DISTINCT c.id) FILTER (WHERE c.status IN `+activeStatuses+`),
			count(DISTINCT c.id) FILTER (WHERE c.status IN `+closedStatuses+`),
			count(DISTINCT d.id)
		FROM clients cl
		LEFT JOIN cases c ON c.client_id = cl.id
		LEFT JOIN documents d ON d.case_id = c.id
		GROUP BY cl.id, cl.firstname, cl.lastname, cl.email
		ORDER BY count(DISTINCT c.id) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClientStats
	for rows.Next() {
		var s ClientStats
		if err := rows.Scan(&s.ClientID, &s.ClientName, &s.Email, &s.TotalCases,
			&s.ActiveCases, &s.ClosedCases, &s.TotalDocuments); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
