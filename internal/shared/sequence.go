package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sequence scopes; each scope keeps its own daily counter.
const (
	SequenceScopeCase   = "CASE"
	SequenceScopeClient = "CLIENT"
)

// ReferenceSequence issues per-day reference numbers (YYYY-MM-DD-0001).
// The increment happens in a single upsert statement so concurrent issuers
// cannot observe or produce the same value.
type ReferenceSequence struct {
	pool *pgxpool.Pool
}

// NewReferenceSequence returns a ReferenceSequence backed by postgres.
func NewReferenceSequence(pool *pgxpool.Pool) *ReferenceSequence {
	return &ReferenceSequence{pool: pool}
}

// Next returns the next reference number for the scope and today's date.
func (s *ReferenceSequence) Next(ctx context.Context, scope string) (string, error) {
	return s.NextFor(ctx, scope, time.Now())
}

// NextFor returns the next reference number for the scope on the given day.
func (s *ReferenceSequence) NextFor(ctx context.Context, scope string, day time.Time) (string, error) {
	if s == nil || s.pool == nil {
		return "", errors.New("reference sequence not initialised")
	}
	if scope == "" {
		return "", errors.New("sequence scope required")
	}
	const query = `
		INSERT INTO daily_sequences (scope, seq_date, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (scope, seq_date)
		DO UPDATE SET value = daily_sequences.value + 1
		RETURNING value`
	var value int64
	if err := s.pool.QueryRow(ctx, query, scope, day.Format("2006-01-02")).Scan(&value); err != nil {
		return "", fmt.Errorf("sequence next %s: %w", scope, err)
	}
	return fmt.Sprintf("%s-%04d", day.Format("2006-01-02"), value), nil
}

// Prune removes counters older than the retention window.
func (s *ReferenceSequence) Prune(ctx context.Context, olderThan time.Duration) error {
	if s == nil || s.pool == nil {
		return errors.New("reference sequence not initialised")
	}
	cutoff := time.Now().Add(-olderThan).Format("2006-01-02")
	_, err := s.pool.Exec(ctx, `DELETE FROM daily_sequences WHERE seq_date < $1`, cutoff)
	return err
}
