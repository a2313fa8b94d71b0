package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	stats      DashboardStats
	byStatus   []StatusCount
	byPriority []PriorityCount
	taskCounts []StatusCount
	perf       CasePerformance
	workload   []UserWorkload
	clients    []ClientStats
	err        error
	calls      int
}

func (s *stubRepo) DashboardStats(_ context.Context, _ time.Time) (DashboardStats, error) {
	s.calls++
	return s.stats, s.err
}

func (s *stubRepo) CaseCountsByStatus(_ context.Context) ([]StatusCount, error) {
	s.calls++
	return s.byStatus, s.err
}

func (s *stubRepo) CaseCountsByPriority(_ context.Context) ([]PriorityCount, error) {
	s.calls++
	return s.byPriority, s.err
}

func (s *stubRepo) TaskCountsByStatus(_ context.Context) ([]StatusCount, error) {
	s.calls++
	return s.taskCounts, s.err
}

func (s *stubRepo) CasePerformance(_ context.Context, _ time.Time) (CasePerformance, error) {
	s.calls++
	return s.perf, s.err
}

func (s *stubRepo) UserWorkload(_ context.Context, _ time.Time) ([]UserWorkload, error) {
	s.calls++
	return s.workload, s.err
}

func (s *stubRepo) ClientStats(_ context.Context) ([]ClientStats, error) {
	s.calls++
	return s.clients, s.err
}

func cacheForTest(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestDashboardWithoutCache(t *testing.T) {
	repo := &stubRepo{stats: DashboardStats{TotalCases: 12, ActiveCases: 5}}
	svc := NewService(repo, nil)

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(12), stats.TotalCases)
	require.Equal(t, int64(5), stats.ActiveCases)
}

func TestDashboardServedFromCache(t *testing.T) {
	repo := &stubRepo{stats: DashboardStats{TotalCases: 3}}
	svc := NewService(repo, cacheForTest(t))

	first, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), first.TotalCases)

	repo.stats.TotalCases = 99
	second, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), second.TotalCases)
	require.Equal(t, 1, repo.calls)
}

func TestInvalidateForcesReload(t *testing.T) {
	repo := &stubRepo{stats: DashboardStats{TotalCases: 3}}
	svc := NewService(repo, cacheForTest(t))

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	repo.stats.TotalCases = 99
	require.NoError(t, svc.Invalidate(context.Background()))

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(99), stats.TotalCases)
}

func TestWarmPrecomputes(t *testing.T) {
	repo := &stubRepo{
		stats:      DashboardStats{TotalCases: 7},
		byStatus:   []StatusCount{{Status: "OPEN", Count: 4}},
		byPriority: []PriorityCount{{Priority: "HIGH", Count: 2}},
		taskCounts: []StatusCount{{Status: "TODO", Count: 1}},
	}
	svc := NewService(repo, cacheForTest(t))

	require.NoError(t, svc.Warm(context.Background()))

	// The repository failing afterwards does not matter, the warmed
	// entries still serve.
	repo.err = errors.New("db down")
	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), stats.TotalCases)

	counts, err := svc.CasesByStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, []StatusCount{{Status: "OPEN", Count: 4}}, counts)
}

func TestRepositoryErrorSurfaces(t *testing.T) {
	repo := &stubRepo{err: errors.New("db down")}
	svc := NewService(repo, cacheForTest(t))

	_, err := svc.Dashboard(context.Background())
	require.Error(t, err)
}
