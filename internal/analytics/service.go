package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// RepositoryPort is the aggregate query surface the service depends on.
type RepositoryPort interface {
	DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error)
	CaseCountsByStatus(ctx context.Context) ([]StatusCount, error)
	CaseCountsByPriority(ctx context.Context) ([]PriorityCount, error)
	TaskCountsByStatus(ctx context.Context) ([]StatusCount, error)
	CasePerformance(ctx context.Context, now time.Time) (CasePerformance, error)
	UserWorkload(ctx context.Context, now time.Time) ([]UserWorkload, error)
	ClientStats(ctx context.Context) ([]ClientStats, error)
}

// Service serves dashboard reads through the cache, collapsing concurrent
// misses for the same key into a single repository query.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
	now   func() time.Time
}

// NewService wires the repository with the cache helper.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

func (s *Service) cached(ctx context.Context, dest any, keyParts []string, loader func(context.Context) (any, error)) error {
	key, err := s.cache.Key(ctx, keyParts...)
	if err != nil {
		return err
	}
	ch := s.group.DoChan(key, func() (any, error) {
		err := s.cache.Fetch(ctx, key, dest, loader)
		return nil, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		if res.Shared {
			// A peer filled the cache; our dest was not written by the
			// shared call, so read the fresh entry.
			return s.cache.Fetch(ctx, key, dest, loader)
		}
		return nil
	}
}

func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	err := s.cached(ctx, &stats, []string{"analytics", "dashboard"}, func(ctx context.Context) (any, error) {
		return s.repo.DashboardStats(ctx, s.now())
	})
	return stats, err
}

func (s *Service) CasesByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := s.cached(ctx, &counts, []string{"analytics", "cases", "by_status"}, func(ctx context.Context) (any, error) {
		return s.repo.CaseCountsByStatus(ctx)
	})
	return counts, err
}

func (s *Service) CasesByPriority(ctx context.Context) ([]PriorityCount, error) {
	var counts []PriorityCount
	err := s.cached(ctx, &counts, []string{"analytics", "cases", "by_priority"}, func(ctx context.Context) (any, error) {
		return s.repo.CaseCountsByPriority(ctx)
	})
	return counts, err
}

func (s *Service) TasksByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := s.cached(ctx, &counts, []string{"analytics", "tasks", "by_status"}, func(ctx context.Context) (any, error) {
		return s.repo.TaskCountsByStatus(ctx)
	})
	return counts, err
}

func (s *Service) Performance(ctx context.Context) (CasePerformance, error) {
	var perf CasePerformance
	err := s.cached(ctx, &perf, []string{"analytics", "cases", "performance"}, func(ctx context.Context) (any, error) {
		return s.repo.CasePerformance(ctx, s.now())
	})
	return perf, err
}

func (s *Service) Workload(ctx context.Context) ([]UserWorkload, error) {
	var workload []UserWorkload
	err := s.cached(ctx, &workload, []string{"analytics", "users", "workload"}, func(ctx context.Context) (any, error) {
		return s.repo.UserWorkload(ctx, s.now())
	})
	return workload, err
}

func (s *Service) ClientStats(ctx context.Context) ([]ClientStats, error) {
	var stats []ClientStats
	err := s.cached(ctx, &stats, []string{"analytics", "clients", "stats"}, func(ctx context.Context) (any, error) {
		return s.repo.ClientStats(ctx)
	})
	return stats, err
}

// Invalidate drops all cached dashboard payloads.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

// Warm precomputes the headline payloads so the first reader after an
// invalidation does not pay for the aggregation.
func (s *Service) Warm(ctx context.Context) error {
	if _, err := s.Dashboard(ctx); err != nil {
		return err
	}
	if _, err := s.CasesByStatus(ctx); err != nil {
		return err
	}
	if _, err := s.CasesByPriority(ctx); err != nil {
		return err
	}
	if _, err := s.TasksByStatus(ctx); err != nil {
		return err
	}
	return nil
}
