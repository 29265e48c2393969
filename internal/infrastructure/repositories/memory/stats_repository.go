package memory

import (
	"context"
	"sort"
	"sync"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
)

type MemoryStatsRepository struct {
	snapshots []*domain.StatsSnapshot
	mu        sync.RWMutex
}

func NewMemoryStatsRepository() ports.StatsRepository {
	return &MemoryStatsRepository{}
}

func (r *MemoryStatsRepository) Append(ctx context.Context, snapshot *domain.StatsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *snapshot
	r.snapshots = append(r.snapshots, &cp)
	sort.SliceStable(r.snapshots, func(i, j int) bool {
		return r.snapshots[i].CreatedAt.Before(r.snapshots[j].CreatedAt)
	})
	return nil
}

func (r *MemoryStatsRepository) Replace(ctx context.Context, snapshot *domain.StatsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.snapshots {
		if s.ID == snapshot.ID {
			cp := *snapshot
			r.snapshots[i] = &cp
			sort.SliceStable(r.snapshots, func(i, j int) bool {
				return r.snapshots[i].CreatedAt.Before(r.snapshots[j].CreatedAt)
			})
			return nil
		}
	}
	return domain.ErrStatsNotFound
}

func (r *MemoryStatsRepository) Latest(ctx context.Context) (*domain.StatsSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.snapshots) == 0 {
		return nil, domain.ErrStatsNotFound
	}
	cp := *r.snapshots[len(r.snapshots)-1]
	return &cp, nil
}

func (r *MemoryStatsRepository) Recent(ctx context.Context, limit int) ([]*domain.StatsSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.StatsSnapshot, 0, limit)
	for i := len(r.snapshots) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.snapshots[i]
		out = append(out, &cp)
	}
	return out, nil
}
