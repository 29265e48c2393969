package scheduler

import (
	"context"
	"time"

	"coursebundler/internal/core/ports"
	"coursebundler/pkg/distributed"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sweepLockKey = "coursebundler:lock:stats-sweep"

// StatsSweep periodically recomputes stats as a backstop for missed change events.
type StatsSweep struct {
	stats    ports.StatsService
	lock     *distributed.Lock // nil without Redis
	interval time.Duration
	logger   *zap.SugaredLogger
	stopChan chan struct{}
}

type Config struct {
	Interval time.Duration
	LockTTL  time.Duration
}

// NewStatsSweep creates the sweep. With a Redis client only one instance sweeps per
// tick; pass a nil interface when Redis is not in use.
func NewStatsSweep(stats ports.StatsService, lockClient redis.Cmdable, cfg Config, logger *zap.SugaredLogger) *StatsSweep {
	s := &StatsSweep{
		stats:    stats,
		interval: cfg.Interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
	if lockClient != nil {
		ttl := cfg.LockTTL
		if ttl <= 0 {
			ttl = time.Minute
		}
		s.lock = distributed.NewLock(lockClient, sweepLockKey, ttl)
	}
	return s
}

// Start runs an initial sweep and then one per interval until ctx is done or Stop is called.
func (s *StatsSweep) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *StatsSweep) Stop() {
	close(s.stopChan)
}

func (s *StatsSweep) runSweep(ctx context.Context) {
	if s.lock == nil {
		s.recompute(ctx)
		return
	}

	ran, err := distributed.RunExclusive(ctx, s.lock, func(ctx context.Context) error {
		s.recompute(ctx)
		return nil
	})
	if err != nil {
		s.logger.Warnw("stats sweep lock failed", "error", err)
		return
	}
	if !ran {
		s.logger.Debug("stats sweep skipped, another instance holds the lock")
	}
}

func (s *StatsSweep) recompute(ctx context.Context) {
	snapshot, err := s.stats.Recompute(ctx)
	if err != nil {
		s.logger.Errorw("stats sweep failed", "error", err)
		return
	}
	s.logger.Debugw("stats sweep completed",
		"users", snapshot.Users,
		"subscription", snapshot.Subscription,
		"views", snapshot.Views,
	)
}
