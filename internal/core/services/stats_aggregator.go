package services

import (
	"context"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"

	"go.uber.org/zap"
)

// StatsAggregator recomputes stats whenever users or courses change. Events that
// arrive while a recompute is pending collapse into that one recompute.
type StatsAggregator struct {
	stats      ports.StatsService
	subscriber ports.ChangeSubscriber
	logger     *zap.SugaredLogger
	pending    chan struct{}
}

func NewStatsAggregator(stats ports.StatsService, subscriber ports.ChangeSubscriber, logger *zap.SugaredLogger) *StatsAggregator {
	return &StatsAggregator{
		stats:      stats,
		subscriber: subscriber,
		logger:     orNopLogger(logger),
		pending:    make(chan struct{}, 1),
	}
}

// Notify queues a recompute for events on watched collections.
func (a *StatsAggregator) Notify(event domain.ChangeEvent) {
	switch event.Collection {
	case domain.CollectionUsers, domain.CollectionCourses:
	default:
		return
	}
	select {
	case a.pending <- struct{}{}:
	default:
	}
}

// Run subscribes to change events and recomputes until ctx is cancelled.
func (a *StatsAggregator) Run(ctx context.Context) {
	go func() {
		if err := a.subscriber.Subscribe(ctx, a.Notify); err != nil && ctx.Err() == nil {
			a.logger.Errorw("Change subscription ended", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.pending:
			if _, err := a.stats.Recompute(ctx); err != nil && ctx.Err() == nil {
				a.logger.Errorw("Stats recompute failed", "error", err)
			}
		}
	}
}
