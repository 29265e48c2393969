package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"
	"coursebundler/pkg/utils"

	"go.uber.org/zap"
)

type statsService struct {
	users       ports.UserRepository
	courses     ports.CourseRepository
	stats       ports.StatsRepository
	metrics     ports.MetricsRecorder
	historySize int
	logger      *zap.SugaredLogger

	// serialises recomputes from the event loop and the sweep
	mu sync.Mutex
}

func NewStatsService(
	users ports.UserRepository,
	courses ports.CourseRepository,
	stats ports.StatsRepository,
	metrics ports.MetricsRecorder,
	historySize int,
	logger *zap.SugaredLogger,
) ports.StatsService {
	if historySize < 2 {
		historySize = 12
	}
	return &statsService{
		users:       users,
		courses:     courses,
		stats:       stats,
		metrics:     orNopMetrics(metrics),
		historySize: historySize,
		logger:      orNopLogger(logger),
	}
}

// Recompute rebuilds the aggregate from the collections. The current month's
// snapshot is overwritten in place; a new month starts a new snapshot.
func (s *statsService) Recompute(ctx context.Context) (*domain.StatsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "stats.recompute")
	defer span.End()

	start := utils.Now()
	defer tracing.MeasureDuration(ctx, start, "stats.recompute")

	views, err := s.courses.TotalViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum course views: %w", err)
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	subscriptions, err := s.users.CountActiveSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	now := utils.Now()
	period := domain.StatsPeriod(now)

	latest, err := s.stats.Latest(ctx)
	if err != nil && !errors.Is(err, domain.ErrStatsNotFound) {
		return nil, fmt.Errorf("failed to load latest stats: %w", err)
	}

	if latest != nil && latest.Period == period {
		latest.Users = users
		latest.Subscription = subscriptions
		latest.Views = views
		latest.CreatedAt = now
		if err := s.stats.Replace(ctx, latest); err != nil {
			return nil, fmt.Errorf("failed to replace stats: %w", err)
		}
		s.metrics.RecordStatsRecomputed(latest, utils.Now().Sub(start))
		return latest, nil
	}

	snapshot := &domain.StatsSnapshot{
		ID:           domain.StatsID(utils.NewID()),
		Users:        users,
		Subscription: subscriptions,
		Views:        views,
		Period:       period,
		CreatedAt:    now,
	}
	if err := s.stats.Append(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to append stats: %w", err)
	}
	s.metrics.RecordStatsRecomputed(snapshot, utils.Now().Sub(start))
	s.logger.Infow("Stats period opened", "period", period)
	return snapshot, nil
}

// Dashboard returns the last historySize snapshots oldest first, left-padded with
// empty entries, plus the change between the two newest.
func (s *statsService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	recent, err := s.stats.Recent(ctx, s.historySize)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	if len(recent) == 0 {
		snapshot, err := s.Recompute(ctx)
		if err != nil {
			return nil, err
		}
		recent = []*domain.StatsSnapshot{snapshot}
	}

	history := make([]domain.StatsSnapshot, s.historySize)
	offset := s.historySize - len(recent)
	for i, snap := range recent {
		// recent is newest first
		history[offset+len(recent)-1-i] = *snap
	}

	current := history[s.historySize-1]
	previous := history[s.historySize-2]

	dash := &domain.DashboardStats{
		Stats:             history,
		UsersCount:        current.Users,
		SubscriptionCount: current.Subscription,
		ViewsCount:        current.Views,
	}
	dash.UsersPercentage, dash.UsersProfit = percentChange(previous.Users, current.Users)
	dash.SubscriptionPercentage, dash.SubscriptionProfit = percentChange(previous.Subscription, current.Subscription)
	dash.ViewsPercentage, dash.ViewsProfit = percentChange(previous.Views, current.Views)
	return dash, nil
}

// percentChange treats growth from zero as current*100 percent.
func percentChange(previous, current int64) (float64, bool) {
	var pct float64
	if previous == 0 {
		pct = float64(current) * 100
	} else {
		pct = float64(current-previous) / float64(previous) * 100
	}
	return pct, pct >= 0
}
