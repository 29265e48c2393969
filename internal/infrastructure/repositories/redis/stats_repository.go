package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"

	"github.com/redis/go-redis/v9"
)

// statsLogKey is a sorted set of snapshot ids scored by creation time.
const statsLogKey = keyPrefix + "stats:log"

func statsKey(id domain.StatsID) string { return keyPrefix + "stats:" + string(id) }

type RedisStatsRepository struct {
	client *redis.Client
}

func NewRedisStatsRepository(client *redis.Client) ports.StatsRepository {
	return &RedisStatsRepository{client: client}
}

func (r *RedisStatsRepository) write(ctx context.Context, snapshot *domain.StatsSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, statsKey(snapshot.ID), data, 0)
		pipe.ZAdd(ctx, statsLogKey, redis.Z{
			Score:  float64(snapshot.CreatedAt.UnixMilli()),
			Member: string(snapshot.ID),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store stats: %w", err)
	}
	return nil
}

func (r *RedisStatsRepository) Append(ctx context.Context, snapshot *domain.StatsSnapshot) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "append", "stats")
	defer span.End()
	return r.write(ctx, snapshot)
}

func (r *RedisStatsRepository) Replace(ctx context.Context, snapshot *domain.StatsSnapshot) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "replace", "stats")
	defer span.End()

	n, err := r.client.Exists(ctx, statsKey(snapshot.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check stats: %w", err)
	}
	if n == 0 {
		return domain.ErrStatsNotFound
	}
	return r.write(ctx, snapshot)
}

func (r *RedisStatsRepository) Latest(ctx context.Context) (*domain.StatsSnapshot, error) {
	recent, err := r.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, domain.ErrStatsNotFound
	}
	return recent[0], nil
}

func (r *RedisStatsRepository) Recent(ctx context.Context, limit int) ([]*domain.StatsSnapshot, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "recent", "stats")
	defer span.End()

	if limit <= 0 {
		return []*domain.StatsSnapshot{}, nil
	}
	ids, err := r.client.ZRevRange(ctx, statsLogKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stats log: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = statsKey(domain.StatsID(id))
	}
	snapshots := make([]*domain.StatsSnapshot, 0, len(ids))
	err = mgetJSON(ctx, r.client, keys, func(data []byte) error {
		var s domain.StatsSnapshot
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to unmarshal stats: %w", err)
		}
		snapshots = append(snapshots, &s)
		return nil
	})
	return snapshots, err
}
