package mongo

import (
	"context"
	"fmt"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStatsRepository struct {
	coll *mongo.Collection
}

func NewMongoStatsRepository(db *mongo.Database) ports.StatsRepository {
	return &MongoStatsRepository{coll: db.Collection(statsCollection)}
}

func (r *MongoStatsRepository) Append(ctx context.Context, snapshot *domain.StatsSnapshot) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "insert", statsCollection)
	defer span.End()

	if _, err := r.coll.InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to insert stats: %w", err)
	}
	return nil
}

func (r *MongoStatsRepository) Replace(ctx context.Context, snapshot *domain.StatsSnapshot) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "replace", statsCollection)
	defer span.End()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": snapshot.ID}, snapshot)
	if err != nil {
		return fmt.Errorf("failed to replace stats: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrStatsNotFound
	}
	return nil
}

func (r *MongoStatsRepository) Latest(ctx context.Context) (*domain.StatsSnapshot, error) {
	recent, err := r.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, domain.ErrStatsNotFound
	}
	return recent[0], nil
}

func (r *MongoStatsRepository) Recent(ctx context.Context, limit int) ([]*domain.StatsSnapshot, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "find_recent", statsCollection)
	defer span.End()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	snapshots := make([]*domain.StatsSnapshot, 0, limit)
	if err := cur.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}
	return snapshots, nil
}
