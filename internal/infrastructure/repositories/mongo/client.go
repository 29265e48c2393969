package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursebundler/pkg/retry"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	usersCollection    = "users"
	coursesCollection  = "courses"
	statsCollection    = "stats"
	paymentsCollection = "payments"
)

const maxUpdateAttempts = 3

// NewMongoClient connects, waits for the primary and makes sure indexes exist.
func NewMongoClient(uri, database string, connectTimeout time.Duration, logger *zap.SugaredLogger) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	err = retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}, func(attempt int, err error, next time.Duration) {
		if logger != nil {
			logger.Warnw("MongoDB not reachable, retrying", "attempt", attempt, "retry_in", next, "error", err)
		}
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	db := client.Database(database)
	if err := EnsureIndexes(ctx, db); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	if logger != nil {
		logger.Infow("connected to MongoDB", "database", database)
	}
	return client, db, nil
}

// EnsureIndexes creates the unique email index and the lookup indexes. It is
// idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "reset_password_token", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "subscription.id", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		coursesCollection: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		statsCollection: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		paymentsCollection: {
			{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%s: %w", collection, err)
		}
	}
	return nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
