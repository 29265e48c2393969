package mongo

import (
	"context"
	"fmt"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) ports.UserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "insert", usersCollection)
	defer span.End()

	user.Version = 1
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "find", usersCollection)
	defer span.End()
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "find_by_email", usersCollection)
	defer span.End()
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "find_by_reset_token", usersCollection)
	defer span.End()
	return r.findOne(ctx, bson.M{
		"reset_password_token":  tokenHash,
		"reset_password_expire": bson.M{"$gt": now},
	})
}

func (r *MongoUserRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "find_by_subscription", usersCollection)
	defer span.End()
	return r.findOne(ctx, bson.M{"subscription.id": subscriptionID})
}

// Update replaces the document only while its version is unchanged.
func (r *MongoUserRepository) Update(ctx context.Context, id domain.UserID, fn ports.UserMutation) (*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "replace", usersCollection)
	defer span.End()

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.findOne(ctx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		next.Version = current.Version + 1

		res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": id, "version": current.Version}, next)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.ErrEmailTaken
			}
			return nil, fmt.Errorf("failed to replace user: %w", err)
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
	}
	return nil, domain.ErrVersionConflict
}

func (r *MongoUserRepository) Delete(ctx context.Context, id domain.UserID) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "delete", usersCollection)
	defer span.End()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "find_all", usersCollection)
	defer span.End()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*domain.User, 0)
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *MongoUserRepository) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"subscription.status": domain.SubscriptionStatusActive})
}
