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

type MongoPaymentRepository struct {
	coll *mongo.Collection
}

func NewMongoPaymentRepository(db *mongo.Database) ports.PaymentRepository {
	return &MongoPaymentRepository{coll: db.Collection(paymentsCollection)}
}

func (r *MongoPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "insert", paymentsCollection)
	defer span.End()

	if _, err := r.coll.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Payment, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "find_by_subscription", paymentsCollection)
	defer span.End()

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var payment domain.Payment
	if err := r.coll.FindOne(ctx, bson.M{"subscription_id": subscriptionID}, opts).Decode(&payment); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return &payment, nil
}

func (r *MongoPaymentRepository) Delete(ctx context.Context, id domain.PaymentID) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "delete", paymentsCollection)
	defer span.End()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}
