package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"

	"github.com/redis/go-redis/v9"
)

func paymentKey(id domain.PaymentID) string { return keyPrefix + "payment:" + string(id) }

func paymentSubscriptionKey(subID string) string { return keyPrefix + "payment:subscription:" + subID }

type RedisPaymentRepository struct {
	client *redis.Client
}

func NewRedisPaymentRepository(client *redis.Client) ports.PaymentRepository {
	return &RedisPaymentRepository{client: client}
}

func (r *RedisPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "create", "payments")
	defer span.End()

	data, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("failed to marshal payment: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, paymentKey(payment.ID), data, 0)
		pipe.Set(ctx, paymentSubscriptionKey(payment.SubscriptionID), string(payment.ID), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store payment: %w", err)
	}
	return nil
}

// GetBySubscriptionID returns the latest payment recorded for the subscription.
func (r *RedisPaymentRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Payment, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "get_by_subscription", "payments")
	defer span.End()

	id, err := r.client.Get(ctx, paymentSubscriptionKey(subscriptionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payment index: %w", err)
	}

	var payment domain.Payment
	if err := getJSON(ctx, r.client, paymentKey(domain.PaymentID(id)), &payment, domain.ErrPaymentNotFound); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *RedisPaymentRepository) Delete(ctx context.Context, id domain.PaymentID) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "delete", "payments")
	defer span.End()

	var payment domain.Payment
	if err := getJSON(ctx, r.client, paymentKey(id), &payment, domain.ErrPaymentNotFound); err != nil {
		return err
	}

	subKey := paymentSubscriptionKey(payment.SubscriptionID)
	if err := r.client.Del(ctx, paymentKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if current, err := r.client.Get(ctx, subKey).Result(); err == nil && current == string(id) {
		r.client.Del(ctx, subKey)
	}
	return nil
}
