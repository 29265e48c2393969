package memory

import (
	"context"
	"sync"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
)

type MemoryPaymentRepository struct {
	payments map[domain.PaymentID]*domain.Payment
	mu       sync.RWMutex
}

func NewMemoryPaymentRepository() ports.PaymentRepository {
	return &MemoryPaymentRepository{
		payments: make(map[domain.PaymentID]*domain.Payment),
	}
}

func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *payment
	r.payments[payment.ID] = &cp
	return nil
}

// GetBySubscriptionID returns the most recent payment for the subscription.
func (r *MemoryPaymentRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Payment
	for _, p := range r.payments {
		if p.SubscriptionID != subscriptionID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrPaymentNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryPaymentRepository) Delete(ctx context.Context, id domain.PaymentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[id]; !exists {
		return domain.ErrPaymentNotFound
	}
	delete(r.payments, id)
	return nil
}
