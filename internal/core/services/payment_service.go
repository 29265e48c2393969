package services

import (
	"context"
	"errors"
	"fmt"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	apperrors "coursebundler/pkg/errors"
	"coursebundler/pkg/utils"

	"go.uber.org/zap"
)

// Gateway subscription states that count as paid.
var paidStatuses = map[string]bool{
	"active":   true,
	"trialing": true,
}

// normaliseStatus stores every paid gateway state as active.
func normaliseStatus(status string) string {
	if paidStatuses[status] {
		return domain.SubscriptionStatusActive
	}
	return status
}

type paymentService struct {
	users      ports.UserRepository
	payments   ports.PaymentRepository
	gateway    ports.PaymentGateway // nil when payments are disabled
	metrics    ports.MetricsRecorder
	notifier   changeNotifier
	refundDays int
	logger     *zap.SugaredLogger
}

func NewPaymentService(
	users ports.UserRepository,
	payments ports.PaymentRepository,
	gateway ports.PaymentGateway,
	publisher ports.ChangePublisher,
	metrics ports.MetricsRecorder,
	refundDays int,
	instanceID string,
	logger *zap.SugaredLogger,
) ports.PaymentService {
	logger = orNopLogger(logger)
	return &paymentService{
		users:      users,
		payments:   payments,
		gateway:    gateway,
		metrics:    orNopMetrics(metrics),
		notifier:   changeNotifier{publisher: publisher, instanceID: instanceID, logger: logger},
		refundDays: refundDays,
		logger:     logger,
	}
}

// ErrPaymentNotVerified is returned when the gateway does not confirm a payment.
func ErrPaymentNotVerified() *apperrors.AppError {
	return apperrors.NewInvalidInputError("Payment verification failed")
}

func (s *paymentService) PublicKey() string {
	if s.gateway == nil {
		return ""
	}
	return s.gateway.PublicKey()
}

func (s *paymentService) requireGateway() error {
	if s.gateway == nil {
		return translateRepoError(domain.ErrGatewayDisabled)
	}
	return nil
}

func (s *paymentService) BeginSubscription(ctx context.Context, userID domain.UserID) (*domain.GatewaySubscription, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	if user.IsAdmin() {
		return nil, apperrors.NewInvalidInputError("Admin can't buy subscription")
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	sub, err := s.gateway.CreateSubscription(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	_, err = s.users.Update(ctx, userID, func(u *domain.User) error {
		u.Subscription = domain.Subscription{ID: sub.ID, Status: sub.Status}
		return nil
	})
	if err != nil {
		return nil, translateRepoError(err)
	}

	s.metrics.RecordSubscriptionEvent("created")
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(userID))
	s.logger.Infow("Subscription created", "user_id", userID, "subscription_id", sub.ID)
	return sub, nil
}

func (s *paymentService) VerifyAndRecord(ctx context.Context, userID domain.UserID, subscriptionID string) (*domain.Payment, error) {
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	if subscriptionID == "" || user.Subscription.ID != subscriptionID {
		return nil, ErrPaymentNotVerified()
	}

	sub, err := s.gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	if !paidStatuses[sub.Status] {
		s.metrics.RecordSubscriptionEvent("verification_failed")
		return nil, ErrPaymentNotVerified()
	}

	payment := &domain.Payment{
		ID:             domain.PaymentID(utils.NewID()),
		UserID:         userID,
		SubscriptionID: subscriptionID,
		PaymentRef:     sub.PaymentRef,
		CreatedAt:      utils.Now(),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	_, err = s.users.Update(ctx, userID, func(u *domain.User) error {
		u.Subscription.Status = domain.SubscriptionStatusActive
		return nil
	})
	if err != nil {
		return nil, translateRepoError(err)
	}

	s.metrics.RecordSubscriptionEvent("activated")
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(userID))
	return payment, nil
}

func (s *paymentService) CancelSubscription(ctx context.Context, userID domain.UserID) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, translateRepoError(err)
	}
	if user.Subscription.ID == "" {
		return false, apperrors.NewInvalidInputError("No active subscription")
	}
	if err := s.requireGateway(); err != nil {
		return false, err
	}

	subscriptionID := user.Subscription.ID
	if err := s.gateway.CancelSubscription(ctx, subscriptionID); err != nil {
		return false, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	refunded := false
	payment, err := s.payments.GetBySubscriptionID(ctx, subscriptionID)
	switch {
	case errors.Is(err, domain.ErrPaymentNotFound):
	case err != nil:
		return false, err
	default:
		if utils.DaysBetween(payment.CreatedAt, utils.Now()) < s.refundDays && payment.PaymentRef != "" {
			if err := s.gateway.Refund(ctx, payment.PaymentRef); err != nil {
				return false, fmt.Errorf("failed to refund payment: %w", err)
			}
			refunded = true
		}
		if err := s.payments.Delete(ctx, payment.ID); err != nil {
			return false, err
		}
	}

	_, err = s.users.Update(ctx, userID, func(u *domain.User) error {
		u.Subscription = domain.Subscription{}
		return nil
	})
	if err != nil {
		return false, translateRepoError(err)
	}

	s.metrics.RecordSubscriptionEvent("cancelled")
	if refunded {
		s.metrics.RecordSubscriptionEvent("refunded")
	}
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(userID))
	s.logger.Infow("Subscription cancelled", "user_id", userID, "subscription_id", subscriptionID, "refunded", refunded)
	return refunded, nil
}

// HandleWebhook mirrors gateway-side status changes onto the owning user.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := s.requireGateway(); err != nil {
		return err
	}

	event, err := s.gateway.ParseWebhook(payload, signature)
	if errors.Is(err, domain.ErrInvalidSignature) {
		return apperrors.NewInvalidInputError("Invalid webhook signature")
	}
	if err != nil {
		return err
	}
	if event == nil {
		return nil
	}

	user, err := s.users.GetBySubscriptionID(ctx, event.SubscriptionID)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.logger.Warnw("Webhook for unknown subscription", "subscription_id", event.SubscriptionID, "type", event.Type)
		return nil
	}
	if err != nil {
		return err
	}

	status := normaliseStatus(event.Status)
	_, err = s.users.Update(ctx, user.ID, func(u *domain.User) error {
		if u.Subscription.ID == event.SubscriptionID {
			u.Subscription.Status = status
		}
		return nil
	})
	if err != nil {
		return translateRepoError(err)
	}

	s.metrics.RecordSubscriptionEvent("webhook_" + status)
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(user.ID))
	return nil
}
