package services

import (
	"context"
	"testing"
	"time"

	"coursebundler/internal/core/domain"
	apperrors "coursebundler/pkg/errors"
	"coursebundler/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func subscribedUser(t *testing.T, env *testEnv) *domain.User {
	t.Helper()
	u := env.register(t, "Ann", "ann@example.com")
	env.gateway.On("CreateSubscription", mock.Anything, mock.AnythingOfType("*domain.User")).
		Return(&domain.GatewaySubscription{ID: "sub_1", Status: "incomplete", ClientSecret: "cs_1"}, nil).Once()
	env.gateway.On("GetSubscription", mock.Anything, "sub_1").
		Return(&domain.GatewaySubscription{ID: "sub_1", Status: "active", PaymentRef: "pi_1"}, nil).Once()

	ctx := context.Background()
	sub, err := env.paymentSvc.BeginSubscription(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sub.ClientSecret)

	_, err = env.paymentSvc.VerifyAndRecord(ctx, u.ID, "sub_1")
	require.NoError(t, err)
	return u
}

func TestSubscriptionActivation(t *testing.T) {
	env := newTestEnv(t)
	u := subscribedUser(t, env)

	got, _ := env.users.GetByID(context.Background(), u.ID)
	assert.True(t, got.Subscription.IsActive())
	assert.Equal(t, "sub_1", got.Subscription.ID)

	p, err := env.payments.GetBySubscriptionID(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", p.PaymentRef)
}

func TestBeginSubscription_AdminRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "Root", "root@example.com")
	require.NoError(t, env.userSvc.ToggleRole(ctx, u.ID))

	_, err := env.paymentSvc.BeginSubscription(ctx, u.ID)
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Admin can't buy subscription")
}

func TestVerifyAndRecord_RejectsUnpaidOrForeignSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "Ann", "ann@example.com")
	env.gateway.On("CreateSubscription", mock.Anything, mock.Anything).
		Return(&domain.GatewaySubscription{ID: "sub_1", Status: "incomplete"}, nil)
	env.gateway.On("GetSubscription", mock.Anything, "sub_1").
		Return(&domain.GatewaySubscription{ID: "sub_1", Status: "incomplete"}, nil)

	_, err := env.paymentSvc.BeginSubscription(ctx, u.ID)
	require.NoError(t, err)

	_, err = env.paymentSvc.VerifyAndRecord(ctx, u.ID, "sub_other")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Payment verification failed")

	_, err = env.paymentSvc.VerifyAndRecord(ctx, u.ID, "sub_1")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Payment verification failed")

	got, _ := env.users.GetByID(ctx, u.ID)
	assert.False(t, got.Subscription.IsActive())
}

func TestCancelSubscription_RefundWindow(t *testing.T) {
	t.Run("within window refunds", func(t *testing.T) {
		env := newTestEnv(t)
		u := subscribedUser(t, env)
		env.gateway.On("CancelSubscription", mock.Anything, "sub_1").Return(nil)
		env.gateway.On("Refund", mock.Anything, "pi_1").Return(nil)

		refunded, err := env.paymentSvc.CancelSubscription(context.Background(), u.ID)
		require.NoError(t, err)
		assert.True(t, refunded)
		env.gateway.AssertCalled(t, "Refund", mock.Anything, "pi_1")

		got, _ := env.users.GetByID(context.Background(), u.ID)
		assert.Empty(t, got.Subscription.ID)
		_, err = env.payments.GetBySubscriptionID(context.Background(), "sub_1")
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})

	t.Run("after window does not refund", func(t *testing.T) {
		env := newTestEnv(t)
		u := subscribedUser(t, env)
		env.gateway.On("CancelSubscription", mock.Anything, "sub_1").Return(nil)

		later := time.Now().Add(8 * 24 * time.Hour)
		utils.Now = func() time.Time { return later }
		t.Cleanup(func() { utils.Now = time.Now })

		refunded, err := env.paymentSvc.CancelSubscription(context.Background(), u.ID)
		require.NoError(t, err)
		assert.False(t, refunded)
		env.gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
	})

	t.Run("no subscription", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "Ann", "ann@example.com")
		_, err := env.paymentSvc.CancelSubscription(context.Background(), u.ID)
		assertAppError(t, err, apperrors.ErrCodeInvalidInput, "No active subscription")
	})
}

func TestHandleWebhook(t *testing.T) {
	env := newTestEnv(t)
	u := subscribedUser(t, env)
	payload := []byte(`{}`)

	env.gateway.On("ParseWebhook", payload, "bad").Return(nil, domain.ErrInvalidSignature)
	err := env.paymentSvc.HandleWebhook(context.Background(), payload, "bad")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Invalid webhook signature")

	env.gateway.On("ParseWebhook", payload, "good").Return(&domain.GatewayEvent{
		Type: "customer.subscription.deleted", SubscriptionID: "sub_1", Status: "canceled",
	}, nil)
	require.NoError(t, env.paymentSvc.HandleWebhook(context.Background(), payload, "good"))

	got, _ := env.users.GetByID(context.Background(), u.ID)
	assert.Equal(t, "canceled", got.Subscription.Status)
	assert.False(t, got.Subscription.IsActive())
}

func TestHandleWebhook_TrialingCountsAsActive(t *testing.T) {
	env := newTestEnv(t)
	u := subscribedUser(t, env)
	payload := []byte(`{}`)

	env.gateway.On("ParseWebhook", payload, "sig").Return(&domain.GatewayEvent{
		Type: "customer.subscription.updated", SubscriptionID: "sub_1", Status: "trialing",
	}, nil)
	require.NoError(t, env.paymentSvc.HandleWebhook(context.Background(), payload, "sig"))

	got, _ := env.users.GetByID(context.Background(), u.ID)
	assert.Equal(t, domain.SubscriptionStatusActive, got.Subscription.Status)
	assert.True(t, got.Subscription.IsActive())
}

func TestPaymentsDisabled(t *testing.T) {
	env := newTestEnv(t)
	svc := NewPaymentService(env.users, env.payments, nil, nil, nil, 7, "test", nil)
	u := env.register(t, "Ann", "ann@example.com")

	assert.Empty(t, svc.PublicKey())
	_, err := svc.BeginSubscription(context.Background(), u.ID)
	assertAppError(t, err, apperrors.ErrCodeServiceUnavailable, "Payment gateway is not configured")
}
