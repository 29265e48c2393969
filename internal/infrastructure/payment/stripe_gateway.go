package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	PriceID        string
	WebhookSecret  string
}

// StripeGateway runs the subscription lifecycle against Stripe. Subscriptions are
// created incomplete and activated once the client confirms the first payment.
type StripeGateway struct {
	cfg    StripeConfig
	logger *zap.SugaredLogger
}

func NewStripeGateway(cfg StripeConfig, logger *zap.SugaredLogger) ports.PaymentGateway {
	stripe.Key = cfg.SecretKey
	return &StripeGateway{cfg: cfg, logger: logger}
}

func (g *StripeGateway) PublicKey() string {
	return g.cfg.PublishableKey
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, user *domain.User) (*domain.GatewaySubscription, error) {
	ctx, span := tracing.TraceExternalCall(ctx, "stripe", "create_subscription")
	defer span.End()

	custParams := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.Name),
		Metadata: map[string]string{
			"user_id": string(user.ID),
		},
	}
	custParams.Context = ctx
	cust, err := customer.New(custParams)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to create Stripe customer: %w", err)
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(cust.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(g.cfg.PriceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		Metadata: map[string]string{
			"user_id": string(user.ID),
		},
	}
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx

	sub, err := subscription.New(params)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to create Stripe subscription: %w", err)
	}

	g.logger.Infow("Stripe subscription created", "user_id", user.ID, "subscription_id", sub.ID, "customer_id", cust.ID)
	return toGatewaySubscription(sub), nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (*domain.GatewaySubscription, error) {
	ctx, span := tracing.TraceExternalCall(ctx, "stripe", "get_subscription")
	defer span.End()

	params := &stripe.SubscriptionParams{}
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx

	sub, err := subscription.Get(id, params)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to retrieve Stripe subscription: %w", err)
	}
	return toGatewaySubscription(sub), nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, id string) error {
	ctx, span := tracing.TraceExternalCall(ctx, "stripe", "cancel_subscription")
	defer span.End()

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := subscription.Cancel(id, params); err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to cancel Stripe subscription: %w", err)
	}
	return nil
}

// Refund returns the full amount of the payment intent referenced by paymentRef.
func (g *StripeGateway) Refund(ctx context.Context, paymentRef string) error {
	ctx, span := tracing.TraceExternalCall(ctx, "stripe", "refund")
	defer span.End()

	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentRef)}
	params.Context = ctx
	if _, err := refund.New(params); err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to refund payment: %w", err)
	}
	return nil
}

// ParseWebhook verifies the signature and extracts subscription status changes.
// Events about anything else yield a nil event.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*domain.GatewayEvent, error) {
	return parseWebhook(payload, signature, g.cfg.WebhookSecret)
}

func parseWebhook(payload []byte, signature, secret string) (*domain.GatewayEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	switch event.Type {
	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription event: %w", err)
		}
		return &domain.GatewayEvent{
			Type:           string(event.Type),
			SubscriptionID: sub.ID,
			Status:         string(sub.Status),
		}, nil
	default:
		return nil, nil
	}
}

func toGatewaySubscription(sub *stripe.Subscription) *domain.GatewaySubscription {
	out := &domain.GatewaySubscription{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
		out.PaymentRef = sub.LatestInvoice.PaymentIntent.ID
	}
	return out
}
