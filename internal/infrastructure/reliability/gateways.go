package reliability

import (
	"context"
	"errors"
	"net/http"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/circuitbreaker"
	apperrors "coursebundler/pkg/errors"

	"go.uber.org/zap"
)

func newBreaker(name string, cfg circuitbreaker.Config, logger *zap.SugaredLogger) *circuitbreaker.Breaker {
	b := circuitbreaker.New(name, cfg)
	b.OnStateChange(func(name string, from, to circuitbreaker.State) {
		logger.Warnw("Circuit breaker state changed",
			"dependency", name,
			"from", from.String(),
			"to", to.String(),
		)
	})
	return b
}

// unavailable maps a rejected call onto a 503 for the client.
func unavailable(err error, message string) error {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return apperrors.WrapError(err, apperrors.ErrCodeServiceUnavailable, message, http.StatusServiceUnavailable)
	}
	return err
}

// PaymentGateway guards remote gateway calls with a circuit breaker. Webhook
// parsing and the public key are local and pass straight through.
type PaymentGateway struct {
	next    ports.PaymentGateway
	breaker *circuitbreaker.Breaker
}

func NewPaymentGateway(next ports.PaymentGateway, cfg circuitbreaker.Config, logger *zap.SugaredLogger) *PaymentGateway {
	return &PaymentGateway{
		next:    next,
		breaker: newBreaker("payment_gateway", cfg, logger),
	}
}

const gatewayUnavailable = "Payment gateway temporarily unavailable"

func (g *PaymentGateway) PublicKey() string { return g.next.PublicKey() }

func (g *PaymentGateway) CreateSubscription(ctx context.Context, user *domain.User) (*domain.GatewaySubscription, error) {
	sub, err := circuitbreaker.Call(ctx, g.breaker, func(ctx context.Context) (*domain.GatewaySubscription, error) {
		return g.next.CreateSubscription(ctx, user)
	})
	return sub, unavailable(err, gatewayUnavailable)
}

func (g *PaymentGateway) GetSubscription(ctx context.Context, id string) (*domain.GatewaySubscription, error) {
	sub, err := circuitbreaker.Call(ctx, g.breaker, func(ctx context.Context) (*domain.GatewaySubscription, error) {
		return g.next.GetSubscription(ctx, id)
	})
	return sub, unavailable(err, gatewayUnavailable)
}

func (g *PaymentGateway) CancelSubscription(ctx context.Context, id string) error {
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.next.CancelSubscription(ctx, id)
	})
	return unavailable(err, gatewayUnavailable)
}

func (g *PaymentGateway) Refund(ctx context.Context, paymentRef string) error {
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.next.Refund(ctx, paymentRef)
	})
	return unavailable(err, gatewayUnavailable)
}

func (g *PaymentGateway) ParseWebhook(payload []byte, signature string) (*domain.GatewayEvent, error) {
	return g.next.ParseWebhook(payload, signature)
}

func (g *PaymentGateway) State() circuitbreaker.State { return g.breaker.State() }

// Mailer guards outbound SMTP delivery.
type Mailer struct {
	next    ports.Mailer
	breaker *circuitbreaker.Breaker
}

func NewMailer(next ports.Mailer, cfg circuitbreaker.Config, logger *zap.SugaredLogger) *Mailer {
	return &Mailer{
		next:    next,
		breaker: newBreaker("mailer", cfg, logger),
	}
}

func (m *Mailer) Send(ctx context.Context, mail domain.Mail) error {
	err := m.breaker.Execute(ctx, func(ctx context.Context) error {
		return m.next.Send(ctx, mail)
	})
	return unavailable(err, "Mail service temporarily unavailable")
}

func (m *Mailer) State() circuitbreaker.State { return m.breaker.State() }
