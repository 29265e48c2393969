package ports

import (
	"context"
	"time"

	"coursebundler/internal/core/domain"
)

type MediaStore interface {
	Upload(ctx context.Context, kind domain.MediaKind, file *domain.Upload) (domain.MediaRef, error)
	Destroy(ctx context.Context, kind domain.MediaKind, ref domain.MediaRef) error
}

type PaymentGateway interface {
	PublicKey() string
	CreateSubscription(ctx context.Context, user *domain.User) (*domain.GatewaySubscription, error)
	GetSubscription(ctx context.Context, id string) (*domain.GatewaySubscription, error)
	CancelSubscription(ctx context.Context, id string) error
	Refund(ctx context.Context, paymentRef string) error
	ParseWebhook(payload []byte, signature string) (*domain.GatewayEvent, error)
}

type Mailer interface {
	Send(ctx context.Context, mail domain.Mail) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type ChangePublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// ChangeSubscriber delivers change events to handler until ctx is done.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, handler func(domain.ChangeEvent)) error
}

type MetricsRecorder interface {
	RecordUserRegistered()
	RecordLogin(success bool)
	RecordCourseCreated()
	RecordLectureAdded()
	RecordLectureDeleted()
	RecordCourseViewed()
	RecordSubscriptionEvent(event string)
	RecordEmailSent(kind string, err error)
	RecordStatsRecomputed(snapshot *domain.StatsSnapshot, duration time.Duration)
}
