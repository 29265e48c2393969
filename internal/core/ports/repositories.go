package ports

import (
	"context"
	"time"

	"coursebundler/internal/core/domain"
)

// UserMutation transforms a copy of a stored user. Returning an error aborts the write.
type UserMutation func(u *domain.User) error

// CourseMutation transforms a copy of a stored course. Returning an error aborts the write.
type CourseMutation func(c *domain.Course) error

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.User, error)
	// Update reads the user, applies fn to a copy and writes it back only if the
	// stored version is unchanged.
	Update(ctx context.Context, id domain.UserID, fn UserMutation) (*domain.User, error)
	Delete(ctx context.Context, id domain.UserID) error
	List(ctx context.Context) ([]*domain.User, error)
	Count(ctx context.Context) (int64, error)
	CountActiveSubscriptions(ctx context.Context) (int64, error)
}

type CourseRepository interface {
	Create(ctx context.Context, course *domain.Course) error
	GetByID(ctx context.Context, id domain.CourseID) (*domain.Course, error)
	Update(ctx context.Context, id domain.CourseID, fn CourseMutation) (*domain.Course, error)
	Delete(ctx context.Context, id domain.CourseID) error
	Search(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error)
	TotalViews(ctx context.Context) (int64, error)
}

type StatsRepository interface {
	Append(ctx context.Context, snapshot *domain.StatsSnapshot) error
	Replace(ctx context.Context, snapshot *domain.StatsSnapshot) error
	Latest(ctx context.Context) (*domain.StatsSnapshot, error)
	// Recent returns up to limit snapshots, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.StatsSnapshot, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Payment, error)
	Delete(ctx context.Context, id domain.PaymentID) error
}
