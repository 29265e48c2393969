package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"coursebundler/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newTestDatabase connects to COURSEBUNDLER_TEST_MONGO and returns a throwaway database.
func newTestDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("COURSEBUNDLER_TEST_MONGO")
	if uri == "" {
		t.Skip("COURSEBUNDLER_TEST_MONGO not set")
	}
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database(fmt.Sprintf("coursebundler_test_%d", time.Now().UnixNano()))
	require.NoError(t, EnsureIndexes(ctx, db))
	t.Cleanup(func() {
		db.Drop(context.Background())
		client.Disconnect(context.Background())
	})
	return db
}

func TestMongoUserRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewMongoUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Name: "Ann", Email: "ann@example.com", PasswordHash: "hash", CreatedAt: time.Now()}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.User{ID: "u2", Email: "ann@example.com"}), domain.ErrEmailTaken)
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u3", Email: "bob@example.com", CreatedAt: time.Now()}))

	expire := time.Now().Add(time.Minute)
	updated, err := repo.Update(ctx, "u1", func(u *domain.User) error {
		u.ResetPasswordToken = "tokhash"
		u.ResetPasswordExpire = &expire
		u.Subscription = domain.Subscription{ID: "sub_1", Status: domain.SubscriptionStatusActive}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	_, err = repo.GetByResetToken(ctx, "tokhash", time.Now())
	assert.NoError(t, err)
	_, err = repo.GetByResetToken(ctx, "tokhash", expire.Add(time.Second))
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	got, err := repo.GetBySubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = repo.Update(ctx, "u3", func(u *domain.User) error {
		u.Email = "ann@example.com"
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	active, err := repo.CountActiveSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, repo.Delete(ctx, "u1"))
	assert.ErrorIs(t, repo.Delete(ctx, "u1"), domain.ErrUserNotFound)
}

func TestMongoCourseRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewMongoCourseRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Course{ID: "c1", Title: "Intro to Go", Category: "Web Development", Views: 3, Lectures: []domain.Lecture{{ID: "l1"}}, CreatedAt: time.Now()}))
	require.NoError(t, repo.Create(ctx, &domain.Course{ID: "c2", Title: "C++ (advanced)", Category: "Systems", Views: 4, CreatedAt: time.Now()}))

	found, err := repo.Search(ctx, domain.CourseFilter{Keyword: "go"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Empty(t, found[0].Lectures)

	found, err = repo.Search(ctx, domain.CourseFilter{Keyword: "c++ ("})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	views, err := repo.TotalViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), views)

	_, err = repo.Update(ctx, "missing", func(c *domain.Course) error { return nil })
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)
}

func TestMongoStatsAndPaymentRepositories(t *testing.T) {
	db := newTestDatabase(t)
	stats := NewMongoStatsRepository(db)
	payments := NewMongoPaymentRepository(db)
	ctx := context.Background()

	_, err := stats.Latest(ctx)
	assert.ErrorIs(t, err, domain.ErrStatsNotFound)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, stats.Append(ctx, &domain.StatsSnapshot{ID: domain.StatsID(fmt.Sprint(i)), Users: int64(i), CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	recent, err := stats.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(2), recent[0].Users)

	assert.ErrorIs(t, stats.Replace(ctx, &domain.StatsSnapshot{ID: "nope"}), domain.ErrStatsNotFound)

	require.NoError(t, payments.Create(ctx, &domain.Payment{ID: "p1", SubscriptionID: "sub_1", CreatedAt: base}))
	require.NoError(t, payments.Create(ctx, &domain.Payment{ID: "p2", SubscriptionID: "sub_1", CreatedAt: base.Add(time.Minute)}))
	latest, err := payments.GetBySubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentID("p2"), latest.ID)
	assert.ErrorIs(t, payments.Delete(ctx, "p9"), domain.ErrPaymentNotFound)
}
