package repositories

import (
	"context"
	"testing"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFactoryMemoryReposAreShared(t *testing.T) {
	cfg := config.DefaultConfig()
	f, err := NewRepositoryFactory(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, f.Driver())
	assert.Nil(t, f.RedisClient())

	ctx := context.Background()
	require.NoError(t, f.CreateUserRepository().Create(ctx, &domain.User{ID: "u1", Email: "a@b.c", CreatedAt: time.Now()}))
	_, err = f.CreateUserRepository().GetByID(ctx, "u1")
	assert.NoError(t, err)

	assert.NoError(t, f.HealthCheck(ctx))
	assert.NoError(t, f.Close(ctx))
}

func TestFactoryFallsBackWhenRedisDriverUnavailable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Driver = DriverRedis
	f, err := NewRepositoryFactory(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, f.Driver())
	assert.NotNil(t, f.CreateStatsRepository())
	assert.NotNil(t, f.CreatePaymentRepository())
	assert.NotNil(t, f.CreateCourseRepository())
}
