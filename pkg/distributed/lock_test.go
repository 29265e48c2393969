package distributed

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquire_TokenFailure(t *testing.T) {
	tokenSource = func([]byte) (int, error) { return 0, errors.New("entropy exhausted") }
	t.Cleanup(func() { tokenSource = defaultTokenSource })

	// never dialled: the token is generated before any command is sent
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	lock := NewLock(client, "coursebundler:lock:test", time.Second)
	ok, err := lock.TryAcquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
	assert.False(t, ok)
	assert.ErrorIs(t, lock.Release(context.Background()), ErrLockNotHeld)
}

func TestRunExclusive(t *testing.T) {
	addr := os.Getenv("COURSEBUNDLER_TEST_REDIS")
	if addr == "" {
		t.Skip("COURSEBUNDLER_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer client.Close()
	ctx := context.Background()
	require.NoError(t, client.Del(ctx, "coursebundler:lock:test").Err())

	first := NewLock(client, "coursebundler:lock:test", time.Minute)
	second := NewLock(client, "coursebundler:lock:test", time.Minute)

	ran, err := RunExclusive(ctx, first, func(ctx context.Context) error {
		inner, err := RunExclusive(ctx, second, func(context.Context) error { return nil })
		require.NoError(t, err)
		assert.False(t, inner)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	ok, err := second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, second.Release(ctx))
}
