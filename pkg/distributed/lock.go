package distributed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLockNotHeld = errors.New("lock was not held by this instance")

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Lock is a single-holder lease stored in Redis with SET NX PX.
type Lock struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	token  string
}

func NewLock(client redis.Cmdable, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

var defaultTokenSource = rand.Read

// tokenSource fills lease tokens.
var tokenSource = defaultTokenSource

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := tokenSource(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// TryAcquire takes the lease without blocking. The lease expires after ttl even
// if Release is never called.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	token, err := newToken()
	if err != nil {
		return false, fmt.Errorf("failed to generate token for lock %s: %w", l.key, err)
	}
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if acquired {
		l.token = token
	}
	return acquired, nil
}

func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return ErrLockNotHeld
	}
	res, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	l.token = ""
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if res == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// RunExclusive runs fn only if the lease can be taken; ran reports whether it did.
func RunExclusive(ctx context.Context, l *Lock, fn func(ctx context.Context) error) (ran bool, err error) {
	ok, err := l.TryAcquire(ctx)
	if err != nil || !ok {
		return false, err
	}
	defer func() {
		if relErr := l.Release(context.WithoutCancel(ctx)); relErr != nil && err == nil && !errors.Is(relErr, ErrLockNotHeld) {
			err = relErr
		}
	}()
	return true, fn(ctx)
}
