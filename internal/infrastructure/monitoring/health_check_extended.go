package monitoring

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// AddRedisCheck pings the shared Redis client used by the event bus and sweep lock.
func (h *HealthChecker) AddRedisCheck(client *redis.Client, timeout time.Duration) {
	h.AddCheck("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}, timeout)
}

// Pinger is satisfied by the repository factory.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

func (h *HealthChecker) AddDatastoreCheck(driver string, store Pinger, timeout time.Duration) {
	h.AddCheck("datastore_"+driver, store.HealthCheck, timeout)
}
