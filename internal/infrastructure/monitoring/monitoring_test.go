package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"coursebundler/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollectorRecords(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.RecordLogin(true)
	c.RecordLogin(false)
	c.RecordLogin(false)
	c.RecordEmailSent("contact", errors.New("smtp down"))
	c.RecordHTTPRequest("GET", "/api/v1/courses", 200, 10*time.Millisecond)
	c.RecordStatsRecomputed(&domain.StatsSnapshot{Users: 4, Subscription: 2, Views: 9}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.loginsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.emailsSentTotal.WithLabelValues("contact", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/api/v1/courses", "200")))
	assert.Equal(t, 9.0, testutil.ToFloat64(c.statsViews))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.statsSubscriptions))
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealthCheckerCheckAll(t *testing.T) {
	h := NewHealthChecker()
	h.AddDatastoreCheck("memory", pingerFunc(func(context.Context) error { return nil }), time.Second)
	assert.Equal(t, StatusHealthy, h.CheckAll(context.Background()).Status)

	h.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)

	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Checks["datastore_memory"])
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"])
}
