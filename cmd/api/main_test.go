package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"coursebundler/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Address = freeAddress(t)
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Media.Local.Dir = t.TempDir()
	cfg.Monitoring.PrometheusEnabled = false
	cfg.Logging.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	healthURL := "http://" + cfg.Server.Address + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "server never started listening")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}

	_, err := net.DialTimeout("tcp", cfg.Server.Address, 200*time.Millisecond)
	assert.Error(t, err)
}
