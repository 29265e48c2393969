package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, 15*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 7, cfg.Payment.RefundDays)
	assert.Equal(t, 12, cfg.Stats.HistorySize)
}

func TestLoad_UsesDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load("non-existent-config.yaml")
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.Server.Address)
	assert.Equal(t, "/api/v1", cfg.Server.BasePath)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeTempConfig(t, `
server:
  address: ":9000"
  read_timeout: 10s
app:
  frontend_url: "https://courses.example.com"
database:
  driver: mongo
mongo:
  uri: "mongodb://db:27017"
  database: bundler
stats:
  sweep_interval: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "https://courses.example.com", cfg.App.FrontendURL)
	assert.Equal(t, "mongo", cfg.Database.Driver)
	assert.Equal(t, "bundler", cfg.Mongo.Database)
	assert.Equal(t, 30*time.Second, cfg.Stats.SweepInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("FRONTEND_URL", "https://front.example.com")
	t.Setenv("PORT", "5050")
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_PRICE_ID", "price_123")
	t.Setenv("REFUND_DAYS", "3")
	t.Setenv("MY_MAIL", "admin@example.com")

	cfg, err := Load("non-existent-config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "https://front.example.com", cfg.App.FrontendURL)
	assert.Equal(t, ":5050", cfg.Server.Address)
	assert.Equal(t, "mongo", cfg.Database.Driver)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
	assert.True(t, cfg.Payment.Enabled)
	assert.Equal(t, 3, cfg.Payment.RefundDays)
	assert.Equal(t, "admin@example.com", cfg.Mail.AdminAddress)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"redis driver without redis", func(c *Config) { c.Database.Driver = "redis"; c.Redis.Enabled = false }},
		{"mongo without uri", func(c *Config) { c.Database.Driver = "mongo"; c.Mongo.URI = "" }},
		{"empty jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"zero session ttl", func(c *Config) { c.Auth.SessionTTL = 0 }},
		{"s3 without bucket", func(c *Config) { c.Media.Provider = "s3" }},
		{"unknown media provider", func(c *Config) { c.Media.Provider = "ftp" }},
		{"payment without price", func(c *Config) { c.Payment.Enabled = true; c.Payment.SecretKey = "sk" }},
		{"negative refund days", func(c *Config) { c.Payment.RefundDays = -1 }},
		{"history too small", func(c *Config) { c.Stats.HistorySize = 1 }},
		{"rate limit without rps", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.HTTP.RequestsPerSecond = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0

	assert.NoError(t, cfg.Validate())
}
