package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		BasePath        string        `yaml:"base_path"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
		InstanceID      string        `yaml:"instance_id"`
	} `yaml:"server"`

	App struct {
		FrontendURL string `yaml:"frontend_url"`
	} `yaml:"app"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// Database.Driver is one of mongo, redis or memory.
	Database struct {
		Driver string `yaml:"driver"`
	} `yaml:"database"`

	Mongo struct {
		URI            string        `yaml:"uri"`
		Database       string        `yaml:"database"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"`
	} `yaml:"mongo"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret     string        `yaml:"jwt_secret"`
		SessionTTL    time.Duration `yaml:"session_ttl"`
		CookieName    string        `yaml:"cookie_name"`
		CookieSecure  bool          `yaml:"cookie_secure"`
		ResetTokenTTL time.Duration `yaml:"reset_token_ttl"`
		BcryptCost    int           `yaml:"bcrypt_cost"`
	} `yaml:"auth"`

	// Media.Provider is s3 or local.
	Media struct {
		Provider string `yaml:"provider"`
		S3       struct {
			Region        string `yaml:"region"`
			Bucket        string `yaml:"bucket"`
			PublicBaseURL string `yaml:"public_base_url"`
		} `yaml:"s3"`
		Local struct {
			Dir     string `yaml:"dir"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"local"`
	} `yaml:"media"`

	Payment struct {
		Enabled        bool   `yaml:"enabled"`
		SecretKey      string `yaml:"secret_key"`
		PublishableKey string `yaml:"publishable_key"`
		PriceID        string `yaml:"price_id"`
		WebhookSecret  string `yaml:"webhook_secret"`
		RefundDays     int    `yaml:"refund_days"`
	} `yaml:"payment"`

	// Mail.Host empty means outbound mail is logged instead of sent.
	Mail struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Username     string        `yaml:"username"`
		Password     string        `yaml:"password"`
		From         string        `yaml:"from"`
		AdminAddress string        `yaml:"admin_address"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"mail"`

	Stats struct {
		SweepInterval time.Duration `yaml:"sweep_interval"`
		LockTTL       time.Duration `yaml:"lock_ttl"`
		HistorySize   int           `yaml:"history_size"`
	} `yaml:"stats"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be > 0")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	switch c.Database.Driver {
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri must not be empty when database.driver=mongo")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo.database must not be empty when database.driver=mongo")
		}
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("redis.enabled must be true when database.driver=redis")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be one of mongo, redis, memory (got %q)", c.Database.Driver)
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be > 0")
	}
	if c.Auth.CookieName == "" {
		return fmt.Errorf("auth.cookie_name must not be empty")
	}
	if c.Auth.ResetTokenTTL <= 0 {
		return fmt.Errorf("auth.reset_token_ttl must be > 0")
	}

	switch c.Media.Provider {
	case "s3":
		if c.Media.S3.Bucket == "" || c.Media.S3.Region == "" {
			return fmt.Errorf("media.s3.bucket and media.s3.region must be set when media.provider=s3")
		}
	case "local":
		if c.Media.Local.Dir == "" {
			return fmt.Errorf("media.local.dir must not be empty when media.provider=local")
		}
	default:
		return fmt.Errorf("media.provider must be s3 or local (got %q)", c.Media.Provider)
	}

	if c.Payment.Enabled {
		if c.Payment.SecretKey == "" || c.Payment.PriceID == "" {
			return fmt.Errorf("payment.secret_key and payment.price_id must be set when payment.enabled=true")
		}
	}
	if c.Payment.RefundDays < 0 {
		return fmt.Errorf("payment.refund_days must be >= 0")
	}

	if c.Mail.Host != "" && c.Mail.Port <= 0 {
		return fmt.Errorf("mail.port must be > 0 when mail.host is set")
	}

	if c.Stats.SweepInterval <= 0 {
		return fmt.Errorf("stats.sweep_interval must be > 0")
	}
	if c.Stats.HistorySize <= 1 {
		return fmt.Errorf("stats.history_size must be > 1")
	}

	if c.Tracing.Enabled && (c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1) {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads .env files, then the YAML file, applies env overrides and validates.
// A missing YAML file falls back to defaults.
func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables take precedence over it.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration that runs standalone: memory storage,
// local media, logged mail and payments disabled.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":4000"
	cfg.Server.BasePath = "/api/v1"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 5 * time.Minute
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.MaxUploadBytes = 100 << 20

	cfg.App.FrontendURL = "http://localhost:3000"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Database.Driver = "memory"

	cfg.Mongo.URI = "mongodb://localhost:27017"
	cfg.Mongo.Database = "coursebundler"
	cfg.Mongo.ConnectTimeout = 10 * time.Second

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.SessionTTL = 15 * 24 * time.Hour
	cfg.Auth.CookieName = "token"
	cfg.Auth.CookieSecure = true
	cfg.Auth.ResetTokenTTL = 15 * time.Minute
	cfg.Auth.BcryptCost = 10

	cfg.Media.Provider = "local"
	cfg.Media.Local.Dir = "uploads"
	cfg.Media.Local.BaseURL = "/uploads"

	cfg.Payment.Enabled = false
	cfg.Payment.RefundDays = 7

	cfg.Mail.Port = 587
	cfg.Mail.From = "Course Bundler <noreply@coursebundler.local>"
	cfg.Mail.Timeout = 15 * time.Second

	cfg.Stats.SweepInterval = 10 * time.Minute
	cfg.Stats.LockTTL = time.Minute
	cfg.Stats.HistorySize = 12

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	return cfg
}

// applyEnvOverrides honours COURSEBUNDLER_* variables and the plain names used by
// existing deployments (PORT, JWT_SECRET, FRONTEND_URL, ...). Prefixed names win.
func (c *Config) applyEnvOverrides() {
	setString(&c.Server.Address, "COURSEBUNDLER_SERVER_ADDRESS")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("COURSEBUNDLER_SERVER_ADDRESS") == "" {
		c.Server.Address = ":" + port
	}
	setString(&c.Server.InstanceID, "COURSEBUNDLER_INSTANCE_ID")
	setString(&c.App.FrontendURL, "FRONTEND_URL", "COURSEBUNDLER_FRONTEND_URL")
	setString(&c.Logging.Level, "COURSEBUNDLER_LOG_LEVEL")

	setString(&c.Database.Driver, "COURSEBUNDLER_DATABASE_DRIVER")
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		c.Mongo.URI = uri
		if os.Getenv("COURSEBUNDLER_DATABASE_DRIVER") == "" {
			c.Database.Driver = "mongo"
		}
	}
	setString(&c.Mongo.Database, "MONGO_DATABASE")

	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	setString(&c.Redis.Password, "REDIS_PASSWORD")

	setString(&c.Auth.JWTSecret, "JWT_SECRET", "COURSEBUNDLER_JWT_SECRET")

	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		c.Media.S3.Bucket = bucket
		c.Media.Provider = "s3"
	}
	setString(&c.Media.S3.Region, "AWS_REGION")
	setString(&c.Media.S3.PublicBaseURL, "S3_PUBLIC_BASE_URL")

	if key := os.Getenv("STRIPE_SECRET_KEY"); key != "" {
		c.Payment.SecretKey = key
		c.Payment.Enabled = true
	}
	setString(&c.Payment.PublishableKey, "STRIPE_PUBLISHABLE_KEY")
	setString(&c.Payment.PriceID, "STRIPE_PRICE_ID", "PLAN_ID")
	setString(&c.Payment.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setInt(&c.Payment.RefundDays, "REFUND_DAYS")

	setString(&c.Mail.Host, "SMTP_HOST")
	setInt(&c.Mail.Port, "SMTP_PORT")
	setString(&c.Mail.Username, "SMTP_USER")
	setString(&c.Mail.Password, "SMTP_PASS")
	setString(&c.Mail.AdminAddress, "MY_MAIL")
}

// setString applies the last non-empty variable among names.
func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

func setInt(dst *int, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
}
