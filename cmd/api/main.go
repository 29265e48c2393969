package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursebundler/internal/core/ports"
	"coursebundler/internal/core/services"
	httphandlers "coursebundler/internal/handlers/http"
	"coursebundler/internal/infrastructure/distributed"
	"coursebundler/internal/infrastructure/mailer"
	"coursebundler/internal/infrastructure/media"
	"coursebundler/internal/infrastructure/monitoring"
	"coursebundler/internal/infrastructure/payment"
	"coursebundler/internal/infrastructure/reliability"
	repositories "coursebundler/internal/infrastructure/repositories"
	"coursebundler/internal/infrastructure/scheduler"
	"coursebundler/pkg/circuitbreaker"
	"coursebundler/pkg/config"
	"coursebundler/pkg/logger"
	"coursebundler/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const checkTimeout = 2 * time.Second

// publisherSubscriber is the change bus shared by services and the stats aggregator.
type publisherSubscriber interface {
	ports.ChangePublisher
	ports.ChangeSubscriber
}

func main() {
	configPath := os.Getenv("COURSEBUNDLER_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.New("info", "json").Sugar().Fatalw("failed to load configuration", "path", configPath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.New("info", "json").Sugar().Fatalw("CourseBundler API failed", "error", err)
	}
}

// run serves the API until ctx is cancelled or the listener fails, then shuts
// everything down.
func run(parent context.Context, cfg *config.Config) error {
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "coursebundler",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	userRepo := repoFactory.CreateUserRepository()
	courseRepo := repoFactory.CreateCourseRepository()
	statsRepo := repoFactory.CreateStatsRepository()
	paymentRepo := repoFactory.CreatePaymentRepository()

	mediaStore, mediaDir, err := newMediaStore(ctx, cfg, log)
	if err != nil {
		repoFactory.Close(ctx)
		return fmt.Errorf("failed to initialise %s media storage: %w", cfg.Media.Provider, err)
	}

	var gateway ports.PaymentGateway
	if cfg.Payment.Enabled {
		stripeGateway := payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:      cfg.Payment.SecretKey,
			PublishableKey: cfg.Payment.PublishableKey,
			PriceID:        cfg.Payment.PriceID,
			WebhookSecret:  cfg.Payment.WebhookSecret,
		}, log)
		gateway = reliability.NewPaymentGateway(stripeGateway, circuitbreaker.DefaultConfig(), log)
	} else {
		log.Warn("Payment gateway disabled, subscription endpoints will return 503")
	}

	var outbound ports.Mailer
	if cfg.Mail.Host != "" {
		smtpMailer := mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			Timeout:  cfg.Mail.Timeout,
		}, log)
		outbound = reliability.NewMailer(smtpMailer, circuitbreaker.DefaultConfig(), log)
	} else {
		outbound = mailer.NewLogMailer(log)
	}

	var bus publisherSubscriber
	redisClient := repoFactory.RedisClient()
	if redisClient != nil {
		eventBus := distributed.NewEventBus(redisClient, cfg.Server.InstanceID, log)
		defer eventBus.Close()
		bus = eventBus
	} else {
		bus = distributed.NewLocalBus()
	}

	var metrics ports.MetricsRecorder = services.NopMetrics{}
	var collector *monitoring.PrometheusCollector
	var metricsHandler http.Handler
	if cfg.Monitoring.PrometheusEnabled {
		collector = monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)
		metrics = collector
		metricsHandler = promhttp.Handler()
		log.Info("Prometheus metrics enabled")
	}

	health := monitoring.NewHealthChecker()
	health.AddDatastoreCheck(repoFactory.Driver(), repoFactory, checkTimeout)
	if redisClient != nil {
		health.AddRedisCheck(redisClient, checkTimeout)
	}

	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	userService := services.NewUserService(
		userRepo, courseRepo, mediaStore, outbound,
		services.NewBcryptHasher(cfg.Auth.BcryptCost),
		gateway, bus, metrics,
		services.UserServiceConfig{
			FrontendURL:   cfg.App.FrontendURL,
			ResetTokenTTL: cfg.Auth.ResetTokenTTL,
			InstanceID:    cfg.Server.InstanceID,
		},
		log,
	)
	courseService := services.NewCourseService(courseRepo, mediaStore, bus, metrics, cfg.Server.InstanceID, log)
	paymentService := services.NewPaymentService(userRepo, paymentRepo, gateway, bus, metrics, cfg.Payment.RefundDays, cfg.Server.InstanceID, log)
	statsService := services.NewStatsService(userRepo, courseRepo, statsRepo, metrics, cfg.Stats.HistorySize, log)

	adminAddress := cfg.Mail.AdminAddress
	if adminAddress == "" {
		adminAddress = cfg.Mail.From
	}
	contactService := services.NewContactService(outbound, adminAddress, metrics, log)

	aggregator := services.NewStatsAggregator(statsService, bus, log)
	go aggregator.Run(ctx)

	var lockClient redis.Cmdable
	if redisClient != nil {
		lockClient = redisClient
	}
	sweep := scheduler.NewStatsSweep(statsService, lockClient, scheduler.Config{
		Interval: cfg.Stats.SweepInterval,
		LockTTL:  cfg.Stats.LockTTL,
	}, log)
	go sweep.Start(ctx)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := httphandlers.RouterDeps{
		Config:         cfg,
		Logger:         zapLogger,
		Auth:           authService,
		Accounts:       userRepo,
		Users:          userService,
		Courses:        courseService,
		Payments:       paymentService,
		Stats:          statsService,
		Contact:        contactService,
		Health:         health,
		MetricsHandler: metricsHandler,
		MediaDir:       mediaDir,
	}
	if collector != nil {
		deps.Metrics = collector
	}
	router := httphandlers.NewRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Starting CourseBundler API",
			"address", cfg.Server.Address,
			"base_path", cfg.Server.BasePath,
			"datastore", repoFactory.Driver(),
			"media", cfg.Media.Provider,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
		log.Errorw("Server failed", "error", runErr)
	case <-parent.Done():
		log.Info("Received shutdown signal")
	}

	log.Info("Shutting down CourseBundler API...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	sweep.Stop()
	cancel()

	if err := repoFactory.Close(shutdownCtx); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	log.Info("CourseBundler API stopped")
	return runErr
}

// newMediaStore returns the configured store and, for local storage, the
// directory the router should serve.
func newMediaStore(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (ports.MediaStore, string, error) {
	if cfg.Media.Provider == "s3" {
		store, err := media.NewS3Store(ctx, media.S3Config{
			Region:        cfg.Media.S3.Region,
			Bucket:        cfg.Media.S3.Bucket,
			PublicBaseURL: cfg.Media.S3.PublicBaseURL,
		}, log)
		return store, "", err
	}

	store, err := media.NewLocalStore(cfg.Media.Local.Dir, cfg.Media.Local.BaseURL, log)
	if err != nil {
		return nil, "", err
	}
	return store, store.Dir(), nil
}
