package repositories

import (
	"context"
	"errors"

	"coursebundler/internal/core/ports"
	"coursebundler/internal/infrastructure/repositories/memory"
	mongorepo "coursebundler/internal/infrastructure/repositories/mongo"
	redisrepo "coursebundler/internal/infrastructure/repositories/redis"
	"coursebundler/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// RepositoryFactory creates repositories for the configured driver, falling back
// to memory when the backing store is unreachable.
type RepositoryFactory struct {
	driver      string
	mongoClient *mongo.Client
	mongoDB     *mongo.Database
	redisClient *redis.Client
	logger      *zap.SugaredLogger

	// memory repositories are shared so every Create* call sees the same data
	memUsers    ports.UserRepository
	memCourses  ports.CourseRepository
	memStats    ports.StatsRepository
	memPayments ports.PaymentRepository
}

func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		driver: cfg.Database.Driver,
		logger: logger,
	}

	// Redis also backs the event bus and the sweep lock.
	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis", "error", err)
		} else {
			factory.redisClient = client
		}
	}

	switch factory.driver {
	case DriverMongo:
		client, db, err := mongorepo.NewMongoClient(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout, logger)
		if err != nil {
			logger.Warnw("failed to connect to MongoDB, falling back to memory repositories", "error", err)
			factory.driver = DriverMemory
		} else {
			factory.mongoClient = client
			factory.mongoDB = db
		}
	case DriverRedis:
		if factory.redisClient == nil {
			logger.Warn("Redis unavailable, falling back to memory repositories")
			factory.driver = DriverMemory
		}
	default:
		factory.driver = DriverMemory
	}

	if factory.driver == DriverMemory {
		factory.memUsers = memory.NewMemoryUserRepository()
		factory.memCourses = memory.NewMemoryCourseRepository()
		factory.memStats = memory.NewMemoryStatsRepository()
		factory.memPayments = memory.NewMemoryPaymentRepository()
	}

	logger.Infow("repositories ready", "driver", factory.driver)
	return factory, nil
}

// Driver reports the driver in use after any fallback.
func (f *RepositoryFactory) Driver() string {
	return f.driver
}

// RedisClient returns the shared Redis client, or nil when Redis is not connected.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

func (f *RepositoryFactory) CreateUserRepository() ports.UserRepository {
	switch f.driver {
	case DriverMongo:
		return mongorepo.NewMongoUserRepository(f.mongoDB)
	case DriverRedis:
		return redisrepo.NewRedisUserRepository(f.redisClient)
	}
	return f.memUsers
}

func (f *RepositoryFactory) CreateCourseRepository() ports.CourseRepository {
	switch f.driver {
	case DriverMongo:
		return mongorepo.NewMongoCourseRepository(f.mongoDB)
	case DriverRedis:
		return redisrepo.NewRedisCourseRepository(f.redisClient)
	}
	return f.memCourses
}

func (f *RepositoryFactory) CreateStatsRepository() ports.StatsRepository {
	switch f.driver {
	case DriverMongo:
		return mongorepo.NewMongoStatsRepository(f.mongoDB)
	case DriverRedis:
		return redisrepo.NewRedisStatsRepository(f.redisClient)
	}
	return f.memStats
}

func (f *RepositoryFactory) CreatePaymentRepository() ports.PaymentRepository {
	switch f.driver {
	case DriverMongo:
		return mongorepo.NewMongoPaymentRepository(f.mongoDB)
	case DriverRedis:
		return redisrepo.NewRedisPaymentRepository(f.redisClient)
	}
	return f.memPayments
}

// HealthCheck pings every connected store.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.mongoClient != nil {
		if err := f.mongoClient.Ping(ctx, readpref.Primary()); err != nil {
			return err
		}
	}
	if f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}

func (f *RepositoryFactory) Close(ctx context.Context) error {
	var errs []error
	if f.mongoClient != nil {
		errs = append(errs, f.mongoClient.Disconnect(ctx))
	}
	if f.redisClient != nil {
		errs = append(errs, redisrepo.CloseRedisClient(f.redisClient))
	}
	return errors.Join(errs...)
}
