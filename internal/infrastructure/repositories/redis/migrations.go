package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	schemaVersionKey     = keyPrefix + "schema:version"
	currentSchemaVersion = 2
)

type Migration struct {
	Version int
	Up      func(ctx context.Context, client *redis.Client) error
}

// Migrate runs every migration newer than the stored schema version.
func Migrate(ctx context.Context, client *redis.Client, logger *zap.SugaredLogger) error {
	currentVersion, err := getSchemaVersion(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion >= currentSchemaVersion {
		if logger != nil {
			logger.Infow("schema is up to date",
				"current_version", currentVersion,
				"target_version", currentSchemaVersion,
			)
		}
		return nil
	}

	for _, migration := range getMigrations() {
		if migration.Version <= currentVersion {
			continue
		}
		if logger != nil {
			logger.Infow("running migration", "version", migration.Version)
		}
		if err := migration.Up(ctx, client); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := setSchemaVersion(ctx, client, migration.Version); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	if logger != nil {
		logger.Infow("all migrations completed", "final_version", currentSchemaVersion)
	}
	return nil
}

func getSchemaVersion(ctx context.Context, client *redis.Client) (int, error) {
	val, err := client.Get(ctx, schemaVersionKey).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func setSchemaVersion(ctx context.Context, client *redis.Client, version int) error {
	return client.Set(ctx, schemaVersionKey, version, 0).Err()
}

func getMigrations() []Migration {
	return []Migration{
		{
			// 1: id sets are the source of truth for listing; nothing to create
			// up front, only the version marker.
			Version: 1,
			Up: func(ctx context.Context, client *redis.Client) error {
				return nil
			},
		},
		{
			// 2: rebuild the email and subscription lookup keys from user documents.
			Version: 2,
			Up: func(ctx context.Context, client *redis.Client) error {
				ids, err := client.SMembers(ctx, userIDsKey).Result()
				if err != nil {
					return err
				}
				for _, id := range ids {
					data, err := client.Get(ctx, keyPrefix+"user:"+id).Bytes()
					if err == redis.Nil {
						continue
					}
					if err != nil {
						return err
					}
					var rec userRecord
					if err := json.Unmarshal(data, &rec); err != nil {
						return err
					}
					if err := client.Set(ctx, userEmailKey(rec.Email), id, 0).Err(); err != nil {
						return err
					}
					if rec.Subscription.ID != "" {
						if err := client.Set(ctx, userSubscriptionKey(rec.Subscription.ID), id, 0).Err(); err != nil {
							return err
						}
					}
				}
				return nil
			},
		},
	}
}
