package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"
	"coursebundler/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const userIDsKey = keyPrefix + "user:ids"

func userKey(id domain.UserID) string         { return keyPrefix + "user:" + string(id) }
func userEmailKey(email string) string        { return keyPrefix + "user:email:" + email }
func userResetKey(hash string) string         { return keyPrefix + "user:reset:" + hash }
func userSubscriptionKey(subID string) string { return keyPrefix + "user:subscription:" + subID }

// userRecord is the stored form; it keeps the fields the API never serializes.
type userRecord struct {
	domain.User
	Password    string     `json:"password"`
	ResetToken  string     `json:"reset_password_token,omitempty"`
	ResetExpire *time.Time `json:"reset_password_expire,omitempty"`
	Version     int64      `json:"version"`
}

func toUserRecord(u *domain.User) userRecord {
	return userRecord{
		User:        *u,
		Password:    u.PasswordHash,
		ResetToken:  u.ResetPasswordToken,
		ResetExpire: u.ResetPasswordExpire,
		Version:     u.Version,
	}
}

func (rec userRecord) toUser() *domain.User {
	u := rec.User
	u.PasswordHash = rec.Password
	u.ResetPasswordToken = rec.ResetToken
	u.ResetPasswordExpire = rec.ResetExpire
	u.Version = rec.Version
	return &u
}

type RedisUserRepository struct {
	client *redis.Client
}

func NewRedisUserRepository(client *redis.Client) ports.UserRepository {
	return &RedisUserRepository{client: client}
}

func (r *RedisUserRepository) load(ctx context.Context, g getter, id domain.UserID) (*domain.User, error) {
	var rec userRecord
	if err := getJSON(ctx, g, userKey(id), &rec, domain.ErrUserNotFound); err != nil {
		return nil, err
	}
	return rec.toUser(), nil
}

func (r *RedisUserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "create", "users")
	defer span.End()

	claimed, err := r.client.SetNX(ctx, userEmailKey(user.Email), string(user.ID), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim email: %w", err)
	}
	if !claimed {
		return domain.ErrEmailTaken
	}

	user.Version = 1
	data, err := json.Marshal(toUserRecord(user))
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(user.ID), data, 0)
		pipe.SAdd(ctx, userIDsKey, string(user.ID))
		return nil
	})
	if err != nil {
		r.client.Del(ctx, userEmailKey(user.Email))
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

func (r *RedisUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "get", "users")
	defer span.End()
	return r.load(ctx, r.client, id)
}

func (r *RedisUserRepository) byIndex(ctx context.Context, indexKey string) (*domain.User, error) {
	id, err := r.client.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", indexKey, err)
	}
	return r.load(ctx, r.client, domain.UserID(id))
}

func (r *RedisUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "get_by_email", "users")
	defer span.End()

	user, err := r.byIndex(ctx, userEmailKey(email))
	if err != nil {
		return nil, err
	}
	// stale index entry left by a failed write
	if user.Email != email {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *RedisUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "get_by_reset_token", "users")
	defer span.End()

	user, err := r.byIndex(ctx, userResetKey(tokenHash))
	if err != nil {
		return nil, err
	}
	if user.ResetPasswordToken != tokenHash || utils.IsExpired(user.ResetPasswordExpire, now) {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *RedisUserRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "get_by_subscription", "users")
	defer span.End()

	user, err := r.byIndex(ctx, userSubscriptionKey(subscriptionID))
	if err != nil {
		return nil, err
	}
	if user.Subscription.ID != subscriptionID {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// Update applies fn under WATCH on the user document, and on the new email index
// key when the email changes. A concurrent write aborts the transaction and the
// transform is re-applied to a fresh read.
func (r *RedisUserRepository) Update(ctx context.Context, id domain.UserID, fn ports.UserMutation) (*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "update", "users")
	defer span.End()

	key := userKey(id)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var updated *domain.User
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := r.load(ctx, tx, id)
			if err != nil {
				return err
			}
			next := current.Clone()
			if err := fn(next); err != nil {
				return err
			}

			if next.Email != current.Email {
				// a concurrent claim of the new address aborts EXEC
				if err := tx.Watch(ctx, userEmailKey(next.Email)).Err(); err != nil {
					return err
				}
				owner, err := tx.Get(ctx, userEmailKey(next.Email)).Result()
				if err != nil && !errors.Is(err, redis.Nil) {
					return err
				}
				if err == nil && owner != string(id) {
					return domain.ErrEmailTaken
				}
			}

			next.Version = current.Version + 1
			data, err := json.Marshal(toUserRecord(next))
			if err != nil {
				return fmt.Errorf("failed to marshal user: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				r.reindex(ctx, pipe, current, next)
				return nil
			})
			if err == nil {
				updated = next
			}
			return err
		}, key)

		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return nil, err
		}
	}
	return nil, domain.ErrVersionConflict
}

// reindex moves lookup keys whose indexed field changed.
func (r *RedisUserRepository) reindex(ctx context.Context, pipe redis.Pipeliner, current, next *domain.User) {
	id := string(next.ID)

	if next.Email != current.Email {
		pipe.Del(ctx, userEmailKey(current.Email))
		pipe.Set(ctx, userEmailKey(next.Email), id, 0)
	}

	if next.ResetPasswordToken != current.ResetPasswordToken {
		if current.ResetPasswordToken != "" {
			pipe.Del(ctx, userResetKey(current.ResetPasswordToken))
		}
	}
	if next.ResetPasswordToken != "" && next.ResetPasswordExpire != nil {
		ttl := time.Until(*next.ResetPasswordExpire)
		if ttl > 0 {
			pipe.Set(ctx, userResetKey(next.ResetPasswordToken), id, ttl)
		}
	}

	if next.Subscription.ID != current.Subscription.ID {
		if current.Subscription.ID != "" {
			pipe.Del(ctx, userSubscriptionKey(current.Subscription.ID))
		}
		if next.Subscription.ID != "" {
			pipe.Set(ctx, userSubscriptionKey(next.Subscription.ID), id, 0)
		}
	}
}

func (r *RedisUserRepository) Delete(ctx context.Context, id domain.UserID) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "delete", "users")
	defer span.End()

	user, err := r.load(ctx, r.client, id)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, userKey(id))
		pipe.SRem(ctx, userIDsKey, string(id))
		pipe.Del(ctx, userEmailKey(user.Email))
		if user.ResetPasswordToken != "" {
			pipe.Del(ctx, userResetKey(user.ResetPasswordToken))
		}
		if user.Subscription.ID != "" {
			pipe.Del(ctx, userSubscriptionKey(user.Subscription.ID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (r *RedisUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "list", "users")
	defer span.End()
	return r.all(ctx)
}

func (r *RedisUserRepository) all(ctx context.Context) ([]*domain.User, error) {
	ids, err := r.client.SMembers(ctx, userIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(domain.UserID(id))
	}

	users := make([]*domain.User, 0, len(ids))
	err = mgetJSON(ctx, r.client, keys, func(data []byte) error {
		var rec userRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal user: %w", err)
		}
		users = append(users, rec.toUser())
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *RedisUserRepository) Count(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, userIDsKey).Result()
}

func (r *RedisUserRepository) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	users, err := r.all(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, u := range users {
		if u.Subscription.IsActive() {
			n++
		}
	}
	return n, nil
}
