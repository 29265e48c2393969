package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/utils"
)

// maxUpdateAttempts bounds the read-transform-write loop before reporting a conflict.
const maxUpdateAttempts = 3

type MemoryUserRepository struct {
	users map[domain.UserID]*domain.User
	mu    sync.RWMutex
}

func NewMemoryUserRepository() ports.UserRepository {
	return &MemoryUserRepository{
		users: make(map[domain.UserID]*domain.User),
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}

	stored := user.Clone()
	stored.Version = 1
	r.users[user.ID] = stored
	user.Version = stored.Version
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(func(u *domain.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	return r.findOne(func(u *domain.User) bool {
		return u.ResetPasswordToken != "" &&
			u.ResetPasswordToken == tokenHash &&
			!utils.IsExpired(u.ResetPasswordExpire, now)
	})
}

func (r *MemoryUserRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.User, error) {
	return r.findOne(func(u *domain.User) bool {
		return subscriptionID != "" && u.Subscription.ID == subscriptionID
	})
}

func (r *MemoryUserRepository) findOne(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *MemoryUserRepository) Update(ctx context.Context, id domain.UserID, fn ports.UserMutation) (*domain.User, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}

		ok, err := r.compareAndSwap(current.Version, next)
		if err != nil {
			return nil, err
		}
		if ok {
			return next.Clone(), nil
		}
	}
	return nil, domain.ErrVersionConflict
}

func (r *MemoryUserRepository) compareAndSwap(version int64, next *domain.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.users[next.ID]
	if !exists {
		return false, domain.ErrUserNotFound
	}
	if stored.Version != version {
		return false, nil
	}
	for _, u := range r.users {
		if u.ID != next.ID && u.Email == next.Email {
			return false, domain.ErrEmailTaken
		}
	}

	next.Version = version + 1
	r.users[next.ID] = next.Clone()
	return true, nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[id]; !exists {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *MemoryUserRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *MemoryUserRepository) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, u := range r.users {
		if u.Subscription.IsActive() {
			n++
		}
	}
	return n, nil
}
