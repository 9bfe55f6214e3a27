package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error)
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) (bool, error)
	Close() error
}

// NewLockToken returns a value identifying one lock holder.
func NewLockToken() string {
	return uuid.NewString()
}

// WithLock runs fn while holding key. It returns held=false without calling
// fn when another holder owns the lock.
func WithLock(ctx context.Context, c Service, key string, ttl time.Duration, fn func() error) (held bool, err error) {
	token := NewLockToken()
	ok, err := c.TryLock(ctx, key, token, ttl)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	defer func() {
		// release with a fresh context so a cancelled run still unlocks
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = c.Unlock(unlockCtx, key, token)
	}()
	return true, fn()
}
