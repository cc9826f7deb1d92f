package adapter

import (
	"context"
	"time"
)

// Locker is a distributed mutex with expiring ownership.
type Locker interface {
	// TryLock returns domain.ErrLockNotAcquired when another owner holds key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RateLimiter is a fixed-window counter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Cache stores opaque values; Get reports a miss with ok=false.
type Cache interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
