package redis

import (
	"context"
	"time"

	"linkbio-billing/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

// RateLimiter counts hits per key in a fixed window that starts on the first hit.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether one more hit on key fits within limit for window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			// a counter without a TTL would lock the key out forever
			_ = r.client.Del(context.WithoutCancel(ctx), key)
			return false, err
		}
	}
	return count <= int64(limit), nil
}
