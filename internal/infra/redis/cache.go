package redis

import (
	"context"
	"errors"
	"time"

	"linkbio-billing/internal/domain/ports/adapter"
)

var _ adapter.Cache = (*Cache)(nil)

type Cache struct {
	client RedisClient
	ttl    time.Duration
}

// NewCache uses defaultTTL when Set is called with ttl <= 0.
func NewCache(client RedisClient, defaultTTL time.Duration) *Cache {
	return &Cache{client: client, ttl: defaultTTL}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key)
	if errors.Is(err, Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(val), true, nil
}

func (c *Cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.client.Set(ctx, key, val, ttl)
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...)
}
