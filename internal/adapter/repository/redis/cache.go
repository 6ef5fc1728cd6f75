package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/welth/internal/domain"
)

// ViewCache implements usecase.ViewCache using Redis.
type ViewCache struct {
	client *redis.Client
	prefix string
}

// NewViewCache creates a new ViewCache.
func NewViewCache(client *redis.Client) *ViewCache {
	return &ViewCache{
		client: client,
		prefix: "view:",
	}
}

// Get retrieves a cached view. A miss is reported with ok == false and no error.
func (c *ViewCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.StoreError("cache get", err)
	}
	return val, true, nil
}

// Set stores a view with TTL.
func (c *ViewCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return domain.StoreError("cache set", err)
	}
	return nil
}

// Invalidate drops the given views in one round trip.
func (c *ViewCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}

	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return domain.StoreError("cache invalidate", err)
	}
	return nil
}
