package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sflix/server/internal/shared/cache"
)

var catalogCacheKey = cache.Key("plans", "catalog")

// Cache holds a snapshot of the whole catalog.
type Cache interface {
	Get(ctx context.Context) ([]*Plan, bool, error)
	Set(ctx context.Context, plans []*Plan) error
	Invalidate(ctx context.Context) error
}

// RedisCache stores the catalog snapshot as one JSON value.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache creates a catalog cache backed by Redis.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) ([]*Plan, bool, error) {
	data, err := c.client.Get(ctx, catalogCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get plan cache: %w", err)
	}

	var plans []*Plan
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, false, fmt.Errorf("decode plan cache: %w", err)
	}
	return plans, true, nil
}

func (c *RedisCache) Set(ctx context.Context, plans []*Plan) error {
	data, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("encode plan cache: %w", err)
	}
	if err := c.client.Set(ctx, catalogCacheKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set plan cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, catalogCacheKey).Err(); err != nil {
		return fmt.Errorf("invalidate plan cache: %w", err)
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
