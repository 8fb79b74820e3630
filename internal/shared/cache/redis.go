// Package cache holds the Redis-backed helpers shared by the modules.
// Redis is optional: callers treat a missing client as "feature off".
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sflix/server/internal/shared/config"
)

const keyNamespace = "sflix"

// NewRedisClient creates a new Redis client and verifies the connection.
func NewRedisClient(cfg *config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Address, err)
	}

	return client, nil
}

// Key joins parts under the application namespace, e.g. "sflix:plans:catalog".
func Key(parts ...string) string {
	return keyNamespace + ":" + strings.Join(parts, ":")
}

// Close closes the Redis client.
func Close(client redis.UniversalClient) error {
	return client.Close()
}
