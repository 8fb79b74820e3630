package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayStore keeps idempotent responses and in-flight claims in Redis.
type ReplayStore struct {
	client redis.UniversalClient
}

// NewReplayStore creates a replay store.
func NewReplayStore(client redis.UniversalClient) *ReplayStore {
	return &ReplayStore{client: client}
}

func (s *ReplayStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, Key("idempotency", key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get replay: %w", err)
	}
	return data, nil
}

func (s *ReplayStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, Key("idempotency", key), value, ttl).Err(); err != nil {
		return fmt.Errorf("put replay: %w", err)
	}
	return nil
}

func (s *ReplayStore) Claim(ctx context.Context, key string, hold time.Duration) (bool, error) {
	return Once(ctx, s.client, Key("idempotency", key, "lock"), hold)
}

func (s *ReplayStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, Key("idempotency", key, "lock")).Err()
}
