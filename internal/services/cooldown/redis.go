// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "verify:cooldown:"

// RedisStore keeps cooldowns as expiring Redis keys so several processes
// share them.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at url and pings it.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Remaining implements Store.
func (s *RedisStore) Remaining(ctx context.Context, accountID string) (time.Duration, error) {
	ttl, err := s.client.PTTL(ctx, keyPrefix+accountID).Result()
	if err != nil {
		return 0, err
	}
	// PTTL reports -2 for a missing key and -1 for one without expiry.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Start implements Store.
func (s *RedisStore) Start(ctx context.Context, accountID string, d time.Duration) error {
	return s.client.Set(ctx, keyPrefix+accountID, "1", d).Err()
}

// Health pings the server.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
