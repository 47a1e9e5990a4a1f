// Package redisdb provides the Redis-backed counter store used by the
// admission gate.
package redisdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scout/scout/config"
)

// CounterStore wraps a Redis client for window counters. Increments are
// commutative and each window key is independent, so no locking is
// needed beyond Redis's own atomicity.
type CounterStore struct {
	client *redis.Client
}

func NewCounterStore(ctx context.Context, cfg config.Config) (*CounterStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &CounterStore{client: client}, nil
}

// IncrementWithExpiry bumps the counter and (re)sets its TTL in a single
// pipelined round trip so the two never diverge.
func (s *CounterStore) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("counter incr+expire failed: %w", err)
	}
	return incr.Val(), nil
}

// Get returns the raw counter value. The second return is false when the
// key does not exist.
func (s *CounterStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("counter get failed: %w", err)
	}
	return val, true, nil
}

func (s *CounterStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *CounterStore) Close() error {
	return s.client.Close()
}
