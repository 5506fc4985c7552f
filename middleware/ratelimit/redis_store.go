package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares counters between instances. Each key expires with its window.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: "barae:"}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int, time.Time, bool, error) {
	key = s.prefix + key

	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, time.Time{}, false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	count, err := getCmd.Int()
	if errors.Is(err, redis.Nil) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	ttl := ttlCmd.Val()
	if ttl <= 0 {
		return 0, time.Time{}, false, nil
	}
	return count, time.Now().Add(ttl), true, nil
}

// Increment opens the window with SET NX PX and bumps it with INCR in one
// MULTI/EXEC, so a counter never exists without its expiry. INCR keeps the
// TTL of an open window.
func (s *RedisStore) Increment(ctx context.Context, key string, resetTime time.Time) (int, error) {
	key = s.prefix + key

	window := time.Until(resetTime)
	if window <= 0 {
		window = time.Millisecond
	}

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	return int(incr.Val()), nil
}
