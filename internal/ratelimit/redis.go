package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares fixed windows across gateway instances: INCR the key
// and set its TTL on the first hit of a window.
type RedisLimiter struct {
	redis redis.UniversalClient
	cfg   Config
}

// NewRedisLimiter creates a limiter on an existing client.
func NewRedisLimiter(client redis.UniversalClient, cfg Config) *RedisLimiter {
	return &RedisLimiter{redis: client, cfg: cfg}
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.cfg.Window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return count <= int64(l.cfg.MaxAttempts), nil
}
