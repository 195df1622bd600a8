package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "ratelimit:login:10.0.0.1:ada@example.com", Key("login", "10.0.0.1", " Ada@Example.com "))
	assert.Equal(t, "ratelimit:reset", Key("reset"))
}

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(Config{MaxAttempts: 2, Window: time.Minute}, 0)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "third attempt exceeds the budget")

	ok, _ = l.Allow(ctx, "other")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok, "a new window starts after Window elapses")
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	l := NewRedisLimiter(client, Config{MaxAttempts: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "ratelimit:login:x")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "ratelimit:login:x")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl := mr.TTL("ratelimit:login:x")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	mr.FastForward(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "ratelimit:login:x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	mr, client := newMiniredis(t)
	l := NewRedisLimiter(client, Config{MaxAttempts: 1, Window: time.Minute})
	mr.Close()

	_, err := l.Allow(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Options().DB)
	_ = client.Close()

	_, err = NewRedisClient("://bad")
	assert.Error(t, err)
}
