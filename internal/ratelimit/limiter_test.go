package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		iter := client.Scan(ctx, 0, "rl:test:*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
		client.Close()
	})
	return NewLimiter(client)
}

func TestAllow_WithinAndOverLimit(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:test:", Limit: 2, Window: 5 * time.Second}

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "u1", rule)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i)
	}
	ok, err := l.Allow(ctx, "u1", rule)
	require.NoError(t, err)
	assert.False(t, ok)

	// Separate identifiers have separate windows.
	ok, err = l.Allow(ctx, "u2", rule)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGate_ReportsRetryAfter(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	gate := NewGate(l, Rule{Key: "rl:test:gate:", Limit: 1, Window: 3 * time.Second})

	ok, wait := gate.Allow(ctx, "u1")
	assert.True(t, ok)
	assert.Zero(t, wait)

	ok, wait = gate.Allow(ctx, "u1")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 3*time.Second)
}

func TestAllow_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	gate := NewGate(NewLimiter(client), InviteRule(time.Second))

	ok, wait := gate.Allow(context.Background(), "u1")
	assert.True(t, ok)
	assert.Zero(t, wait)
}
