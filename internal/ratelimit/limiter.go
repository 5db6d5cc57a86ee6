// Package ratelimit provides Redis-backed rate limiting using INCR + EXPIRE
// fixed windows. The lobby uses it as the server-side invite cooldown.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Rule defines a rate limiting policy: the Redis key prefix, maximum number of
// requests allowed in the window, and the window duration.
type Rule struct {
	Key    string        // Redis key prefix, e.g. "rl:invite:"
	Limit  int           // max count in the window
	Window time.Duration // time window
}

// InviteRule allows one invite per inviter per cooldown window.
func InviteRule(cooldown time.Duration) Rule {
	return Rule{Key: "rl:invite:", Limit: 1, Window: cooldown}
}

// Limiter performs rate limiting checks against Redis.
type Limiter struct {
	client redis.Cmdable
}

// NewLimiter creates a Limiter backed by the given Redis client.
func NewLimiter(client redis.Cmdable) *Limiter {
	return &Limiter{client: client}
}

// Allow checks whether the given identifier is within the rate limit defined by
// rule. It increments the counter in Redis and sets the expiry on first access.
//
// Returns true if the request is allowed, false if rate limited. On Redis
// errors the method fails open (returns true) so that a Redis outage does not
// block legitimate traffic.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) (bool, error) {
	key := rule.Key + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Warn().Str("component", "ratelimit").Str("key", key).Err(err).Msg("redis INCR failed, failing open")
		return true, err
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			log.Warn().Str("component", "ratelimit").Str("key", key).Err(err).Msg("redis EXPIRE failed, failing open")
			// A key without TTL would block the identifier forever.
			l.client.Del(ctx, key)
			return true, err
		}
	}

	return int(count) <= rule.Limit, nil
}

// RetryAfter returns the time left in the identifier's current window, or
// zero when no window is open.
func (l *Limiter) RetryAfter(ctx context.Context, identifier string, rule Rule) (time.Duration, error) {
	ttl, err := l.client.PTTL(ctx, rule.Key+identifier).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Gate binds a Limiter to one rule so callers only pass the identifier.
type Gate struct {
	limiter *Limiter
	rule    Rule
}

// NewGate returns a Gate applying rule through limiter.
func NewGate(limiter *Limiter, rule Rule) *Gate {
	return &Gate{limiter: limiter, rule: rule}
}

// Allow reports whether identifier may proceed. Redis errors fail open.
func (g *Gate) Allow(ctx context.Context, identifier string) (bool, time.Duration) {
	ok, err := g.limiter.Allow(ctx, identifier, g.rule)
	if err != nil || ok {
		return true, 0
	}
	wait, err := g.limiter.RetryAfter(ctx, identifier, g.rule)
	if err != nil || wait <= 0 {
		wait = g.rule.Window
	}
	return false, wait
}
