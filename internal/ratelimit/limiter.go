// Package ratelimit provides Redis-backed rate limiting using the INCR +
// EXPIRE fixed-window algorithm. chatd uses it to throttle message posting
// per user; it is optional and fails open, so a Redis outage never blocks
// legitimate traffic.
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule defines one throttling policy: the Redis key prefix, the maximum
// number of actions allowed in the window, and the window duration.
type Rule struct {
	Key    string        // Redis key prefix (e.g. "rl:chat:")
	Limit  int           // max count in the window
	Window time.Duration // time window
}

// Default rules for the chat server.
var (
	// RuleChatPost allows 5 common-chat posts per 10 seconds per user.
	RuleChatPost = Rule{Key: "rl:chat:", Limit: 5, Window: 10 * time.Second}

	// RulePrivate allows 10 private messages per minute per user.
	RulePrivate = Rule{Key: "rl:pm:", Limit: 10, Window: time.Minute}
)

// Limiter performs rate limiting checks against Redis. A nil Limiter allows
// everything, so the server can run without Redis configured.
type Limiter struct {
	client *redis.Client
}

// NewLimiter creates a Limiter backed by the given Redis client.
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow checks whether identifier is within the rule's limit, incrementing
// its counter. The expiry is set on the first increment so the window does
// not slide. Redis errors fail open.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) bool {
	if l == nil {
		return true
	}
	key := rule.Key + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[ratelimit] redis INCR error key=%s: %v (failing open)", key, err)
		return true
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			log.Printf("[ratelimit] redis EXPIRE error key=%s: %v (failing open)", key, err)
			// Best effort: remove the TTL-less key so it cannot block the
			// identifier forever.
			l.client.Del(ctx, key)
			return true
		}
	}

	return int(count) <= rule.Limit
}
