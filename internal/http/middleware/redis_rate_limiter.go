package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFixedWindowLimiter shares counters across replicas. Each key gets one
// counter per window, created with INCR and expired with PEXPIRE.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, policy RateLimitPolicy) (Decision, error) {
	policy = normalizePolicy(policy)
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	n, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit incr: %w", err)
	}
	remainingTTL, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit ttl: %w", err)
	}
	// A counter without expiry is a first hit or a key whose PEXPIRE was lost.
	if remainingTTL < 0 {
		if err := l.client.PExpire(ctx, redisKey, policy.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("redis rate limit expire: %w", err)
		}
		remainingTTL = policy.Window
	}

	count := int(n)
	resetAt := time.Now().Add(remainingTTL)
	if count > policy.Limit {
		return Decision{Allowed: false, RetryAfter: remainingTTL, ResetAt: resetAt}, nil
	}
	return Decision{Allowed: true, Remaining: policy.Limit - count, ResetAt: resetAt}, nil
}
