package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNegativeLookupCache shares absent-key entries between replicas. Keys
// are stored hashed so raw emails never land in redis.
type RedisNegativeLookupCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisNegativeLookupCache(client redis.UniversalClient, prefix string) *RedisNegativeLookupCache {
	if prefix == "" {
		prefix = "negative_lookup"
	}
	return &RedisNegativeLookupCache{client: client, prefix: prefix}
}

func (c *RedisNegativeLookupCache) Absent(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	err := c.client.Get(ctx, c.dataKey(key)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisNegativeLookupCache) Remember(ctx context.Context, key string, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.dataKey(key), "1", ttl).Err()
}

func (c *RedisNegativeLookupCache) Forget(ctx context.Context, key string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.dataKey(key)).Err()
}

func (c *RedisNegativeLookupCache) dataKey(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, hashLookupKey(key))
}
