package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// NegativeLookupCache remembers keys that were recently looked up and found
// absent. Entries must be forgotten when the key starts to exist.
type NegativeLookupCache interface {
	Absent(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
}

type NoopNegativeLookupCache struct{}

func (NoopNegativeLookupCache) Absent(context.Context, string) (bool, error) { return false, nil }

func (NoopNegativeLookupCache) Remember(context.Context, string, time.Duration) error { return nil }

func (NoopNegativeLookupCache) Forget(context.Context, string) error { return nil }

// InMemoryNegativeLookupCache stores only key digests. Expired entries are
// swept from Remember at most once per sweepEvery.
type InMemoryNegativeLookupCache struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	now        func() time.Time
	sweepAt    time.Time
	sweepEvery time.Duration
}

func NewInMemoryNegativeLookupCache() *InMemoryNegativeLookupCache {
	return &InMemoryNegativeLookupCache{entries: make(map[string]time.Time), now: time.Now, sweepEvery: time.Minute}
}

func (c *InMemoryNegativeLookupCache) Absent(_ context.Context, key string) (bool, error) {
	digest := hashLookupKey(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	expiresAt, ok := c.entries[digest]
	if !ok {
		return false, nil
	}
	if !c.now().Before(expiresAt) {
		delete(c.entries, digest)
		return false, nil
	}
	return true, nil
}

func (c *InMemoryNegativeLookupCache) Remember(_ context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	digest := hashLookupKey(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if !now.Before(c.sweepAt) {
		for k, expiresAt := range c.entries {
			if !now.Before(expiresAt) {
				delete(c.entries, k)
			}
		}
		c.sweepAt = now.Add(c.sweepEvery)
	}
	c.entries[digest] = now.Add(ttl)
	return nil
}

func (c *InMemoryNegativeLookupCache) Forget(_ context.Context, key string) error {
	digest := hashLookupKey(key)
	c.mu.Lock()
	delete(c.entries, digest)
	c.mu.Unlock()
	return nil
}

func (c *InMemoryNegativeLookupCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func hashLookupKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
