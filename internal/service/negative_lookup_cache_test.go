package service

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryNegativeLookupCacheRememberForgetExpire(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryNegativeLookupCache()
	clock := newFixedClock()
	cache.now = clock.Now

	if err := cache.Remember(ctx, "a@example.com", time.Minute); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if hit, _ := cache.Absent(ctx, "a@example.com"); !hit {
		t.Fatal("expected hit after remember")
	}
	if err := cache.Forget(ctx, "a@example.com"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if hit, _ := cache.Absent(ctx, "a@example.com"); hit {
		t.Fatal("expected miss after forget")
	}

	_ = cache.Remember(ctx, "b@example.com", time.Minute)
	clock.Set(clock.Now().Add(time.Minute))
	if hit, _ := cache.Absent(ctx, "b@example.com"); hit {
		t.Fatal("expected entry to expire")
	}
	if err := cache.Remember(ctx, "c@example.com", 0); err != nil {
		t.Fatalf("zero ttl remember: %v", err)
	}
	if hit, _ := cache.Absent(ctx, "c@example.com"); hit {
		t.Fatal("zero ttl must not be stored")
	}
}

func TestNoopNegativeLookupCacheNeverHits(t *testing.T) {
	var cache NoopNegativeLookupCache
	_ = cache.Remember(context.Background(), "k", time.Minute)
	if hit, err := cache.Absent(context.Background(), "k"); hit || err != nil {
		t.Fatalf("expected noop miss, got %v %v", hit, err)
	}
}

func TestInMemoryNegativeLookupCacheStoresDigestsOnly(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryNegativeLookupCache()
	_ = cache.Remember(ctx, "private@example.com", time.Minute)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if _, ok := cache.entries["private@example.com"]; ok {
		t.Fatal("raw key must not be stored")
	}
	if _, ok := cache.entries[hashLookupKey("private@example.com")]; !ok {
		t.Fatal("expected digest entry")
	}
}

func TestInMemoryNegativeLookupCacheSweepsExpiredOnRemember(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryNegativeLookupCache()
	clock := newFixedClock()
	cache.now = clock.Now

	for i := 0; i < 50; i++ {
		_ = cache.Remember(ctx, fmt.Sprintf("user%d@example.com", i), time.Second)
	}
	if got := cache.size(); got != 50 {
		t.Fatalf("expected 50 entries, got %d", got)
	}

	clock.Set(clock.Now().Add(cache.sweepEvery))
	_ = cache.Remember(ctx, "fresh@example.com", time.Minute)
	if got := cache.size(); got != 1 {
		t.Fatalf("expected expired entries swept, got %d", got)
	}
	if hit, _ := cache.Absent(ctx, "fresh@example.com"); !hit {
		t.Fatal("fresh entry must survive the sweep")
	}
}
