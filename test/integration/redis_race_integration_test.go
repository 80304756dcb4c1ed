package integration

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/echo-backend/internal/config"
	"github.com/sandeepkv93/echo-backend/internal/http/middleware"
)

func TestRedisRateLimiterConcurrentBurstHonorsLimit(t *testing.T) {
	srv := newTestServer(t, nil)
	client := redis.NewClient(&redis.Options{Addr: srv.redis.Addr()})
	defer func() { _ = client.Close() }()

	limiter := middleware.NewRedisFixedWindowLimiter(client, "itest:rl")
	policy := middleware.RateLimitPolicy{Limit: 20, Window: 10 * time.Minute}

	const attempts = 100
	var allowed atomic.Int64
	errCh := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.Allow(context.Background(), "same-actor", policy)
			if err != nil {
				errCh <- err
				return
			}
			if decision.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("limiter allow failed: %v", err)
	}
	if got := allowed.Load(); got != int64(policy.Limit) {
		t.Fatalf("expected exactly %d allowed requests, got %d", policy.Limit, got)
	}
}

func TestAuthRateLimitSharedThroughRedis(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.AuthRateLimitRPM = 3 })
	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		resp, _ := srv.do(t, http.MethodGet, "/auth/email?email=a@b.co", "", nil)
		codes[resp.StatusCode]++
	}
	if codes[http.StatusOK] != 3 || codes[http.StatusTooManyRequests] != 2 {
		t.Fatalf("unexpected status distribution %v", codes)
	}
}

func TestConcurrentLoginsOnOneDeviceLeaveOneSession(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.login(t, "/auth/signup", credentials("shared"))

	const workers = 8
	pairs := make([]tokenPair, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pair, err := srv.postLogin(credentials("shared"))
			if err != nil {
				errs <- err
				return
			}
			pairs[i] = pair
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent login: %v", err)
	}

	valid := 0
	for _, p := range pairs {
		if resp, _ := srv.do(t, http.MethodGet, "/api/auth/validate", p.Token, nil); resp.StatusCode == http.StatusOK {
			valid++
		}
	}
	if valid != 1 {
		t.Fatalf("expected exactly one surviving session, got %d", valid)
	}
}
