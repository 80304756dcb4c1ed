package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Check probes one dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type CheckResult struct {
	Name       string `json:"name"`
	Healthy    bool   `json:"healthy"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ProbeRunner runs readiness checks in parallel, each bounded by timeout,
// and caches the combined outcome for cacheTTL.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checks   []Check

	mu       sync.Mutex
	cachedAt time.Time
	ready    bool
	results  []CheckResult
	now      func() time.Time
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checks ...Check) *ProbeRunner {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checks: checks, now: time.Now}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	p.mu.Lock()
	if p.cacheTTL > 0 && !p.cachedAt.IsZero() && p.now().Sub(p.cachedAt) < p.cacheTTL {
		ready, results := p.ready, append([]CheckResult(nil), p.results...)
		p.mu.Unlock()
		return ready, results
	}
	p.mu.Unlock()

	results := make([]CheckResult, len(p.checks))
	var wg sync.WaitGroup
	for i, check := range p.checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()
			start := time.Now()
			err := check.Probe(checkCtx)
			res := CheckResult{Name: check.Name, Healthy: err == nil, DurationMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
		}(i, check)
	}
	wg.Wait()

	ready := true
	for _, res := range results {
		if !res.Healthy {
			ready = false
		}
	}

	p.mu.Lock()
	p.ready, p.results, p.cachedAt = ready, results, p.now()
	p.mu.Unlock()
	return ready, append([]CheckResult(nil), results...)
}

func DatabaseCheck(db *gorm.DB) Check {
	return Check{Name: "database", Probe: func(ctx context.Context) error {
		if db == nil {
			return errors.New("database not configured")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

func RedisCheck(client redis.UniversalClient) Check {
	return Check{Name: "redis", Probe: func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis not configured")
		}
		return client.Ping(ctx).Err()
	}}
}
