package ledger

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/walletvet/walletvet/internal/metrics"
)

// Upstream names used as limiter keys and metric labels.
const (
	UpstreamFacts = "facts"
	UpstreamRisk  = "risk"
)

// Limiter blocks until a call to the named upstream may proceed.
type Limiter interface {
	Wait(ctx context.Context, upstream string) error
}

// RateLimiter provides per-upstream rate limiting using a token bucket.
// One instance is shared by every worker of a batch.
type RateLimiter struct {
	limiters   map[string]*rate.Limiter
	mu         sync.RWMutex
	rateLimit  rate.Limit
	burstLimit int
	overrides  map[string]rate.Limit
}

// NewRateLimiter creates a rate limiter. rate is requests per second, burst
// is the maximum burst size.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*rate.Limiter),
		rateLimit:  rate.Limit(ratePerSecond),
		burstLimit: burst,
		overrides:  make(map[string]rate.Limit),
	}
}

// DefaultRateLimiter returns a rate limiter sized for the public Tronscan
// quota: 5 requests/second, burst of 5.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(5, 5)
}

// SetRate overrides the rate for one upstream. Must be called before the
// upstream's first use.
func (r *RateLimiter) SetRate(upstream string, ratePerSecond float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[upstream] = rate.Limit(ratePerSecond)
	delete(r.limiters, upstream)
}

// Allow reports whether a call to the upstream may proceed now.
func (r *RateLimiter) Allow(upstream string) bool {
	return r.getLimiter(upstream).Allow()
}

// Wait blocks until a call to the upstream is allowed or ctx is canceled.
// Time spent blocked is recorded as a limiter wait.
func (r *RateLimiter) Wait(ctx context.Context, upstream string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	limiter := r.getLimiter(upstream)
	if limiter.Allow() {
		return nil
	}
	start := time.Now()
	err := limiter.Wait(ctx)
	metrics.RecordLimiterWait(upstream, time.Since(start))
	return err
}

func (r *RateLimiter) getLimiter(upstream string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[upstream]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = r.limiters[upstream]; exists {
		return limiter
	}

	limit := r.rateLimit
	if override, ok := r.overrides[upstream]; ok {
		limit = override
	}
	limiter = rate.NewLimiter(limit, r.burstLimit)
	r.limiters[upstream] = limiter
	return limiter
}

// NoLimit is a Limiter that never blocks.
type NoLimit struct{}

// Wait returns ctx.Err() without blocking.
func (NoLimit) Wait(ctx context.Context, _ string) error {
	return ctx.Err()
}
