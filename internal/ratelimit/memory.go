package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/taxsync/internal/clock"
	"github.com/flexprice/taxsync/internal/config"
	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one golang.org/x/time/rate limiter per key
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	clock   clock.Clock
	swept   time.Time
}

func NewMemoryLimiter(cfg *config.Configuration, c clock.Clock) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(cfg.RateLimit.RequestsPerSecond),
		burst:   cfg.RateLimit.Burst,
		idleTTL: cfg.RateLimit.IdleTTL,
		clock:   c,
		swept:   c.Now(),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.clock.Now()

	l.mu.Lock()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false, Limit: l.burst, RetryAfter: time.Second}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, Limit: l.burst, RetryAfter: delay}, nil
	}
	return Decision{
		Allowed:   true,
		Limit:     l.burst,
		Remaining: int(b.limiter.TokensAt(now)),
	}, nil
}

// sweep drops buckets idle longer than idleTTL, at most once per idleTTL
func (l *MemoryLimiter) sweep(now time.Time) {
	if l.idleTTL <= 0 || now.Sub(l.swept) < l.idleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.swept = now
}
