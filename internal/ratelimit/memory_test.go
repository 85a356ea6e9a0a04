package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/taxsync/internal/clock"
	"github.com/flexprice/taxsync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(rps float64, burst int) (*MemoryLimiter, *clock.Fake) {
	cfg := config.GetDefaultConfig()
	cfg.RateLimit.RequestsPerSecond = rps
	cfg.RateLimit.Burst = burst
	cfg.RateLimit.IdleTTL = time.Minute
	c := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewMemoryLimiter(cfg, c), c
}

func TestMemoryLimiterBurstThenRetryAfter(t *testing.T) {
	ctx := context.Background()
	l, c := newLimiter(2, 3)

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "tenant_1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d within burst", i)
	}

	d, err := l.Allow(ctx, "tenant_1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.InDelta(t, float64(500*time.Millisecond), float64(d.RetryAfter), float64(time.Millisecond))

	other, err := l.Allow(ctx, "tenant_2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "tenants have independent buckets")

	c.Advance(500 * time.Millisecond)
	d, err = l.Allow(ctx, "tenant_1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiterSweepsIdleBuckets(t *testing.T) {
	ctx := context.Background()
	l, c := newLimiter(1, 1)

	_, _ = l.Allow(ctx, "tenant_1")
	c.Advance(2 * time.Minute)
	_, _ = l.Allow(ctx, "tenant_2")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "tenant_1")
	assert.Contains(t, l.buckets, "tenant_2")
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 4*time.Second, bucketTTL(20, 40))
	assert.Equal(t, time.Second, bucketTTL(1000, 1))
}
