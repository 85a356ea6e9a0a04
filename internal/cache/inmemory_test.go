package cache

import (
	"context"
	"testing"

	"github.com/flexprice/taxsync/internal/config"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/stretchr/testify/assert"
)

func newTestCache(enabled bool) *InMemoryCache {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = enabled
	return NewInMemoryCache(cfg, logger.NewNop())
}

func TestInMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(true)

	key := GenerateKey(PrefixApplicableRules, "tenant_1", "comp_1")
	assert.Equal(t, "applicable_rules:v1::tenant_1:comp_1", key)

	_, found := c.Get(ctx, key)
	assert.False(t, found)

	c.Set(ctx, key, []string{"rule_1"}, 0)
	value, found := c.Get(ctx, key)
	assert.True(t, found)
	assert.Equal(t, []string{"rule_1"}, value)
}

func TestInMemoryCacheDeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(true)

	c.Set(ctx, GenerateKey(PrefixApplicableRules, "t1", "c1"), 1, 0)
	c.Set(ctx, GenerateKey(PrefixApplicableRules, "t1", "c2"), 2, 0)
	c.Set(ctx, GenerateKey(PrefixApplicableRules, "t2", "c1"), 3, 0)

	c.DeleteByPrefix(ctx, GenerateKey(PrefixApplicableRules, "t1"))

	_, found := c.Get(ctx, GenerateKey(PrefixApplicableRules, "t1", "c1"))
	assert.False(t, found)
	_, found = c.Get(ctx, GenerateKey(PrefixApplicableRules, "t1", "c2"))
	assert.False(t, found)
	_, found = c.Get(ctx, GenerateKey(PrefixApplicableRules, "t2", "c1"))
	assert.True(t, found)
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(false)

	c.Set(ctx, "k", "v", 0)
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}
