package lease

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flexprice/taxsync/internal/clock"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MemoryLeaseSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *clock.Fake
	manager *MemoryManager
}

func TestMemoryLease(t *testing.T) {
	suite.Run(t, new(MemoryLeaseSuite))
}

func (s *MemoryLeaseSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s.manager = NewMemoryManager(s.clock)
}

func (s *MemoryLeaseSuite) TestExclusive() {
	key := Key("t1", "c1", "d1")

	first, ok, err := s.manager.TryAcquire(s.ctx, key, time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	_, ok, err = s.manager.TryAcquire(s.ctx, key, time.Minute)
	s.Require().NoError(err)
	s.False(ok, "second holder must be refused")

	other, ok, err := s.manager.TryAcquire(s.ctx, Key("t1", "c1", "d2"), time.Minute)
	s.Require().NoError(err)
	s.True(ok, "different devices do not contend")
	s.NotEqual(first.Token(), other.Token())

	s.Require().NoError(first.Release(s.ctx))
	_, ok, err = s.manager.TryAcquire(s.ctx, key, time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *MemoryLeaseSuite) TestExpiryAndRenew() {
	key := Key("t1", "c1", "d1")

	l, ok, err := s.manager.TryAcquire(s.ctx, key, 10*time.Second)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.clock.Advance(8 * time.Second)
	s.Require().NoError(l.Renew(s.ctx, 10*time.Second))

	s.clock.Advance(8 * time.Second)
	_, ok, _ = s.manager.TryAcquire(s.ctx, key, time.Second)
	s.False(ok, "renewed lease is still held")

	s.clock.Advance(3 * time.Second)
	s.ErrorIs(l.Renew(s.ctx, time.Second), ErrNotHeld)

	taken, ok, err := s.manager.TryAcquire(s.ctx, key, time.Second)
	s.Require().NoError(err)
	s.True(ok, "expired lease can be taken over")

	// releasing the stale lease must not free the new holder
	s.Require().NoError(l.Release(s.ctx))
	_, ok, _ = s.manager.TryAcquire(s.ctx, key, time.Second)
	s.False(ok)
	s.Require().NoError(taken.Release(s.ctx))
}

func (s *MemoryLeaseSuite) TestAcquireTimesOutWithRetryableSyncError() {
	key := Key("t1", "c1", "d1")
	_, ok, _ := s.manager.TryAcquire(s.ctx, key, time.Hour)
	s.Require().True(ok)

	start := time.Now()
	_, err := Acquire(s.ctx, s.manager, key, Options{TTL: time.Second, Wait: 30 * time.Millisecond, Retry: 5 * time.Millisecond})
	s.Require().Error(err)
	s.True(ierr.IsSync(err))
	s.True(ierr.IsRetryable(err))
	s.GreaterOrEqual(time.Since(start), 30*time.Millisecond)
}

func (s *MemoryLeaseSuite) TestAcquireWaitsForRelease() {
	key := Key("t1", "c1", "d1")
	held, ok, _ := s.manager.TryAcquire(s.ctx, key, time.Hour)
	s.Require().True(ok)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = held.Release(context.Background())
	}()

	l, err := Acquire(s.ctx, s.manager, key, Options{TTL: time.Second, Wait: time.Second, Retry: 5 * time.Millisecond})
	s.Require().NoError(err)
	s.NotEqual(held.Token(), l.Token())
}

func TestAcquireSerializesConcurrentHolders(t *testing.T) {
	manager := NewMemoryManager(clock.New())
	key := Key("t1", "c1", "d1")

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := Acquire(context.Background(), manager, key, Options{TTL: time.Second, Wait: 5 * time.Second, Retry: time.Millisecond})
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = l.Release(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestKeepAliveRenews(t *testing.T) {
	manager := NewMemoryManager(clock.New())
	l, ok, err := manager.TryAcquire(context.Background(), "k", 40*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	stop := KeepAlive(context.Background(), l, 40*time.Millisecond, logger.NewNop())
	time.Sleep(120 * time.Millisecond)

	_, ok, _ = manager.TryAcquire(context.Background(), "k", time.Second)
	assert.False(t, ok, "keep alive must hold the lease past its ttl")
	stop()
}
