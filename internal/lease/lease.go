// Package lease provides per device advisory leases with a TTL that can be
// renewed while held.
package lease

import (
	"context"
	"strings"
	"time"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/logger"
)

// Lease is a held lock on a key
type Lease interface {
	Key() string
	Token() string
	// Renew extends the lease, it fails if the lease expired or was taken over
	Renew(ctx context.Context, ttl time.Duration) error
	// Release gives up the lease, releasing an expired lease is a no-op
	Release(ctx context.Context) error
}

// Manager hands out leases
type Manager interface {
	// TryAcquire returns ok=false without error when the key is held by someone else
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error)
}

// Options controls Acquire
type Options struct {
	TTL time.Duration
	// Wait is how long to keep retrying a held key, zero fails fast
	Wait time.Duration
	// Retry is the pause between attempts
	Retry time.Duration
}

// Key builds the lease key of a device
func Key(tenantID, companyID, deviceID string) string {
	return strings.Join([]string{"sync", tenantID, companyID, deviceID}, ":")
}

// Acquire polls the manager until the lease is obtained or opts.Wait elapses.
// Failing to obtain it is a retryable sync error.
func Acquire(ctx context.Context, m Manager, key string, opts Options) (Lease, error) {
	if opts.Retry <= 0 {
		opts.Retry = 25 * time.Millisecond
	}
	deadline := time.Now().Add(opts.Wait)

	for {
		l, ok, err := m.TryAcquire(ctx, key, opts.TTL)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Could not reach the lease store").
				Retryable().
				Mark(ierr.ErrSync)
		}
		if ok {
			return l, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ierr.NewSyncError(ierr.SyncReasonLeaseUnavailable, true, "")
		}

		wait := opts.Retry
		if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ierr.NewSyncError(ierr.SyncReasonCancelled, true, "")
		case <-timer.C:
		}
	}
}

// KeepAlive renews the lease every ttl/2 until stop is called
func KeepAlive(ctx context.Context, l Lease, ttl time.Duration, log *logger.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := l.Renew(ctx, ttl); err != nil {
					log.Warnw("failed to renew lease", "key", l.Key(), "error", err)
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
