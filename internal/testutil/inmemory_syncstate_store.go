package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/flexprice/taxsync/internal/domain/syncstate"
	ierr "github.com/flexprice/taxsync/internal/errors"
)

// InMemorySyncStateStore implements syncstate.Repository
type InMemorySyncStateStore struct {
	mu     sync.Mutex
	states map[string]*syncstate.SyncState
	// upserts counts successful writes
	upserts int
}

func NewInMemorySyncStateStore() *InMemorySyncStateStore {
	return &InMemorySyncStateStore{
		states: make(map[string]*syncstate.SyncState),
	}
}

func syncStateKey(tenantID, companyID, deviceID string) string {
	return tenantID + "|" + companyID + "|" + deviceID
}

func copySyncState(st *syncstate.SyncState) *syncstate.SyncState {
	cp := *st
	cp.AcknowledgedRevisions = st.AcknowledgedRevisions.Merge(nil)
	return &cp
}

func (s *InMemorySyncStateStore) Get(ctx context.Context, tenantID, companyID, deviceID string) (*syncstate.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[syncStateKey(tenantID, companyID, deviceID)]
	if !ok {
		return nil, ierr.NewErrorf("sync state for device %s not found", deviceID).
			WithHint("The device has not synced yet").
			Mark(ierr.ErrNotFound)
	}
	return copySyncState(st), nil
}

func (s *InMemorySyncStateStore) ListByDevice(ctx context.Context, tenantID, deviceID string) ([]*syncstate.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*syncstate.SyncState
	for _, st := range s.states {
		if st.TenantID == tenantID && st.DeviceID == deviceID {
			out = append(out, copySyncState(st))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *InMemorySyncStateStore) Upsert(ctx context.Context, st *syncstate.SyncState) error {
	if err := ctx.Err(); err != nil {
		return ierr.WithError(err).
			WithHint("Sync state write was cancelled").
			Mark(ierr.ErrDatabase)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := syncStateKey(st.TenantID, st.CompanyID, st.DeviceID)
	if existing, ok := s.states[key]; ok && st.LastSyncTimestamp.Before(existing.LastSyncTimestamp) {
		return syncstate.ErrCursorRegression(st.DeviceID, existing.LastSyncTimestamp, st.LastSyncTimestamp)
	}
	s.states[key] = copySyncState(st)
	s.upserts++
	return nil
}

func (s *InMemorySyncStateStore) Replace(ctx context.Context, st *syncstate.SyncState) error {
	if err := ctx.Err(); err != nil {
		return ierr.WithError(err).
			WithHint("Sync state write was cancelled").
			Mark(ierr.ErrDatabase)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[syncStateKey(st.TenantID, st.CompanyID, st.DeviceID)] = copySyncState(st)
	s.upserts++
	return nil
}

// Upserts returns the number of successful writes
func (s *InMemorySyncStateStore) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

func (s *InMemorySyncStateStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]*syncstate.SyncState)
	s.upserts = 0
}

// FailingSyncStateStore wraps a store and fails every write with Err
type FailingSyncStateStore struct {
	*InMemorySyncStateStore
	Err error
}

func NewFailingSyncStateStore(inner *InMemorySyncStateStore) *FailingSyncStateStore {
	return &FailingSyncStateStore{
		InMemorySyncStateStore: inner,
		Err: ierr.NewError("connection reset").
			WithHint("Failed to persist sync state").
			Mark(ierr.ErrDatabase),
	}
}

func (s *FailingSyncStateStore) Upsert(ctx context.Context, st *syncstate.SyncState) error {
	return s.Err
}

func (s *FailingSyncStateStore) Replace(ctx context.Context, st *syncstate.SyncState) error {
	return s.Err
}
