package lease

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/flexprice/taxsync/internal/clock"
	"github.com/google/uuid"
)

// ErrNotHeld is returned when renewing a lease that expired or changed hands
var ErrNotHeld = errors.New("lease not held")

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryManager is a process local lease manager
type MemoryManager struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   clock.Clock
}

func NewMemoryManager(c clock.Clock) *MemoryManager {
	return &MemoryManager{
		entries: make(map[string]memoryEntry),
		clock:   c,
	}
}

func (m *MemoryManager) TryAcquire(_ context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	if key == "" {
		return nil, false, errors.New("lease key is empty")
	}
	if ttl <= 0 {
		return nil, false, errors.New("lease ttl must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		return nil, false, nil
	}

	token := uuid.NewString()
	m.entries[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return &memoryLease{manager: m, key: key, token: token}, true, nil
}

func (m *MemoryManager) renew(key, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	e, ok := m.entries[key]
	if !ok || e.token != token || !now.Before(e.expiresAt) {
		return ErrNotHeld
	}
	m.entries[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryManager) release(key, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok && e.token == token {
		delete(m.entries, key)
	}
}

type memoryLease struct {
	manager *MemoryManager
	key     string
	token   string
}

func (l *memoryLease) Key() string   { return l.key }
func (l *memoryLease) Token() string { return l.token }

func (l *memoryLease) Renew(_ context.Context, ttl time.Duration) error {
	return l.manager.renew(l.key, l.token, ttl)
}

func (l *memoryLease) Release(_ context.Context) error {
	l.manager.release(l.key, l.token)
	return nil
}
