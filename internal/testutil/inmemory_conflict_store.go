package testutil

import (
	"context"

	"github.com/flexprice/taxsync/internal/domain/syncstate"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/samber/lo"
)

// InMemoryConflictStore implements syncstate.ConflictRepository
type InMemoryConflictStore struct {
	*InMemoryStore[*syncstate.Conflict]
}

func NewInMemoryConflictStore() *InMemoryConflictStore {
	return &InMemoryConflictStore{
		InMemoryStore: NewInMemoryStore[*syncstate.Conflict](),
	}
}

func conflictSortFn(i, j *syncstate.Conflict) bool {
	if i.DetectedAt.Equal(j.DetectedAt) {
		return i.ID < j.ID
	}
	return i.DetectedAt.Before(j.DetectedAt)
}

func (s *InMemoryConflictStore) Create(ctx context.Context, c *syncstate.Conflict) error {
	cp := *c
	return s.InMemoryStore.Create(ctx, c.ID, &cp)
}

func (s *InMemoryConflictStore) Update(ctx context.Context, c *syncstate.Conflict) error {
	cp := *c
	return s.InMemoryStore.Update(ctx, c.ID, &cp)
}

func unresolvedFilter(tenantID, deviceID string, entityType types.SyncEntityType, entityID string) func(context.Context, *syncstate.Conflict) bool {
	return func(_ context.Context, c *syncstate.Conflict) bool {
		return c.TenantID == tenantID && c.DeviceID == deviceID &&
			c.EntityType == entityType && c.EntityID == entityID &&
			c.ConflictStatus != types.ConflictStatusResolved
	}
}

func copyConflicts(items []*syncstate.Conflict) []*syncstate.Conflict {
	return lo.Map(items, func(c *syncstate.Conflict, _ int) *syncstate.Conflict {
		cp := *c
		return &cp
	})
}

func (s *InMemoryConflictStore) GetUnresolved(ctx context.Context, tenantID, companyID, deviceID string, entityType types.SyncEntityType, entityID string) (*syncstate.Conflict, error) {
	unresolved := unresolvedFilter(tenantID, deviceID, entityType, entityID)
	c, ok := s.Find(ctx, func(ctx context.Context, c *syncstate.Conflict) bool {
		return c.CompanyID == companyID && unresolved(ctx, c)
	})
	if !ok {
		return nil, ierr.NewError("conflict not found").
			WithHint("No unresolved conflict exists for this entity").
			WithReportableDetails(map[string]any{
				"entity_type": entityType,
				"entity_id":   entityID,
			}).
			Mark(ierr.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryConflictStore) ListUnresolved(ctx context.Context, tenantID, deviceID string, entityType types.SyncEntityType, entityID string) ([]*syncstate.Conflict, error) {
	items := s.List(ctx, unresolvedFilter(tenantID, deviceID, entityType, entityID), func(i, j *syncstate.Conflict) bool {
		return i.CompanyID < j.CompanyID
	})
	return copyConflicts(items), nil
}

func (s *InMemoryConflictStore) ListOpen(ctx context.Context, tenantID, companyID, deviceID string) ([]*syncstate.Conflict, error) {
	items := s.List(ctx, func(_ context.Context, c *syncstate.Conflict) bool {
		return c.TenantID == tenantID && c.CompanyID == companyID && c.DeviceID == deviceID && c.IsOpen()
	}, conflictSortFn)
	return copyConflicts(items), nil
}

func (s *InMemoryConflictStore) CountOpen(ctx context.Context, tenantID, companyID, deviceID string) (int, error) {
	return s.Count(ctx, func(_ context.Context, c *syncstate.Conflict) bool {
		return c.TenantID == tenantID && c.CompanyID == companyID && c.DeviceID == deviceID && c.IsOpen()
	}), nil
}
