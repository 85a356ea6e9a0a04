package service

import (
	"context"
	"sort"
	"time"

	"github.com/flexprice/taxsync/internal/api/dto"
	"github.com/flexprice/taxsync/internal/domain/audit"
	"github.com/flexprice/taxsync/internal/domain/syncstate"
	"github.com/flexprice/taxsync/internal/domain/taxform"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/domain/taxsettings"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/lease"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/sentry"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/flexprice/taxsync/internal/validator"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

// SyncService coordinates device synchronization. Calls for one
// (tenant, company, device) are serialized by a lease, different devices
// proceed in parallel.
type SyncService interface {
	RequestSync(ctx context.Context, tenantID string, req dto.SyncRequest) (*dto.SyncResponse, error)
	// DetectConflicts returns one conflict per stale entity a pending calculation depends on.
	// Nothing is persisted.
	DetectConflicts(ctx context.Context, tenantID, deviceID, companyID string, acknowledged syncstate.Revisions, pending []dto.PendingCalculation) ([]*syncstate.Conflict, error)
	ResolveConflict(ctx context.Context, tenantID string, req dto.ResolveConflictRequest) (*dto.ResolveConflictResponse, error)
	// GetSyncStatus reports the device state for companyID, or for the company the
	// device synced most recently when companyID is empty
	GetSyncStatus(ctx context.Context, tenantID, deviceID, companyID string) (*dto.SyncStatusResponse, error)
}

type syncService struct {
	ServiceParams
	calculations CalculationService
}

func NewSyncService(params ServiceParams, calculations CalculationService) SyncService {
	return &syncService{
		ServiceParams: params,
		calculations:  calculations,
	}
}

// syncDiff is the server state delivered to a device
type syncDiff struct {
	forms    []*taxform.TaxForm
	rules    []*taxrule.TaxRule
	settings []*taxsettings.CompanyTaxSettings
	// scanned is the latest updated_at among every row read, delivered or not
	scanned time.Time
}

func (d syncDiff) size() int {
	return len(d.forms) + len(d.rules) + len(d.settings)
}

// cursor is the data derived cursor after delivering d, zero when d is empty
func (d syncDiff) cursor() time.Time {
	latest := d.scanned
	for _, f := range d.forms {
		latest = laterOf(latest, f.UpdatedAt)
	}
	for _, r := range d.rules {
		latest = laterOf(latest, r.UpdatedAt)
	}
	for _, ts := range d.settings {
		latest = laterOf(latest, ts.UpdatedAt)
	}
	if latest.IsZero() {
		return latest
	}
	return latest.Add(types.TimestampResolution)
}

func (d syncDiff) revisions() syncstate.Revisions {
	revs := make(syncstate.Revisions, d.size())
	for _, f := range d.forms {
		revs[types.EntityKey(types.SyncEntityTaxForm, f.ID)] = f.Revision()
	}
	for _, r := range d.rules {
		revs[types.EntityKey(types.SyncEntityTaxRule, r.ID)] = r.Revision()
	}
	for _, ts := range d.settings {
		revs[types.EntityKey(types.SyncEntityCompanySettings, ts.ID)] = ts.Revision()
	}
	return revs
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// detection is the outcome of conflict detection for a batch
type detection struct {
	conflicts []*syncstate.Conflict
	// stale maps a pending calculation id to the entity keys it is blocked on
	stale map[string][]string
}

func (s *syncService) RequestSync(ctx context.Context, tenantID string, req dto.SyncRequest) (resp *dto.SyncResponse, err error) {
	event := s.newEvent(ctx, tenantID, types.AuditEventSyncCompleted, req.CompanyID, req.DeviceID)
	event.Mode = req.Mode
	event.Destructive = req.Mode.IsDestructive()
	if req.ConflictResolution != nil {
		event.Resolution = *req.ConflictResolution
	}
	defer func() {
		finishSyncEvent(event, resp, err)
		s.AuditEmitter.Emit(ctx, event)
	}()

	span, ctx := s.Sentry.StartSyncSpan(ctx, "sync.request", map[string]interface{}{
		"device_id": req.DeviceID,
		"mode":      req.Mode,
	})
	defer sentry.FinishSpan(span)

	log := s.Logger.WithContext(ctx).With("device_id", req.DeviceID, "company_id", req.CompanyID)

	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.LastSyncTimestamp != nil && req.LastSyncTimestamp.After(s.Clock.Now().Add(types.TimestampResolution)) {
		return nil, ierr.NewValidationError([]ierr.FieldError{
			{Field: "last_sync_timestamp", Message: "must not be in the future"},
		})
	}
	if len(req.PendingCalculations) > s.Config.Sync.MaxPending {
		return nil, ierr.NewErrorf("too many pending calculations: %d", len(req.PendingCalculations)).
			WithHintf("A sync request carries at most %d pending calculations", s.Config.Sync.MaxPending).
			Mark(ierr.ErrValidation)
	}
	if err := s.findCompany(ctx, tenantID, req.CompanyID); err != nil {
		return nil, err
	}

	release, err := s.acquireLease(ctx, log, lease.Key(tenantID, req.CompanyID, req.DeviceID))
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.Clock.Now()
	state, err := s.loadState(ctx, tenantID, req.CompanyID, req.DeviceID, now)
	if err != nil {
		return nil, err
	}

	var diff syncDiff
	// the stored cursor is data derived, a client cursor only seeds a device the server has no cursor for
	cursor := state.LastSyncTimestamp
	if req.Mode == types.SyncModeIncremental {
		if cursor.IsZero() {
			cursor = *req.LastSyncTimestamp
		}
		diff, err = s.collectIncremental(ctx, tenantID, req.CompanyID, cursor, now)
	} else {
		diff, err = s.collectFull(ctx, tenantID, req.CompanyID, now)
	}
	if err != nil {
		return nil, storeFailure(err, "Failed to load server changes")
	}

	acknowledged := state.AcknowledgedRevisions.Merge(req.AcknowledgedRevisions)
	found, err := s.detect(ctx, tenantID, req.DeviceID, req.CompanyID, acknowledged, req.PendingCalculations)
	if err != nil {
		return nil, storeFailure(err, "Failed to check for conflicts")
	}

	resolution := req.ConflictResolution
	if resolution == nil && req.Mode.IsDestructive() {
		// force discards client state, conflicting calculations lose to the server
		resolution = lo.ToPtr(types.ConflictResolutionServerWins)
	}
	conflicts, err := s.recordConflicts(ctx, found.conflicts, resolution, now)
	if err != nil {
		return nil, storeFailure(err, "Failed to record conflicts")
	}
	if len(conflicts) > 0 {
		s.Sentry.AddBreadcrumb("sync", "conflicts detected", map[string]interface{}{
			"device_id": req.DeviceID,
			"count":     len(conflicts),
		})
	}

	synced, failed := s.runPending(ctx, tenantID, req, found.stale, resolution)

	if ctx.Err() != nil {
		log.Warnw("sync cancelled before commit", "error", ctx.Err())
		return nil, ierr.NewSyncError(ierr.SyncReasonCancelled, true, "")
	}

	// commit
	write := s.SyncStateRepo.Upsert
	if req.Mode.IsDestructive() {
		state.Reset(diff.cursor())
		write = s.SyncStateRepo.Replace
	} else if err := state.Advance(laterOf(cursor, diff.cursor())); err != nil {
		return nil, err
	}
	if req.Mode == types.SyncModeIncremental {
		state.AcknowledgedRevisions = acknowledged.Merge(diff.revisions())
	} else {
		state.AcknowledgedRevisions = syncstate.Revisions(req.AcknowledgedRevisions).Merge(diff.revisions())
	}
	state.SyncStatus = types.SyncStatusSynced
	if lo.SomeBy(conflicts, func(c *syncstate.Conflict) bool { return c.ConflictStatus != types.ConflictStatusResolved }) {
		state.SyncStatus = types.SyncStatusOutOfSync
	}
	state.LastMode = req.Mode
	state.LastSyncAt = &now
	state.UpdatedAt = now
	state.UpdatedBy = types.GetUserID(ctx)

	commitCtx, cancel := context.WithTimeout(ctx, s.Config.Sync.CommitTimeout)
	defer cancel()
	if err := write(commitCtx, state); err != nil {
		log.Errorw("failed to commit sync state", "error", err)
		return nil, ierr.WithError(ierr.NewSyncError(ierr.SyncReasonCommitFailed, true, "")).
			WithReportableDetails(map[string]any{"cause": ierr.Code(err)}).
			Mark(ierr.ErrSync)
	}

	resp = &dto.SyncResponse{
		Success:            true,
		Mode:               req.Mode,
		Destructive:        req.Mode.IsDestructive(),
		UpdatedTaxRules:    diff.rules,
		UpdatedTaxForms:    diff.forms,
		UpdatedSettings:    diff.settings,
		SyncedCalculations: len(synced),
		Calculations:       synced,
		FailedCalculations: failed,
		Conflicts:          lo.Map(conflicts, func(c *syncstate.Conflict, _ int) dto.ConflictResponse { return dto.NewConflictResponse(c) }),
		ServerTimestamp:    state.LastSyncTimestamp,
	}

	log.Infow("device synced",
		"mode", req.Mode,
		"delivered", diff.size(),
		"synced_calculations", len(synced),
		"failed_calculations", len(failed),
		"conflicts", len(conflicts),
		"server_timestamp", state.LastSyncTimestamp,
	)
	return resp, nil
}

func (s *syncService) DetectConflicts(ctx context.Context, tenantID, deviceID, companyID string, acknowledged syncstate.Revisions, pending []dto.PendingCalculation) ([]*syncstate.Conflict, error) {
	found, err := s.detect(ctx, tenantID, deviceID, companyID, acknowledged, pending)
	if err != nil {
		return nil, err
	}
	return found.conflicts, nil
}

func (s *syncService) detect(ctx context.Context, tenantID, deviceID, companyID string, acknowledged syncstate.Revisions, pending []dto.PendingCalculation) (*detection, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	type serverRev struct {
		revision int64
		found    bool
	}
	revs := make(map[string]serverRev)
	byKey := make(map[string]*syncstate.Conflict)
	out := &detection{stale: make(map[string][]string)}
	now := s.Clock.Now()

	for _, pc := range pending {
		for _, dep := range pc.DependsOn {
			key := dep.Key()
			rev, seen := revs[key]
			if !seen {
				revision, ok, err := s.serverRevision(ctx, tenantID, companyID, dep)
				if err != nil {
					return nil, err
				}
				rev = serverRev{revision: revision, found: ok}
				revs[key] = rev
			}
			if !rev.found {
				continue
			}

			clientRev := dep.Revision
			if clientRev == 0 {
				clientRev = acknowledged[key]
			}
			if rev.revision <= clientRev {
				continue
			}

			out.stale[pc.ID] = append(out.stale[pc.ID], key)
			if _, exists := byKey[key]; exists {
				continue
			}
			c := &syncstate.Conflict{
				ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONFLICT),
				CompanyID:      companyID,
				DeviceID:       deviceID,
				EntityType:     dep.EntityType,
				EntityID:       dep.EntityID,
				ServerRevision: rev.revision,
				ClientRevision: clientRev,
				CalculationID:  pc.ID,
				ConflictStatus: types.ConflictStatusOpen,
				DetectedAt:     now,
				BaseModel:      s.baseModel(ctx, tenantID, now),
			}
			byKey[key] = c
			out.conflicts = append(out.conflicts, c)
		}
	}
	return out, nil
}

// serverRevision returns the current revision of ref, ok=false when it does not exist
func (s *syncService) serverRevision(ctx context.Context, tenantID, companyID string, ref dto.EntityRef) (int64, bool, error) {
	var (
		revision int64
		err      error
	)
	switch ref.EntityType {
	case types.SyncEntityTaxForm:
		var f *taxform.TaxForm
		if f, err = s.TaxFormRepo.Get(ctx, tenantID, ref.EntityID); err == nil {
			revision = f.Revision()
		}
	case types.SyncEntityTaxRule:
		var r *taxrule.TaxRule
		if r, err = s.TaxRuleRepo.Get(ctx, tenantID, ref.EntityID); err == nil {
			revision = r.Revision()
		}
	case types.SyncEntityCompanySettings:
		var ts *taxsettings.CompanyTaxSettings
		if ts, err = s.TaxSettingsRepo.Get(ctx, tenantID, ref.EntityID); err == nil {
			if ts.CompanyID != companyID {
				return 0, false, nil
			}
			revision = ts.Revision()
		}
	default:
		return 0, false, ref.EntityType.Validate()
	}
	if ierr.IsNotFound(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return revision, true, nil
}

// recordConflicts persists detected conflicts, reusing the unresolved row of an
// entity, and applies resolution when one is given
func (s *syncService) recordConflicts(ctx context.Context, detected []*syncstate.Conflict, resolution *types.ConflictResolution, now time.Time) ([]*syncstate.Conflict, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	recorded := make([]*syncstate.Conflict, 0, len(detected))
	for _, c := range detected {
		existing, err := s.ConflictRepo.GetUnresolved(ctx, c.TenantID, c.CompanyID, c.DeviceID, c.EntityType, c.EntityID)
		switch {
		case err == nil:
			existing.ServerRevision = c.ServerRevision
			existing.ClientRevision = c.ClientRevision
			existing.CalculationID = c.CalculationID
			existing.UpdatedAt = now
			if resolution != nil {
				existing.Resolve(*resolution, now)
			}
			if err := s.ConflictRepo.Update(ctx, existing); err != nil {
				return nil, err
			}
			c = existing
		case ierr.IsNotFound(err):
			if resolution != nil {
				c.Resolve(*resolution, now)
			}
			if err := s.ConflictRepo.Create(ctx, c); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
		recorded = append(recorded, c)
	}
	return recorded, nil
}

// runPending runs the pending calculations on a bounded pool. Calculations
// blocked on a conflict only run when the client wins.
func (s *syncService) runPending(ctx context.Context, tenantID string, req dto.SyncRequest, stale map[string][]string, resolution *types.ConflictResolution) ([]dto.SyncedCalculation, []dto.FailedCalculation) {
	type outcome struct {
		synced *dto.SyncedCalculation
		failed *dto.FailedCalculation
	}
	outcomes := make([]outcome, len(req.PendingCalculations))

	p := pool.New().WithMaxGoroutines(s.Config.Sync.MaxConcurrency)
	for i, pc := range req.PendingCalculations {
		if keys := stale[pc.ID]; len(keys) > 0 {
			if err := blockedError(resolution, keys); err != nil {
				outcomes[i].failed = newFailedCalculation(pc.ID, err)
				continue
			}
		}

		p.Go(func() {
			if ctx.Err() != nil {
				outcomes[i].failed = newFailedCalculation(pc.ID, ierr.NewSyncError(ierr.SyncReasonCancelled, true, ""))
				return
			}
			calcReq := pc.Request
			if calcReq.CompanyID == "" {
				calcReq.CompanyID = req.CompanyID
			}
			if calcReq.CompanyID != req.CompanyID {
				outcomes[i].failed = newFailedCalculation(pc.ID, ierr.NewValidationError([]ierr.FieldError{{
					Field:   "request.company_id",
					Message: "must match the synced company",
				}}))
				return
			}

			result, err := s.calculations.Calculate(ctx, tenantID, calcReq)
			if err != nil {
				outcomes[i].failed = newFailedCalculation(pc.ID, err)
				return
			}
			outcomes[i].synced = &dto.SyncedCalculation{ID: pc.ID, Result: result}
		})
	}
	p.Wait()

	synced := make([]dto.SyncedCalculation, 0, len(outcomes))
	failed := make([]dto.FailedCalculation, 0)
	for _, o := range outcomes {
		switch {
		case o.synced != nil:
			synced = append(synced, *o.synced)
		case o.failed != nil:
			failed = append(failed, *o.failed)
		}
	}
	return synced, failed
}

// blockedError is the failure of a calculation depending on stale entities, nil when it may run
func blockedError(resolution *types.ConflictResolution, keys []string) error {
	var err error
	switch {
	case resolution == nil:
		err = ierr.NewSyncError(ierr.SyncReasonConflictDetected, false, "")
	case *resolution == types.ConflictResolutionClientWins:
		return nil
	default:
		err = ierr.NewSyncError(ierr.SyncReasonConflictDetected, false, resolution.String())
	}
	return ierr.WithError(err).
		WithReportableDetails(map[string]any{"stale_entities": keys}).
		Mark(ierr.ErrSync)
}

func newFailedCalculation(id string, err error) *dto.FailedCalculation {
	return &dto.FailedCalculation{
		ID:        id,
		ErrorCode: ierr.Code(err),
		Message:   ierr.DisplayMessage(err),
		Details:   ierr.Details(err),
	}
}

func (s *syncService) ResolveConflict(ctx context.Context, tenantID string, req dto.ResolveConflictRequest) (resp *dto.ResolveConflictResponse, err error) {
	event := s.newEvent(ctx, tenantID, types.AuditEventConflictResolved, req.CompanyID, req.DeviceID)
	if req.Resolution != nil {
		event.Resolution = *req.Resolution
	}
	event.Details = audit.Details{
		"entity_type": req.EntityType,
		"entity_id":   req.EntityID,
	}
	defer func() {
		if err != nil {
			event.EventType = types.AuditEventConflictResolveFailed
			event.Outcome = types.AuditOutcomeFailure
			event.ErrorCode = ierr.Code(err)
		}
		if resp != nil {
			event.Details["conflict_id"] = resp.ConflictID
			event.Details["status"] = resp.Status
		}
		s.AuditEmitter.Emit(ctx, event)
	}()

	log := s.Logger.WithContext(ctx).With("device_id", req.DeviceID)

	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	conflict, err := s.getUnresolved(ctx, tenantID, req.CompanyID, req)
	if err != nil {
		return nil, err
	}
	event.CompanyID = conflict.CompanyID

	release, err := s.acquireLease(ctx, log, lease.Key(tenantID, conflict.CompanyID, req.DeviceID))
	if err != nil {
		return nil, err
	}
	defer release()

	// re-read under the lease, a concurrent sync may have resolved it
	if conflict, err = s.getUnresolved(ctx, tenantID, conflict.CompanyID, req); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	resolution := *req.Resolution
	conflict.Resolve(resolution, now)
	conflict.UpdatedAt = now

	storeCtx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	if err := s.ConflictRepo.Update(storeCtx, conflict); err != nil {
		return nil, storeFailure(err, "Failed to resolve conflict")
	}

	if err := s.applyResolution(storeCtx, tenantID, conflict, resolution, now); err != nil {
		return nil, err
	}
	if resolution == types.ConflictResolutionClientWins {
		event.Details["client_wins"] = []string{conflict.Key()}
	}

	log.Infow("conflict resolved",
		"conflict_id", conflict.ID,
		"entity", conflict.Key(),
		"resolution", resolution,
		"status", conflict.ConflictStatus,
	)

	return &dto.ResolveConflictResponse{
		Success:    true,
		ConflictID: conflict.ID,
		Resolution: resolution,
		Status:     conflict.ConflictStatus,
		Timestamp:  now,
	}, nil
}

// applyResolution updates the device state: server_wins forces a re-sync,
// client_wins acknowledges the server revision the client calculation overrode
func (s *syncService) applyResolution(ctx context.Context, tenantID string, conflict *syncstate.Conflict, resolution types.ConflictResolution, now time.Time) error {
	if resolution == types.ConflictResolutionManualMerge {
		return nil
	}

	state, err := s.SyncStateRepo.Get(ctx, tenantID, conflict.CompanyID, conflict.DeviceID)
	if ierr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return storeFailure(err, "Failed to load sync state")
	}

	switch resolution {
	case types.ConflictResolutionServerWins:
		state.SyncStatus = types.SyncStatusOutOfSync
	case types.ConflictResolutionClientWins:
		state.AcknowledgedRevisions = state.AcknowledgedRevisions.Merge(syncstate.Revisions{
			conflict.Key(): conflict.ServerRevision,
		})
	}
	state.UpdatedAt = now

	if err := s.SyncStateRepo.Upsert(ctx, state); err != nil {
		return ierr.WithError(ierr.NewSyncError(ierr.SyncReasonCommitFailed, true, resolution.String())).
			WithReportableDetails(map[string]any{"cause": ierr.Code(err)}).
			Mark(ierr.ErrSync)
	}
	return nil
}

// getUnresolved finds the conflict to resolve. Without a company the entity
// must be in conflict for exactly one company of the device.
func (s *syncService) getUnresolved(ctx context.Context, tenantID, companyID string, req dto.ResolveConflictRequest) (*syncstate.Conflict, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	if companyID != "" {
		return s.ConflictRepo.GetUnresolved(ctx, tenantID, companyID, req.DeviceID, req.EntityType, req.EntityID)
	}

	conflicts, err := s.ConflictRepo.ListUnresolved(ctx, tenantID, req.DeviceID, req.EntityType, req.EntityID)
	if err != nil {
		return nil, err
	}
	switch len(conflicts) {
	case 0:
		return nil, ierr.NewError("conflict not found").
			WithHint("No unresolved conflict exists for this entity").
			WithReportableDetails(map[string]any{
				"entity_type": req.EntityType,
				"entity_id":   req.EntityID,
			}).
			Mark(ierr.ErrNotFound)
	case 1:
		return conflicts[0], nil
	default:
		return nil, ierr.NewValidationError([]ierr.FieldError{{
			Field:   "company_id",
			Message: "is required, the entity is in conflict for several companies",
		}})
	}
}

func (s *syncService) GetSyncStatus(ctx context.Context, tenantID, deviceID, companyID string) (*dto.SyncStatusResponse, error) {
	if deviceID == "" {
		return nil, ierr.NewValidationError([]ierr.FieldError{{Field: "device_id", Message: "is required"}})
	}

	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	states, err := s.SyncStateRepo.ListByDevice(ctx, tenantID, deviceID)
	if err != nil {
		return nil, err
	}
	if companyID != "" {
		states = lo.Filter(states, func(st *syncstate.SyncState, _ int) bool { return st.CompanyID == companyID })
	}
	if len(states) == 0 {
		return &dto.SyncStatusResponse{
			DeviceID: deviceID,
			Status:   types.SyncStatusUnknown,
		}, nil
	}
	state := lo.MaxBy(states, func(a, b *syncstate.SyncState) bool {
		return lo.FromPtr(a.LastSyncAt).After(lo.FromPtr(b.LastSyncAt))
	})

	diff, err := s.collectIncremental(ctx, tenantID, state.CompanyID, state.LastSyncTimestamp, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	open, err := s.ConflictRepo.CountOpen(ctx, tenantID, state.CompanyID, deviceID)
	if err != nil {
		return nil, err
	}

	pending := diff.size() + open
	status := state.SyncStatus
	if pending > 0 || status == types.SyncStatusOutOfSync {
		status = types.SyncStatusOutOfSync
	}

	return &dto.SyncStatusResponse{
		DeviceID:          deviceID,
		LastSyncAt:        state.LastSyncAt,
		LastSyncTimestamp: lo.ToPtr(state.LastSyncTimestamp),
		PendingChanges:    pending,
		Status:            status,
	}, nil
}

// collectFull returns the active forms and rules of the selected forms and every settings row
func (s *syncService) collectFull(ctx context.Context, tenantID, companyID string, now time.Time) (syncDiff, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	settings, err := s.TaxSettingsRepo.ListByCompany(ctx, tenantID, companyID)
	if err != nil {
		return syncDiff{}, err
	}
	selected := lo.FilterMap(settings, func(ts *taxsettings.CompanyTaxSettings, _ int) (string, bool) {
		return ts.TaxFormID, ts.IsSelected
	})

	forms, rules, scanned, err := s.formContents(ctx, tenantID, selected, now)
	if err != nil {
		return syncDiff{}, err
	}
	diff := newSyncDiff(forms, rules, settings)
	diff.scanned = scanned
	return diff, nil
}

// collectIncremental returns rows updated since the cursor. A form selected
// within the window is delivered whole since the device never received it.
func (s *syncService) collectIncremental(ctx context.Context, tenantID, companyID string, since, now time.Time) (syncDiff, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	settings, err := s.TaxSettingsRepo.ListUpdatedSince(ctx, tenantID, companyID, since)
	if err != nil {
		return syncDiff{}, err
	}
	selectedSettings, err := s.TaxSettingsRepo.ListSelected(ctx, tenantID, companyID)
	if err != nil {
		return syncDiff{}, err
	}
	selected := lo.Map(selectedSettings, func(ts *taxsettings.CompanyTaxSettings, _ int) string { return ts.TaxFormID })
	if len(selected) == 0 {
		return newSyncDiff(nil, nil, settings), nil
	}

	forms, err := s.TaxFormRepo.ListUpdatedSince(ctx, tenantID, selected, since)
	if err != nil {
		return syncDiff{}, err
	}
	rules, err := s.TaxRuleRepo.ListUpdatedSince(ctx, tenantID, selected, since)
	if err != nil {
		return syncDiff{}, err
	}

	newlySelected := lo.FilterMap(settings, func(ts *taxsettings.CompanyTaxSettings, _ int) (string, bool) {
		return ts.TaxFormID, ts.IsSelected
	})
	if len(newlySelected) > 0 {
		extraForms, extraRules, _, err := s.formContents(ctx, tenantID, newlySelected, now)
		if err != nil {
			return syncDiff{}, err
		}
		forms = append(forms, extraForms...)
		rules = append(rules, extraRules...)
	}
	return newSyncDiff(forms, rules, settings), nil
}

// formContents loads the deliverable forms among formIDs and their active rules.
// scanned is the latest updated_at among the rows it read.
func (s *syncService) formContents(ctx context.Context, tenantID string, formIDs []string, now time.Time) (forms []*taxform.TaxForm, rules []*taxrule.TaxRule, scanned time.Time, err error) {
	if len(formIDs) == 0 {
		return nil, nil, scanned, nil
	}
	all, err := s.TaxFormRepo.ListByIDs(ctx, tenantID, formIDs)
	if err != nil {
		return nil, nil, scanned, err
	}
	for _, f := range all {
		scanned = laterOf(scanned, f.UpdatedAt)
		if f.Status == types.StatusPublished && (f.ValidTo == nil || !f.ValidTo.Before(now)) {
			forms = append(forms, f)
		}
	}

	for _, f := range forms {
		formRules, err := s.TaxRuleRepo.ListByTaxForm(ctx, tenantID, f.ID)
		if err != nil {
			return nil, nil, scanned, err
		}
		for _, r := range formRules {
			scanned = laterOf(scanned, r.UpdatedAt)
			// future dated rules are delivered so offline devices apply them on time
			if r.IsActive && r.Status == types.StatusPublished && (r.ValidTo == nil || !r.ValidTo.Before(now)) {
				rules = append(rules, r)
			}
		}
	}
	return forms, rules, scanned, nil
}

func newSyncDiff(forms []*taxform.TaxForm, rules []*taxrule.TaxRule, settings []*taxsettings.CompanyTaxSettings) syncDiff {
	forms = lo.UniqBy(forms, func(f *taxform.TaxForm) string { return f.ID })
	rules = lo.UniqBy(rules, func(r *taxrule.TaxRule) string { return r.ID })
	sort.Slice(forms, func(i, j int) bool { return forms[i].ID < forms[j].ID })
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	sort.Slice(settings, func(i, j int) bool { return settings[i].ID < settings[j].ID })
	return syncDiff{
		forms:    lo.Ternary(forms == nil, []*taxform.TaxForm{}, forms),
		rules:    lo.Ternary(rules == nil, []*taxrule.TaxRule{}, rules),
		settings: lo.Ternary(settings == nil, []*taxsettings.CompanyTaxSettings{}, settings),
	}
}

func (s *syncService) findCompany(ctx context.Context, tenantID, companyID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()
	_, err := s.CompanyRepo.FindCompany(ctx, tenantID, companyID)
	return err
}

// acquireLease takes the device lease and keeps it alive until release is called
func (s *syncService) acquireLease(ctx context.Context, log *logger.Logger, key string) (release func(), err error) {
	l, err := lease.Acquire(ctx, s.LeaseManager, key, lease.Options{
		TTL:   s.Config.Sync.LeaseTTL,
		Wait:  s.Config.Sync.LeaseWait,
		Retry: s.Config.Sync.LeaseRetry,
	})
	if err != nil {
		log.Warnw("failed to acquire sync lease", "key", key, "error", err)
		return nil, err
	}

	stop := lease.KeepAlive(ctx, l, s.Config.Sync.LeaseTTL, log)
	return func() {
		stop()
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warnw("failed to release sync lease", "key", key, "error", err)
		}
	}, nil
}

// loadState returns the stored state or a fresh unknown state for a new device
func (s *syncService) loadState(ctx context.Context, tenantID, companyID, deviceID string, now time.Time) (*syncstate.SyncState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	state, err := s.SyncStateRepo.Get(ctx, tenantID, companyID, deviceID)
	if err == nil {
		return state, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, storeFailure(err, "Failed to load sync state")
	}
	return &syncstate.SyncState{
		ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SYNC_STATE),
		CompanyID:             companyID,
		DeviceID:              deviceID,
		SyncStatus:            types.SyncStatusUnknown,
		AcknowledgedRevisions: syncstate.Revisions{},
		BaseModel:             s.baseModel(ctx, tenantID, now),
	}, nil
}

func (s *syncService) baseModel(ctx context.Context, tenantID string, now time.Time) types.BaseModel {
	base := types.GetDefaultBaseModel(ctx)
	base.TenantID = tenantID
	base.CreatedAt = now
	base.UpdatedAt = now
	return base
}

func (s *syncService) newEvent(ctx context.Context, tenantID string, eventType types.AuditEventType, companyID, deviceID string) *audit.Event {
	return &audit.Event{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUDIT_EVENT),
		TenantID:   tenantID,
		EventType:  eventType,
		Outcome:    types.AuditOutcomeSuccess,
		CompanyID:  companyID,
		DeviceID:   deviceID,
		RequestID:  types.GetRequestID(ctx),
		Details:    audit.Details{},
		OccurredAt: s.Clock.Now(),
	}
}

// finishSyncEvent fills the outcome of a sync call into its audit event
func finishSyncEvent(event *audit.Event, resp *dto.SyncResponse, err error) {
	if err != nil {
		event.EventType = types.AuditEventSyncFailed
		event.Outcome = types.AuditOutcomeFailure
		event.ErrorCode = ierr.Code(err)
		if reason, ok := ierr.Details(err)["reason"]; ok {
			event.Details["reason"] = reason
		}
		return
	}

	event.SyncedCalculations = resp.SyncedCalculations
	event.FailedCalculations = len(resp.FailedCalculations)
	event.Conflicts = len(resp.Conflicts)
	event.Details["server_timestamp"] = resp.ServerTimestamp
	if event.FailedCalculations > 0 {
		event.Outcome = types.AuditOutcomePartial
	}

	if event.Resolution == types.ConflictResolutionClientWins {
		clientWins := lo.FilterMap(resp.Conflicts, func(c dto.ConflictResponse, _ int) (string, bool) {
			return types.EntityKey(c.EntityType, c.EntityID), c.Status == types.ConflictStatusResolved
		})
		if len(clientWins) > 0 {
			event.Details["client_wins"] = clientWins
		}
	}
}

// storeFailure marks a store error met by the coordinator as a retryable sync error
func storeFailure(err error, hint string) error {
	if ierr.IsNotFound(err) || ierr.IsValidation(err) {
		return err
	}
	return ierr.WithError(err).
		WithHint(hint).
		Retryable().
		Mark(ierr.ErrSync)
}
