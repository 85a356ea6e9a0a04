package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flexprice/taxsync/internal/domain/audit"
	"github.com/flexprice/taxsync/internal/domain/syncstate"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/domain/taxsettings"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var syncStateRowColumns = []string{
	"id", "tenant_id", "company_id", "device_id", "last_sync_timestamp", "last_sync_at",
	"sync_status", "last_mode", "acknowledged_revisions",
	"status", "created_at", "updated_at", "created_by", "updated_by",
}

func newMockDB(t *testing.T) (*postgres.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return postgres.NewFromSQL(mockDB, logger.NewNop()), mock
}

func testState(cursor time.Time) *syncstate.SyncState {
	return &syncstate.SyncState{
		ID:                    "sync_1",
		CompanyID:             "comp_1",
		DeviceID:              "dev_1",
		LastSyncTimestamp:     cursor,
		LastSyncAt:            &cursor,
		SyncStatus:            types.SyncStatusSynced,
		LastMode:              types.SyncModeFull,
		AcknowledgedRevisions: syncstate.Revisions{"tax_rule:rule_1": 42},
		BaseModel: types.BaseModel{
			TenantID:  "tenant_1",
			Status:    types.StatusPublished,
			CreatedAt: cursor,
			UpdatedAt: cursor,
		},
	}
}

func TestSyncStateRepository_Get(t *testing.T) {
	t.Run("scans the stored state", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSyncStateRepository(db, logger.NewNop())
		cursor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows(syncStateRowColumns).AddRow(
			"sync_1", "tenant_1", "comp_1", "dev_1", cursor, nil,
			"synced", "incremental", []byte(`{"tax_rule:rule_1":42}`),
			"published", cursor, cursor, "", "",
		)
		mock.ExpectQuery(`(?s)SELECT .* FROM sync_states\s+WHERE tenant_id = \$1 AND company_id = \$2 AND device_id = \$3`).
			WithArgs("tenant_1", "comp_1", "dev_1").
			WillReturnRows(rows)

		st, err := repo.Get(context.Background(), "tenant_1", "comp_1", "dev_1")
		require.NoError(t, err)
		assert.Equal(t, cursor, st.LastSyncTimestamp)
		assert.Nil(t, st.LastSyncAt)
		assert.Equal(t, types.SyncModeIncremental, st.LastMode)
		assert.Equal(t, int64(42), st.AcknowledgedRevisions["tax_rule:rule_1"])
		assert.Equal(t, "tenant_1", st.TenantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps a missing row to not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSyncStateRepository(db, logger.NewNop())

		mock.ExpectQuery(`(?s)SELECT .* FROM sync_states`).
			WithArgs("tenant_1", "comp_1", "dev_new").
			WillReturnRows(sqlmock.NewRows(syncStateRowColumns))

		_, err := repo.Get(context.Background(), "tenant_1", "comp_1", "dev_new")
		require.Error(t, err)
		assert.True(t, ierr.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSyncStateRepository_Upsert(t *testing.T) {
	cursor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("writes a forward cursor", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSyncStateRepository(db, logger.NewNop())

		mock.ExpectExec(`(?s)INSERT INTO sync_states .*ON CONFLICT \(tenant_id, company_id, device_id\) DO UPDATE SET .*WHERE sync_states.last_sync_timestamp <= EXCLUDED.last_sync_timestamp`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Upsert(context.Background(), testState(cursor)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a regression", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSyncStateRepository(db, logger.NewNop())
		stored := cursor.Add(time.Hour)

		mock.ExpectExec(`INSERT INTO sync_states`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT last_sync_timestamp FROM sync_states`).
			WithArgs("tenant_1", "comp_1", "dev_1").
			WillReturnRows(sqlmock.NewRows([]string{"last_sync_timestamp"}).AddRow(stored))

		err := repo.Upsert(context.Background(), testState(cursor))
		require.Error(t, err)
		assert.True(t, ierr.Is(err, ierr.ErrInvalidOperation))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces driver failures as database errors", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSyncStateRepository(db, logger.NewNop())

		mock.ExpectExec(`INSERT INTO sync_states`).
			WillReturnError(sql.ErrConnDone)

		err := repo.Upsert(context.Background(), testState(cursor))
		require.Error(t, err)
		assert.True(t, ierr.IsDatabase(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSyncStateRepository_Replace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncStateRepository(db, logger.NewNop())
	cursor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// no cursor guard, an older cursor overwrites the stored one
	mock.ExpectExec(`(?s)INSERT INTO sync_states .*ON CONFLICT \(tenant_id, company_id, device_id\) DO UPDATE SET .*updated_by = EXCLUDED\.updated_by\s*$`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Replace(context.Background(), testState(cursor)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_UpsertInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncStateRepository(db, logger.NewNop())
	cursor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sync_states`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		return repo.Upsert(ctx, testState(cursor))
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepository(t *testing.T) {
	t.Run("counts open conflicts", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConflictRepository(db, logger.NewNop())

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sync_conflicts`).
			WithArgs("tenant_1", "comp_1", "dev_1", "open").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.CountOpen(context.Background(), "tenant_1", "comp_1", "dev_1")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("looks up open and pending manual conflicts", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConflictRepository(db, logger.NewNop())

		mock.ExpectQuery(`(?s)FROM sync_conflicts\s+WHERE tenant_id = \$1 AND company_id = \$2 .*AND conflict_status IN \(\$6, \$7\)`).
			WithArgs("tenant_1", "comp_1", "dev_1", "tax_rule", "rule_1", "open", "pending_manual").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetUnresolved(context.Background(), "tenant_1", "comp_1", "dev_1", types.SyncEntityTaxRule, "rule_1")
		assert.True(t, ierr.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lists unresolved conflicts of an entity across companies", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConflictRepository(db, logger.NewNop())

		mock.ExpectQuery(`(?s)FROM sync_conflicts\s+WHERE tenant_id = \$1 AND device_id = \$2 .*ORDER BY company_id`).
			WithArgs("tenant_1", "dev_1", "tax_rule", "rule_1", "open", "pending_manual").
			WillReturnRows(sqlmock.NewRows([]string{"id", "company_id"}).AddRow("conf_1", "comp_1").AddRow("conf_2", "comp_2"))

		conflicts, err := repo.ListUnresolved(context.Background(), "tenant_1", "dev_1", types.SyncEntityTaxRule, "rule_1")
		require.NoError(t, err)
		require.Len(t, conflicts, 2)
		assert.Equal(t, "comp_2", conflicts[1].CompanyID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update of a missing conflict is not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConflictRepository(db, logger.NewNop())

		mock.ExpectExec(`UPDATE sync_conflicts SET`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), &syncstate.Conflict{
			ID:             "conf_1",
			ConflictStatus: types.ConflictStatusResolved,
			BaseModel:      types.BaseModel{TenantID: "tenant_1"},
		})
		assert.True(t, ierr.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaxSettingsRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaxSettingsRepository(db, logger.NewNop())

	mock.ExpectExec(`INSERT INTO company_tax_settings`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_company_tax_settings"})

	err := repo.Create(context.Background(), &taxsettings.CompanyTaxSettings{
		ID:         "cts_1",
		CompanyID:  "comp_1",
		TaxFormID:  "form_vat",
		IsSelected: true,
		BaseModel:  types.BaseModel{TenantID: "tenant_1", Status: types.StatusPublished},
	})
	require.Error(t, err)
	assert.True(t, ierr.IsAlreadyExists(err))
	assert.Equal(t, "uq_company_tax_settings", ierr.Details(err)["constraint"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaxRuleRepository(t *testing.T) {
	t.Run("lists changes of the selected forms", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTaxRuleRepository(db, logger.NewNop())
		since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		updated := since.Add(time.Minute)

		rows := sqlmock.NewRows([]string{
			"id", "tenant_id", "tax_form_id", "name", "description", "rule_type", "conditions",
			"calculation_method", "value", "priority", "valid_from", "valid_to", "is_active",
			"status", "created_at", "updated_at", "created_by", "updated_by",
		}).AddRow(
			"rule_1", "tenant_1", "form_vat", "VAT 23", "", "rate", []byte(`[]`),
			"percentage", "23.00000000", 10, since, nil, true,
			"published", since, updated, "", "",
		)
		mock.ExpectQuery(`FROM tax_rules\s+WHERE tenant_id = \$1 AND tax_form_id = ANY\(\$2\) AND updated_at >= \$3\s+ORDER BY updated_at, id`).
			WithArgs("tenant_1", sqlmock.AnyArg(), since).
			WillReturnRows(rows)

		rules, err := repo.ListUpdatedSince(context.Background(), "tenant_1", []string{"form_vat"}, since)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.True(t, decimal.NewFromInt(23).Equal(rules[0].Value))
		assert.Equal(t, updated.UnixNano(), rules[0].Revision())
		assert.Empty(t, rules[0].Conditions)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update of a missing rule is not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTaxRuleRepository(db, logger.NewNop())

		mock.ExpectExec(`UPDATE tax_rules SET`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), &taxrule.TaxRule{
			ID:        "rule_missing",
			BaseModel: types.BaseModel{TenantID: "tenant_1"},
		})
		assert.True(t, ierr.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuditRepository_CreateIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, logger.NewNop())

	mock.ExpectExec(`(?s)INSERT INTO audit_events .*ON CONFLICT \(id\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &audit.Event{
		ID:         "evt_1",
		TenantID:   "tenant_1",
		EventType:  types.AuditEventSyncCompleted,
		Outcome:    types.AuditOutcomeSuccess,
		DeviceID:   "dev_1",
		Details:    audit.Details{"client_wins": []string{"tax_rule:rule_1"}},
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
