package repository

import (
	"github.com/flexprice/taxsync/internal/domain/audit"
	"github.com/flexprice/taxsync/internal/domain/company"
	"github.com/flexprice/taxsync/internal/domain/syncstate"
	"github.com/flexprice/taxsync/internal/domain/taxform"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/domain/taxsettings"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
	postgresRepo "github.com/flexprice/taxsync/internal/repository/postgres"
)

func NewCompanyRepository(db *postgres.DB, logger *logger.Logger) company.Repository {
	return postgresRepo.NewCompanyRepository(db, logger)
}

func NewTaxFormRepository(db *postgres.DB, logger *logger.Logger) taxform.Repository {
	return postgresRepo.NewTaxFormRepository(db, logger)
}

func NewTaxRuleRepository(db *postgres.DB, logger *logger.Logger) taxrule.Repository {
	return postgresRepo.NewTaxRuleRepository(db, logger)
}

func NewTaxSettingsRepository(db *postgres.DB, logger *logger.Logger) taxsettings.Repository {
	return postgresRepo.NewTaxSettingsRepository(db, logger)
}

func NewSyncStateRepository(db *postgres.DB, logger *logger.Logger) syncstate.Repository {
	return postgresRepo.NewSyncStateRepository(db, logger)
}

func NewConflictRepository(db *postgres.DB, logger *logger.Logger) syncstate.ConflictRepository {
	return postgresRepo.NewConflictRepository(db, logger)
}

func NewAuditRepository(db *postgres.DB, logger *logger.Logger) audit.Repository {
	return postgresRepo.NewAuditRepository(db, logger)
}
