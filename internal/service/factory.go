package service

import (
	"github.com/flexprice/taxsync/internal/auditlog"
	"github.com/flexprice/taxsync/internal/cache"
	"github.com/flexprice/taxsync/internal/clock"
	"github.com/flexprice/taxsync/internal/config"
	"github.com/flexprice/taxsync/internal/domain/company"
	"github.com/flexprice/taxsync/internal/domain/syncstate"
	"github.com/flexprice/taxsync/internal/domain/taxform"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/domain/taxsettings"
	"github.com/flexprice/taxsync/internal/lease"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Clock  clock.Clock
	// Cache is optional, nil disables the applicable rules cache
	Cache  cache.Cache
	Sentry *sentry.Service

	// Repositories
	CompanyRepo     company.Repository
	TaxFormRepo     taxform.Repository
	TaxRuleRepo     taxrule.Repository
	TaxSettingsRepo taxsettings.Repository
	SyncStateRepo   syncstate.Repository
	ConflictRepo    syncstate.ConflictRepository

	// Sync coordination
	LeaseManager lease.Manager
	AuditEmitter *auditlog.Emitter
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	clock clock.Clock,
	cache cache.Cache,
	sentry *sentry.Service,
	companyRepo company.Repository,
	taxFormRepo taxform.Repository,
	taxRuleRepo taxrule.Repository,
	taxSettingsRepo taxsettings.Repository,
	syncStateRepo syncstate.Repository,
	conflictRepo syncstate.ConflictRepository,
	leaseManager lease.Manager,
	auditEmitter *auditlog.Emitter,
) ServiceParams {
	return ServiceParams{
		Logger:          logger,
		Config:          config,
		Clock:           clock,
		Cache:           cache,
		Sentry:          sentry,
		CompanyRepo:     companyRepo,
		TaxFormRepo:     taxFormRepo,
		TaxRuleRepo:     taxRuleRepo,
		TaxSettingsRepo: taxSettingsRepo,
		SyncStateRepo:   syncStateRepo,
		ConflictRepo:    conflictRepo,
		LeaseManager:    leaseManager,
		AuditEmitter:    auditEmitter,
	}
}
