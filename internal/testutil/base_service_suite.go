package testutil

import (
	"context"
	"time"

	"github.com/flexprice/taxsync/internal/auditlog"
	"github.com/flexprice/taxsync/internal/cache"
	"github.com/flexprice/taxsync/internal/clock"
	"github.com/flexprice/taxsync/internal/config"
	"github.com/flexprice/taxsync/internal/lease"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/sentry"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/flexprice/taxsync/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories used by service tests
type Stores struct {
	CompanyRepo     *InMemoryCompanyStore
	TaxFormRepo     *InMemoryTaxFormStore
	TaxRuleRepo     *InMemoryTaxRuleStore
	TaxSettingsRepo *InMemoryTaxSettingsStore
	SyncStateRepo   *InMemorySyncStateStore
	ConflictRepo    *InMemoryConflictStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx          context.Context
	stores       Stores
	auditSink    *InMemoryAuditSink
	auditEmitter *auditlog.Emitter
	leases       *lease.MemoryManager
	cache        cache.Cache
	sentry       *sentry.Service
	logger       *logger.Logger
	config       *config.Configuration
	clock        *clock.Fake
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()
	s.logger = logger.NewNop()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.config = config.GetDefaultConfig()
	s.clock = clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	s.setupContext()
	s.setupStores()

	s.auditSink = NewInMemoryAuditSink()
	s.auditEmitter = auditlog.NewEmitter(s.auditSink, s.config, s.logger)
	s.leases = lease.NewMemoryManager(s.clock)
	s.cache = cache.NewInMemoryCache(s.config, s.logger)
	s.sentry = sentry.NewSentryService(s.config, s.logger)
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		CompanyRepo:     NewInMemoryCompanyStore(),
		TaxFormRepo:     NewInMemoryTaxFormStore(),
		TaxRuleRepo:     NewInMemoryTaxRuleStore(),
		TaxSettingsRepo: NewInMemoryTaxSettingsStore(),
		SyncStateRepo:   NewInMemorySyncStateStore(),
		ConflictRepo:    NewInMemoryConflictStore(),
	}
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.CompanyRepo.Clear()
	s.stores.TaxFormRepo.Clear()
	s.stores.TaxRuleRepo.Clear()
	s.stores.TaxSettingsRepo.Clear()
	s.stores.SyncStateRepo.Clear()
	s.stores.ConflictRepo.Clear()
	if s.auditSink != nil {
		s.auditSink.Clear()
	}
}

// ClearStores resets every store and the audit sink
func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns a context carrying the default tenant, user and request id
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetTenantID() string {
	return types.GetTenantID(s.ctx)
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetClock() *clock.Fake {
	return s.clock
}

// GetNow returns the current fake time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.clock.Now()
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

func (s *BaseServiceTestSuite) GetLeaseManager() *lease.MemoryManager {
	return s.leases
}

func (s *BaseServiceTestSuite) GetAuditSink() *InMemoryAuditSink {
	return s.auditSink
}

func (s *BaseServiceTestSuite) GetAuditEmitter() *auditlog.Emitter {
	return s.auditEmitter
}
