package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flexprice/taxsync/internal/api"
	v1 "github.com/flexprice/taxsync/internal/api/v1"
	"github.com/flexprice/taxsync/internal/auditlog"
	"github.com/flexprice/taxsync/internal/cache"
	"github.com/flexprice/taxsync/internal/clock"
	"github.com/flexprice/taxsync/internal/config"
	"github.com/flexprice/taxsync/internal/domain/audit"
	"github.com/flexprice/taxsync/internal/lease"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
	"github.com/flexprice/taxsync/internal/pubsub"
	"github.com/flexprice/taxsync/internal/pubsub/kafka"
	"github.com/flexprice/taxsync/internal/pubsub/memory"
	"github.com/flexprice/taxsync/internal/ratelimit"
	"github.com/flexprice/taxsync/internal/repository"
	"github.com/flexprice/taxsync/internal/sentry"
	"github.com/flexprice/taxsync/internal/service"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/flexprice/taxsync/internal/validator"
	"github.com/flexprice/taxsync/migrations"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Clock
			clock.New,

			// Cache
			provideCache,

			// Postgres
			postgres.NewDB,

			// Redis, lease and rate limiting
			provideRedisClient,
			provideLeaseManager,
			provideLimiter,

			// Repositories
			repository.NewCompanyRepository,
			repository.NewTaxFormRepository,
			repository.NewTaxRuleRepository,
			repository.NewTaxSettingsRepository,
			repository.NewSyncStateRepository,
			repository.NewConflictRepository,
			repository.NewAuditRepository,

			// Audit pipeline
			providePubSub,
			auditlog.NewSink,
			auditlog.NewEmitter,

			// Services
			service.NewServiceParams,
			service.NewCalculationService,
			service.NewSyncService,
			service.NewTaxRuleAdminService,

			// API
			provideHandlers,
			provideRouter,
		),
		sentry.Module(),
		fx.Invoke(runMigrations, startAuditRelay, startServer),
	)

	app.Run()
}

func provideCache(cfg *config.Configuration, log *logger.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		log.Info("applicable rules cache disabled")
		return nil
	}
	return cache.NewInMemoryCache(cfg, log)
}

// provideRedisClient returns nil when redis is disabled
func provideRedisClient(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client := lease.NewRedisClient(cfg)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Errorw("redis unreachable", "address", cfg.Redis.Address, "error", err)
				return err
			}
			log.Infow("connected to redis", "address", cfg.Redis.Address)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func provideLeaseManager(cfg *config.Configuration, client *redis.Client, c clock.Clock, log *logger.Logger) lease.Manager {
	if client != nil {
		return lease.NewRedisManager(client, cfg)
	}
	if cfg.Deployment.Mode == types.ModeAPI {
		log.Warn("redis disabled, device leases only serialize syncs within this instance")
	}
	return lease.NewMemoryManager(c)
}

func provideLimiter(cfg *config.Configuration, client *redis.Client, c clock.Clock) ratelimit.Limiter {
	if client != nil {
		return ratelimit.NewRedisLimiter(client, cfg)
	}
	return ratelimit.NewMemoryLimiter(cfg, c)
}

func providePubSub(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (pubsub.PubSub, pubsub.Publisher, error) {
	var (
		ps  pubsub.PubSub
		err error
	)

	switch cfg.Deployment.Mode {
	case types.ModeAPI:
		ps, err = kafka.NewPubSub(cfg, log)
		if err != nil {
			return nil, nil, err
		}
	default:
		ps = memory.NewPubSub(log)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ps.Close()
		},
	})
	return ps, ps, nil
}

func provideHandlers(
	db *postgres.DB,
	calculationService service.CalculationService,
	syncService service.SyncService,
	adminService service.TaxRuleAdminService,
	logger *logger.Logger,
) api.Handlers {
	return api.Handlers{
		Health:      v1.NewHealthHandler(db, logger),
		Calculation: v1.NewCalculationHandler(calculationService, logger),
		Sync:        v1.NewSyncHandler(syncService, logger),
		Admin:       v1.NewTaxAdminHandler(adminService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger, limiter ratelimit.Limiter) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(handlers, cfg, logger, limiter)
}

func runMigrations(lc fx.Lifecycle, cfg *config.Configuration, db *postgres.DB, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Postgres.AutoMigrate {
				return nil
			}
			return postgres.Migrate(ctx, db, migrations.Postgres(), log)
		},
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}

// startAuditRelay copies audit events from the in-process pubsub into postgres.
// Kafka deployments run their own consumers of the audit topic.
func startAuditRelay(lc fx.Lifecycle, cfg *config.Configuration, ps pubsub.PubSub, repo audit.Repository, log *logger.Logger) {
	if cfg.Deployment.Mode != types.ModeLocal || cfg.Audit.Destination != types.AuditDestinationPubSub {
		return
	}

	relay := auditlog.NewRelay(ps, repo, cfg.Audit.Topic, log)
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := relay.Run(ctx); err != nil {
					log.Errorw("audit relay stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, cfg *config.Configuration, r *gin.Engine, log *logger.Logger) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address, "mode", cfg.Deployment.Mode)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server...")
			if cfg.Server.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
				defer cancel()
			}
			return srv.Shutdown(ctx)
		},
	})
}
