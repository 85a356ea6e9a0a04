package api

import (
	v1 "github.com/flexprice/taxsync/internal/api/v1"
	"github.com/flexprice/taxsync/internal/config"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/ratelimit"
	"github.com/flexprice/taxsync/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health      *v1.HealthHandler
	Calculation *v1.CalculationHandler
	Sync        *v1.SyncHandler
	Admin       *v1.TaxAdminHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, limiter ratelimit.Limiter) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.ErrorHandler(logger),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.TenantMiddleware)
	v1Group.Use(middleware.SentryMiddleware(cfg)...)
	v1Group.Use(middleware.RateLimitMiddleware(cfg, limiter, logger))
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	calculations := router.Group("/calculations")
	{
		calculations.POST("", handlers.Calculation.Calculate)
		calculations.POST("/validate", handlers.Calculation.Validate)
	}

	sync := router.Group("/sync")
	{
		sync.POST("", handlers.Sync.RequestSync)
		sync.GET("/status/:device_id", handlers.Sync.GetSyncStatus)
		sync.POST("/conflicts/resolve", handlers.Sync.ResolveConflict)
	}

	companies := router.Group("/companies")
	{
		companies.POST("", handlers.Admin.CreateCompany)
		companies.GET("/:company_id/tax-settings", handlers.Admin.ListCompanyTaxSettings)
		companies.POST("/:company_id/tax-settings", handlers.Admin.CreateCompanyTaxSettings)
		companies.PUT("/:company_id/tax-settings/:tax_form_id", handlers.Admin.UpdateCompanyTaxSettings)
	}

	taxForms := router.Group("/tax-forms")
	{
		taxForms.POST("", handlers.Admin.CreateTaxForm)
		taxForms.POST("/:id/close", handlers.Admin.CloseTaxForm)
	}

	taxRules := router.Group("/tax-rules")
	{
		taxRules.POST("", handlers.Admin.CreateTaxRule)
		taxRules.PUT("/:id", handlers.Admin.UpdateTaxRule)
	}
}
