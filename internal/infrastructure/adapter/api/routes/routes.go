package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coreport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/api/middleware"
)

// SetupRoutes configures all the routes for the API
func SetupRoutes(
	router *gin.Engine,
	providerHandler *handler.ProviderHandler,
	healthHandler *handler.HealthHandler,
	metricsPath string,
) {
	// Single provider endpoint; operations are dispatched on the type field
	router.POST("/provider", providerHandler.Handle)

	router.GET("/health", healthHandler.Health)

	if metricsPath != "" {
		router.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}
}

// SetupMiddlewares configures global middlewares for the API
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())
}
