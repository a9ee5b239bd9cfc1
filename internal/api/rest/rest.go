package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feral-file/ff-asset-syncer/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health and metrics (no auth)
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Reconciliation endpoints (auth when credentials are configured)
	router.POST("/validate", middleware.Auth(authCfg), handler.Validate)
	router.POST("/repair", middleware.Auth(authCfg), handler.Repair)
}
