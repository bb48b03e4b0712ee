package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kosarica/purchase-optimizer/config"
	"github.com/kosarica/purchase-optimizer/internal/handlers"
	"github.com/kosarica/purchase-optimizer/internal/middleware"
	"github.com/kosarica/purchase-optimizer/internal/optimizer"
)

// newRouter wires middleware and routes. Health, metrics and docs stay
// outside the authenticated, rate limited API group.
func newRouter(cfg *config.Config, opt optimizer.Optimizer, limiter *middleware.IPRateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.CORS(cfg.Server.CORSOrigins),
		middleware.Compression(),
	)

	router.GET("/health", handlers.HealthCheck(opt))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")
	api.Use(middleware.APIKeyAuth(cfg.Auth.APIKey))
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	handlers.RegisterRoutes(api, opt, cfg.OptimizerConfig())

	return router
}
