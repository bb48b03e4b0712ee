package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kosarica/purchase-optimizer/config"
	_ "github.com/kosarica/purchase-optimizer/docs"
	"github.com/kosarica/purchase-optimizer/internal/middleware"
	"github.com/kosarica/purchase-optimizer/internal/optimizer"
	"github.com/kosarica/purchase-optimizer/internal/solver"
	"github.com/kosarica/purchase-optimizer/internal/telemetry"
)

// @title Purchase Optimizer API
// @version 1.0
// @description Chooses the cheapest way to buy a shopping list across online retailers with shipping fees and free-shipping thresholds.
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)
	log.Logger = *logger
	zerolog.DefaultContextLogger = logger

	logger.Info().Msg("Starting purchase optimizer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry disabled")
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	registry := solver.NewDefaultRegistry()
	optimizerConfig := cfg.OptimizerConfig()
	if !registry.IsRegistered(optimizerConfig.SolverID) {
		logger.Fatal().Str("solver", optimizerConfig.SolverID).Strs("available", registry.Available()).Msg("Unknown default solver")
	}
	service := optimizer.NewService(registry, optimizerConfig)

	limiterConfig := middleware.DefaultRateLimiterConfig()
	limiterConfig.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
	limiterConfig.BurstSize = cfg.RateLimit.Burst
	limiter := middleware.NewIPRateLimiter(limiterConfig)
	go limiter.RunCleanup(ctx, time.Minute)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, service, limiter)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("solver", optimizerConfig.SolverID).
			Bool("auth", cfg.Auth.APIKey != "").
			Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", telemetry.DefaultServiceName).Logger()
	return &logger
}
