package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/feediq/internal/api/handlers"
	"github.com/zatekoja/feediq/internal/api/routes"
	"github.com/zatekoja/feediq/internal/app"
	"github.com/zatekoja/feediq/internal/application/services"
	"github.com/zatekoja/feediq/internal/infrastructure/observability"
	"github.com/zatekoja/feediq/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment, cfg.LogLevel)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Storage, event bus, cache and alerting
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize feedback backend")
	}
	application.Service.SetMetrics(metrics, application.Business)

	// Records written by other processes reach this cache through the bus
	invalidation := services.NewCacheInvalidationService(application.Cache, application.Bus)
	if err := invalidation.Start(); err != nil {
		log.Warn().Err(err).Msg("failed to start cache invalidation service")
	}

	// Refresh the cached dashboard before it expires
	warming := services.NewCacheWarmingService(application.Service)
	warming.StartPeriodicWarming(ctx, time.Duration(application.Service.DashboardTTL())*time.Second/2)

	registry := application.NewRegistry()

	// Initialize handlers
	feedbackHandler := handlers.NewFeedbackHandler(application.Service, application.Cache)
	dashboardHandler := handlers.NewDashboardHandler(application.Service)
	sseHandler := handlers.NewSSEHandler(application.Service)
	intakeHandler := handlers.NewIntakeHandler(registry, application.Business)
	intakeHandler.SetCache(application.Cache)

	router := routes.NewRouter(
		feedbackHandler,
		dashboardHandler,
		sseHandler,
		intakeHandler,
		metrics,
		application.Business,
		cfg.Server.AllowedOrigins,
	)

	// Create HTTP server. No write timeout: the change stream is long lived.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	// Streams hold their request open until the base context ends
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	registry.CloseAll()
	invalidation.Stop()
	warming.Wait()

	if err := application.Close(); err != nil {
		log.Error().Err(err).Msg("error closing feedback backend")
	}

	log.Info().Msg("server stopped")
}
