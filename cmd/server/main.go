package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/api"
	"github.com/irfndi/sector-rotation-go/internal/api/handlers"
	"github.com/irfndi/sector-rotation-go/internal/cache"
	"github.com/irfndi/sector-rotation-go/internal/config"
	"github.com/irfndi/sector-rotation-go/internal/database"
	"github.com/irfndi/sector-rotation-go/internal/logging"
	"github.com/irfndi/sector-rotation-go/internal/services"
	"github.com/irfndi/sector-rotation-go/internal/telemetry"
	"github.com/irfndi/sector-rotation-go/pkg/fred"
	"github.com/irfndi/sector-rotation-go/pkg/yahoo"
	"github.com/joho/godotenv"
)

const serviceName = "sector-rotation"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.NewStandardOTLPLogger(ctx, logging.OTLPConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})
	logrusLogger := logging.NewLogrusLogger(cfg.LogLevel)

	if err := telemetry.InitTelemetry(telemetryConfig(cfg)); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logrusLogger.WithError(err).Warn("Failed to shutdown telemetry")
		}
		if err := logger.Shutdown(shutdownCtx); err != nil {
			logrusLogger.WithError(err).Warn("Failed to flush logs")
		}
	}()

	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := database.NewRedisConnection(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	reports := database.NewReportRepository(database.NewTracedPool(db.Pool))
	if err := reports.EnsureSchema(ctx); err != nil {
		return err
	}

	observationCache := cache.NewObservationCache(redisClient.Client, cfg.Rotation.GetCacheTTL(), logrusLogger, logger.WithComponent("cache"))
	yahooClient := yahoo.NewClient(&cfg.Providers.Yahoo)
	fredClient := fred.NewClient(&cfg.Providers.FRED)

	breaker := services.NewCircuitBreaker("yahoo", services.CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
		IsFailure:        services.IsUpstreamFailure,
	}, logrusLogger)

	notifier, err := services.NewDigestNotifier(cfg.Telegram, logrusLogger)
	if err != nil {
		return fmt.Errorf("failed to create telegram notifier: %w", err)
	}

	rotationService := services.NewRotationService(
		services.NewObservationCollector(yahooClient, observationCache, breaker, cfg.Providers.Yahoo.Concurrency, logrusLogger),
		services.NewMacroCollector(fredClient, observationCache, cfg.Providers.FRED.Series, logrusLogger),
		reports,
		notifier,
		cfg.Rotation,
		logrusLogger,
	).WithEventLogger(logger.WithComponent("rotation"))

	router := api.NewRouter(api.Dependencies{
		Rotation: rotationService,
		Critical: map[string]handlers.HealthChecker{"database": db},
		Optional: map[string]handlers.HealthChecker{
			"redis": redisClient,
			"yahoo": yahooClient,
			"fred":  fredClient,
		},
		CacheStats:     observationCache,
		JWTSecret:      cfg.Security.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ServiceName:    cfg.Telemetry.ServiceName,
		Version:        cfg.Telemetry.ServiceVersion,
		Logger:         logrusLogger,
	})

	srv := newHTTPServer(cfg.Server.Port, router)
	serverErr := make(chan error, 1)
	go func() {
		logger.LogStartup(serviceName, cfg.Telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.WithError(err).Error("HTTP server stopped unexpectedly", "port", cfg.Server.Port)
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.LogShutdown(serviceName, "signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrusLogger.Info("Server exited gracefully")
	return nil
}

func telemetryConfig(cfg *config.Config) telemetry.TelemetryConfig {
	tc := *telemetry.DefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tc.ServiceName = cfg.Telemetry.ServiceName
	tc.ServiceVersion = cfg.Telemetry.ServiceVersion
	tc.Environment = cfg.Environment
	return tc
}

// newHTTPServer allows long writes: a report build waits on upstream providers.
func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
