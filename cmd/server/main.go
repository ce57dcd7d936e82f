package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/retenio/churnguard-go/internal/api"
	"github.com/retenio/churnguard-go/internal/api/handlers"
	"github.com/retenio/churnguard-go/internal/batch"
	"github.com/retenio/churnguard-go/internal/cache"
	"github.com/retenio/churnguard-go/internal/config"
	"github.com/retenio/churnguard-go/internal/database"
	"github.com/retenio/churnguard-go/internal/explain"
	"github.com/retenio/churnguard-go/internal/features"
	"github.com/retenio/churnguard-go/internal/logging"
	"github.com/retenio/churnguard-go/internal/middleware"
	"github.com/retenio/churnguard-go/internal/ml"
	"github.com/retenio/churnguard-go/internal/monitor"
	"github.com/retenio/churnguard-go/internal/services"
	"github.com/retenio/churnguard-go/internal/telemetry"
	"github.com/retenio/churnguard-go/internal/validation"
)

const (
	serviceName    = "churnguard-go"
	serviceVersion = "1.0.0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown telemetry: %v\n", err)
		}
	}()

	appLogger := logging.NewStandardOTLPLogger(logging.OTLPConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})

	// Logrus logger for services built against the logrus API.
	logrusLogger := logrus.New()
	logrusLogger.SetLevel(logging.ParseLogrusLevel(cfg.LogLevel))
	logrusLogger.SetFormatter(&logrus.JSONFormatter{})

	// Database and Redis are optional: without them the service still scores,
	// it just skips persistence and result caching.
	var db *database.PostgresDB
	if cfg.Database.Host != "" {
		db, err = database.NewPostgresConnection(cfg.Database)
		if err != nil {
			logrusLogger.WithError(err).Warn("Database unavailable, persistence disabled")
			db = nil
		} else {
			defer db.Close()
		}
	}

	var redis *database.RedisClient
	if cfg.Redis.Host != "" {
		redis, err = database.NewRedisConnection(cfg.Redis)
		if err != nil {
			logrusLogger.WithError(err).Warn("Redis unavailable, result caching disabled")
			redis = nil
		} else {
			defer redis.Close()
		}
	}

	// The model artifact is the one thing the service cannot run without.
	predictor := ml.NewPredictor(cfg.Model, logrusLogger)
	if err := predictor.Warm(); err != nil {
		return fmt.Errorf("failed to load model artifact: %w", err)
	}
	classifier, err := predictor.Classifier()
	if err != nil {
		return fmt.Errorf("failed to access model artifact: %w", err)
	}

	attributor, err := explain.NewAttributor(classifier, cfg.Explain)
	if err != nil {
		return fmt.Errorf("failed to initialize attribution: %w", err)
	}
	explainer := explain.NewExplainer(classifier, attributor, logrusLogger)

	mon := monitor.NewMonitor(cfg.Monitoring, classifier.ReferenceDistribution(), logrusLogger)
	alertEngine := monitor.NewAlertEngine(cfg.Monitoring, logrusLogger)
	notifier := services.NewNotifier(cfg.Telegram, logrusLogger)

	// Size the batch worker pool from observed system resources unless the
	// operator pinned it in config.
	if cfg.Batch.Workers == 0 {
		optimizer := services.NewResourceOptimizer(logrusLogger)
		if err := optimizer.UpdateSystemMetrics(ctx); err != nil {
			logrusLogger.WithError(err).Warn("System metrics unavailable, using initial worker estimate")
		}
		cfg.Batch.Workers = optimizer.RecommendedWorkers()
	}

	var resultCache *cache.ResultCache
	if redis != nil {
		ttl := time.Hour
		if cfg.Model.ResultCacheTTL != "" {
			if parsed, err := time.ParseDuration(cfg.Model.ResultCacheTTL); err == nil {
				ttl = parsed
			}
		}
		resultCache = cache.NewResultCache(redis.Client, ttl, logrusLogger)
	}

	var repo *database.PredictionRepository
	if db != nil {
		repo = database.NewPredictionRepository(db.Pool)
	}

	validator := validation.NewValidator()
	encoder := features.NewEncoder()
	processor := batch.NewProcessor(cfg.Batch, validator, encoder, predictor, explainer, mon, logrusLogger)

	deps := api.Dependencies{
		DB:        db,
		Redis:     redis,
		Predictor: predictor,
		Prediction: handlers.NewPredictionHandler(
			validator, encoder, predictor, explainer, resultCache, mon, repo, logrusLogger),
		Batch:      handlers.NewBatchHandler(processor, cfg.Batch.MaxRows, logrusLogger),
		Monitoring: handlers.NewMonitoringHandler(mon, alertEngine, notifier, repo, logrusLogger),
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.TelemetryMiddleware())

	api.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	go func() {
		appLogger.LogStartup(serviceName, serviceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrusLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.LogShutdown(serviceName, "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrusLogger.Info("Server exited gracefully")
	return nil
}
