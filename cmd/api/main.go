package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medcompanion-ai/cmd/mainconfig"
	"github.com/wolfman30/medcompanion-ai/internal/api/router"
	"github.com/wolfman30/medcompanion-ai/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medcompanion-ai/internal/config"
	"github.com/wolfman30/medcompanion-ai/internal/conversation"
	"github.com/wolfman30/medcompanion-ai/internal/extraction"
	"github.com/wolfman30/medcompanion-ai/internal/observability/metrics"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting medcompanion API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	metricsHandler, qualityMetrics := setupMetrics()
	handler, cleanup, err := buildHandler(ctx, cfg, awsCfg, logger, metricsHandler, qualityMetrics)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Replies make up to three sequential model calls.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *metrics.QualityMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewQualityMetrics(reg)
}

// buildHandler wires every backend named by cfg and returns the HTTP handler
// plus a cleanup func for the pooled connections.
func buildHandler(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger, metricsHandler http.Handler, qualityMetrics *metrics.QualityMetrics) (http.Handler, func(), error) {
	gens, err := bootstrap.BuildGenerators(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, nil, err
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	auditDB := bootstrap.OpenAuditDB(ctx, cfg, logger)
	cleanup := func() { closeResources(gens, redisClient, auditDB, logger) }

	services, err := bootstrap.BuildServices(cfg, gens, bootstrap.Resources{
		Redis:   redisClient,
		AuditDB: auditDB,
		Archive: bootstrap.BuildScanArchive(cfg, awsCfg, logger),
		Metrics: qualityMetrics,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(services.Replies, logger),
		ExtractionHandler:   extraction.NewHandler(services.Extraction, cfg.MaxUploadBytes, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})
	return handler, cleanup, nil
}

func closeResources(llmClients io.Closer, redisClient *redis.Client, db *sql.DB, logger *logging.Logger) {
	if llmClients != nil {
		if err := llmClients.Close(); err != nil {
			logger.Warn("failed to close llm clients", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close audit database", "error", err)
		}
	}
}
