package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/receptionly/platform/internal/api/router"
	"github.com/receptionly/platform/internal/app/bootstrap"
	"github.com/receptionly/platform/internal/appointments"
	"github.com/receptionly/platform/internal/business"
	appconfig "github.com/receptionly/platform/internal/config"
	"github.com/receptionly/platform/internal/customers"
	"github.com/receptionly/platform/internal/messages"
	"github.com/receptionly/platform/internal/observability/metrics"
	"github.com/receptionly/platform/internal/onboarding"
	syncapi "github.com/receptionly/platform/internal/sync"
	"github.com/receptionly/platform/internal/tenancy"
	"github.com/receptionly/platform/internal/voice"
	"github.com/receptionly/platform/internal/webhook"
	"github.com/receptionly/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting receptionly API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// The message store uses database/sql; everything else shares the pool.
	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	bizRepo := business.NewRepository(pool)
	custRepo := customers.NewPostgresRepository(pool)
	apptRepo := appointments.NewPostgresRepository(pool)
	msgStore := messages.NewStore(sqlDB)
	syncedStore := messages.NewSyncedCallStore(pool)
	directory := bootstrap.BuildDirectoryLoader(bizRepo, redisClient, cfg, logger)
	resolver := tenancy.NewResolver(directory, cfg.DefaultBusinessID)

	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	voiceClient := voice.NewClient(cfg.VoiceAPIURL, cfg.VoiceAPIKey, cfg.VoiceOrgID, cfg.VoiceClientTimeout, logger)

	syncService := syncapi.NewService(syncapi.ServiceConfig{
		Feed:       voiceClient,
		Customers:  custRepo,
		Messages:   msgStore,
		Dedup:      syncedStore,
		Directory:  directory,
		Metrics:    syncMetrics,
		Logger:     logger,
		FetchLimit: cfg.VoiceFetchLimit,
	})

	webhookHandler := webhook.NewHandler(webhook.Config{
		Resolver:     resolver,
		Businesses:   bizRepo,
		Customers:    custRepo,
		Messages:     msgStore,
		Appointments: apptRepo,
		Metrics:      syncMetrics,
		Logger:       logger,
	})

	onboardingService := onboarding.NewService(voiceClient, bizRepo, directory, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		WebhookHandler:     webhookHandler,
		SyncHandler:        syncapi.NewHandler(syncService, bizRepo, logger),
		CustomersHandler:   customers.NewHandler(custRepo, logger),
		MessagesHandler:    messages.NewHandler(msgStore, logger),
		OnboardingHandler:  onboarding.NewHandler(onboardingService, logger),
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WebhookRateLimit:   cfg.WebhookRateLimit,
		WebhookBurst:       cfg.WebhookBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
