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

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/wolfman30/klinikai/internal/api/router"
	"github.com/wolfman30/klinikai/internal/app/bootstrap"
	"github.com/wolfman30/klinikai/internal/appointments"
	"github.com/wolfman30/klinikai/internal/assistant"
	"github.com/wolfman30/klinikai/internal/clinics"
	appconfig "github.com/wolfman30/klinikai/internal/config"
	httpmiddleware "github.com/wolfman30/klinikai/internal/http/middleware"
	"github.com/wolfman30/klinikai/internal/notify"
	"github.com/wolfman30/klinikai/internal/triage"
	"github.com/wolfman30/klinikai/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting klinikai API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	// The dashboard queries run through database/sql on the same pool.
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	metricsHandler, bookingMetrics, assistantMetrics := setupMetrics()
	catalog := triage.DefaultCatalog()
	loc := cfg.Location()

	// Clinics
	clinicOpts := []clinics.Option{
		clinics.WithCatalog(catalog),
		clinics.WithMetrics(bookingMetrics),
		clinics.WithMaxResults(cfg.RecommendationMax),
	}
	if redisClient != nil {
		clinicOpts = append(clinicOpts, clinics.WithCache(clinics.NewRedisCache(redisClient, cfg.RecommendationCacheTTL)))
	}
	clinicsService := clinics.NewService(clinics.NewPostgresRepository(pool), logger, clinicOpts...)

	// Appointments
	notifier := notify.NewService(bootstrap.BuildEmailSender(cfg, awsCfg, logger), clinicsService, logger).WithLocation(loc)
	appointmentsService := appointments.NewService(
		appointments.NewPostgresRepository(pool),
		clinicsService,
		logger,
		appointments.WithDashboard(appointments.NewSQLDashboardRepository(sqlDB)),
		appointments.WithPublisher(bootstrap.BuildPublisher(cfg, awsCfg, logger)),
		appointments.WithNotifier(notifier),
		appointments.WithMetrics(bookingMetrics),
		appointments.WithSchedule(loc, cfg.AppointmentHour),
		appointments.WithDefaultPatient(cfg.DefaultPatientID),
	)

	// Assistant
	llm, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to configure LLM", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	agent := assistant.NewAgent(
		llm,
		assistant.NewToolbox(clinicsService, appointmentsService, loc, logger),
		logger,
		assistant.WithCatalog(catalog),
		assistant.WithMaxSteps(cfg.AgentMaxSteps),
		assistant.WithMetrics(assistantMetrics),
	)

	chatOpts := []assistant.HandlerOption{assistant.WithTimeout(cfg.ChatTimeout)}
	wsOpts := []assistant.WSOption{
		assistant.WithWSTimeout(cfg.ChatTimeout),
		assistant.WithAllowedOrigins(cfg.CORSAllowedOrigins),
	}
	if transcripts := bootstrap.BuildArchive(cfg, awsCfg, logger); transcripts != nil {
		chatOpts = append(chatOpts, assistant.WithArchive(transcripts))
		wsOpts = append(wsOpts, assistant.WithWSArchive(transcripts))
		logger.Info("transcript archive enabled", "bucket", cfg.ArchiveBucket)
	}

	var chatWS *assistant.WSHandler
	if redisClient != nil {
		chatWS = assistant.NewWSHandler(agent, assistant.NewHistoryStore(redisClient, cfg.ChatHistoryTTL), logger, wsOpts...)
	} else {
		logger.Warn("redis unavailable; websocket chat disabled and recommendations uncached")
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; dashboard requests will be rejected")
	}

	r := router.New(&router.Config{
		Logger:              logger,
		ClinicsHandler:      clinics.NewHandler(clinicsService, logger),
		AppointmentsHandler: appointments.NewHandler(appointmentsService, logger),
		ChatHandler:         assistant.NewHandler(agent, logger, chatOpts...),
		ChatWSHandler:       chatWS,
		Health:              router.NewHealthHandler(healthChecks(pool, redisClient)),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         limiter,
		DashboardJWTSecret:  cfg.AuthJWTSecret,
	})

	srv := newServer(cfg, r)

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
