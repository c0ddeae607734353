package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"presale/internal/config"
	"presale/internal/logger"
	"presale/internal/mailer"
	"presale/internal/metrics"
	"presale/internal/repository"
	"presale/internal/secrets"
	"presale/internal/service"
)

// The worker drains the email queue on a fixed cadence. It is the
// long-running alternative to the HTTP trigger exposed by cmd/app; both
// call the same dispatch service, so running either (or both) is safe.
func main() {
	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	if err := secrets.Apply(context.Background(), cfg); err != nil {
		logger.Fatal().Msgf("Error resolving secrets: %v", err)
	}

	metrics.Init()

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	dispatchSvc := service.NewDispatchService(
		repository.NewEmailQueueRepo(db),
		repository.NewTemplateRepo(db),
		newMailer(cfg, logger),
		rate.NewLimiter(rate.Limit(cfg.QueueSendPerSec), cfg.QueueSendPerSec),
		service.DispatchConfig{
			BatchSize:   cfg.QueueBatchSize,
			MaxAttempts: cfg.QueueMaxAttempts,
			SendTimeout: time.Duration(cfg.QueueSendTimeoutSec) * time.Second,
			From:        cfg.EmailFrom,
			FromName:    cfg.EmailFromName,
			AppBaseURL:  cfg.AppBaseURL,
		},
		logger,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Expose Prometheus metrics on a side port.
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info().Msgf("Metrics listening on port %s", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	interval := time.Duration(cfg.QueuePollIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("Email queue worker started")
	runOnce(ctx, dispatchSvc, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutdown signal received, exiting...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Metrics server forced to shut down")
			}
			logger.Info().Msg("Worker stopped gracefully")
			return
		case <-ticker.C:
			runOnce(ctx, dispatchSvc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc service.DispatchService, logger zerolog.Logger) {
	res, err := svc.RunOnce(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Queue run failed")
		return
	}
	if res.Claimed > 0 {
		logger.Info().
			Int("claimed", res.Claimed).
			Int("sent", res.Sent).
			Int("failed", res.Failed).
			Msg("Queue run finished")
	}
}

func newMailer(cfg *config.Config, logger zerolog.Logger) mailer.Mailer {
	if cfg.EmailProvider == "smtp" {
		return mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	return mailer.NewHTTPMailer(cfg.EmailProviderURL, cfg.EmailAPIKey, logger)
}
