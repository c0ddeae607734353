package router

import (
	"database/sql"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"presale/internal/api/v1/handler"
	"presale/internal/config"
	"presale/internal/mailer"
	"presale/internal/middleware"
	"presale/internal/ratelimit"
	"presale/internal/repository"
	"presale/internal/service"
)

// New wires the full HTTP surface: the public stats gateway under /public/,
// the cron-gated queue routes, and the Prometheus endpoint.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection")
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	// Repositories & services
	queueRepo := repository.NewEmailQueueRepo(db)
	templateRepo := repository.NewTemplateRepo(db)
	statsRepo := repository.NewStatsRepo(db)

	statsSvc := service.NewStatsService(statsRepo)
	dispatchSvc := service.NewDispatchService(
		queueRepo,
		templateRepo,
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

	limiter := newRequestLimiter(cfg, logger)

	publicHandler := handler.NewPublicHandler(statsSvc, limiter, cfg.AllowedOrigins, logger)
	queueHandler := handler.NewQueueHandler(dispatchSvc, logger)

	cronAuth := middleware.CronAuth(cfg.CronSecret)

	mux := http.NewServeMux()
	mux.Handle("/public/", publicHandler)
	mux.Handle("/jobs/email-queue", cronAuth(http.HandlerFunc(queueHandler.Run)))
	mux.Handle("/internal/email-queue", cronAuth(http.HandlerFunc(queueHandler.Enqueue)))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})

	// The public gateway manages its own origin policy; CORS here covers
	// the cron and internal routes called from admin tooling.
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return middleware.LoggerMiddleware(logger, c.Handler(mux)), db, nil
}

func newMailer(cfg *config.Config, logger zerolog.Logger) mailer.Mailer {
	if cfg.EmailProvider == "smtp" {
		return mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	return mailer.NewHTTPMailer(cfg.EmailProviderURL, cfg.EmailAPIKey, logger)
}

func newRequestLimiter(cfg *config.Config, logger zerolog.Logger) ratelimit.Limiter {
	window := time.Duration(cfg.RateLimitWindowMs) * time.Millisecond
	if cfg.RateLimitStore == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis rate limit store")
		return ratelimit.NewRedis(client, cfg.RateLimitMax, window)
	}
	return ratelimit.NewMemory(cfg.RateLimitMax, window)
}
