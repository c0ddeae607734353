package config

import (
	"strconv"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	DBHost      string `envconfig:"DB_HOST" required:"true"`
	DBPort      int    `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" required:"true"`
	DBPassword  string `envconfig:"DB_PASSWORD" required:"true"`
	DBName      string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`

	// Base application URL, embedded into rendered emails as {{app_url}}.
	AppBaseURL string `envconfig:"APP_BASE_URL" default:"https://presale.example.com"`

	// Email queue worker settings
	QueueBatchSize       int    `envconfig:"QUEUE_BATCH_SIZE" default:"10"`
	QueueMaxAttempts     int    `envconfig:"QUEUE_MAX_ATTEMPTS" default:"3"`
	QueuePollIntervalSec int    `envconfig:"QUEUE_POLL_INTERVAL_SEC" default:"60"`
	QueueSendTimeoutSec  int    `envconfig:"QUEUE_SEND_TIMEOUT_SEC" default:"15"`
	QueueSendPerSec      int    `envconfig:"QUEUE_SEND_PER_SEC" default:"10"`
	CronSecret           string `envconfig:"CRON_SECRET" default:""`

	// Email provider settings. EmailProvider selects "http" (JSON API) or
	// "smtp" (local/dev relay).
	EmailProvider    string `envconfig:"EMAIL_PROVIDER" default:"http"`
	EmailProviderURL string `envconfig:"EMAIL_PROVIDER_URL" default:"https://api.resend.com/emails"`
	EmailAPIKey      string `envconfig:"EMAIL_API_KEY" default:""`
	EmailFrom        string `envconfig:"EMAIL_FROM" default:"noreply@presale.example.com"`
	EmailFromName    string `envconfig:"EMAIL_FROM_NAME" default:"Presale"`
	SMTPHost         string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort         int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser         string `envconfig:"SMTP_USER" default:""`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD" default:""`

	// Public API gateway settings
	AllowedOrigins    []string `envconfig:"ALLOWED_ORIGINS" default:""`
	RateLimitMax      int      `envconfig:"RATE_LIMIT_MAX" default:"60"`
	RateLimitWindowMs int      `envconfig:"RATE_LIMIT_WINDOW_MS" default:"60000"`
	RateLimitStore    string   `envconfig:"RATE_LIMIT_STORE" default:"memory"`
	RedisAddr         string   `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword     string   `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB           int      `envconfig:"REDIS_DB" default:"0"`

	// When set, secret-valued fields are resolved from Google Secret
	// Manager at startup (see internal/secrets).
	GCPProjectID string `envconfig:"GCP_PROJECT_ID" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" port=" + strconv.Itoa(c.DBPort) +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSSLMode
}
