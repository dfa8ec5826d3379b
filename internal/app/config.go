package app

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	// AppRateLimit is the per-IP request budget per minute.
	AppRateLimit int `envconfig:"APP_RATE_LIMIT" default:"300"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// PGDSN is optional; without it submissions are not journaled.
	PGDSN string `envconfig:"PG_DSN" default:""`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	BackendURL          string        `envconfig:"BACKEND_URL" default:"http://127.0.0.1:4000/api"`
	BackendTimeout      time.Duration `envconfig:"BACKEND_TIMEOUT" default:"20s"`
	BackendServiceToken string        `envconfig:"BACKEND_SERVICE_TOKEN" default:""`

	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`

	WizardTTL            time.Duration   `envconfig:"WIZARD_TTL" default:"8h"`
	DashboardCacheTTL    time.Duration   `envconfig:"DASHBOARD_CACHE_TTL" default:"1m"`
	ReconToleranceLiters decimal.Decimal `envconfig:"RECON_TOLERANCE_LITERS" default:"5"`

	StaleOffloadAfter time.Duration `envconfig:"STALE_OFFLOAD_AFTER" default:"6h"`
	StaleShiftAfter   time.Duration `envconfig:"STALE_SHIFT_AFTER" default:"18h"`
	JournalRetention  time.Duration `envconfig:"JOURNAL_RETENTION" default:"720h"`

	DefaultPhoneRegion string `envconfig:"DEFAULT_PHONE_REGION" default:"KE"`

	// WorkerMetricsAddr serves /metrics from the worker process. Empty disables it.
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables. A .env file in
// the working directory, when present, is loaded first without overriding
// variables already set.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.BackendURL == "" {
		return nil, errors.New("backend url must be provided")
	}
	if cfg.ReconToleranceLiters.IsNegative() {
		return nil, errors.New("reconciliation tolerance must not be negative")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
