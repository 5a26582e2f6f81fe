package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Source     Source
	Rates      Rates
	HTTPServer HTTPServer
	Storage    Storage
	Cron       Cron
	Alerting   Alerting
}

type Source struct {
	URL         string        `env:"CNBRATES_SOURCE_URL" env-default:""`
	Timeout     time.Duration `env:"CNBRATES_SOURCE_TIMEOUT" env-default:"30s"`
	InsecureTLS bool          `env:"CNBRATES_SOURCE_INSECURE_TLS" env-default:"false"`
}

type Rates struct {
	TimeZone     string `env:"CNBRATES_TIMEZONE" env-default:"Europe/Prague"`
	CutoffHour   int    `env:"CNBRATES_CUTOFF_HOUR" env-default:"14"`
	CutoffMinute int    `env:"CNBRATES_CUTOFF_MINUTE" env-default:"30"`
	LookbackDays int    `env:"CNBRATES_LOOKBACK_DAYS" env-default:"500"`
	ValidMaxDays int    `env:"CNBRATES_VALID_MAX_DAYS" env-default:"60"`
}

type HTTPServer struct {
	Port        string        `env:"CNBRATES_HTTP_PORT" env-default:"8000"`
	Timeout     time.Duration `env:"CNBRATES_HTTP_TIMEOUT" env-default:"30s"`
	IdleTimeout time.Duration `env:"CNBRATES_HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type Storage struct {
	Driver      string `env:"CNBRATES_DB_DRIVER" env-default:"sqlite"`
	DSN         string `env:"CNBRATES_DB_DSN" env-default:"cnbrates.db"`
	AutoMigrate bool   `env:"CNBRATES_AUTO_MIGRATE" env-default:"false"`
}

type Cron struct {
	Enabled bool `env:"CNBRATES_CRON_ENABLED" env-default:"true"`
	// Schedule is a cron expression or plain integer seconds. The default
	// fires just after the CNB publishes, on business days.
	Schedule string `env:"CNBRATES_CRON_SCHEDULE" env-default:"35 14 * * 1-5"`
}

type Alerting struct {
	WebhookURL     string `env:"CNBRATES_ALERT_WEBHOOK_URL" env-default:""`
	WebhookType    string `env:"CNBRATES_ALERT_WEBHOOK_TYPE" env-default:""`
	SendgridAPIKey string `env:"CNBRATES_ALERT_SENDGRID_API_KEY" env-default:""`
	EmailFrom      string `env:"CNBRATES_ALERT_EMAIL_FROM" env-default:""`
	EmailTo        string `env:"CNBRATES_ALERT_EMAIL_TO" env-default:""`
	MinFailures    int    `env:"CNBRATES_ALERT_MIN_FAILURES" env-default:"3"`
}

// New loads configuration from the environment, with .env as a convenience
// for local runs.
func New() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
