// Package config holds the process configuration, parsed from PACWATCH_*
// environment variables. Components never read the environment themselves:
// they take these structs (or values from them) through constructors, and
// the CLI layer applies flag overrides on top.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Config is the full process configuration.
type Config struct {
	Feed     Feed
	Ledger   Ledger
	Notifier Notifier
	Run      Run
	Watch    Watch
	Metrics  Metrics
	Tracing  Tracing

	Verbose bool `env:"PACWATCH_VERBOSE" envDefault:"false"`
}

// Feed locates the disclosure feed and bounds the fetch retry loop.
type Feed struct {
	Endpoint string        `env:"PACWATCH_FEED_ENDPOINT" envDefault:"https://www.opensecrets.org/api/"`
	APIKey   string        `env:"PACWATCH_FEED_API_KEY"`
	Attempts int           `env:"PACWATCH_FEED_ATTEMPTS" envDefault:"10"`
	Delay    time.Duration `env:"PACWATCH_FEED_DELAY" envDefault:"1s"`
}

// Ledger selects and locates the record store. Bucket and Key name the
// ledger object for the object backends; Dir roots the file backend.
type Ledger struct {
	Backend string `env:"PACWATCH_LEDGER_BACKEND" envDefault:"file"`
	Bucket  string `env:"PACWATCH_LEDGER_BUCKET" envDefault:"pac-watch-records"`
	Key     string `env:"PACWATCH_LEDGER_KEY" envDefault:"records.csv"`
	Dir     string `env:"PACWATCH_LEDGER_DIR" envDefault:"data"`

	S3       S3
	Redis    Redis
	Postgres Postgres
}

// S3 configures the S3-compatible object backend.
type S3 struct {
	Endpoint  string `env:"PACWATCH_S3_ENDPOINT" envDefault:"s3.amazonaws.com"`
	AccessKey string `env:"PACWATCH_S3_ACCESS_KEY"`
	SecretKey string `env:"PACWATCH_S3_SECRET_KEY"`
	Region    string `env:"PACWATCH_S3_REGION"`
	UseSSL    bool   `env:"PACWATCH_S3_SSL" envDefault:"true"`
}

// Redis configures the Redis object backend.
type Redis struct {
	URL string `env:"PACWATCH_REDIS_URL"`
}

// Postgres configures the table-backed ledger.
type Postgres struct {
	DSN string `env:"PACWATCH_POSTGRES_DSN"`
}

// Notifier selects the announcement channel and bounds its retry policy.
type Notifier struct {
	Backend string        `env:"PACWATCH_NOTIFIER_BACKEND" envDefault:"statuses"`
	Retries int           `env:"PACWATCH_NOTIFIER_RETRIES" envDefault:"1"`
	Delay   time.Duration `env:"PACWATCH_NOTIFIER_DELAY" envDefault:"1s"`

	Statuses Statuses
	Kafka    Kafka
}

// Statuses configures the HTTP status-posting backend.
type Statuses struct {
	Endpoint string `env:"PACWATCH_STATUSES_ENDPOINT" envDefault:"https://api.twitter.com/2/tweets"`
	Token    string `env:"PACWATCH_STATUSES_TOKEN"`
}

// Kafka configures the topic-publishing backend.
type Kafka struct {
	Brokers []string `env:"PACWATCH_KAFKA_BROKERS"`
	Topic   string   `env:"PACWATCH_KAFKA_TOPIC" envDefault:"pacwatch.announcements"`
}

// Run carries the per-run behavior knobs.
type Run struct {
	MinReportAmount decimal.Decimal `env:"PACWATCH_MIN_REPORT_AMOUNT" envDefault:"0"`
	WindowDays      int             `env:"PACWATCH_WINDOW_DAYS" envDefault:"30"`
	InterDispatch   time.Duration   `env:"PACWATCH_INTER_DISPATCH" envDefault:"5s"`
	CharLimit       int             `env:"PACWATCH_CHAR_LIMIT" envDefault:"280"`
	Send            bool            `env:"PACWATCH_SEND" envDefault:"true"`
	Record          bool            `env:"PACWATCH_RECORD" envDefault:"true"`
	Cumulative      bool            `env:"PACWATCH_CUMULATIVE" envDefault:"true"`
}

// Watch configures the self-scheduling daemon mode.
type Watch struct {
	Interval     time.Duration `env:"PACWATCH_WATCH_INTERVAL" envDefault:"15m"`
	AdminAddr    string        `env:"PACWATCH_ADMIN_ADDR" envDefault:":8080"`
	HistoryLimit int           `env:"PACWATCH_HISTORY_LIMIT" envDefault:"50"`
}

// Metrics configures the optional Pushgateway push after one-shot runs.
// Watch mode serves metrics over the admin endpoint instead.
type Metrics struct {
	PushURL string `env:"PACWATCH_METRICS_PUSH_URL"`
	Job     string `env:"PACWATCH_METRICS_JOB" envDefault:"pacwatch"`
}

// Tracing configures the opt-in OTLP trace exporter.
type Tracing struct {
	Endpoint string `env:"PACWATCH_OTEL_ENDPOINT"`
	Enabled  bool   `env:"PACWATCH_OTEL_ENABLED" envDefault:"true"`
}

// FromEnv parses the configuration from environment variables, applying
// defaults for everything not set.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
