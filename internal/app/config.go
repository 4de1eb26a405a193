package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"file"`
	StorePath   string `envconfig:"STORE_PATH" default:"./data"`
	StorePrefix string `envconfig:"STORE_PREFIX" default:"qarzbook"`
	LedgerKey   string `envconfig:"LEDGER_KEY" default:"ledger:state"`

	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"4"`
	RedisAddr  string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	ScoringPath   string `envconfig:"SCORING_CONFIG"`
	DefaultLocale string `envconfig:"DEFAULT_LOCALE" default:"ckb"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	ExportsPerMinute   int `envconfig:"EXPORTS_PER_MINUTE" default:"10"`

	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the store settings for consistency.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverMemory:
	case DriverFile:
		if c.StorePath == "" {
			return errors.New("store path must be provided for the file driver")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("redis address must be provided for the redis driver")
		}
	case DriverPostgres:
		if c.PGDSN == "" {
			return errors.New("postgres dsn must be provided for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("rate limit must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
