package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverPebble   = "pebble"
	DriverMemory   = "memory"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (MYSHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Graceful  GracefulConfig
}

// StorageConfig selects and configures the repository backend.
type StorageConfig struct {
	Driver      string `default:"postgres" usage:"Storage backend: postgres, pebble or memory"`
	DatabaseURL string `usage:"PostgreSQL connection URL (MYSHOP_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	PebbleDir   string `default:"data/pebble" usage:"Pebble data directory" flag:"pebble-dir"`
	SeedDemo    bool   `default:"false" usage:"Load the demo catalog on startup" flag:"seed-demo"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Rate    float64       `default:"10"  usage:"Sustained requests per second per client"`
	Burst   int           `default:"20"  usage:"Maximum request burst per client"`
	IdleTTL time.Duration `default:"10m" usage:"Evict client buckets idle for this long"`
	// TrustProxy keys clients by X-Forwarded-For; enable behind a proxy only.
	TrustProxy bool `usage:"Key rate limit buckets by X-Forwarded-For/X-Real-IP" flag:"trust-proxy"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config

	base.EnvPrefix = "MYSHOP"
	if base.Files == nil {
		base.Files = []string{"config.yaml", "/etc/myshop/config.yaml"}
	}
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}

	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required for the postgres driver: set MYSHOP_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case DriverPebble:
		if c.Storage.PebbleDir == "" {
			return errors.New("pebble directory is required for the pebble driver")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.RateLimit.Rate <= 0 || c.RateLimit.Burst < 1 {
		return errors.New("rate limit rate and burst must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) such as DATABASE_URL and PORT onto the
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
