package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	Title     string `default:"Storefront" usage:"Page title"`
	Catalog   CatalogConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Graceful  GracefulConfig
}

// CatalogConfig points the storefront at the remote product catalog.
type CatalogConfig struct {
	SearchURL          string        `default:"https://api.mercadolibre.com/sites/MLB/search" usage:"Catalog search endpoint" flag:"catalog-search-url"`
	ItemsURL           string        `default:"https://api.mercadolibre.com/items" usage:"Catalog item detail base URL" flag:"catalog-items-url"`
	Query              string        `default:"computador" usage:"Search term listed on the page"`
	Timeout            time.Duration `default:"10s" usage:"Per-request catalog timeout"`
	RestoreConcurrency int           `default:"4" usage:"Parallel detail fetches when restoring the cart"`
}

// StoreConfig selects where cart identifiers are persisted.
type StoreConfig struct {
	Driver      string `default:"file" usage:"Cart store driver: file, memory or postgres"`
	Dir         string `default:"data" usage:"Directory of the file store"`
	Key         string `default:"cartItems" usage:"Name of the persisted cart slot"`
	DatabaseURL string `usage:"PostgreSQL connection URL (STOREFRONT_STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

// RateLimitConfig throttles the cart and reload triggers per client.
type RateLimitConfig struct {
	Max    int           `default:"60" usage:"Max trigger requests per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Store.DatabaseURL == "" {
		c.Store.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.Catalog.SearchURL == "" || c.Catalog.ItemsURL == "" {
		return errors.New("catalog search and items URLs are required")
	}
	if c.Store.Key == "" {
		return errors.New("store key is required")
	}
	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Dir == "" {
			return errors.New("file store requires a directory")
		}
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("postgres store requires a database URL: set STOREFRONT_STORE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown store driver %q, want one of %v",
			c.Store.Driver, []string{DriverFile, DriverMemory, DriverPostgres})
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}
