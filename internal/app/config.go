package app

import (
	"net/http"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/checkout-api/internal/catalog"
	"github.com/xenking/checkout-api/internal/gateway"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr            string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL     string `default:"sqlite:checkout.db" usage:"postgres:// URL or sqlite:<path> (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	InvariantStatus int    `default:"500" usage:"Status for responses caused by broken stored state" flag:"invariant-status"`
	Gateway         GatewayConfig
	Catalog         CatalogConfig
	Redis           RedisConfig
	RateLimit       RateLimitConfig
	CORS            CORSConfig
	Graceful        GracefulConfig
}

// GatewayConfig points at the payment processor.
type GatewayConfig struct {
	URL        string        `usage:"Payment processor URL"`
	Timeout    time.Duration `default:"10s" usage:"Payment processor call timeout"`
	CardPolicy string        `default:"sandbox" usage:"Card acceptance policy: sandbox or any" flag:"card-policy"`
}

// CatalogConfig controls seeding the product catalog at startup.
type CatalogConfig struct {
	FeedURL     string `usage:"Product feed URL, file path or \"bundled\"" flag:"feed-url"`
	SeedOnStart bool   `default:"true" usage:"Seed an empty catalog on startup" flag:"seed-on-start"`
}

// RedisConfig enables the cross-process order lock. An empty Addr keeps
// locking in-process.
type RedisConfig struct {
	Addr     string        `usage:"Redis address (host:port)"`
	Password string        `usage:"Redis password"`
	DB       int           `default:"0" usage:"Redis database"`
	LockTTL  time.Duration `default:"30s" usage:"Order lock expiry, must exceed the gateway timeout" flag:"lock-ttl" env:"LOCK_TTL"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64 `default:"10" usage:"Sustained requests per second per client"`
	Burst int     `default:"20" usage:"Burst size per client"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		Args:      args,
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps DATABASE_URL and PORT, as set by hosting
// platforms, onto the CHECKOUT_ settings when those were left alone.
func (c *Config) applyPlatformDefaults() {
	if v := os.Getenv("DATABASE_URL"); v != "" && os.Getenv("CHECKOUT_DATABASE_URL") == "" {
		c.DatabaseURL = v
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if c.Gateway.URL == "" {
		c.Gateway.URL = gateway.DefaultURL
	}
	if c.Catalog.FeedURL == "" {
		c.Catalog.FeedURL = catalog.DefaultFeedURL
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	}
	if c.InvariantStatus < 400 || c.InvariantStatus > 599 || http.StatusText(c.InvariantStatus) == "" {
		return errors.Errorf("invariant status %d is not an error status", c.InvariantStatus)
	}
	if c.RateLimit.RPS <= 0 {
		return errors.Errorf("rate limit rps must be positive, got %v", c.RateLimit.RPS)
	}
	// A lock that expires mid-charge lets a second payment through.
	if c.Redis.Addr != "" && c.Redis.LockTTL <= c.Gateway.Timeout {
		return errors.Errorf("redis lock ttl %s must exceed gateway timeout %s", c.Redis.LockTTL, c.Gateway.Timeout)
	}
	return nil
}
