package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Slot backends.
const (
	SlotsPostgres = "postgres"
	SlotsRedis    = "redis"
	SlotsFile     = "file"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Public object storage URL for product images" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (STORE_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Slots        SlotsConfig
	Session      SessionConfig
	Refresh      time.Duration `default:"1m" usage:"Catalog and homepage content refresh interval"`
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// SlotsConfig selects where carts and wishlists are persisted.
type SlotsConfig struct {
	Backend  string        `default:"postgres" usage:"Slot backend: postgres, redis or file"`
	RedisURL string        `usage:"Redis address or URL (STORE_SLOTS_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	TTL      time.Duration `default:"720h" usage:"Redis slot expiry, zero keeps slots forever"`
	Dir      string        `default:"data/slots" usage:"Directory of the file slot backend"`
}

// SessionConfig controls shopper sessions.
type SessionConfig struct {
	Idle         time.Duration `default:"30m" usage:"Evict in-memory stores idle for this long"`
	EvictEvery   time.Duration `default:"1m" usage:"Idle session eviction interval"`
	CookieMaxAge time.Duration `default:"720h" usage:"Session cookie lifetime"`
	CookieSecure bool          `default:"false" usage:"Mark the session cookie Secure"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
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
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	switch c.Slots.Backend {
	case SlotsPostgres, SlotsFile:
	case SlotsRedis:
		if c.Slots.RedisURL == "" {
			return errors.New("redis slot backend requires STORE_SLOTS_REDISURL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown slot backend %q", c.Slots.Backend)
	}
	if c.Refresh <= 0 {
		return errors.New("refresh interval must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL, REDIS_URL and PORT
// to the application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Slots.RedisURL == "" {
		c.Slots.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
