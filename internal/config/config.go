// Package config loads the server configuration from the environment.
//
// Values come from real environment variables, optionally seeded from a
// .env file (see Load). The store connection string, the token-signing
// secret and the allowed client origin are mandatory: if any is missing the
// process refuses to start instead of failing individual requests later.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinJWTSecretLength is the shortest accepted token-signing secret.
// HS256 wants at least 256 bits of key material.
const MinJWTSecretLength = 32

// knownWeakSecrets are placeholder values from docs and .env.example files.
var knownWeakSecrets = []string{
	"change-me-to-a-long-random-secret",
	"your-jwt-secret-key-goes-here-please",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Store
	DatabaseURL        string        `env:"DATABASE_URL,required"`
	DBConnectTimeout   time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`
	DBOperationTimeout time.Duration `env:"DB_OPERATION_TIMEOUT" envDefault:"45s"`

	// Auth
	JWTSecret       string        `env:"JWT_SECRET,required"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"false"`
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`

	// Blacklist
	BlacklistTTL   time.Duration `env:"BLACKLIST_TTL" envDefault:"24h"`
	BlacklistSweep string        `env:"BLACKLIST_SWEEP" envDefault:"@every 15m"`
	RedisURL       string        `env:"REDIS_URL"` // Optional: keep the blacklist in Redis with native key TTL

	// HTTP
	ClientOrigin string `env:"CLIENT_ORIGIN,required"`

	// Content
	WordsPerMinute int    `env:"WORDS_PER_MINUTE" envDefault:"200"`
	UploadDir      string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	MaxUploadSize  int64  `env:"MAX_UPLOAD_SIZE" envDefault:"52428800"` // 50 MiB
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the listen address.
func (c Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// UseRedisBlacklist reports whether revoked tokens live in Redis.
func (c Config) UseRedisBlacklist() bool {
	return c.RedisURL != ""
}

// AllowedOrigins splits CLIENT_ORIGIN on commas so a dashboard and a public
// site on different hosts can both be allowed.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.ClientOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// SlogLevel maps LOG_LEVEL onto slog levels. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads an optional .env file and then parses the environment.
// Real environment variables win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// A missing .env is normal in containers.
		_ = godotenv.Load(f)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL must not be empty")
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate one with: openssl rand -hex 32", MinJWTSecretLength, len(c.JWTSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.JWTSecret == weak {
			return errors.New("JWT_SECRET is a known placeholder value and must not be used")
		}
	}
	if len(c.AllowedOrigins()) == 0 {
		return errors.New("CLIENT_ORIGIN must name at least one origin")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.TokenTTL <= 0 || c.BlacklistTTL <= 0 {
		return errors.New("TOKEN_TTL and BLACKLIST_TTL must be positive")
	}
	// a revoked token must stay listed until it would have expired anyway
	if c.BlacklistTTL < c.TokenTTL {
		return fmt.Errorf("BLACKLIST_TTL (%s) must not be shorter than TOKEN_TTL (%s)", c.BlacklistTTL, c.TokenTTL)
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}
