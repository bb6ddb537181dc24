package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/auth-service/pkg/config"
)

const (
	defaultAccessSecret  = "change-this-access-secret"
	defaultRefreshSecret = "change-this-refresh-secret"
)

// Config holds all configuration for the auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"AUTH_HTTP_PORT" envDefault:"8001"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"auth"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"auth_secret"`
	PostgresDB   string `env:"AUTH_DB_NAME" envDefault:"auth_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Refresh token store. "postgres" keeps tokens in the refresh_tokens
	// table; "redis" keeps them in Redis with a TTL.
	RefreshStore string `env:"REFRESH_STORE" envDefault:"postgres"`

	// Redis (only used when RefreshStore is "redis")
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT. Access and refresh tokens are signed with separate secrets so a
	// token of one kind can never pass verification as the other.
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET" envDefault:"change-this-access-secret"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:"change-this-refresh-secret"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// Bcrypt cost for password hashing. 0 means the library default.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"0"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// SecureCookies marks the refresh cookie as Secure (HTTPS only).
	SecureCookies bool `env:"SECURE_COOKIES" envDefault:"false"`

	// PprofAllowedCIDRs restricts /debug/pprof to the given networks.
	// Empty disables the pprof endpoints entirely.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.RefreshStore != "postgres" && cfg.RefreshStore != "redis" {
		return nil, fmt.Errorf("invalid REFRESH_STORE %q: must be postgres or redis", cfg.RefreshStore)
	}
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be distinct")
	}

	// In non-development environments, require explicitly set, strong secrets.
	if cfg.Environment != "development" {
		if cfg.JWTAccessSecret == defaultAccessSecret || cfg.JWTRefreshSecret == defaultRefreshSecret {
			return nil, fmt.Errorf("JWT secrets must be explicitly set via environment variables in %q mode", cfg.Environment)
		}
		if len(cfg.JWTAccessSecret) < 32 {
			return nil, fmt.Errorf("JWT_ACCESS_SECRET must be at least 32 characters long, got %d", len(cfg.JWTAccessSecret))
		}
		if len(cfg.JWTRefreshSecret) < 32 {
			return nil, fmt.Errorf("JWT_REFRESH_SECRET must be at least 32 characters long, got %d", len(cfg.JWTRefreshSecret))
		}
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
