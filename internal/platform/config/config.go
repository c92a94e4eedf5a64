// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, TokenService) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/apisegura/internal/platform/middleware"
	"github.com/taibuivan/apisegura/internal/platform/postgres"
	"github.com/taibuivan/apisegura/internal/platform/sec"
	"github.com/taibuivan/apisegura/internal/platform/validate"
)

// Throttle backends.
const (
	ThrottleBackendPostgres = "postgres"
	ThrottleBackendRedis    = "redis"
)

// # Configuration Schema

// Config holds all runtime configuration for the auth API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL        string        `env:"DATABASE_URL,required"`
	DBMaxConns         int32         `env:"DB_MAX_CONNS"         envDefault:"25"`
	DBMinConns         int32         `env:"DB_MIN_CONNS"         envDefault:"5"`
	DBStatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"15s"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./migrations"`

	// Key-Value Store (Redis). Optional unless the redis throttle backend is selected.
	RedisURL string `env:"REDIS_URL"`

	// Token signing
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET,required"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,required"`
	JWTIssuer        string        `env:"JWT_ISSUER"        envDefault:"api-segura"`
	JWTAudience      string        `env:"JWT_AUDIENCE"      envDefault:"api-segura-users"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// TokenCleanupInterval is how often expired refresh tokens are purged.
	TokenCleanupInterval time.Duration `env:"TOKEN_CLEANUP_INTERVAL" envDefault:"1h"`

	// Password hashing
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	// Login throttle
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW"       envDefault:"15m"`
	ThrottleBackend  string        `env:"THROTTLE_BACKEND"   envDefault:"postgres"`

	// Password policy
	PasswordMinLength      int  `env:"PASSWORD_MIN_LENGTH"       envDefault:"8"`
	PasswordRequireLower   bool `env:"PASSWORD_REQUIRE_LOWER"    envDefault:"true"`
	PasswordRequireUpper   bool `env:"PASSWORD_REQUIRE_UPPER"    envDefault:"true"`
	PasswordRequireDigit   bool `env:"PASSWORD_REQUIRE_DIGIT"    envDefault:"true"`
	PasswordRequireSpecial bool `env:"PASSWORD_REQUIRE_SPECIAL"  envDefault:"true"`

	// Per-IP request rate limit
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"100"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"150"`

	// TrustedProxies lists CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For / X-Real-IP headers are believed. Empty trusts none.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.BcryptCost < sec.MinBcryptCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be at least %d", sec.MinBcryptCost))
	}
	if c.LoginMaxAttempts < 1 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must be at least 1"))
	}
	if c.LoginWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_WINDOW must be positive"))
	}

	switch c.ThrottleBackend {
	case ThrottleBackendPostgres:
	case ThrottleBackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis throttle backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown THROTTLE_BACKEND %q", c.ThrottleBackend))
	}

	if _, err := middleware.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}

	if c.PasswordMinLength < 1 {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH must be at least 1"))
	}

	return errors.Join(errs...)
}

// # Derived Settings

// TokenConfig returns the signing settings for [sec.NewTokenService].
func (c *Config) TokenConfig() sec.TokenConfig {
	return sec.TokenConfig{
		AccessSecret:  c.JWTAccessSecret,
		RefreshSecret: c.JWTRefreshSecret,
		Issuer:        c.JWTIssuer,
		Audience:      c.JWTAudience,
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
	}
}

// PoolSettings returns the connection pool tuning for [postgres.NewPool].
func (c *Config) PoolSettings() postgres.Settings {
	return postgres.Settings{
		MaxConns:         c.DBMaxConns,
		MinConns:         c.DBMinConns,
		StatementTimeout: c.DBStatementTimeout,
	}
}

// PasswordPolicy returns the password strength rules applied on register and
// password change.
func (c *Config) PasswordPolicy() validate.PasswordPolicy {
	return validate.PasswordPolicy{
		MinLength:      c.PasswordMinLength,
		RequireLower:   c.PasswordRequireLower,
		RequireUpper:   c.PasswordRequireUpper,
		RequireDigit:   c.PasswordRequireDigit,
		RequireSpecial: c.PasswordRequireSpecial,
	}
}

// ProxyNetworks returns the parsed TRUSTED_PROXIES. Entries are checked by
// [Config.Validate]; a config that skipped validation trusts no proxy on error.
func (c *Config) ProxyNetworks() middleware.TrustedProxies {
	proxies, err := middleware.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		return nil
	}
	return proxies
}

// UsesRedis reports whether a Redis connection must be opened.
func (c *Config) UsesRedis() bool {
	return c.RedisURL != ""
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// AllowedOrigins lists the origins CORS accepts outside development.
func (c *Config) AllowedOrigins() []string {
	return c.ExtraOrigins
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
