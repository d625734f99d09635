// Package config loads and validates server config from env and an
// optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds server configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabasePath is the SQLite database file path; ":memory:" for tests.
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	// JWTSecret signs session tokens (HS256). Must be set.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// SessionTokenTTL is the session token lifetime (e.g. "24h").
	SessionTokenTTL string `mapstructure:"SESSION_TOKEN_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// RateLimit is the max number of requests per window per client IP.
	RateLimit int `mapstructure:"RATE_LIMIT"`
	// RateWindow is the rate limiting window (e.g. "1m").
	RateWindow string `mapstructure:"RATE_WINDOW"`
	// LogLevel is the minimum slog level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI); env vars
// override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_PATH", "voicememos.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TOKEN_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RATE_LIMIT", 60)
	v.SetDefault("RATE_WINDOW", "1m")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// TokenTTL parses SessionTokenTTL as a time.Duration. Returns 24h if
// unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTokenTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// RateLimitWindow parses RateWindow as a time.Duration. Returns 1m if
// unset or invalid.
func (c *Config) RateLimitWindow() time.Duration {
	d, err := time.ParseDuration(c.RateWindow)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}
