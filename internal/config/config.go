// Package config handles loading and validating runtime configuration for the
// Racing League standings API. Values are read from environment variables so the
// same binary runs in dev, staging and production; in development a .env file can
// supply them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	// godotenv reads a .env file and loads its key=value pairs into the process environment.
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values for the application.
type Config struct {
	Port        string     // TCP port the HTTP server listens on
	DatabaseURL string     // PostgreSQL connection string; required
	JWTSecret   string     // HMAC key used to verify bearer tokens; required
	Env         string     // "development", "staging" or "production"
	LogLevel    slog.Level // Parsed from LOG_LEVEL (debug, info, warn, error)

	// RedisURL enables the standings cache when set, e.g. "redis://localhost:6379/0".
	RedisURL        string
	StandingsTTL    time.Duration // How long a cached table may be served
	SnapshotEvery   time.Duration // Interval of the snapshot job; 0 disables it
	SnapshotWorkers int           // Seasons snapshotted in parallel

	// Cloudflare R2 archive of published snapshots. All five must be set to enable it.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string
	R2PublicBaseURL   string
}

// Load reads configuration from the environment, after trying a .env file in the
// working directory. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getenv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		Env:               getenv("ENV", "development"),
		RedisURL:          os.Getenv("REDIS_URL"),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2Bucket:          os.Getenv("R2_BUCKET"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	var errs []error
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	level, err := parseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	if cfg.StandingsTTL, err = durationEnv("STANDINGS_CACHE_TTL", 5*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.SnapshotEvery, err = durationEnv("SNAPSHOT_INTERVAL", time.Hour); err != nil {
		errs = append(errs, err)
	}

	cfg.SnapshotWorkers = 4
	if v := os.Getenv("SNAPSHOT_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("SNAPSHOT_CONCURRENCY must be a positive integer, got %q", v))
		} else {
			cfg.SnapshotWorkers = n
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ArchiveEnabled reports whether every R2 setting is present.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2Bucket != "" && c.R2PublicBaseURL != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration such as 90s or 5m, got %q", key, v)
	}
	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
