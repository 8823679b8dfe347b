// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a .env file, an optional YAML file and SCOOP_ env vars on top.
package config

import (
	"runtime"
	"time"
)

// Store drivers understood by the repository layer.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSessionSecret is the placeholder signing secret New ships with.
// Anyone who knows it can mint session tokens, so deployments must override it.
const DefaultSessionSecret = "change-me"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the persistence backend: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`
	DatabaseURL string `koanf:"database_url"`

	// RedisAddr enables cross-instance change fan-out and the shared rate limiter when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	SessionSecret     string `koanf:"session_secret"`
	SessionTTLMinutes int    `koanf:"session_ttl_minutes"`

	GeoBaseURL         string `koanf:"geo_base_url"`
	GeoTimeoutMS       int    `koanf:"geo_timeout_ms"`
	GeoCacheTTLSeconds int    `koanf:"geo_cache_ttl_seconds"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of submission workers (one queue shard each).
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the idempotency key cache.
	DedupeSize int `koanf:"dedupe_size"`

	DashboardLimit         int     `koanf:"dashboard_limit"`
	DashboardCategories    int     `koanf:"dashboard_categories"`
	CriticalRatioThreshold float64 `koanf:"critical_ratio_threshold"`
	MaxCommentWords        int     `koanf:"max_comment_words"`

	CaptchaTTLSeconds int `koanf:"captcha_ttl_seconds"`
	CaptchaCapacity   int `koanf:"captcha_capacity"`

	SubmitRateLimit         int `koanf:"submit_rate_limit"`
	SubmitRateWindowSeconds int `koanf:"submit_rate_window_seconds"`

	// EnforceDuplicateGuard turns the advisory "already reviewed" signal into a 409.
	EnforceDuplicateGuard bool `koanf:"enforce_duplicate_guard"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		StoreDriver:             DriverMemory,
		SQLitePath:              "scoop.db",
		SessionSecret:           DefaultSessionSecret,
		SessionTTLMinutes:       60 * 24 * 30,
		GeoBaseURL:              "https://ipapi.co",
		GeoTimeoutMS:            1500,
		GeoCacheTTLSeconds:      3600,
		QueueSize:               10_000,
		WorkerCount:             runtime.NumCPU(),
		DedupeSize:              100_000,
		DashboardLimit:          8,
		DashboardCategories:     2,
		CriticalRatioThreshold:  0.10,
		MaxCommentWords:         300,
		CaptchaTTLSeconds:       600,
		CaptchaCapacity:         50_000,
		SubmitRateLimit:         10,
		SubmitRateWindowSeconds: 3600,
	}
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// InsecureSessionSecret reports whether session tokens are signed with the
// shipped placeholder secret.
func (c *Config) InsecureSessionSecret() bool {
	return c.SessionSecret == DefaultSessionSecret
}

// GeoTimeout returns the per-lookup timeout.
func (c *Config) GeoTimeout() time.Duration {
	return time.Duration(c.GeoTimeoutMS) * time.Millisecond
}

// GeoCacheTTL returns how long resolved cities are cached.
func (c *Config) GeoCacheTTL() time.Duration {
	return time.Duration(c.GeoCacheTTLSeconds) * time.Second
}

// CaptchaTTL returns how long an issued challenge stays valid.
func (c *Config) CaptchaTTL() time.Duration {
	return time.Duration(c.CaptchaTTLSeconds) * time.Second
}

// SubmitRateWindow returns the rate limiter window.
func (c *Config) SubmitRateWindow() time.Duration {
	return time.Duration(c.SubmitRateWindowSeconds) * time.Second
}
