// Package config loads the payroll reconciliation server's settings from
// environment variables, applies defaults and validates everything on
// startup so a misconfigured server fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Storage   StorageConfig
	Reconcile ReconcileConfig
	Audit     AuditConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`
}

// DatabaseConfig holds the optional run audit database.
// With no URL the server runs without auditing.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"5"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// UploadConfig holds upload and reconciliation limits.
type UploadConfig struct {
	// MaxFileSize caps each uploaded payroll file in bytes (default: 32MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"33554432"`

	// MaxConcurrent is the number of reconciliations run in parallel (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a request waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single reconciliation (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`

	// PreviewRows is how many report rows the result page shows (default: 25)
	PreviewRows int `env:"UPLOAD_PREVIEW_ROWS" default:"25"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is the limit per IP for POST /upload (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the /api routes with X-API-Key
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// StorageConfig controls where reports wait to be downloaded.
type StorageConfig struct {
	Dir string `env:"STORAGE_DIR" default:"data/reports"`

	// TTL is how long an undownloaded report is kept (default: 1h)
	TTL time.Duration `env:"STORAGE_TTL" default:"1h"`

	// SweepInterval is how often maintenance runs (default: 10m)
	SweepInterval time.Duration `env:"STORAGE_SWEEP_INTERVAL" default:"10m"`
}

// ReconcileConfig holds reconciliation behaviour.
type ReconcileConfig struct {
	// JoinMode is inner (matched employees only) or outer (default: inner)
	JoinMode string `env:"RECONCILE_JOIN_MODE" default:"inner"`

	// AllowEmpty serves an empty report instead of an error when nothing matches
	AllowEmpty bool `env:"RECONCILE_ALLOW_EMPTY" default:"false"`

	// ReportFormat is xlsx or csv; empty follows the new file's format
	ReportFormat string `env:"RECONCILE_REPORT_FORMAT"`

	ReportName string `env:"RECONCILE_REPORT_NAME" default:"Payroll Comparison"`
}

// AuditConfig holds run audit retention.
type AuditConfig struct {
	// RetentionDays is how long run records are kept; 0 keeps them forever (default: 90)
	RetentionDays int `env:"AUDIT_RETENTION_DAYS" default:"90"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
