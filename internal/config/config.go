// Package config loads the service configuration from environment variables.
// Defaults are applied for unset values and the result is validated on
// startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Convert  ConvertConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 0, uploads are streamed)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"0s"`

	// WriteTimeout is the maximum duration for writing the response (default: 0, responses are streamed)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds non-conversion requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds the optional history database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. History is disabled when empty.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// HistoryRetention is how long history rows are kept; 0 keeps them forever (default: 720h)
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" default:"720h"`

	// PruneInterval is how often expired history is deleted (default: 24h)
	PruneInterval time.Duration `env:"HISTORY_PRUNE_INTERVAL" default:"24h"`

	// PruneBatchSize is the number of rows deleted per statement (default: 5000)
	PruneBatchSize int `env:"HISTORY_PRUNE_BATCH_SIZE" default:"5000"`
}

// Enabled reports whether a history database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// ConvertConfig holds conversion settings.
type ConvertConfig struct {
	// MaxFileSize is the maximum accepted upload size in bytes (default: 50MB)
	MaxFileSize int64 `env:"CONVERT_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of conversions running at once (default: 8)
	MaxConcurrent int `env:"CONVERT_MAX_CONCURRENT" default:"8"`

	// MaxWaitTime is how long a request waits for a conversion slot (default: 10s)
	MaxWaitTime time.Duration `env:"CONVERT_MAX_WAIT_TIME" default:"10s"`

	// Timeout is the maximum duration of a single conversion (default: 2m)
	Timeout time.Duration `env:"CONVERT_TIMEOUT" default:"2m"`

	// StreamBuffer is how many output bytes are held before the response
	// is committed (default: 64KB). Failures inside this window still get
	// a proper error status.
	StreamBuffer int `env:"CONVERT_STREAM_BUFFER" default:"65536"`

	// PolicyFile is an optional YAML file restricting and tuning converters.
	PolicyFile string `env:"CONVERT_POLICY_FILE"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// ConvertLimit is requests per minute for conversion endpoints (default: 30)
	ConvertLimit int `env:"RATE_LIMIT_CONVERT" default:"30"`

	// Burst is the number of requests allowed above the steady rate (default: 5)
	Burst int `env:"RATE_LIMIT_BURST" default:"5"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// AllowedOrigins lists origins allowed to call the API cross-site.
	// CORS is off when empty.
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
