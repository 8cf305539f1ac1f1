// Package config loads the application configuration from environment
// variables. Every field carries an env tag and an optional default; the
// result is validated on startup so misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Table     TableConfig
	ViewState ViewStateConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty runs the demo on the
	// in-memory task store.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// MigrateOnStart applies pending migrations before serving (default: false)
	MigrateOnStart bool `env:"DB_MIGRATE_ON_START" default:"false"`

	// SeedRows is the number of generated tasks for `seed` and the memory store
	SeedRows int `env:"DB_SEED_ROWS" default:"200"`
}

// TableConfig holds data table behavior.
type TableConfig struct {
	// DefaultPageSize is used when the URL has no perPage (default: 10)
	DefaultPageSize int `env:"TABLE_DEFAULT_PAGE_SIZE" default:"10"`

	// MaxPageSize caps perPage to protect the data source (default: 100)
	MaxPageSize int `env:"TABLE_MAX_PAGE_SIZE" default:"100"`

	// PageSizes are the choices offered in the pagination bar
	PageSizes []string `env:"TABLE_PAGE_SIZES" default:"10,20,30,40,50"`

	// ArraySeparator joins option filter values in the URL (default: ",")
	ArraySeparator string `env:"TABLE_ARRAY_SEPARATOR" default:","`

	// SplitPattern splits free-form filter strings; "off" disables splitting
	SplitPattern string `env:"TABLE_SPLIT_PATTERN" default:"[^a-zA-Z0-9]+"`

	// SortFilterValues orders array filter items (default: false)
	SortFilterValues bool `env:"TABLE_SORT_FILTER_VALUES" default:"false"`

	// History is the URL history mode: replace or push (default: replace)
	History string `env:"TABLE_HISTORY" default:"replace"`

	Shallow  bool          `env:"TABLE_SHALLOW" default:"false"`
	Debounce time.Duration `env:"TABLE_DEBOUNCE" default:"300ms"`
	Throttle time.Duration `env:"TABLE_THROTTLE" default:"50ms"`

	// MultiSort allows sorting by several columns (default: true)
	MultiSort bool `env:"TABLE_MULTI_SORT" default:"true"`

	// TimeZone is the IANA zone date filters resolve days in (default: UTC)
	TimeZone string `env:"TABLE_TIME_ZONE" default:"UTC"`

	// ExportMaxConcurrent caps simultaneous CSV exports (default: 4)
	ExportMaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"4"`

	// ExportMaxWait is how long an export waits for a free slot (default: 5s)
	ExportMaxWait time.Duration `env:"EXPORT_MAX_WAIT" default:"5s"`
}

// ViewStateConfig holds the per-session UI state store settings.
type ViewStateConfig struct {
	// Backend is memory or redis (default: memory)
	Backend string `env:"VIEWSTATE_BACKEND" default:"memory"`

	RedisURL    string        `env:"VIEWSTATE_REDIS_URL" envAlt:"REDIS_URL"`
	RedisPrefix string        `env:"VIEWSTATE_REDIS_PREFIX" default:"datatable:view:"`
	TTL         time.Duration `env:"VIEWSTATE_TTL" default:"24h"`

	// SweepSchedule is the cron spec of the memory store expiry sweep
	SweepSchedule string `env:"VIEWSTATE_SWEEP_SCHEDULE" default:"@every 5m"`

	// CookieName names the session cookie (default: dt_session)
	CookieName string `env:"VIEWSTATE_COOKIE" default:"dt_session"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// Burst is the bucket size per IP (default: 50)
	Burst int `env:"RATE_LIMIT_BURST" default:"50"`

	// IdleTTL drops limiters of IPs not seen for this long (default: 10m)
	IdleTTL time.Duration `env:"RATE_LIMIT_IDLE_TTL" default:"10m"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// SecureCookies marks the session cookie Secure (default: false)
	SecureCookies bool `env:"SECURITY_SECURE_COOKIES" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`

	// Token, when set, is required as a bearer token on the metrics path
	Token string `env:"METRICS_TOKEN"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Location loads TimeZone, falling back to UTC.
func (c *TableConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PageSizeChoices returns the configured page sizes that parse as positive
// integers, in order.
func (c *TableConfig) PageSizeChoices() []int {
	out := make([]int, 0, len(c.PageSizes))
	for _, s := range c.PageSizes {
		n, err := strconv.Atoi(s)
		if err == nil && n > 0 {
			out = append(out, n)
		}
	}
	return out
}
