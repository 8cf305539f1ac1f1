package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable lookup. Empty values count as unset.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

var durationType = reflect.TypeOf(time.Duration(0))

// envField is one tagged field: the variable names it reads and its default.
type envField struct {
	name     string
	alt      string
	def      string
	required bool
}

func parseTags(f reflect.StructField) (envField, bool) {
	name := f.Tag.Get("env")
	if name == "" {
		return envField{}, false
	}
	return envField{
		name:     name,
		alt:      f.Tag.Get("envAlt"),
		def:      f.Tag.Get("default"),
		required: f.Tag.Get("required") == "true",
	}, true
}

// lookup returns the raw value for the field: the primary variable, then
// the alternate, then the default.
func (e envField) lookup(getenv func(string) string) (string, error) {
	if v := getenv(e.name); v != "" {
		return v, nil
	}
	if e.alt != "" {
		if v := getenv(e.alt); v != "" {
			return v, nil
		}
	}
	if e.required {
		return "", fmt.Errorf("required environment variable %s is not set", e.name)
	}
	return e.def, nil
}

// loadStruct fills the tagged fields of v, descending into the section
// structs. Every bad variable is reported, not just the first.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	var errs []error
	t := v.Type()
	for i := range t.NumField() {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv, getenv); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		ef, ok := parseTags(sf)
		if !ok {
			continue
		}
		raw, err := ef.lookup(getenv)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if raw == "" {
			continue
		}
		if err := setField(fv, raw); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", ef.name, raw, err))
		}
	}
	return errors.Join(errs...)
}

// setField parses raw into field. Durations use time.ParseDuration and
// string slices are comma-separated with blanks dropped.
func setField(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		var items []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate checks every section and returns one error listing all
// failures.
func (c *Config) Validate() error {
	var errs []string
	errs = append(errs, c.Server.validate()...)
	errs = append(errs, c.Database.validate()...)
	errs = append(errs, c.Table.validate()...)
	errs = append(errs, c.ViewState.validate()...)
	errs = append(errs, c.Rate.validate()...)
	errs = append(errs, c.Logging.validate()...)
	errs = append(errs, c.Metrics.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *ServerConfig) validate() (errs []string) {
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Port))
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	return errs
}

// Pool settings only matter when a database is configured.
func (c *DatabaseConfig) validate() (errs []string) {
	if c.URL != "" {
		if c.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.MaxConns < c.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.MaxConns, c.MinConns))
		}
	}
	if c.SeedRows < 0 {
		errs = append(errs, "DB_SEED_ROWS must be non-negative")
	}
	return errs
}

func (c *TableConfig) validate() (errs []string) {
	if c.DefaultPageSize <= 0 {
		errs = append(errs, "TABLE_DEFAULT_PAGE_SIZE must be positive")
	}
	if c.MaxPageSize < c.DefaultPageSize {
		errs = append(errs, fmt.Sprintf("TABLE_MAX_PAGE_SIZE (%d) must be >= TABLE_DEFAULT_PAGE_SIZE (%d)",
			c.MaxPageSize, c.DefaultPageSize))
	}
	if len(c.PageSizes) > 0 && len(c.PageSizeChoices()) == 0 {
		errs = append(errs, fmt.Sprintf("TABLE_PAGE_SIZES (%q) has no positive integer", strings.Join(c.PageSizes, ",")))
	}
	if c.ArraySeparator == "" {
		errs = append(errs, "TABLE_ARRAY_SEPARATOR must not be empty")
	}
	if c.SplitPattern != "" && c.SplitPattern != "off" {
		if _, err := regexp.Compile(c.SplitPattern); err != nil {
			errs = append(errs, fmt.Sprintf("TABLE_SPLIT_PATTERN (%q) is not a valid regexp: %v", c.SplitPattern, err))
		}
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errs = append(errs, fmt.Sprintf("TABLE_TIME_ZONE (%q) is not a known time zone", c.TimeZone))
	}
	if c.History != "replace" && c.History != "push" {
		errs = append(errs, fmt.Sprintf("TABLE_HISTORY (%q) must be one of: replace, push", c.History))
	}
	if c.ExportMaxConcurrent <= 0 {
		errs = append(errs, "EXPORT_MAX_CONCURRENT must be positive")
	}
	if c.ExportMaxWait <= 0 {
		errs = append(errs, "EXPORT_MAX_WAIT must be positive")
	}
	return errs
}

func (c *ViewStateConfig) validate() (errs []string) {
	switch c.Backend {
	case "memory":
		if c.SweepSchedule != "" {
			if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
				errs = append(errs, fmt.Sprintf("VIEWSTATE_SWEEP_SCHEDULE (%q) is not a valid schedule: %v", c.SweepSchedule, err))
			}
		}
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, "VIEWSTATE_REDIS_URL is required when VIEWSTATE_BACKEND is redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("VIEWSTATE_BACKEND (%q) must be one of: memory, redis", c.Backend))
	}
	if c.TTL <= 0 {
		errs = append(errs, "VIEWSTATE_TTL must be positive")
	}
	if c.CookieName == "" {
		errs = append(errs, "VIEWSTATE_COOKIE must not be empty")
	}
	return errs
}

func (c *RateLimitConfig) validate() (errs []string) {
	if !c.Enabled {
		return nil
	}
	if c.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	return errs
}

func (c *LoggingConfig) validate() (errs []string) {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Level))
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Format))
	}
	return errs
}

func (c *MetricsConfig) validate() (errs []string) {
	if c.Enabled && !strings.HasPrefix(c.Path, "/") {
		errs = append(errs, fmt.Sprintf("METRICS_PATH (%q) must start with /", c.Path))
	}
	return errs
}

// String returns a safe string representation of the config for logging.
// Connection strings are masked.
func (c *Config) String() string {
	db := "memory"
	if c.Database.URL != "" {
		db = fmt.Sprintf("URL: [MASKED], MaxConns: %d, MinConns: %d", c.Database.MaxConns, c.Database.MinConns)
	}
	redis := ""
	if c.ViewState.RedisURL != "" {
		redis = ", RedisURL: [MASKED]"
	}
	return fmt.Sprintf("Config{Server: {Addr: %q}, Database: {%s}, "+
		"Table: {DefaultPageSize: %d, MaxPageSize: %d, History: %q}, "+
		"ViewState: {Backend: %q, TTL: %s%s}, Rate: {Enabled: %v, RequestsPerMinute: %d}, "+
		"Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), db,
		c.Table.DefaultPageSize, c.Table.MaxPageSize, c.Table.History,
		c.ViewState.Backend, c.ViewState.TTL, redis, c.Rate.Enabled, c.Rate.RequestsPerMinute,
		c.Logging.Level, c.Logging.Format)
}
