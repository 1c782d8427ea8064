// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Retailer fetch modes.
const (
	ModeAPI     = "api"
	ModeBrowser = "browser"
)

// State backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendGCS      = "gcs"
)

var pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Config is the top-level application configuration.
type Config struct {
	Monitor       MonitorConfig       `yaml:"monitor"`
	Retailer      RetailerConfig      `yaml:"retailer"`
	Notifications NotificationsConfig `yaml:"notifications"`
	State         StateConfig         `yaml:"state"`
	Server        ServerConfig        `yaml:"server"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// MonitorConfig defines what to watch.
type MonitorConfig struct {
	Pincode  string `yaml:"pincode"`
	Targets  string `yaml:"targets"` // comma-separated; empty watches everything
	Category string `yaml:"category"`
}

// RetailerConfig defines how the storefront is queried.
type RetailerConfig struct {
	Mode           string        `yaml:"mode"` // api, browser
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	PageLimit      int           `yaml:"page_limit"`
	UserAgent      string        `yaml:"user_agent"`
	BrowserTimeout time.Duration `yaml:"browser_timeout"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Ntfy NtfyConfig `yaml:"ntfy"`
}

// NtfyConfig defines the push relay settings. DailyLimit caps publishes per
// 24h within one process; 0 disables it.
type NtfyConfig struct {
	Server     string        `yaml:"server"`
	Topic      string        `yaml:"topic"`
	Priority   string        `yaml:"priority"`
	Tags       []string      `yaml:"tags"`
	Timeout    time.Duration `yaml:"timeout"`
	DailyLimit int64         `yaml:"daily_limit"`
}

// StateConfig selects and configures the status map backend.
type StateConfig struct {
	Backend  string         `yaml:"backend"` // file, postgres, gcs
	File     string         `yaml:"file"`
	Postgres DatabaseConfig `yaml:"postgres"`
	GCS      GCSConfig      `yaml:"gcs"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Name        string `yaml:"name"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	SSLMode     string `yaml:"sslmode"`
	PoolSize    int    `yaml:"pool_size"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// GCSConfig defines the bucket object holding the status map.
type GCSConfig struct {
	Bucket string `yaml:"bucket"`
	Object string `yaml:"object"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TriggerRate  time.Duration `yaml:"trigger_rate"` // minimum spacing between manual checks
	TriggerBurst int           `yaml:"trigger_burst"`
}

// ScheduleConfig defines the in-process check interval used by serve.
type ScheduleConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"run_on_start"`
}

// TelemetryConfig defines OpenTelemetry tracing export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, pretty
}

// Load reads and parses a YAML config file, performing environment variable
// substitution. Defaults are applied but validation is left to the caller so
// that flag and environment overrides can be layered on first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadOptional behaves like Load but returns a defaulted config when the file
// does not exist. Scheduled runs usually have only environment variables.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields with their default values.
func ApplyDefaults(cfg *Config) {
	applyMonitorDefaults(&cfg.Monitor)
	applyRetailerDefaults(&cfg.Retailer)
	applyNtfyDefaults(&cfg.Notifications.Ntfy)
	applyStateDefaults(&cfg.State)
	applyServerDefaults(&cfg.Server)
	applyScheduleDefaults(&cfg.Schedule)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLoggingDefaults(&cfg.Logging)
}

func applyMonitorDefaults(m *MonitorConfig) {
	if m.Category == "" {
		m.Category = "protein"
	}
}

func applyRetailerDefaults(r *RetailerConfig) {
	if r.Mode == "" {
		r.Mode = ModeAPI
	}
	if r.BaseURL == "" {
		r.BaseURL = "https://shop.amul.com"
	}
	if r.Timeout == 0 {
		r.Timeout = 30 * time.Second
	}
	if r.PageLimit == 0 {
		r.PageLimit = 100
	}
	if r.UserAgent == "" {
		r.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	}
	if r.BrowserTimeout == 0 {
		r.BrowserTimeout = 60 * time.Second
	}
}

func applyNtfyDefaults(n *NtfyConfig) {
	if n.Server == "" {
		n.Server = "https://ntfy.sh"
	}
	if n.Tags == nil {
		n.Tags = []string{"tada", "shopping_cart"}
	}
	if n.Timeout == 0 {
		n.Timeout = 10 * time.Second
	}
}

func applyStateDefaults(s *StateConfig) {
	if s.Backend == "" {
		s.Backend = BackendFile
	}
	if s.File == "" {
		s.File = "stock_status.json"
	}
	if s.Postgres.Port == 0 {
		s.Postgres.Port = 5432
	}
	if s.Postgres.SSLMode == "" {
		s.Postgres.SSLMode = "disable"
	}
	if s.Postgres.PoolSize == 0 {
		s.Postgres.PoolSize = 4
	}
	if s.GCS.Object == "" {
		s.GCS.Object = "stock_status.json"
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		// A manual check waits on the storefront, and in browser mode on Chrome.
		s.WriteTimeout = 90 * time.Second
	}
	if s.TriggerRate == 0 {
		s.TriggerRate = time.Minute
	}
	if s.TriggerBurst == 0 {
		s.TriggerBurst = 1
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.Interval == 0 {
		s.Interval = 15 * time.Minute
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "amul-stock-tracker"
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

// Validate checks the fields required to run a stock check.
func (cfg *Config) Validate() error {
	var errs []error

	if !pincodePattern.MatchString(cfg.Monitor.Pincode) {
		errs = append(errs, fmt.Errorf(
			"monitor.pincode must be exactly 6 digits (got %q)", cfg.Monitor.Pincode,
		))
	}
	if cfg.Monitor.Category == "" {
		errs = append(errs, fmt.Errorf("monitor.category is required"))
	}

	switch cfg.Retailer.Mode {
	case ModeAPI, ModeBrowser:
	default:
		errs = append(errs, fmt.Errorf(
			"retailer.mode must be one of: api, browser (got %q)", cfg.Retailer.Mode,
		))
	}
	if cfg.Retailer.PageLimit < 0 {
		errs = append(errs, fmt.Errorf("retailer.page_limit must not be negative"))
	}

	if cfg.Notifications.Ntfy.DailyLimit < 0 {
		errs = append(errs, fmt.Errorf("notifications.ntfy.daily_limit must not be negative"))
	}

	errs = append(errs, cfg.State.validate()...)

	if cfg.Schedule.Enabled && cfg.Schedule.Interval < time.Minute {
		errs = append(errs, fmt.Errorf(
			"schedule.interval must be at least 1m (got %s)", cfg.Schedule.Interval,
		))
	}

	return errors.Join(errs...)
}

// ValidateState checks only the state backend section. Commands that never
// talk to the storefront (status, targets, migrate) use it.
func (cfg *Config) ValidateState() error {
	return errors.Join(cfg.State.validate()...)
}

func (s *StateConfig) validate() []error {
	var errs []error

	switch s.Backend {
	case BackendFile:
		if s.File == "" {
			errs = append(errs, fmt.Errorf("state.file is required when backend is file"))
		}
	case BackendPostgres:
		if s.Postgres.Host == "" {
			errs = append(errs, fmt.Errorf("state.postgres.host is required when backend is postgres"))
		}
		if s.Postgres.Name == "" {
			errs = append(errs, fmt.Errorf("state.postgres.name is required when backend is postgres"))
		}
		if s.Postgres.User == "" {
			errs = append(errs, fmt.Errorf("state.postgres.user is required when backend is postgres"))
		}
	case BackendGCS:
		if s.GCS.Bucket == "" {
			errs = append(errs, fmt.Errorf("state.gcs.bucket is required when backend is gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf(
			"state.backend must be one of: file, postgres, gcs (got %q)", s.Backend,
		))
	}

	return errs
}
