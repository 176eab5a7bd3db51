// Package config provides configuration management for the kitchen engine.
// Configurations are loaded from TOML files with XDG-compliant paths.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete application configuration.
type Config struct {
	Daycare  DaycareConfig  `toml:"daycare"`
	Kitchen  KitchenConfig  `toml:"kitchen"`
	Notify   NotifyConfig   `toml:"notify"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Display  DisplayConfig  `toml:"display"`
	Logging  LoggingConfig  `toml:"logging"`
	Database DatabaseConfig `toml:"database"`
}

// DaycareConfig identifies the facility the kitchen serves.
type DaycareConfig struct {
	Name              string `toml:"name"`
	Capacity          int    `toml:"capacity"`
	DefaultChildCount int    `toml:"default_child_count"`
	Operator          string `toml:"operator"`
}

// KitchenConfig tunes serving, planning and reporting.
type KitchenConfig struct {
	MaxPeriodDays       int      `toml:"max_period_days"`
	ExpiringWithinDays  int      `toml:"expiring_within_days"`
	DashboardWindowDays int      `toml:"dashboard_window_days"`
	TopConsumedLimit    int      `toml:"top_consumed_limit"`
	StockRetryAttempts  int      `toml:"stock_retry_attempts"`
	ShortageRoles       []string `toml:"shortage_roles"`
}

// NotifyDriver selects how shortage notifications leave the process.
type NotifyDriver string

const (
	NotifyDriverLog  NotifyDriver = "log"
	NotifyDriverNATS NotifyDriver = "nats"
)

// NotifyConfig controls shortage notification delivery.
type NotifyConfig struct {
	Driver         NotifyDriver `toml:"driver"`
	NATSURL        string       `toml:"nats_url"`
	SubjectPrefix  string       `toml:"subject_prefix"`
	TimeoutSeconds int          `toml:"timeout_seconds"`
}

// Timeout returns the publish timeout.
func (n *NotifyConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// DisplayConfig controls console appearance.
type DisplayConfig struct {
	ColorScheme ColorScheme `toml:"color_scheme"`
	DateFormat  string      `toml:"date_format"`
	TimeFormat  string      `toml:"time_format"`
}

// ColorScheme defines the terminal color palette.
type ColorScheme string

const (
	ColorSchemeGarden ColorScheme = "garden"
	ColorSchemeCrayon ColorScheme = "crayon"
	ColorSchemePlain  ColorScheme = "plain"
)

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level LogLevel `toml:"level"`
	File  string   `toml:"file"`
}

// LogLevel defines logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// DatabaseConfig controls SQLite database settings.
type DatabaseConfig struct {
	Path                string `toml:"path"`
	BackupIntervalHours int    `toml:"backup_interval_hours"`
	BackupRetentionDays int    `toml:"backup_retention_days"`
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Daycare.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("daycare: %w", err))
	}

	if err := c.Kitchen.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("kitchen: %w", err))
	}

	if err := c.Notify.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("notify: %w", err))
	}

	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}

	if err := c.Display.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("display: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the daycare configuration is valid.
func (d *DaycareConfig) Validate() error {
	var errs []error

	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}

	if d.Capacity < 1 {
		errs = append(errs, errors.New("capacity must be positive"))
	}

	if d.DefaultChildCount < 1 {
		errs = append(errs, errors.New("default_child_count must be positive"))
	}

	if d.Capacity > 0 && d.DefaultChildCount > d.Capacity {
		errs = append(errs, errors.New("default_child_count must not exceed capacity"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the kitchen configuration is valid.
func (k *KitchenConfig) Validate() error {
	var errs []error

	if k.MaxPeriodDays < 1 || k.MaxPeriodDays > 366 {
		errs = append(errs, errors.New("max_period_days must be between 1 and 366"))
	}

	if k.ExpiringWithinDays < 0 {
		errs = append(errs, errors.New("expiring_within_days must be non-negative"))
	}

	if k.DashboardWindowDays < 1 {
		errs = append(errs, errors.New("dashboard_window_days must be positive"))
	}

	if k.TopConsumedLimit < 1 {
		errs = append(errs, errors.New("top_consumed_limit must be positive"))
	}

	if k.StockRetryAttempts < 1 {
		errs = append(errs, errors.New("stock_retry_attempts must be positive"))
	}

	for _, role := range k.ShortageRoles {
		if role == "" {
			errs = append(errs, errors.New("shortage_roles must not contain empty names"))
			break
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the notify configuration is valid.
func (n *NotifyConfig) Validate() error {
	var errs []error

	switch n.Driver {
	case NotifyDriverLog, "":
	case NotifyDriverNATS:
		if n.NATSURL == "" {
			errs = append(errs, errors.New("nats_url is required for the nats driver"))
		}
		if n.SubjectPrefix == "" {
			errs = append(errs, errors.New("subject_prefix is required for the nats driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid driver: %s", n.Driver))
	}

	if n.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("timeout_seconds must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Listen == "" {
		return errors.New("listen is required when metrics are enabled")
	}
	return nil
}

// Validate checks that the display configuration is valid.
func (d *DisplayConfig) Validate() error {
	var errs []error

	validSchemes := map[ColorScheme]bool{
		ColorSchemeGarden: true,
		ColorSchemeCrayon: true,
		ColorSchemePlain:  true,
	}

	if !validSchemes[d.ColorScheme] && d.ColorScheme != "" {
		errs = append(errs, fmt.Errorf("invalid color_scheme: %s", d.ColorScheme))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	validLevels := map[LogLevel]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}

	if !validLevels[l.Level] && l.Level != "" {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	return nil
}

// Validate checks that the database configuration is valid.
func (d *DatabaseConfig) Validate() error {
	var errs []error

	if d.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}

	if d.BackupIntervalHours < 0 {
		errs = append(errs, errors.New("backup_interval_hours must be non-negative"))
	}

	if d.BackupRetentionDays < 0 {
		errs = append(errs, errors.New("backup_retention_days must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Daycare: DaycareConfig{
			Name:              "Sunnyside Daycare",
			Capacity:          60,
			DefaultChildCount: 20,
			Operator:          "kitchen",
		},
		Kitchen: KitchenConfig{
			MaxPeriodDays:       31,
			ExpiringWithinDays:  3,
			DashboardWindowDays: 7,
			TopConsumedLimit:    5,
			StockRetryAttempts:  5,
			ShortageRoles:       []string{"manager", "cook"},
		},
		Notify: NotifyConfig{
			Driver:         NotifyDriverLog,
			NATSURL:        "nats://127.0.0.1:4222",
			SubjectPrefix:  "kitchen.notify",
			TimeoutSeconds: 5,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},
		Display: DisplayConfig{
			ColorScheme: ColorSchemeGarden,
			DateFormat:  "2006-01-02",
			TimeFormat:  "15:04",
		},
		Logging: LoggingConfig{
			Level: LogLevelInfo,
			File:  "logs/kitchen.log",
		},
		Database: DatabaseConfig{
			Path:                "kitchen.db",
			BackupIntervalHours: 24,
			BackupRetentionDays: 30,
		},
	}
}
