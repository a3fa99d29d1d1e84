package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultListen is the default HTTP listen address.
	DefaultListen = ":8080"

	// DefaultDatabaseDriver is the default persistence backend.
	DefaultDatabaseDriver = "sqlite"

	// DefaultSQLitePath is the default SQLite database file.
	DefaultSQLitePath = "./vesseltrace.db"

	// DefaultExportDir is the default directory for history report export.
	DefaultExportDir = "./reports"
)

// Config is the root configuration for vesseltrace.
type Config struct {
	Global   GlobalConfig   `yaml:"global"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Rates    RatesConfig    `yaml:"rates"`
	Export   *ExportConfig  `yaml:"export,omitempty"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Listen      string          `yaml:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// RatesConfig supplies the hourly rates used by the cost engine. Zero
// values mean "not configured"; the engine falls back to documented
// defaults and flags the fallback in its logs.
type RatesConfig struct {
	LaborPerHour float64 `yaml:"labor_per_hour"`
	QCPerHour    float64 `yaml:"qc_per_hour"`
}

// ExportConfig configures history report export destinations. At least
// one of the local directory or S3 must be enabled.
type ExportConfig struct {
	Local *LocalExportConfig `yaml:"local,omitempty"`
	S3    *S3ExportConfig    `yaml:"s3,omitempty"`
}

// LocalExportConfig writes history reports to a local directory.
type LocalExportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"`
}

// S3ExportConfig uploads history reports to S3-compatible storage.
type S3ExportConfig struct {
	Enabled         bool   `yaml:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	Concurrency     int    `yaml:"concurrency,omitempty"`
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDatabaseDriver
	}

	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}

	if c.Export != nil && c.Export.Local != nil &&
		c.Export.Local.Enabled && c.Export.Local.Dir == "" {
		c.Export.Local.Dir = DefaultExportDir
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Rates.LaborPerHour < 0 || c.Rates.QCPerHour < 0 {
		return fmt.Errorf("rates must not be negative")
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_minute must be positive")
	}

	if c.Export != nil {
		if err := c.validateExport(); err != nil {
			return err
		}
	}

	return nil
}

// validateExport checks the export section.
func (c *Config) validateExport() error {
	localEnabled := c.Export.Local != nil && c.Export.Local.Enabled
	s3Enabled := c.Export.S3 != nil && c.Export.S3.Enabled

	if !localEnabled && !s3Enabled {
		return fmt.Errorf("export: at least one destination must be enabled")
	}

	if localEnabled {
		dir := filepath.Dir(c.Export.Local.Dir)
		if dir != "." && dir != ".." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("export directory parent %q does not exist", dir)
			}
		}
	}

	if s3Enabled && c.Export.S3.Bucket == "" {
		return fmt.Errorf("export.s3.bucket is required")
	}

	return nil
}
