// Package config loads litequery configuration from YAML. Environment
// variables of the form LITEQUERY_SECTION_KEY override file values.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/litequery/internal/database/sqlite"
	"github.com/koustreak/litequery/internal/errs"
	"github.com/koustreak/litequery/internal/filestore"
	"github.com/koustreak/litequery/internal/logger"
	"github.com/koustreak/litequery/internal/snapshot"
)

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Admin    AdminConfig    `yaml:"admin"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// DatabaseConfig contains SQLite connection settings.
type DatabaseConfig struct {
	Path          string        `yaml:"path"`
	Key           string        `yaml:"key"`
	WALMode       bool          `yaml:"wal_mode"`
	ReadOnly      bool          `yaml:"read_only"`
	FileMustExist bool          `yaml:"file_must_exist"`
	BusyTimeout   time.Duration `yaml:"busy_timeout"`
	Binding       string        `yaml:"binding"`

	// SlowQueryThreshold enables slow-query logging when set. "0s" logs every query.
	SlowQueryThreshold *time.Duration `yaml:"slow_query_threshold"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	TimeFormat string `yaml:"time_format"`
}

// AdminConfig contains the admin HTTP listener settings.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SnapshotConfig contains object storage settings for snapshots.
type SnapshotConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	TempDir   string `yaml:"temp_dir"`
	Uploads   int    `yaml:"uploads"`
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for configuration already in memory.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "parsing config file", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/litequery.db",
			WALMode:     true,
			BusyTimeout: 5 * time.Second,
			Binding:     sqlite.DefaultBindingName,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			TimeFormat: "rfc3339",
		},
		Admin: AdminConfig{
			Addr: "127.0.0.1:9464",
		},
		Snapshot: SnapshotConfig{
			Bucket:  filestore.DefaultBucket,
			Prefix:  "snapshots",
			Uploads: 2,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LITEQUERY_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LITEQUERY_DATABASE_KEY"); v != "" {
		cfg.Database.Key = v
	}
	if v := os.Getenv("LITEQUERY_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LITEQUERY_ADMIN_ADDR"); v != "" {
		cfg.Admin.Addr = v
	}
	if v := os.Getenv("LITEQUERY_SNAPSHOT_ENDPOINT"); v != "" {
		cfg.Snapshot.Endpoint = v
	}
	if v := os.Getenv("LITEQUERY_SNAPSHOT_ACCESS_KEY"); v != "" {
		cfg.Snapshot.AccessKey = v
	}
	if v := os.Getenv("LITEQUERY_SNAPSHOT_SECRET_KEY"); v != "" {
		cfg.Snapshot.SecretKey = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.Path == "" {
		problems = append(problems, "database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		problems = append(problems, "database.busy_timeout must not be negative")
	}
	if t := c.Database.SlowQueryThreshold; t != nil && *t < 0 {
		problems = append(problems, "database.slow_query_threshold must not be negative")
	}
	if c.Database.ReadOnly && c.Database.WALMode {
		problems = append(problems, "database.wal_mode cannot be enabled on a read-only database")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, "logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		problems = append(problems, "logging.format must be json or console")
	}

	if c.Admin.Enabled && c.Admin.Addr == "" {
		problems = append(problems, "admin.addr is required when admin is enabled")
	}

	if c.Snapshot.Enabled {
		if c.Snapshot.Endpoint == "" {
			problems = append(problems, "snapshot.endpoint is required (set LITEQUERY_SNAPSHOT_ENDPOINT)")
		}
		if c.Snapshot.Bucket == "" {
			problems = append(problems, "snapshot.bucket is required")
		}
		if c.Snapshot.Uploads < 0 {
			problems = append(problems, "snapshot.uploads must not be negative")
		}
	}

	if len(problems) > 0 {
		return errs.New(errs.ErrKindInvalidInput, "configuration errors: "+strings.Join(problems, "; "))
	}
	return nil
}

// SQLiteOptions converts the database section into driver options.
func (c *Config) SQLiteOptions() sqlite.Options {
	return sqlite.Options{
		Database:              c.Database.Path,
		Key:                   c.Database.Key,
		EnableWAL:             c.Database.WALMode,
		ReadOnly:              c.Database.ReadOnly,
		FileMustExist:         c.Database.FileMustExist,
		BusyTimeout:           c.Database.BusyTimeout,
		BindingName:           c.Database.Binding,
		MaxQueryExecutionTime: c.Database.SlowQueryThreshold,
	}
}

// LoggerConfig converts the logging section, writing to out.
func (c *Config) LoggerConfig(out io.Writer) *logger.Config {
	return &logger.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		TimeFormat: c.Logging.TimeFormat,
		Output:     out,
	}
}

// FileStoreConfig converts the snapshot section into object storage settings.
func (c *Config) FileStoreConfig() *filestore.Config {
	return &filestore.Config{
		Endpoint:  c.Snapshot.Endpoint,
		AccessKey: c.Snapshot.AccessKey,
		SecretKey: c.Snapshot.SecretKey,
		UseSSL:    c.Snapshot.UseSSL,
		Region:    c.Snapshot.Region,
		Bucket:    c.Snapshot.Bucket,
	}
}

// SnapshotOptions converts the snapshot section into snapshotter settings.
func (c *Config) SnapshotOptions() snapshot.Config {
	return snapshot.Config{
		Bucket:  c.Snapshot.Bucket,
		Prefix:  c.Snapshot.Prefix,
		TempDir: c.Snapshot.TempDir,
		Uploads: c.Snapshot.Uploads,
	}
}
