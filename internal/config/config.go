// Package config handles loading and validating relay configuration.
// Supports a YAML config file and RELAY_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/calder/relay/internal/logging"
)

// Config holds all relay configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Spool  SpoolConfig  `mapstructure:"spool"`
	Queue  QueueConfig  `mapstructure:"queue"`
	Daemon DaemonConfig `mapstructure:"daemon"`
	Worker WorkerConfig `mapstructure:"worker"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level         string `mapstructure:"level"`
	Path          string `mapstructure:"path"`
	Format        string `mapstructure:"format"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// DBConfig configures the task archive database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// SpoolConfig configures the task drop directory.
type SpoolConfig struct {
	Dir string `mapstructure:"dir"`
}

// QueueConfig configures the processing loop.
type QueueConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

// DaemonConfig configures the background daemon.
type DaemonConfig struct {
	SweepCron     string `mapstructure:"sweep_cron"`     // cron for spool sweep + prune
	RetentionDays int    `mapstructure:"retention_days"` // archive retention
}

// WorkerConfig configures the builtin worker agent.
type WorkerConfig struct {
	Dir string `mapstructure:"dir"` // root for file-operation tasks; empty disables the handler
}

// DataDir returns the relay data directory.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "relay")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "relay", "relay.yaml")
}

// Load reads configuration from path (or the default location when empty)
// and the environment. A missing config file is not an error; defaults
// apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", filepath.Join(DataDir(), "logs"))
	v.SetDefault("log.format", "json")
	v.SetDefault("log.retention_days", 7)
	v.SetDefault("db.path", filepath.Join(DataDir(), "relay.db"))
	v.SetDefault("spool.dir", filepath.Join(DataDir(), "spool"))
	v.SetDefault("queue.poll_interval", "1s")
	v.SetDefault("queue.history_limit", 1000)
	v.SetDefault("daemon.sweep_cron", "*/5 * * * *")
	v.SetDefault("daemon.retention_days", 30)
	v.SetDefault("worker.dir", "")
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	if c.Queue.PollInterval <= 0 {
		return fmt.Errorf("queue.poll_interval must be positive, got %v", c.Queue.PollInterval)
	}
	if c.Daemon.RetentionDays < 1 {
		return fmt.Errorf("daemon.retention_days must be at least 1, got %d", c.Daemon.RetentionDays)
	}
	return nil
}

// LoggingConfig converts to the logging package's config shape.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:         c.Log.Level,
		Path:          c.Log.Path,
		Format:        c.Log.Format,
		RetentionDays: c.Log.RetentionDays,
	}
}
