package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	appName    = "shoal"
	dbFileName = "collection.db"
)

type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Collection CollectionConfig `koanf:"collection"`
	Query      QueryConfig      `koanf:"query"`
	Registry   RegistryConfig   `koanf:"registry"`
	Log        LogConfig        `koanf:"log"`
}

// DatabaseConfig locates the SQLite database. An empty path means the XDG
// data directory.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// CollectionConfig holds the local collection settings.
type CollectionConfig struct {
	MountPoints []string `koanf:"mount_points"` // directories registered as devices on startup
	Databases   []string `koanf:"databases"`    // other collection databases queried alongside
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	Workers   int           `koanf:"workers"`    // pool size (default: 4)
	BatchSize int           `koanf:"batch_size"` // rows per delivered batch (default: 500)
	Timeout   time.Duration `koanf:"timeout"`    // D-Bus wait for results (default: 15s)
}

// RegistryConfig holds entity registry settings.
type RegistryConfig struct {
	SweepInterval time.Duration `koanf:"sweep_interval"` // default: 5m
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string `koanf:"level"`   // zerolog level name (default: "info")
	Console *bool  `koanf:"console"` // human readable output (default: true)
}

func Load() (*Config, error) {
	return LoadFrom(getConfigPaths()...)
}

// LoadFrom loads the given files in order, later files overriding earlier
// ones. Missing files are skipped.
func LoadFrom(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Database.Path = expandPath(cfg.Database.Path)
	for i, mp := range cfg.Collection.MountPoints {
		cfg.Collection.MountPoints[i] = expandPath(mp)
	}
	for i, db := range cfg.Collection.Databases {
		cfg.Collection.Databases[i] = expandPath(db)
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. $XDG_CONFIG_HOME/shoal/config.toml
	paths = append(paths, filepath.Join(xdg.ConfigHome, appName, "config.toml"))

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// DatabasePath returns the configured database path, or the default one in
// the XDG data directory, creating its parent directory.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// GetQueryConfig returns the query configuration with defaults applied.
func (c *Config) GetQueryConfig() QueryConfig {
	cfg := c.Query

	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return cfg
}

// GetRegistryConfig returns the registry configuration with defaults applied.
func (c *Config) GetRegistryConfig() RegistryConfig {
	cfg := c.Registry

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}

	return cfg
}

// GetLogConfig returns the log configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log

	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Console == nil {
		console := true
		cfg.Console = &console
	}

	return cfg
}
