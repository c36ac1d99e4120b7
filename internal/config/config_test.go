//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/music",
			expected: filepath.Join(home, "music"),
		},
		{
			name:     "tilde with nested path",
			input:    "~/music/library/albums",
			expected: filepath.Join(home, "music", "library", "albums"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/usr/local/music",
			expected: "/usr/local/music",
		},
		{
			name:     "relative path unchanged",
			input:    "music/albums",
			expected: "music/albums",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) != 2 {
		t.Fatalf("getConfigPaths() returned %d paths, want 2", len(paths))
	}

	expectedFirst := filepath.Join(xdg.ConfigHome, "shoal", "config.toml")
	if paths[0] != expectedFirst {
		t.Errorf("first config path = %q, want %q", paths[0], expectedFirst)
	}

	// Last path should be local config.toml
	if paths[1] != "config.toml" {
		t.Errorf("last config path = %q, want %q", paths[1], "config.toml")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	path := writeConfig(t, `
[database]
path = "/var/lib/shoal/collection.db"

[collection]
mount_points = ["/music", "/mnt/usb"]

[query]
workers = 8
batch_size = 100
timeout = "30s"

[registry]
sweep_interval = "1m"

[log]
level = " DEBUG "
console = false
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/shoal/collection.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if len(cfg.Collection.MountPoints) != 2 || cfg.Collection.MountPoints[1] != "/mnt/usb" {
		t.Errorf("Collection.MountPoints = %v", cfg.Collection.MountPoints)
	}

	q := cfg.GetQueryConfig()
	if q.Workers != 8 || q.BatchSize != 100 || q.Timeout != 30*time.Second {
		t.Errorf("GetQueryConfig() = %+v", q)
	}
	if got := cfg.GetRegistryConfig().SweepInterval; got != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", got)
	}

	l := cfg.GetLogConfig()
	if l.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", l.Level, "debug")
	}
	if l.Console == nil || *l.Console {
		t.Errorf("Log.Console = %v, want false", l.Console)
	}
}

func TestLoadFrom_LastFileWins(t *testing.T) {
	first := writeConfig(t, "[query]\nworkers = 2\nbatch_size = 50\n")
	second := writeConfig(t, "[query]\nworkers = 6\n")

	cfg, err := LoadFrom(first, second, filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Query.Workers != 6 {
		t.Errorf("Workers = %d, want 6", cfg.Query.Workers)
	}
	if cfg.Query.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.Query.BatchSize)
	}
}

func TestLoadFrom_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "[query\nworkers = ")
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() expected error for invalid TOML")
	}
}

func TestLoadFrom_ExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	path := writeConfig(t, "[database]\npath = \"~/shoal.db\"\n[collection]\nmount_points = [\"~/Music\"]\ndatabases = [\"~/backup.db\"]\n")
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Database.Path != filepath.Join(home, "shoal.db") {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Collection.MountPoints[0] != filepath.Join(home, "Music") {
		t.Errorf("MountPoints[0] = %q", cfg.Collection.MountPoints[0])
	}
	if len(cfg.Collection.Databases) != 1 || cfg.Collection.Databases[0] != filepath.Join(home, "backup.db") {
		t.Errorf("Databases = %q", cfg.Collection.Databases)
	}
}

func TestDatabasePath_Configured(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Path: "/tmp/x.db"}}
	got, err := cfg.DatabasePath()
	if err != nil {
		t.Fatalf("DatabasePath() error = %v", err)
	}
	if got != "/tmp/x.db" {
		t.Errorf("DatabasePath() = %q", got)
	}
}

func TestDefaults(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   QueryConfig
	}{
		{
			name:   "zero values get defaults",
			config: Config{},
			want:   QueryConfig{Workers: 4, BatchSize: 500, Timeout: 15 * time.Second},
		},
		{
			name:   "negative values get defaults",
			config: Config{Query: QueryConfig{Workers: -1, BatchSize: -5, Timeout: -time.Second}},
			want:   QueryConfig{Workers: 4, BatchSize: 500, Timeout: 15 * time.Second},
		},
		{
			name:   "set values kept",
			config: Config{Query: QueryConfig{Workers: 1, BatchSize: 10, Timeout: time.Second}},
			want:   QueryConfig{Workers: 1, BatchSize: 10, Timeout: time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.config.GetQueryConfig()
			if got != tt.want {
				t.Errorf("GetQueryConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}

	var empty Config
	if got := empty.GetRegistryConfig().SweepInterval; got != 5*time.Minute {
		t.Errorf("default SweepInterval = %v, want 5m", got)
	}
	l := empty.GetLogConfig()
	if l.Level != "info" || l.Console == nil || !*l.Console {
		t.Errorf("default LogConfig = %+v", l)
	}
}
