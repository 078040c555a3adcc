package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AppName is the application directory name.
const AppName = "todo"

// Config holds all todo configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Task database
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Task screen
	UI UIConfig `yaml:"ui"`
}

// StoreConfig configures the SQLite task store.
type StoreConfig struct {
	// Path of the database file. Empty means <data dir>/tasks.db.
	Path string `yaml:"path"`

	// Driver is "sqlite3" (mattn, cgo) or "sqlite" (modernc, pure Go).
	Driver string `yaml:"driver"`

	BusyTimeout string `yaml:"busy_timeout"`
}

// LoggingConfig configures the category log files. Nothing is written unless
// DebugMode is set; unlisted categories are enabled.
type LoggingConfig struct {
	Level      string          `yaml:"level"`
	Format     string          `yaml:"format"`
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    AppName,
		Version: "1.0.0",

		Store: StoreConfig{
			Driver:      "sqlite3",
			BusyTimeout: "5s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},

		UI: *DefaultUIConfig(),
	}
}

// DefaultDataDir returns the default data directory.
// Uses XDG_DATA_HOME if set, otherwise $HOME/.local/share.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// DefaultConfigPath returns <dataDir>/config.yaml.
func DefaultConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults (plus environment overrides).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("TODO_DB"); path != "" {
		c.Store.Path = path
	}
	if driver := os.Getenv("TODO_DB_DRIVER"); driver != "" {
		c.Store.Driver = driver
	}
	if theme := os.Getenv("TODO_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if os.Getenv("TODO_DEBUG") == "1" {
		c.Logging.DebugMode = true
	}
}

// DatabasePath resolves the database file path against dataDir.
func (c *Config) DatabasePath(dataDir string) string {
	if c.Store.Path == "" {
		return filepath.Join(dataDir, "tasks.db")
	}
	if filepath.IsAbs(c.Store.Path) || c.Store.Path == ":memory:" {
		return c.Store.Path
	}
	return filepath.Join(dataDir, c.Store.Path)
}

// GetBusyTimeout returns the SQLite busy timeout as a duration.
func (c *Config) GetBusyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Store.BusyTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// ValidDrivers lists the registered SQLite drivers.
var ValidDrivers = []string{"sqlite3", "sqlite"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validDriver := false
	for _, d := range ValidDrivers {
		if c.Store.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid store driver: %s (valid: %v)", c.Store.Driver, ValidDrivers)
	}

	if err := c.UI.Validate(); err != nil {
		return err
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json)", c.Logging.Format)
	}

	return nil
}
