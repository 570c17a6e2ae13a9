// Package config loads focuslock configuration.
//
// Values are resolved in order: built-in defaults, then an optional YAML
// file (--config flag or FOCUSLOCK_CONFIG), then FOCUSLOCK_* environment
// variables. Paths left empty are derived from the data directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FOCUSLOCK_"

// ConfigEnv names the variable holding the config file path.
const ConfigEnv = EnvPrefix + "CONFIG"

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverSQLite    = "sqlite"
	DriverSQLCipher = "sqlcipher"
)

// Config is the full focuslock configuration.
type Config struct {
	// DataDir holds the store, key, registry and snapshot files.
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`

	Server      ServerConfig      `yaml:"server" envPrefix:"SERVER_"`
	Store       StoreConfig       `yaml:"store" envPrefix:"STORE_"`
	Reconciler  ReconcilerConfig  `yaml:"reconciler" envPrefix:"RECONCILER_"`
	Enforcement EnforcementConfig `yaml:"enforcement" envPrefix:"ENFORCEMENT_"`
	Log         LogConfig         `yaml:"log" envPrefix:"LOG_"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
	// Token, when set, is required as a bearer token on every request.
	Token string `yaml:"token" env:"TOKEN"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
	// Key is a base64 sqlcipher key. Empty means a generated key file.
	Key string `yaml:"key" env:"KEY"`
}

// ReconcilerConfig configures the background reconcile loop.
type ReconcilerConfig struct {
	Interval  time.Duration `yaml:"interval" env:"INTERVAL"`
	Heartbeat time.Duration `yaml:"heartbeat" env:"HEARTBEAT"`
}

// EnforcementConfig configures how the effective block set leaves the process.
type EnforcementConfig struct {
	// Enabled turns on the built-in process enforcer.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// SnapshotPath is where the block set is published for external drivers.
	SnapshotPath string `yaml:"snapshot_path" env:"SNAPSHOT_PATH"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string   `yaml:"level" env:"LEVEL"`
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS" envSeparator:","`
	// BufferSize is how many recent entries /api/logs can return.
	BufferSize int `yaml:"buffer_size" env:"BUFFER_SIZE"`
}

// Default returns the built-in configuration. Paths stay empty until
// Resolve derives them from DataDir.
func Default() *Config {
	return &Config{
		DataDir: DetectExecMode().DataDir,
		Server: ServerConfig{
			Addr: "127.0.0.1:7420",
		},
		Store: StoreConfig{
			Driver: DriverMemory,
		},
		Reconciler: ReconcilerConfig{
			Interval:  5 * time.Second,
			Heartbeat: 30 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			BufferSize: 500,
		},
	}
}

// Load builds the configuration. An empty path falls back to
// FOCUSLOCK_CONFIG; with neither set no file is read.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Resolve fills empty paths from DataDir.
func (c *Config) Resolve() {
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "focuslock.db")
	}
	if c.Enforcement.SnapshotPath == "" {
		c.Enforcement.SnapshotPath = filepath.Join(c.DataDir, "blockset.json")
	}
	if len(c.Log.OutputPaths) == 0 {
		c.Log.OutputPaths = []string{filepath.Join(c.DataDir, "focuslock.log")}
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must be set"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite, DriverSQLCipher:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be one of memory, sqlite, sqlcipher", c.Store.Driver))
	}
	if c.Reconciler.Interval <= 0 {
		errs = append(errs, errors.New("reconciler.interval must be positive"))
	}
	if c.Reconciler.Heartbeat <= 0 {
		errs = append(errs, errors.New("reconciler.heartbeat must be positive"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.BufferSize <= 0 {
		errs = append(errs, errors.New("log.buffer_size must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
