// Package config provides YAML-based configuration management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up next to the executable.
const FileName = "reviewer.yaml"

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Session     SessionConfig     `yaml:"session"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port                 int    `yaml:"port"`
	BindAddress          string `yaml:"bind_address"`
	ReadTimeout          int    `yaml:"read_timeout_seconds"`
	WriteTimeout         int    `yaml:"write_timeout_seconds"`
	IdleTimeout          int    `yaml:"idle_timeout_seconds"`
	BodyLimit            string `yaml:"body_limit"`
	EnableRequestLogging bool   `yaml:"enable_request_logging"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory    string `yaml:"data_directory"`
	UploadsDirectory string `yaml:"uploads_directory"`
	// MaxDecompressedMB bounds gzip uploads after inflation. 0 disables the check.
	MaxDecompressedMB int64 `yaml:"max_decompressed_mb"`
	DuckDBThreads     int   `yaml:"duckdb_threads"`
}

// SessionConfig contains cookie session settings
type SessionConfig struct {
	CookieName string `yaml:"cookie_name"`
	// Secret signs and encrypts the session cookie. Empty means a random
	// key per process, so sessions do not survive a restart.
	Secret        string `yaml:"secret"`
	MaxAgeMinutes int    `yaml:"max_age_minutes"`
	Secure        bool   `yaml:"secure"`
}

// MaintenanceConfig contains partition sweep settings
type MaintenanceConfig struct {
	MaxAgeHours int `yaml:"max_age_hours"`
	// IntervalMinutes schedules the sweep in-process. 0 leaves it to GET /cleanup.
	IntervalMinutes int `yaml:"interval_minutes"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:                 5000,
			BindAddress:          "0.0.0.0",
			ReadTimeout:          30,
			WriteTimeout:         60,
			IdleTimeout:          120,
			BodyLimit:            "64M",
			EnableRequestLogging: true,
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			UploadsDirectory:  "./data/uploads",
			MaxDecompressedMB: 256,
			DuckDBThreads:     2,
		},
		Session: SessionConfig{
			CookieName:    "review_session",
			MaxAgeMinutes: 24 * 60,
		},
		Maintenance: MaintenanceConfig{
			MaxAgeHours:     24,
			IntervalMinutes: 0,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "./data/logs/reviewer.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Path returns the config file location: $REVIEWER_CONFIG, or FileName in dir.
func Path(dir string) string {
	if p := os.Getenv("REVIEWER_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(dir, FileName)
}

// LoadConfig loads configuration from a YAML file, writing the defaults
// there first if it does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Link Review configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
	}

	if secret := os.Getenv("REVIEWER_SESSION_SECRET"); secret != "" {
		c.Session.Secret = secret
	}

	if level := os.Getenv("REVIEWER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.UploadsDirectory,
		&c.Logging.File,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SessionMaxAge returns the cookie lifetime.
func (c *AppConfig) SessionMaxAge() time.Duration {
	return time.Duration(c.Session.MaxAgeMinutes) * time.Minute
}

// PartitionMaxAge returns the age after which the sweep removes a partition.
func (c *AppConfig) PartitionMaxAge() time.Duration {
	return time.Duration(c.Maintenance.MaxAgeHours) * time.Hour
}

// SweepInterval returns the in-process sweep period, zero when disabled.
func (c *AppConfig) SweepInterval() time.Duration {
	return time.Duration(c.Maintenance.IntervalMinutes) * time.Minute
}

// MaxDecompressedBytes returns the inflated upload limit in bytes.
func (c *AppConfig) MaxDecompressedBytes() int64 {
	return c.Storage.MaxDecompressedMB << 20
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
	}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
