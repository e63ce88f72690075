package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete keepfs configuration.
//
// This structure captures all configurable aspects of keepfs:
//   - Logging configuration
//   - File store behavior (placement, codecs, index location)
//   - Content store selection and configuration (store-specific)
//   - Metadata store selection and configuration (store-specific)
//   - Metrics endpoint
//   - Background scrubbing
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (KEEPFS_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each backend defines its own configuration type. The Config struct carries
// type-specific sections (e.g., content.filesystem, metadata.bolt) and only
// the section matching the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Store controls how the file store places and encodes files
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Content specifies the content store type and type-specific configuration
	Content ContentConfig `mapstructure:"content" yaml:"content"`

	// Metadata specifies the metadata store type and type-specific configuration
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Scrub configures the background integrity scrubber
	Scrub ScrubConfig `mapstructure:"scrub" yaml:"scrub"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path (rotated)
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// StoreConfig controls file placement and the codecs used for new files.
//
// Codec choices only affect files written from now on: every entry records
// the cipher, compression and hash algorithm it was written with.
type StoreConfig struct {
	// BaseDirectory is where files go when no directory is given.
	// Relative to the content store root; empty means the root itself.
	BaseDirectory string `mapstructure:"base_directory" yaml:"base_directory"`

	// DefaultExtension is used when a file is created without one
	DefaultExtension string `mapstructure:"default_extension" yaml:"default_extension" validate:"required,excludesall=/\\"`

	// IndexPath is where the name index is kept inside the content store
	IndexPath string `mapstructure:"index_path" yaml:"index_path" validate:"required"`

	// KeyPrefix namespaces entries inside the metadata store
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix" validate:"required"`

	// Cipher for encrypted files
	// Valid values: aes-ctr, xchacha20
	Cipher string `mapstructure:"cipher" yaml:"cipher" validate:"required,oneof=aes-ctr xchacha20"`

	// Compression algorithm for compressed files
	// Valid values: gzip, zstd, lz4
	Compression string `mapstructure:"compression" yaml:"compression" validate:"required,oneof=gzip zstd lz4"`

	// Hash algorithm for new witnesses
	// Valid values: sha256, sha1, blake3
	Hash string `mapstructure:"hash" yaml:"hash" validate:"required,oneof=sha256 sha1 blake3"`
}

// ContentConfig specifies content store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type ContentConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

// MetadataConfig specifies metadata store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type MetadataConfig struct {
	// Type specifies which metadata store implementation to use
	// Valid values: memory, badger, bolt, sqlite, consul
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger bolt sqlite consul"`

	// Memory contains memory-specific configuration (currently none)
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`

	// Bolt contains bbolt-specific configuration
	// Only used when Type = "bolt"
	Bolt map[string]any `mapstructure:"bolt" yaml:"bolt,omitempty"`

	// SQLite contains SQLite-specific configuration
	// Only used when Type = "sqlite"
	SQLite map[string]any `mapstructure:"sqlite" yaml:"sqlite,omitempty"`

	// Consul contains Consul KV-specific configuration
	// Only used when Type = "consul"
	Consul map[string]any `mapstructure:"consul" yaml:"consul,omitempty"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the HTTP endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port serving /metrics
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// ScrubConfig configures the background integrity scrubber.
type ScrubConfig struct {
	// Interval between passes in watch mode
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"gt=0"`

	// Rate is the maximum number of files checked per second (0 = unlimited)
	Rate float64 `mapstructure:"rate" yaml:"rate" validate:"gte=0"`

	// Burst is how many files may be checked back to back
	Burst int `mapstructure:"burst" yaml:"burst" validate:"gte=1"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (KEEPFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys lists every scalar key that may be overridden from the
// environment. viper's AutomaticEnv only consults the environment for keys
// it already knows about, so keys absent from the config file are bound
// explicitly.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"store.base_directory",
	"store.default_extension",
	"store.index_path",
	"store.key_prefix",
	"store.cipher",
	"store.compression",
	"store.hash",
	"content.type",
	"metadata.type",
	"metrics.enabled",
	"metrics.port",
	"scrub.interval",
	"scrub.rate",
	"scrub.burst",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the KEEPFS_ prefix and underscores
	// Example: KEEPFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("KEEPFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/keepfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "keepfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "keepfs")
}

// getDataDir returns the directory holding local store state.
//
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share, or falls back to
// ./keepfs-data if the home directory cannot be determined.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "keepfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "keepfs-data"
	}

	return filepath.Join(home, ".local", "share", "keepfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
