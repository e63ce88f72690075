package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/keepfs/pkg/codec/compression"
	"github.com/marmos91/keepfs/pkg/codec/encryption"
	"github.com/marmos91/keepfs/pkg/codec/integrity"
	"github.com/marmos91/keepfs/pkg/filestore"
	"github.com/marmos91/keepfs/pkg/metrics"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are handled by the backends themselves
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
	applyContentDefaults(&cfg.Content)
	applyMetadataDefaults(&cfg.Metadata)
	applyMetricsDefaults(&cfg.Metrics)
	applyScrubDefaults(&cfg.Scrub)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries command output (e.g. file content)
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyStoreDefaults sets file store defaults and normalizes codec names.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.DefaultExtension == "" {
		cfg.DefaultExtension = filestore.DefaultExtension
	}
	if cfg.IndexPath == "" {
		cfg.IndexPath = filestore.DefaultIndexPath
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = filestore.DefaultKeyPrefix
	}

	cfg.Cipher = strings.ToLower(cfg.Cipher)
	if cfg.Cipher == "" {
		cfg.Cipher = encryption.Default.String()
	}
	cfg.Compression = strings.ToLower(cfg.Compression)
	if cfg.Compression == "" {
		cfg.Compression = compression.Default.String()
	}
	cfg.Hash = strings.ToLower(cfg.Hash)
	if cfg.Hash == "" {
		cfg.Hash = integrity.Default.String()
	}
}

// applyContentDefaults sets content store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = defaultDataPath("files")
	}
}

// applyMetadataDefaults sets metadata store defaults.
func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "bolt"
	}

	if cfg.Bolt == nil {
		cfg.Bolt = make(map[string]any)
	}
	if _, ok := cfg.Bolt["path"]; !ok {
		cfg.Bolt["path"] = defaultDataPath("metadata.db")
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false
	if cfg.Port == 0 {
		cfg.Port = metrics.DefaultPort
	}
}

// applyScrubDefaults sets scrubber defaults.
func applyScrubDefaults(cfg *ScrubConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	// Rate defaults to 0 (unlimited)
	if cfg.Burst == 0 {
		cfg.Burst = 1
	}
}

// defaultDataPath places on-disk state under the data directory.
func defaultDataPath(name string) string {
	return filepath.Join(getDataDir(), name)
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Content: ContentConfig{
			Filesystem: make(map[string]any),
		},
		Metadata: MetadataConfig{
			Bolt: make(map[string]any),
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
