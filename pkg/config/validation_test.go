package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config that passes validation and touches no disk.
func validConfig() *Config {
	cfg := &Config{
		Content:  ContentConfig{Type: "memory", Filesystem: map[string]any{"path": "/tmp/keepfs"}},
		Metadata: MetadataConfig{Type: "memory", Bolt: map[string]any{"path": "/tmp/keepfs.db"}},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	for _, level := range []string{"debug", "Info", "WARN", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		ApplyDefaults(cfg)
		assert.NoError(t, Validate(cfg), "level %q", level)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.Logging.Level = "TRACE" }, "Level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "Format"},
		{"content type", func(c *Config) { c.Content.Type = "ftp" }, "Content.Type"},
		{"metadata type", func(c *Config) { c.Metadata.Type = "redis" }, "Metadata.Type"},
		{"cipher", func(c *Config) { c.Store.Cipher = "des" }, "Cipher"},
		{"compression", func(c *Config) { c.Store.Compression = "brotli" }, "Compression"},
		{"hash", func(c *Config) { c.Store.Hash = "md5" }, "Hash"},
		{"extension with separator", func(c *Config) { c.Store.DefaultExtension = "a/b" }, "DefaultExtension"},
		{"metrics port", func(c *Config) { c.Metrics.Port = 70000 }, "Port"},
		{"scrub interval", func(c *Config) { c.Scrub.Interval = -1 }, "Interval"},
		{"scrub rate", func(c *Config) { c.Scrub.Rate = -1 }, "Rate"},
		{"scrub burst", func(c *Config) { c.Scrub.Burst = 0 }, "Burst"},
		{"base directory escapes", func(c *Config) { c.Store.BaseDirectory = "../outside" }, "store.base_directory"},
		{"index path escapes", func(c *Config) { c.Store.IndexPath = "a/../../names" }, "store.index_path"},
		{"backslash in index path", func(c *Config) { c.Store.IndexPath = `meta\names` }, "store.index_path"},
		{"index equals base directory", func(c *Config) {
			c.Store.BaseDirectory = "vault"
			c.Store.IndexPath = "vault/"
		}, "must differ"},
		{"filesystem without path", func(c *Config) {
			c.Content.Type = "filesystem"
			c.Content.Filesystem = map[string]any{}
		}, "content.filesystem.path"},
		{"s3 without bucket", func(c *Config) {
			c.Content.Type = "s3"
			c.Content.S3 = map[string]any{"region": "eu-west-1"}
		}, "content.s3.bucket"},
		{"bolt without path", func(c *Config) {
			c.Metadata.Type = "bolt"
			c.Metadata.Bolt = nil
		}, "metadata.bolt.path"},
		{"badger without db_path", func(c *Config) { c.Metadata.Type = "badger" }, "metadata.badger.db_path"},
		{"sqlite without path", func(c *Config) { c.Metadata.Type = "sqlite" }, "metadata.sqlite.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ConsulNeedsNoSection(t *testing.T) {
	// The Consul client falls back to the local agent
	cfg := validConfig()
	cfg.Metadata.Type = "consul"
	assert.NoError(t, Validate(cfg))
}
