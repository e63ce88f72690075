package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	tmpDir := isolate(t)

	configPath, err := InitConfig(false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, ".config", "keepfs", "config.yaml"), configPath)

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)

	for _, section := range []string{
		"# keepfs Configuration File",
		"logging:",
		"store:",
		"content:",
		"metadata:",
		"metrics:",
		"scrub:",
	} {
		assert.Contains(t, string(content), section)
	}

	var cfg Config
	require.NoError(t, yaml.Unmarshal(content, &cfg), "generated config is not valid YAML")
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	isolate(t)

	_, err := InitConfig(false)
	require.NoError(t, err)

	_, err = InitConfig(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInitConfig_ForceOverwrite(t *testing.T) {
	isolate(t)

	configPath, err := InitConfig(false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, []byte("# Modified"), 0644))

	newPath, err := InitConfig(true)
	require.NoError(t, err)
	assert.Equal(t, configPath, newPath)

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# keepfs Configuration File")
}

func TestInitConfigToPath_CreatesParents(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "custom", "keepfs.yaml")

	require.NoError(t, InitConfigToPath(configPath, false))
	assert.FileExists(t, configPath)
}

func TestInitConfigToPath_AlreadyExists(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("existing"), 0644))

	err := InitConfigToPath(configPath, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(content))
}

func TestGenerateYAMLWithComments(t *testing.T) {
	isolate(t)

	out, err := generateYAMLWithComments(GetDefaultConfig())
	require.NoError(t, err)

	assert.Contains(t, out, "# Logging")
	assert.Contains(t, out, "# Integrity scrubber")
	assert.Contains(t, out, "cipher: aes-ctr")
	assert.Contains(t, out, "index_path: fileNames.save")
	assert.Contains(t, out, "interval: 1h0m0s")
}

func TestGeneratedConfigIsLoadable(t *testing.T) {
	tmpDir := isolate(t)
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, InitConfigToPath(configPath, false))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	defaults := GetDefaultConfig()
	assert.Equal(t, defaults.Store, cfg.Store)
	assert.Equal(t, defaults.Scrub, cfg.Scrub)
	assert.Equal(t, defaults.Metrics, cfg.Metrics)
	assert.Equal(t, "filesystem", cfg.Content.Type)
	assert.Equal(t, defaults.Content.Filesystem["path"], cfg.Content.Filesystem["path"])
	assert.Equal(t, "bolt", cfg.Metadata.Type)
}
