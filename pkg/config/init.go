package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# keepfs Configuration File
#
# Values can be overridden with KEEPFS_* environment variables, using
# underscores for nesting (e.g. KEEPFS_LOGGING_LEVEL=DEBUG).
#
# Only the section matching content.type and metadata.type is used; the
# other backend sections may be left out.
`

// sectionComments are written above each top-level section.
var sectionComments = map[string]string{
	"logging": "Logging\n  level: DEBUG, INFO, WARN, ERROR\n  format: text, json\n  output: stdout, stderr or a file path (rotated)",
	"store": "File store\n  base_directory: where files go when no directory is given\n" +
		"  cipher: aes-ctr, xchacha20\n  compression: gzip, zstd, lz4\n  hash: sha256, sha1, blake3",
	"content":  "Content store holding the file bytes\n  type: filesystem, memory, s3",
	"metadata": "Metadata store holding one record per registered file\n  type: memory, badger, bolt, sqlite, consul",
	"metrics":  "Prometheus endpoint (/metrics), used by 'keepfs scrub --watch'",
	"scrub":    "Integrity scrubber\n  rate: files per second, 0 for unlimited",
}

// InitConfig writes a default configuration file to the default location.
//
// Parameters:
//   - force: Overwrite an existing file
//
// Returns:
//   - string: Path of the written file
//   - error: If the file exists and force is false, or on I/O failure
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()
	if err := InitConfigToPath(configPath, force); err != nil {
		return "", err
	}
	return configPath, nil
}

// InitConfigToPath writes a default configuration file to configPath,
// creating parent directories as needed.
func InitConfigToPath(configPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML with a file header and a
// comment above every top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	// Mapping content alternates key and value nodes
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.WriteString("\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	return buf.String(), nil
}
