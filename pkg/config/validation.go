package config

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if err := validateStorePath("store.base_directory", cfg.Store.BaseDirectory, true); err != nil {
		return err
	}
	if err := validateStorePath("store.index_path", cfg.Store.IndexPath, false); err != nil {
		return err
	}

	// The index is a regular file: it cannot be the base directory itself
	if path.Clean(cfg.Store.IndexPath) == path.Clean(cfg.Store.BaseDirectory) {
		return fmt.Errorf("store.index_path: must differ from store.base_directory")
	}

	if err := validateBackendSection("content", cfg.Content.Type, map[string]map[string]any{
		"filesystem": cfg.Content.Filesystem,
		"s3":         cfg.Content.S3,
	}, map[string][]string{
		"filesystem": {"path"},
		"s3":         {"bucket", "region"},
	}); err != nil {
		return err
	}

	metadataRequired := map[string][]string{
		"bolt":   {"path"},
		"sqlite": {"path"},
	}
	if inMemory, _ := cfg.Metadata.Badger["in_memory"].(bool); !inMemory {
		metadataRequired["badger"] = []string{"db_path"}
	}
	if err := validateBackendSection("metadata", cfg.Metadata.Type, map[string]map[string]any{
		"badger": cfg.Metadata.Badger,
		"bolt":   cfg.Metadata.Bolt,
		"sqlite": cfg.Metadata.SQLite,
	}, metadataRequired); err != nil {
		return err
	}

	return nil
}

// validateStorePath checks a path relative to the content store root.
func validateStorePath(field, p string, allowEmpty bool) error {
	if p == "" {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%s: must not be empty", field)
	}
	if strings.Contains(p, "\\") {
		return fmt.Errorf("%s: use forward slashes (got %q)", field, p)
	}
	clean := path.Clean(strings.TrimPrefix(p, "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%s: must stay inside the content store (got %q)", field, p)
	}
	return nil
}

// validateBackendSection checks that the section of the selected backend
// carries the keys it cannot work without.
func validateBackendSection(prefix, selected string, sections map[string]map[string]any, required map[string][]string) error {
	for _, key := range required[selected] {
		value, ok := sections[selected][key]
		if !ok || value == nil || value == "" {
			return fmt.Errorf("%s.%s.%s: required when %s.type is %q", prefix, selected, key, prefix, selected)
		}
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
