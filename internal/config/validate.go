package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePath checks that the path is absolute or starts with ~
// Returns error if path is relative (like "." or "..")
func ValidatePath(path, fieldName string) error {
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, "~") {
		return nil
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%s must be absolute or start with ~, got: %q", fieldName, path)
	}
	return nil
}

// Validate checks the settings that cannot be corrected silently.
func (c *Config) Validate() error {
	paths := []struct {
		value, field string
	}{
		{c.Dirs.Cache, "dirs.cache"},
		{c.Dirs.MainBranch, "dirs.main_branch"},
		{c.Dirs.DefaultBranch, "dirs.default_branch"},
		{c.StateDir, "state_dir"},
	}
	for _, p := range paths {
		if err := ValidatePath(p.value, p.field); err != nil {
			return err
		}
	}

	if c.Dirs.Cache == "" {
		return fmt.Errorf("dirs.cache must not be empty")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency %d: must be at least 1", c.Concurrency)
	}
	if strings.TrimSpace(c.Tar.Command) == "" {
		return fmt.Errorf("tar.command must not be empty")
	}
	return nil
}
