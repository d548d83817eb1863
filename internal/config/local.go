package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LocalConfigFileName is the per-project override file.
const LocalConfigFileName = ".cicache.toml"

// LocalConfig holds per-project overrides from .cicache.toml.
// Nil pointers and empty strings mean "not set" (inherit from global).
// Cache roots are shared between projects and can't be overridden here.
type LocalConfig struct {
	Enabled     *bool    `toml:"enabled"`
	SkipFailure *bool    `toml:"skip_failure"`
	Concurrency *int     `toml:"concurrency"`
	Tar         LocalTar `toml:"tar"`
}

// LocalTar holds local archiver overrides
type LocalTar struct {
	Compressor string `toml:"compressor"`
}

// LoadLocal reads .cicache.toml from dir.
// Returns nil (no error) if the file doesn't exist.
func LoadLocal(dir string) (*LocalConfig, error) {
	configFile := filepath.Join(dir, LocalConfigFileName)

	data, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read local config %s: %w", configFile, err)
	}

	var local LocalConfig
	md, err := toml.Decode(string(data), &local)
	if err != nil {
		return nil, fmt.Errorf("failed to parse local config %s: %w", configFile, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unsupported setting %q in %s", undecoded[0].String(), configFile)
	}

	if local.Concurrency != nil && *local.Concurrency < 1 {
		return nil, fmt.Errorf("invalid concurrency %d in %s: must be at least 1", *local.Concurrency, configFile)
	}

	return &local, nil
}

// defaultLocalConfig is the template for cicache config init --local
const defaultLocalConfig = `# cicache local config (per-project overrides)
# Place this file in the directory cicache runs from.
# Settings here override ~/.config/cicache/config.toml for this project only.
# Environment variables still take precedence.

# enabled = true
# skip_failure = true
# concurrency = 4

# [tar]
# compressor = "zstd"
`

// DefaultLocalConfig returns the default local configuration template content.
func DefaultLocalConfig() string {
	return defaultLocalConfig
}
