package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/raphi011/cicache/internal/archive"
)

// Default cache roots, highest priority first.
const (
	DefaultCacheDir         = "/.cicache/cache"
	DefaultMainBranchDir    = "/.cicache/master-branch-cache"
	DefaultDefaultBranchDir = "/.cicache/default-branch-cache"
)

// DefaultConcurrency is the number of archives written in parallel.
const DefaultConcurrency = 10

// NoCompressor disables the tar -I flag when used as tar.compressor.
const NoCompressor = "none"

// DirsConfig holds the cache roots.
type DirsConfig struct {
	Cache         string `toml:"cache" json:"cache" env:"CICACHE_DIR"`                                  // current branch, saves go here
	MainBranch    string `toml:"main_branch" json:"main_branch" env:"CICACHE_MAIN_BRANCH_DIR"`          // main-line cache
	DefaultBranch string `toml:"default_branch" json:"default_branch" env:"CICACHE_DEFAULT_BRANCH_DIR"` // default branch cache
}

// TarConfig holds the archiver command line.
type TarConfig struct {
	Command    string `toml:"command" json:"command" env:"CICACHE_TAR"`
	Compressor string `toml:"compressor" json:"compressor" env:"CICACHE_COMPRESSOR"` // "none" disables compression
}

// Config holds the cicache configuration
type Config struct {
	Enabled     bool       `toml:"enabled" json:"enabled" env:"CICACHE_ENABLED"`
	SkipFailure bool       `toml:"skip_failure" json:"skip_failure" env:"CICACHE_SKIP_FAILURE"`
	Concurrency int        `toml:"concurrency" json:"concurrency" env:"CICACHE_CONCURRENCY"`
	StateDir    string     `toml:"state_dir" json:"state_dir" env:"CICACHE_STATE_DIR"`
	Dirs        DirsConfig `toml:"dirs" json:"dirs"`
	Tar         TarConfig  `toml:"tar" json:"tar"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Enabled:     false,
		Concurrency: DefaultConcurrency,
		Dirs: DirsConfig{
			Cache:         DefaultCacheDir,
			MainBranch:    DefaultMainBranchDir,
			DefaultBranch: DefaultDefaultBranchDir,
		},
		Tar: TarConfig{
			Command:    archive.DefaultCommand,
			Compressor: archive.DefaultCompressor,
		},
	}
}

// Roots returns the cache roots in restore order.
func (c *Config) Roots() []string {
	var roots []string
	for _, dir := range []string{c.Dirs.Cache, c.Dirs.MainBranch, c.Dirs.DefaultBranch} {
		if dir != "" {
			roots = append(roots, dir)
		}
	}
	return roots
}

// Tool returns the archiver described by the tar settings.
func (c *Config) Tool() archive.Tool {
	compressor := c.Tar.Compressor
	if strings.EqualFold(compressor, NoCompressor) {
		compressor = ""
	}
	return archive.Tool{Command: c.Tar.Command, Compressor: compressor}
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	return path, nil
}

// Path returns the path to the global config file
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cicache", "config.toml"), nil
}

// Load reads the global config file, the local .cicache.toml in dir and
// the environment, in that order of increasing priority.
// A missing file is not an error.
func Load(dir string) (Config, error) {
	path, err := Path()
	if err != nil {
		path = ""
	}
	return LoadFrom(path, dir)
}

// LoadFrom is like Load but reads the global config from path.
// An empty path skips the global file.
func LoadFrom(path, dir string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Default(), err
		}
	}

	if dir != "" {
		local, err := LoadLocal(dir)
		if err != nil {
			return Default(), err
		}
		cfg = *MergeLocal(&cfg, local)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return Default(), err
	}

	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	if err := cfg.expand(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// expand resolves ~ in every directory setting.
func (c *Config) expand() error {
	for _, p := range []*string{&c.Dirs.Cache, &c.Dirs.MainBranch, &c.Dirs.DefaultBranch, &c.StateDir} {
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

const defaultConfig = `# cicache configuration
#
# Environment variables (CICACHE_*) override every setting in this file.

# Master switch. Save and restore are no-ops while disabled.
# Env: CICACHE_ENABLED
enabled = false

# Keep going when a single archive fails to save or extract.
# Env: CICACHE_SKIP_FAILURE
skip_failure = false

# Number of paths archived in parallel during save.
# Env: CICACHE_CONCURRENCY
concurrency = 10

# Where restore leaves the key for the following save.
# Defaults to $RUNNER_TEMP/cicache, then the system temp dir.
# Env: CICACHE_STATE_DIR
# state_dir = "/tmp/cicache"

# Cache roots, searched in this order on restore. Saves always go to "cache".
# Paths must be absolute or start with ~.
[dirs]
cache = "/.cicache/cache"                         # CICACHE_DIR
main_branch = "/.cicache/master-branch-cache"     # CICACHE_MAIN_BRANCH_DIR
default_branch = "/.cicache/default-branch-cache" # CICACHE_DEFAULT_BRANCH_DIR

[tar]
command = "tar"      # CICACHE_TAR
compressor = "pigz"  # CICACHE_COMPRESSOR, "none" disables compression
`

// Init creates a default config file at ~/.config/cicache/config.toml
// If force is true, overwrites existing file
// Returns the path to the created file
func Init(force bool) (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}
	return path, InitAt(path, force)
}

// InitAt writes the default config file to path.
func InitAt(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New("config file already exists: " + path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfig), 0o644)
}

// DefaultConfig returns the default configuration file content.
func DefaultConfig() string {
	return defaultConfig
}
