// Package config handles loading and validation of cicache configuration.
//
// # Configuration Sources (highest priority first)
//
//   - Command line flags (applied by the CLI)
//   - CICACHE_* environment variables
//   - .cicache.toml in the working directory
//   - ~/.config/cicache/config.toml
//   - Default values
//
// # Environment
//
//   - CICACHE_ENABLED: master switch, save and restore are no-ops when false
//   - CICACHE_SKIP_FAILURE: tolerate failing archives
//   - CICACHE_CONCURRENCY: archives written in parallel
//   - CICACHE_DIR, CICACHE_MAIN_BRANCH_DIR, CICACHE_DEFAULT_BRANCH_DIR: cache roots
//   - CICACHE_TAR, CICACHE_COMPRESSOR: archiver command line
//   - CICACHE_STATE_DIR: where restore hands the key to save
//
// # Path Validation
//
// Directory paths must be absolute or start with ~ (no relative paths like "."
// or "..") since CI steps rarely agree on a working directory.
package config
