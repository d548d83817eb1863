package config

// MergeLocal merges a local per-project config into a global config,
// returning a new Config without mutating the global.
// Returns global unchanged if local is nil.
func MergeLocal(global *Config, local *LocalConfig) *Config {
	if local == nil {
		return global
	}

	// Dirs and StateDir are global-only and carried over by the copy.
	merged := *global

	if local.Enabled != nil {
		merged.Enabled = *local.Enabled
	}
	if local.SkipFailure != nil {
		merged.SkipFailure = *local.SkipFailure
	}
	if local.Concurrency != nil {
		merged.Concurrency = *local.Concurrency
	}
	if local.Tar.Compressor != "" {
		merged.Tar.Compressor = local.Tar.Compressor
	}

	return &merged
}
