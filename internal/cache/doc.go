// Package cache implements the cache engine: saving a list of paths under a
// key and restoring them from the first of several keys that has an entry.
//
// # Saving
//
// [Engine.Save] validates the key and paths, creates <root>/<key>/ and
// archives every path into its own file named after the encoded path (see
// package pathcodec). Paths are processed in batches of at most
// ConcurrencyLimit archives; a batch runs concurrently and must finish
// before the next one starts.
//
// When an archive in a batch fails the engine either aborts, killing every
// tar process it started for this save and returning the error, or (with
// SkipFailure) waits for the batch, skips the rest and reports success.
//
// # Restoring
//
// [Engine.Restore] tries the primary key, then each fallback key in order.
// For each key the first cache root holding archive files wins; entries are
// never merged across roots. A miss is reported as "", nil.
//
// # Feature Gate
//
// A disabled engine logs [DisabledMessage] and turns both operations into
// no-ops without validating their arguments.
package cache
