package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/raphi011/cicache/internal/cmd"
	"github.com/raphi011/cicache/internal/keystore"
	"github.com/raphi011/cicache/internal/log"
	"github.com/raphi011/cicache/internal/pathcodec"
)

// DefaultConcurrency is the batch size used when none is configured.
const DefaultConcurrency = 10

// DisabledMessage is logged when the cache is switched off.
const DisabledMessage = "The cache function is unavailable. Set CICACHE_ENABLED=true (or enabled = true in the config file) to use the cache."

// Config controls an Engine.
type Config struct {
	Enabled          bool
	SkipFailure      bool
	ConcurrencyLimit int

	// Root is the cache root new entries are saved to.
	Root string
}

// CopyOptions control a restore.
type CopyOptions struct {
	// LookupOnly reports the matching key without extracting anything.
	LookupOnly bool
}

// Archiver writes one archive. The process it spawns must be tracked by
// sup so a failing save can kill it.
type Archiver interface {
	Archive(ctx context.Context, src, dest string, sup *cmd.Supervisor) error
}

// Extractor restores one archive file.
type Extractor interface {
	Extract(ctx context.Context, archiveFile string) error
}

// ProgressFunc is called after every finished archive or extraction.
type ProgressFunc func(done, total int)

// Option configures an Engine.
type Option func(*Engine)

// WithProgress registers fn to be called as work completes.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// Engine saves and restores cache entries.
type Engine struct {
	cfg       Config
	archiver  Archiver
	extractor Extractor
	progress  ProgressFunc
}

// New creates an Engine.
func New(cfg Config, archiver Archiver, extractor Extractor, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		archiver:  archiver,
		extractor: extractor,
		progress:  func(int, int) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) concurrency() int {
	if e.cfg.ConcurrencyLimit < 1 {
		return DefaultConcurrency
	}
	return e.cfg.ConcurrencyLimit
}

// Batches splits paths into consecutive slices of at most size elements.
func Batches(paths []string, size int) [][]string {
	if size < 1 {
		size = DefaultConcurrency
	}
	var batches [][]string
	for i := 0; i < len(paths); i += size {
		batches = append(batches, paths[i:min(i+size, len(paths))])
	}
	return batches
}

// Save archives paths under key and returns the number of archives written.
func (e *Engine) Save(ctx context.Context, paths []string, key string) (int, error) {
	l := log.FromContext(ctx)

	if !e.cfg.Enabled {
		l.Warnf("%s", DisabledMessage)
		return 0, nil
	}
	if err := CheckKey(key); err != nil {
		return 0, err
	}
	if err := CheckPaths(paths); err != nil {
		return 0, err
	}

	cleaned := make([]string, len(paths))
	for i, p := range paths {
		cleaned[i] = filepath.Clean(p)
	}
	paths = cleaned

	entryDir := keystore.EntryDir(e.cfg.Root, key)
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		return 0, fmt.Errorf("create cache entry %s: %w", entryDir, err)
	}

	sup := cmd.NewSupervisor()
	var written atomic.Int64

	for i, batch := range Batches(paths, e.concurrency()) {
		l.Printf("Saving batch %d; batch size: %d; total paths: %d.\n", i+1, len(batch), len(paths))

		if err := e.saveBatch(ctx, sup, entryDir, batch, len(paths), &written); err != nil {
			if e.cfg.SkipFailure {
				l.Warnf("Skipping remaining paths for key %q after failure", key)
				break
			}
			return int(written.Load()), err
		}
	}

	return int(written.Load()), nil
}

// saveBatch archives one batch concurrently and returns the first failure.
// Without skip-failure that failure kills every process tracked by sup.
func (e *Engine) saveBatch(ctx context.Context, sup *cmd.Supervisor, entryDir string, batch []string, total int, written *atomic.Int64) error {
	l := log.FromContext(ctx)

	var (
		g        errgroup.Group
		once     sync.Once
		firstErr error
	)
	for _, src := range batch {
		g.Go(func() error {
			dest := filepath.Join(entryDir, pathcodec.Encode(src))
			if err := e.archiver.Archive(ctx, src, dest, sup); err != nil {
				once.Do(func() {
					firstErr = err
					l.Warnf("Error during save: %v", err)
					if !e.cfg.SkipFailure {
						l.Println("Killing all running tar processes...")
						sup.KillAll(ctx)
					}
				})
				return err
			}
			e.progress(int(written.Add(1)), total)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return firstErr
	}
	return nil
}

// Restore restores the first of primaryKey and fallbackKeys that has an
// entry in roots and returns that key. A miss returns "", nil.
func (e *Engine) Restore(ctx context.Context, primaryKey string, fallbackKeys, roots []string, opts CopyOptions) (string, error) {
	l := log.FromContext(ctx)

	if !e.cfg.Enabled {
		l.Warnf("%s", DisabledMessage)
		return "", nil
	}
	if err := CheckKey(primaryKey); err != nil {
		return "", err
	}
	if len(roots) == 0 {
		return "", &ReservationError{Msg: "cache directories not provided, unable to restore cache"}
	}

	keys := append([]string{primaryKey}, fallbackKeys...)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if e.tryRestoreFromKey(ctx, key, roots, opts) {
			return key, nil
		}
	}

	l.Printf("Cache not found for keys: %s\n", strings.Join(keys, ", "))
	return "", nil
}

// tryRestoreFromKey reports whether key was found and restored.
func (e *Engine) tryRestoreFromKey(ctx context.Context, key string, roots []string, opts CopyOptions) bool {
	l := log.FromContext(ctx)

	files, _, ok := keystore.FilesFor(ctx, key, roots)
	if !ok {
		return false
	}
	l.Printf("Restoring cache for key: %s\n", key)

	if opts.LookupOnly {
		l.Printf("Only checking key %q. Skipping restore.\n", key)
		return true
	}

	var (
		g    errgroup.Group
		done atomic.Int64
	)
	for _, f := range files {
		g.Go(func() error {
			if err := e.extractor.Extract(ctx, f); err != nil {
				return err
			}
			e.progress(int(done.Add(1)), len(files))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Warnf("Restore failed for key %q: %v", key, err)
		return false
	}
	return true
}
