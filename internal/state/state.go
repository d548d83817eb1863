// Package state persists what restore learned so a later save in the
// same job can reuse it.
//
// The state lives in a single JSON file guarded by a flock lock, since
// restore and save run as separate processes and may overlap when a job
// runs several cache steps in parallel.
package state

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphi011/cicache/internal/storage"
)

const (
	fileName = "state.json"
	lockName = "state.lock"
)

// State is what restore hands over to save.
type State struct {
	PrimaryKey string `json:"primary_key,omitempty"`
	MatchedKey string `json:"matched_key,omitempty"`
}

// Store reads and writes the state file in Dir.
type Store struct {
	Dir string
}

// DefaultDir returns the state directory: override if non-empty, else
// $RUNNER_TEMP/cicache, else <tmp>/cicache/<job> when the CI job can be
// identified, else <tmp>/cicache.
func DefaultDir(override string) string {
	if override != "" {
		return override
	}
	if tmp := os.Getenv("RUNNER_TEMP"); tmp != "" {
		return filepath.Join(tmp, "cicache")
	}
	dir := filepath.Join(os.TempDir(), "cicache")
	if id := jobID(); id != "" {
		return filepath.Join(dir, id)
	}
	return dir
}

// jobID identifies the running CI job from GitLab, GitHub or Jenkins
// variables. The result is a single path segment.
func jobID() string {
	id := os.Getenv("CI_JOB_ID")
	if id == "" {
		if run := os.Getenv("GITHUB_RUN_ID"); run != "" {
			id = run
			if job := os.Getenv("GITHUB_JOB"); job != "" {
				id += "-" + job
			}
		}
	}
	if id == "" {
		id = os.Getenv("BUILD_TAG")
	}
	id = strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(id)
	if id == "." || id == ".." {
		return ""
	}
	return id
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return filepath.Join(s.Dir, fileName)
}

// Load reads the current state. A missing state file yields a zero State.
func (s *Store) Load(ctx context.Context) (State, error) {
	var st State
	err := s.withLock(ctx, func() error {
		var err error
		st, err = s.read()
		return err
	})
	return st, err
}

// Update applies fn to the current state and writes the result back
// while holding the lock.
func (s *Store) Update(ctx context.Context, fn func(*State)) error {
	return s.withLock(ctx, func() error {
		st, err := s.read()
		if err != nil {
			return err
		}
		fn(&st)
		return storage.SaveJSON(s.Path(), st)
	})
}

func (s *Store) read() (State, error) {
	var st State
	if err := storage.LoadJSON(s.Path(), &st); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, nil
		}
		return State{}, err
	}
	return st, nil
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if _, err := storage.EnsureDir(s.Dir); err != nil {
		return err
	}

	lock := NewFileLock(filepath.Join(s.Dir, lockName))
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer lock.Unlock()

	return fn()
}
