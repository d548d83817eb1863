// Package keystore maps cache keys to entry directories under an ordered
// list of cache roots.
//
// An entry is the directory <root>/<key>/; each regular file directly inside
// it is one archive. A root or entry that does not exist is simply empty.
package keystore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/raphi011/cicache/internal/log"
)

// Entry describes one cache entry on disk.
type Entry struct {
	Root    string    `json:"root"`
	Key     string    `json:"key"`
	Files   int       `json:"files"`
	Size    int64     `json:"size"`
	Updated time.Time `json:"updated"`
}

// EntryDir returns the entry directory for key under root.
func EntryDir(root, key string) string {
	return filepath.Join(root, key)
}

// FilesFor returns the archive files of key from the first root that has
// any, together with that root. ok is false when no root has the key.
func FilesFor(ctx context.Context, key string, roots []string) (files []string, root string, ok bool) {
	l := log.FromContext(ctx)

	for _, r := range roots {
		dir := EntryDir(r, key)
		files := archiveFiles(ctx, dir)
		if len(files) == 0 {
			continue
		}

		suffix := ""
		if len(files) > 1 {
			suffix = "s"
		}
		l.Printf("Found %d cache file%s for key '%s' in %s\n", len(files), suffix, key, dir)
		return files, r, true
	}
	return nil, "", false
}

// archiveFiles lists regular files directly under dir, sorted by name.
func archiveFiles(ctx context.Context, dir string) []string {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		log.FromContext(ctx).Debug("cache directory does not exist or is inaccessible", "dir", dir, "err", err)
		return nil
	}

	var files []string
	for _, d := range dirents {
		if d.Type().IsRegular() {
			files = append(files, filepath.Join(dir, d.Name()))
		}
	}
	return files
}

// Entries enumerates the entries of root, sorted by key.
// Keys containing path separators (nested directories) are reported as
// the directory that directly holds archive files.
func Entries(ctx context.Context, root string) ([]Entry, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.FromContext(ctx).Debug("skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}

		e, ok := entryAt(root, path)
		if ok {
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func entryAt(root, dir string) (Entry, bool) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return Entry{}, false
	}

	key, err := filepath.Rel(root, dir)
	if err != nil {
		return Entry{}, false
	}
	e := Entry{Root: root, Key: filepath.ToSlash(key)}
	for _, d := range dirents {
		if !d.Type().IsRegular() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		e.Files++
		e.Size += info.Size()
		if info.ModTime().After(e.Updated) {
			e.Updated = info.ModTime()
		}
	}
	return e, e.Files > 0
}
