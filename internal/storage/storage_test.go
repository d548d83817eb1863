package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadJSON(t *testing.T) {
	t.Parallel()

	type record struct {
		Key   string `json:"key"`
		Count int    `json:"count"`
	}

	path := filepath.Join(t.TempDir(), "nested", "dir", "record.json")
	want := record{Key: "deps-linux", Count: 3}

	if err := SaveJSON(path, want); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}

	var got record
	if err := LoadJSON(path, &got); err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	if got != want {
		t.Errorf("LoadJSON() = %+v, want %+v", got, want)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the target (no temp files)", len(entries))
	}
}

func TestSaveJSON_Overwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "v.json")
	for _, v := range []string{"first", "second"} {
		if err := SaveJSON(path, map[string]string{"v": v}); err != nil {
			t.Fatalf("SaveJSON(%s) error = %v", v, err)
		}
	}

	var got map[string]string
	if err := LoadJSON(path, &got); err != nil {
		t.Fatal(err)
	}
	if got["v"] != "second" {
		t.Errorf("v = %q, want %q", got["v"], "second")
	}
}

func TestLoadJSON_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var v map[string]any
	if err := LoadJSON(filepath.Join(dir, "missing.json"), &v); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadJSON(missing) error = %v, want fs.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadJSON(bad, &v); err == nil {
		t.Error("LoadJSON(bad) error = nil, want parse error")
	}
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	want := filepath.Join(t.TempDir(), "a", "b")
	got, err := EnsureDir(want)
	if err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if got != want {
		t.Errorf("EnsureDir() = %q, want %q", got, want)
	}
	if info, err := os.Stat(want); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}

	if _, err := EnsureDir(""); err == nil {
		t.Error("EnsureDir(\"\") error = nil, want error")
	}
}
