package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raphi011/cicache/internal/cmd"
	"github.com/raphi011/cicache/internal/log"
	"github.com/raphi011/cicache/internal/pathcodec"
)

var errBoom = errors.New("tar exploded")

// blockingProc stands in for a tar process that runs until killed.
type blockingProc struct {
	name   string
	once   sync.Once
	killed chan struct{}
}

func newBlockingProc(name string) *blockingProc {
	return &blockingProc{name: name, killed: make(chan struct{})}
}

func (p *blockingProc) Kill() error {
	p.once.Do(func() { close(p.killed) })
	return nil
}

func (p *blockingProc) Exited() bool { return false }

func (p *blockingProc) String() string { return p.name }

type fakeArchiver struct {
	fail  map[string]error
	block bool
	delay time.Duration

	mu          sync.Mutex
	calls       []string
	inFlight    int
	maxInFlight int
	procs       []*blockingProc
}

func (f *fakeArchiver) Archive(ctx context.Context, src, dest string, sup *cmd.Supervisor) error {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if err, ok := f.fail[src]; ok {
		return err
	}

	if f.block {
		p := newBlockingProc(src)
		f.mu.Lock()
		f.procs = append(f.procs, p)
		f.mu.Unlock()
		sup.Track(p)

		select {
		case <-p.killed:
			return errors.New("signal: killed")
		case <-time.After(5 * time.Second):
			return errors.New("never killed")
		}
	}

	time.Sleep(f.delay)
	return os.WriteFile(dest, []byte(src), 0o644)
}

func (f *fakeArchiver) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

type fakeExtractor struct {
	fail map[string]bool // by key directory name

	mu    sync.Mutex
	files []string
}

func (f *fakeExtractor) Extract(ctx context.Context, archiveFile string) error {
	f.mu.Lock()
	f.files = append(f.files, archiveFile)
	f.mu.Unlock()

	if f.fail[filepath.Base(filepath.Dir(archiveFile))] {
		return errBoom
	}
	return nil
}

func (f *fakeExtractor) extracted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.files)
}

func testCtx(buf *bytes.Buffer) context.Context {
	return log.WithLogger(context.Background(), log.New(buf, false, false))
}

func srcPaths(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join("/work", "src", string(rune('a'+i%26))+strings.Repeat("x", i/26))
	}
	return paths
}

func TestSave_Batches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	arch := &fakeArchiver{delay: 5 * time.Millisecond}
	var progress []int
	var mu sync.Mutex
	e := New(Config{Enabled: true, ConcurrencyLimit: 10, Root: root}, arch, nil,
		WithProgress(func(done, total int) {
			mu.Lock()
			progress = append(progress, done)
			mu.Unlock()
			if total != 25 {
				t.Errorf("progress total = %d, want 25", total)
			}
		}))

	var buf bytes.Buffer
	paths := srcPaths(25)
	n, err := e.Save(testCtx(&buf), paths, "deps")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n != 25 {
		t.Errorf("Save() = %d, want 25", n)
	}
	if got := len(arch.called()); got != 25 {
		t.Errorf("archiver called %d times, want 25", got)
	}
	if arch.maxInFlight > 10 {
		t.Errorf("max concurrent archives = %d, want <= 10", arch.maxInFlight)
	}
	if len(progress) != 25 {
		t.Errorf("progress called %d times, want 25", len(progress))
	}

	for _, want := range []string{
		"Saving batch 1; batch size: 10; total paths: 25.",
		"Saving batch 2; batch size: 10; total paths: 25.",
		"Saving batch 3; batch size: 5; total paths: 25.",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log missing %q", want)
		}
	}
	if strings.Contains(buf.String(), "Saving batch 4") {
		t.Error("log mentions a fourth batch")
	}

	for _, p := range paths {
		if _, err := os.Stat(filepath.Join(root, "deps", pathcodec.Encode(p))); err != nil {
			t.Errorf("archive for %s: %v", p, err)
		}
	}
}

func TestSave_BatchesRunSequentially(t *testing.T) {
	t.Parallel()

	arch := &fakeArchiver{delay: 2 * time.Millisecond}
	e := New(Config{Enabled: true, ConcurrencyLimit: 3, Root: t.TempDir()}, arch, nil)

	if _, err := e.Save(testCtx(&bytes.Buffer{}), srcPaths(7), "k"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if arch.maxInFlight > 3 {
		t.Errorf("max concurrent archives = %d, want <= 3", arch.maxInFlight)
	}
}

func TestSave_DefaultConcurrency(t *testing.T) {
	t.Parallel()

	arch := &fakeArchiver{delay: 2 * time.Millisecond}
	e := New(Config{Enabled: true, Root: t.TempDir()}, arch, nil)

	var buf bytes.Buffer
	if _, err := e.Save(testCtx(&buf), srcPaths(12), "k"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Saving batch 2; batch size: 2; total paths: 12.") {
		t.Errorf("log = %q, want batches of %d", buf.String(), DefaultConcurrency)
	}
}

func TestSave_FailureKillsBatch(t *testing.T) {
	t.Parallel()

	paths := []string{"/w/a", "/w/b", "/w/c", "/w/d"}
	arch := &fakeArchiver{
		block: true,
		fail:  map[string]error{"/w/b": errBoom},
	}
	e := New(Config{Enabled: true, ConcurrencyLimit: 3, Root: t.TempDir()}, arch, nil)

	var buf bytes.Buffer
	_, err := e.Save(testCtx(&buf), paths, "k")
	if !errors.Is(err, errBoom) {
		t.Fatalf("Save() error = %v, want %v", err, errBoom)
	}

	arch.mu.Lock()
	procs := slices.Clone(arch.procs)
	arch.mu.Unlock()
	if len(procs) != 2 {
		t.Fatalf("tracked %d processes, want 2", len(procs))
	}
	for _, p := range procs {
		select {
		case <-p.killed:
		default:
			t.Errorf("process %s was not killed", p)
		}
	}

	if slices.Contains(arch.called(), "/w/d") {
		t.Error("second batch ran after a failure")
	}
	if !strings.Contains(buf.String(), "Killing all running tar processes...") {
		t.Errorf("log = %q, want kill message", buf.String())
	}
}

func TestSave_SkipFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	paths := []string{"/w/a", "/w/b", "/w/c", "/w/d"}
	arch := &fakeArchiver{fail: map[string]error{"/w/a": errBoom}}
	e := New(Config{Enabled: true, SkipFailure: true, ConcurrencyLimit: 2, Root: root}, arch, nil)

	var buf bytes.Buffer
	n, err := e.Save(testCtx(&buf), paths, "k")
	if err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}
	if n != 1 {
		t.Errorf("Save() = %d archives, want 1", n)
	}
	if got := arch.called(); len(got) != 2 {
		t.Errorf("archiver calls = %v, want only the first batch", got)
	}
	if !strings.Contains(buf.String(), "warning:") || !strings.Contains(buf.String(), errBoom.Error()) {
		t.Errorf("log = %q, want warning with the error", buf.String())
	}
	if strings.Contains(buf.String(), "Killing all running tar processes") {
		t.Error("processes were killed with skip-failure set")
	}
}

func TestSave_Validation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	arch := &fakeArchiver{}
	e := New(Config{Enabled: true, Root: root}, arch, nil)
	ctx := testCtx(&bytes.Buffer{})

	var vErr *ValidationError
	if _, err := e.Save(ctx, []string{"/w/a"}, "a,b"); !errors.As(err, &vErr) {
		t.Errorf("Save(bad key) error = %v, want *ValidationError", err)
	}
	if _, err := e.Save(ctx, nil, "k"); !errors.As(err, &vErr) {
		t.Errorf("Save(no paths) error = %v, want *ValidationError", err)
	}
	if len(arch.called()) != 0 {
		t.Error("archiver called despite validation errors")
	}
	if _, err := os.Stat(filepath.Join(root, "k")); !os.IsNotExist(err) {
		t.Error("entry directory created despite validation errors")
	}
}

func TestEngine_Disabled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	arch := &fakeArchiver{}
	ext := &fakeExtractor{}
	e := New(Config{Enabled: false, Root: root}, arch, ext)

	var buf bytes.Buffer
	ctx := testCtx(&buf)

	if n, err := e.Save(ctx, nil, "invalid,key"); n != 0 || err != nil {
		t.Errorf("Save() = %d, %v, want 0, nil", n, err)
	}
	if key, err := e.Restore(ctx, "k", nil, nil, CopyOptions{}); key != "" || err != nil {
		t.Errorf("Restore() = %q, %v, want \"\", nil", key, err)
	}
	if got := strings.Count(buf.String(), DisabledMessage); got != 2 {
		t.Errorf("disabled message logged %d times, want 2", got)
	}
}

func mkEntry(t *testing.T, root, key string, files ...string) {
	t.Helper()
	dir := filepath.Join(root, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(f), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRestore_KeyOrder(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	branch := filepath.Join(base, "branch")
	main := filepath.Join(base, "main")
	missing := filepath.Join(base, "missing")

	mkEntry(t, branch, "only-branch", "f1")
	mkEntry(t, main, "only-main", "f1", "f2")
	mkEntry(t, branch, "both", "b1")
	mkEntry(t, main, "both", "m1", "m2")
	mkEntry(t, main, "primary-in-main", "p")
	mkEntry(t, branch, "fallback-in-branch", "f")
	if err := os.MkdirAll(filepath.Join(branch, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	roots := []string{missing, branch, main}

	tests := []struct {
		name      string
		primary   string
		fallbacks []string
		wantKey   string
		wantFiles int
	}{
		{"primary hit", "only-branch", []string{"only-main"}, "only-branch", 1},
		{"primary from later root", "only-main", nil, "only-main", 2},
		{"first fallback hit", "nope", []string{"only-main", "only-branch"}, "only-main", 2},
		{"second fallback hit", "nope", []string{"nope-2", "only-branch"}, "only-branch", 1},
		{"first root wins", "both", nil, "both", 1},
		{"keys before roots", "primary-in-main", []string{"fallback-in-branch"}, "primary-in-main", 1},
		{"empty entry is a miss", "empty", []string{"only-main"}, "only-main", 2},
		{"miss", "nope", []string{"nope-2"}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ext := &fakeExtractor{}
			e := New(Config{Enabled: true}, nil, ext)

			got, err := e.Restore(testCtx(&bytes.Buffer{}), tt.primary, tt.fallbacks, roots, CopyOptions{})
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if got != tt.wantKey {
				t.Errorf("Restore() = %q, want %q", got, tt.wantKey)
			}
			if n := len(ext.extracted()); n != tt.wantFiles {
				t.Errorf("extracted %d files, want %d", n, tt.wantFiles)
			}
		})
	}
}

func TestRestore_MissLogsKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := New(Config{Enabled: true}, nil, &fakeExtractor{})
	got, err := e.Restore(testCtx(&buf), "primary", []string{"fb-1", "fb-2"}, []string{t.TempDir()}, CopyOptions{})
	if err != nil || got != "" {
		t.Fatalf("Restore() = %q, %v, want miss", got, err)
	}
	if !strings.Contains(buf.String(), "Cache not found for keys: primary, fb-1, fb-2") {
		t.Errorf("log = %q, want searched keys", buf.String())
	}
}

func TestRestore_LookupOnly(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkEntry(t, root, "k", "a", "b")

	ext := &fakeExtractor{}
	e := New(Config{Enabled: true}, nil, ext)

	var buf bytes.Buffer
	got, err := e.Restore(testCtx(&buf), "k", nil, []string{root}, CopyOptions{LookupOnly: true})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got != "k" {
		t.Errorf("Restore() = %q, want k", got)
	}
	if n := len(ext.extracted()); n != 0 {
		t.Errorf("extracted %d files with lookup-only, want 0", n)
	}
	if !strings.Contains(buf.String(), `Only checking key "k". Skipping restore.`) {
		t.Errorf("log = %q, want lookup-only message", buf.String())
	}
}

func TestRestore_ExtractionFailureTriesNextKey(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkEntry(t, root, "broken", "a")
	mkEntry(t, root, "good", "b")

	ext := &fakeExtractor{fail: map[string]bool{"broken": true}}
	e := New(Config{Enabled: true}, nil, ext)

	var buf bytes.Buffer
	got, err := e.Restore(testCtx(&buf), "broken", []string{"good"}, []string{root}, CopyOptions{})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got != "good" {
		t.Errorf("Restore() = %q, want good", got)
	}
	if !strings.Contains(buf.String(), `Restore failed for key "broken"`) {
		t.Errorf("log = %q, want restore failure warning", buf.String())
	}
}

func TestRestore_Errors(t *testing.T) {
	t.Parallel()

	e := New(Config{Enabled: true}, nil, &fakeExtractor{})
	ctx := testCtx(&bytes.Buffer{})

	var vErr *ValidationError
	if _, err := e.Restore(ctx, strings.Repeat("k", 256), nil, []string{"/x"}, CopyOptions{}); !errors.As(err, &vErr) {
		t.Errorf("Restore(long key) error = %v, want *ValidationError", err)
	}

	var rErr *ReservationError
	if _, err := e.Restore(ctx, "k", nil, nil, CopyOptions{}); !errors.As(err, &rErr) {
		t.Errorf("Restore(no roots) error = %v, want *ReservationError", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.Restore(cancelled, "k", nil, []string{t.TempDir()}, CopyOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Restore(cancelled) error = %v, want %v", err, context.Canceled)
	}
}
