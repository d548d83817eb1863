//go:build integration

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raphi011/cicache/internal/config"
)

// cliEnv is an isolated set of cache roots, state dir and working
// directory for driving the root command.
type cliEnv struct {
	work       string
	config     string
	cacheDir   string
	mainDir    string
	stateDir   string
	outputFile string
}

// newCLIEnv creates the directories and an enabled config file using
// uncompressed tar. CICACHE_* variables from the caller are cleared.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not installed")
	}

	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "CICACHE_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}

	base := t.TempDir()
	e := &cliEnv{
		work:       filepath.Join(base, "work"),
		config:     filepath.Join(base, "config.toml"),
		cacheDir:   filepath.Join(base, "cache"),
		mainDir:    filepath.Join(base, "main"),
		stateDir:   filepath.Join(base, "state"),
		outputFile: filepath.Join(base, "outputs"),
	}
	if err := os.MkdirAll(e.work, 0o755); err != nil {
		t.Fatal(err)
	}

	content := fmt.Sprintf(`enabled = true
concurrency = 2
state_dir = %q

[dirs]
cache = %q
main_branch = %q
default_branch = ""

[tar]
compressor = "none"
`, e.stateDir, e.cacheDir, e.mainDir)
	if err := os.WriteFile(e.config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(outputFileEnv, e.outputFile)
	return e
}

// run executes cicache with args and returns stdout and stderr.
func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))

	ctx := config.WithWorkDir(context.Background(), e.work)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

// mustRun is run that fails the test on error.
func (e *cliEnv) mustRun(t *testing.T, args ...string) (string, string) {
	t.Helper()
	stdout, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("cicache %s: %v\nstderr:\n%s", strings.Join(args, " "), err, stderr)
	}
	return stdout, stderr
}

// outputs returns the step outputs written so far and truncates the file.
func (e *cliEnv) outputs(t *testing.T) map[string]string {
	t.Helper()

	data, err := os.ReadFile(e.outputFile)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	os.Remove(e.outputFile)

	got := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if name, value, ok := strings.Cut(line, "="); ok {
			got[name] = value
		}
	}
	return got
}

// writeWork creates files relative to the working directory.
func (e *cliEnv) writeWork(t *testing.T, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(e.work, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// checkWork fails the test unless every file has the given content.
func (e *cliEnv) checkWork(t *testing.T, files map[string]string) {
	t.Helper()
	for rel, want := range files {
		data, err := os.ReadFile(filepath.Join(e.work, rel))
		if err != nil {
			t.Errorf("read %s: %v", rel, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", rel, data, want)
		}
	}
}
