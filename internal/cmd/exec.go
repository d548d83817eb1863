package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raphi011/cicache/internal/log"
)

// Run executes a command and returns stderr in the error message if it fails
func Run(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errMsg := strings.TrimSpace(stderr.String()); errMsg != "" {
			return fmt.Errorf("%s", errMsg)
		}
		return err
	}
	return nil
}

// Output executes a command and returns stdout, with stderr in error if it fails
func Output(cmd *exec.Cmd) ([]byte, error) {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if errMsg := strings.TrimSpace(stderr.String()); errMsg != "" {
			return nil, fmt.Errorf("%s", errMsg)
		}
		return nil, err
	}
	return output, nil
}

// RunContext runs name with args in dir (empty = current directory).
// A cancelled context is returned as ctx.Err().
func RunContext(ctx context.Context, dir, name string, args ...string) error {
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir

	done := log.FromContext(ctx).Command(dir, name, args...)
	start := time.Now()
	err := Run(c)
	done(time.Since(start))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// OutputContext is like RunContext but returns stdout.
func OutputContext(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir

	done := log.FromContext(ctx).Command(dir, name, args...)
	start := time.Now()
	out, err := Output(c)
	done(time.Since(start))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return out, err
}

// Process is a started external command.
type Process struct {
	cmd    *exec.Cmd
	stderr lockedBuffer
	exited atomic.Bool
	start  time.Time
	done   func(time.Duration)
}

// Start starts name with args in dir and returns without waiting.
// Stderr is captured and available through [Process.Stderr] after Wait.
// The process is killed when ctx is cancelled.
func Start(ctx context.Context, dir, name string, args ...string) (*Process, error) {
	p := &Process{}
	p.cmd = exec.CommandContext(ctx, name, args...)
	p.cmd.Dir = dir
	p.cmd.Stderr = &p.stderr

	p.done = log.FromContext(ctx).Command(dir, name, args...)
	p.start = time.Now()
	if err := p.cmd.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

// Wait waits for the process to exit. The returned error is the
// [os/exec] error (usually *exec.ExitError) so callers can read the
// exit code.
func (p *Process) Wait() error {
	err := p.cmd.Wait()
	p.exited.Store(true)
	p.done(time.Since(p.start))
	return err
}

// Kill requests termination. Killing an exited process is a no-op.
func (p *Process) Kill() error {
	if p.Exited() {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// Exited reports whether Wait has returned.
func (p *Process) Exited() bool {
	return p.exited.Load()
}

// Stderr returns the captured error stream, trimmed.
func (p *Process) Stderr() string {
	return strings.TrimSpace(p.stderr.String())
}

// String returns "name[pid]".
func (p *Process) String() string {
	pid := 0
	if p.cmd.Process != nil {
		pid = p.cmd.Process.Pid
	}
	return fmt.Sprintf("%s[%d]", p.cmd.Path, pid)
}

// ExitCode returns the exit code of err, or -1 when err carries none
// (killed by a signal, failed to start).
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// lockedBuffer is written by the exec copy goroutine and may be read
// while a sibling failure is being reported.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
