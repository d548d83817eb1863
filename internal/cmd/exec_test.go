package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/raphi011/cicache/internal/log"
)

func logCtx() context.Context {
	l := log.New(&bytes.Buffer{}, false, false)
	return log.WithLogger(context.Background(), l)
}

func TestRunContext_Success(t *testing.T) {
	t.Parallel()
	err := RunContext(logCtx(), "", "echo", "hello")
	if err != nil {
		t.Errorf("RunContext(echo hello) = %v, want nil", err)
	}
}

func TestRunContext_Failure(t *testing.T) {
	t.Parallel()
	err := RunContext(logCtx(), "", "sh", "-c", "exit 1")
	if err == nil {
		t.Error("RunContext(exit 1) = nil, want error")
	}
}

func TestRunContext_StderrMessage(t *testing.T) {
	t.Parallel()
	err := RunContext(logCtx(), "", "sh", "-c", "echo 'bad thing' >&2; exit 1")
	if err == nil {
		t.Fatal("RunContext = nil, want error")
	}
	if err.Error() != "bad thing" {
		t.Errorf("RunContext error = %q, want %q", err.Error(), "bad thing")
	}
}

func TestRunContext_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(logCtx())
	cancel()
	err := RunContext(ctx, "", "sleep", "10")
	if err == nil {
		t.Error("RunContext with cancelled context = nil, want error")
	}
	if err != context.Canceled {
		t.Errorf("RunContext error = %v, want context.Canceled", err)
	}
}

func TestRunContext_Dir(t *testing.T) {
	t.Parallel()
	// Verify command runs in specified directory
	err := RunContext(logCtx(), "/tmp", "pwd")
	if err != nil {
		t.Errorf("RunContext with dir = %v, want nil", err)
	}
}

func TestOutputContext_Success(t *testing.T) {
	t.Parallel()
	out, err := OutputContext(logCtx(), "", "echo", "hello")
	if err != nil {
		t.Fatalf("OutputContext(echo hello) = %v, want nil", err)
	}
	if got := string(out); got != "hello\n" {
		t.Errorf("OutputContext output = %q, want %q", got, "hello\n")
	}
}

func TestOutputContext_Failure(t *testing.T) {
	t.Parallel()
	_, err := OutputContext(logCtx(), "", "sh", "-c", "exit 1")
	if err == nil {
		t.Error("OutputContext(exit 1) = nil, want error")
	}
}

func TestOutputContext_StderrMessage(t *testing.T) {
	t.Parallel()
	_, err := OutputContext(logCtx(), "", "sh", "-c", "echo 'error msg' >&2; exit 1")
	if err == nil {
		t.Fatal("OutputContext = nil, want error")
	}
	if err.Error() != "error msg" {
		t.Errorf("OutputContext error = %q, want %q", err.Error(), "error msg")
	}
}

func TestOutputContext_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(logCtx())
	cancel()
	_, err := OutputContext(ctx, "", "sleep", "10")
	if err == nil {
		t.Error("OutputContext with cancelled context = nil, want error")
	}
	if err != context.Canceled {
		t.Errorf("OutputContext error = %v, want context.Canceled", err)
	}
}

func TestStart_WaitSuccess(t *testing.T) {
	t.Parallel()
	p, err := Start(logCtx(), "", "sh", "-c", "exit 0")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
	if !p.Exited() {
		t.Error("Exited() = false after Wait")
	}
}

func TestStart_ExitCodeAndStderr(t *testing.T) {
	t.Parallel()
	p, err := Start(logCtx(), "", "sh", "-c", "echo 'no space left' >&2; exit 3")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	err = p.Wait()
	if err == nil {
		t.Fatal("Wait() = nil, want error")
	}
	if got := ExitCode(err); got != 3 {
		t.Errorf("ExitCode() = %d, want 3", got)
	}
	if got := p.Stderr(); got != "no space left" {
		t.Errorf("Stderr() = %q, want %q", got, "no space left")
	}
}

func TestStart_Dir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p, err := Start(logCtx(), dir, "sh", "-c", "test \"$(pwd)\" = \""+dir+"\"")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Errorf("Wait() = %v, want process to run in %s", err, dir)
	}
}

func TestStart_MissingBinary(t *testing.T) {
	t.Parallel()
	if _, err := Start(logCtx(), "", "cicache-definitely-not-installed"); err == nil {
		t.Error("Start() with missing binary = nil, want error")
	}
}

func TestProcess_Kill(t *testing.T) {
	t.Parallel()
	p, err := Start(logCtx(), "", "sleep", "10")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	start := time.Now()
	if err := p.Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	err = p.Wait()
	if err == nil {
		t.Fatal("Wait() after Kill = nil, want error")
	}
	if got := ExitCode(err); got != -1 {
		t.Errorf("ExitCode() = %d, want -1 for a killed process", got)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("process was not terminated by Kill")
	}

	// Killing an exited process is a no-op.
	if err := p.Kill(); err != nil {
		t.Errorf("second Kill() = %v, want nil", err)
	}
}

func TestProcess_String(t *testing.T) {
	t.Parallel()
	p, err := Start(logCtx(), "", "sh", "-c", "exit 0")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Wait()
	if got := p.String(); !strings.Contains(got, "sh[") {
		t.Errorf("String() = %q, want to contain %q", got, "sh[")
	}
}

func TestExitCode_NonExitError(t *testing.T) {
	t.Parallel()
	if got := ExitCode(errors.New("boom")); got != -1 {
		t.Errorf("ExitCode() = %d, want -1", got)
	}
}
