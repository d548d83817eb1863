// Package log provides context-aware logging for cicache.
//
// Diagnostics always go to the writer handed to [New] (stderr in the CLI).
// Info output is suppressed by quiet mode, debug output and command echoes
// only appear in verbose mode. Warnings are printed regardless of mode since
// every tolerated cache failure has to stay visible in CI logs.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/raphi011/cicache/internal/ui/styles"
)

type ctxKey struct{}

// Logger provides output and verbose command logging.
// It is safe for concurrent use; archive workers log from many goroutines.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	quiet   bool
}

// New creates a new logger. quiet wins over verbose.
func New(out io.Writer, verbose, quiet bool) *Logger {
	return &Logger{out: out, verbose: verbose, quiet: quiet}
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context.
// Returns a no-op logger if none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{out: io.Discard}
}

func (l *Logger) write(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, s)
}

// Printf writes formatted output.
func (l *Logger) Printf(format string, args ...any) {
	if l.quiet {
		return
	}
	l.write(fmt.Sprintf(format, args...))
}

// Println writes a line of output.
func (l *Logger) Println(args ...any) {
	if l.quiet {
		return
	}
	l.write(fmt.Sprintln(args...))
}

// Warnf writes a warning line. Warnings are never suppressed.
func (l *Logger) Warnf(format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.write(styles.WarningStyle.Render("warning:") + " " + msg + "\n")
}

// Debug writes msg followed by key=value pairs in verbose mode.
// A trailing key without value is dropped.
func (l *Logger) Debug(msg string, keyvals ...any) {
	if !l.IsVerbose() {
		return
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}
	l.write(styles.MutedStyle.Render(b.String()) + "\n")
}

// Command logs an external command execution and returns a function that
// reports how long it took. Only prints when verbose mode is enabled.
func (l *Logger) Command(dir, name string, args ...string) func(time.Duration) {
	if !l.IsVerbose() {
		return func(time.Duration) {}
	}
	line := "$ " + strings.TrimSpace(name+" "+strings.Join(args, " "))
	if dir != "" {
		line = "[" + dir + "] " + line
	}
	return func(d time.Duration) {
		l.write(fmt.Sprintf("%s (%s)\n", line, d.Round(time.Millisecond)))
	}
}

// IsVerbose returns true if verbose output is enabled and not silenced.
func (l *Logger) IsVerbose() bool {
	return l.verbose && !l.quiet
}

// Writer returns the underlying writer.
func (l *Logger) Writer() io.Writer {
	return l.out
}
