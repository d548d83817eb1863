// Package output provides context-aware output for cicache.
// Stdout is used for primary data output (tables, keys, JSON, step outputs).
// Stderr (via log package) is used for diagnostics.
package output

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

type ctxKey struct{}

// Printer writes primary output to stdout and step outputs to the
// runner's output file when one is configured.
type Printer struct {
	mu         sync.Mutex
	w          io.Writer
	outputFile string
}

// New creates a new Printer writing to the given writer.
// outputFile is the file step outputs are appended to (e.g. $GITHUB_OUTPUT);
// empty means outputs are printed to w as name=value lines.
func New(w io.Writer, outputFile string) *Printer {
	return &Printer{w: w, outputFile: outputFile}
}

// WithPrinter attaches a Printer to the context.
func WithPrinter(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext retrieves the Printer from context.
// Returns a Printer writing to os.Stdout if none is attached.
func FromContext(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return &Printer{w: os.Stdout}
}

// Print writes output without a newline.
func (p *Printer) Print(a ...any) {
	fmt.Fprint(p.w, a...)
}

// Printf writes formatted output.
func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// Println writes a line of output.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// SetOutput publishes a named step output.
// Multi-line values use the heredoc form understood by runners.
func (p *Printer) SetOutput(name, value string) error {
	line, err := formatOutput(name, value)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outputFile == "" {
		_, err := io.WriteString(p.w, line)
		return err
	}

	f, err := os.OpenFile(p.outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	if _, err := io.WriteString(f, line); err != nil {
		f.Close()
		return fmt.Errorf("write output %s: %w", name, err)
	}
	return f.Close()
}

func formatOutput(name, value string) (string, error) {
	if name == "" || strings.ContainsAny(name, "=\n") {
		return "", fmt.Errorf("invalid output name %q", name)
	}
	if !strings.Contains(value, "\n") {
		return name + "=" + value + "\n", nil
	}

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	delim := "ghadelimiter_" + hex.EncodeToString(buf)
	return fmt.Sprintf("%s<<%s\n%s\n%s\n", name, delim, value, delim), nil
}
