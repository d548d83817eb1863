package archive

import (
	"context"
	"path/filepath"

	"github.com/raphi011/cicache/internal/cmd"
	"github.com/raphi011/cicache/internal/log"
)

// Writer creates archives.
type Writer struct {
	Tool Tool
}

// NewWriter returns a Writer using tool.
func NewWriter(tool Tool) *Writer {
	return &Writer{Tool: tool}
}

// Archive writes a single-entry archive of src to dest, replacing dest if it
// exists. The tar process is tracked by sup (if non-nil) before it is
// awaited, so a failing sibling can kill it.
func (w *Writer) Archive(ctx context.Context, src, dest string, sup *cmd.Supervisor) error {
	l := log.FromContext(ctx)
	src = filepath.Clean(src)
	l.Printf("Save cache for %s: %s\n", src, filepath.Base(dest))

	p, err := cmd.Start(ctx, filepath.Dir(src), w.Tool.command(), w.Tool.createArgs(dest, filepath.Base(src))...)
	if err != nil {
		return &ArchiveError{Op: OpCreate, Path: src, ExitCode: -1, Err: err}
	}
	if sup != nil {
		sup.Track(p)
	}

	if err := p.Wait(); err != nil {
		return &ArchiveError{
			Op:       OpCreate,
			Path:     src,
			ExitCode: cmd.ExitCode(err),
			Stderr:   p.Stderr(),
			Err:      err,
		}
	}

	l.Printf("Tar command completed successfully for %s\n", src)
	return nil
}
