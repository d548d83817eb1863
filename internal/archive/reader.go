package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/raphi011/cicache/internal/cmd"
	"github.com/raphi011/cicache/internal/log"
	"github.com/raphi011/cicache/internal/pathcodec"
)

// Reader extracts archives back to their source location.
type Reader struct {
	Tool Tool

	// SkipFailure downgrades tar failures to warnings.
	SkipFailure bool
}

// NewReader returns a Reader using tool.
func NewReader(tool Tool, skipFailure bool) *Reader {
	return &Reader{Tool: tool, SkipFailure: skipFailure}
}

// Target returns the path an archive file restores to.
func Target(archiveFile string) (string, error) {
	return pathcodec.Decode(filepath.Base(archiveFile))
}

// Extract restores archiveFile into the parent of the path encoded in its
// name. Malformed names fail with pathcodec.ErrDecode or
// pathcodec.ErrEmptyPath; with SkipFailure the file is skipped instead.
func (r *Reader) Extract(ctx context.Context, archiveFile string) error {
	l := log.FromContext(ctx)

	target, err := Target(archiveFile)
	if err != nil {
		err = fmt.Errorf("restore %s: %w", archiveFile, err)
		if r.SkipFailure {
			l.Warnf("Skipping archive: %v", err)
			return nil
		}
		return err
	}

	info, err := os.Stat(archiveFile)
	if err != nil {
		return fmt.Errorf("restore %s: %w", archiveFile, err)
	}
	l.Printf("Restoring cache from %s\nCreated: %s (%s)\nSize: %s\n",
		archiveFile,
		info.ModTime().Format("2006-01-02 15:04:05 MST"),
		humanize.Time(info.ModTime()),
		humanize.Bytes(uint64(info.Size())))

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create restore dir: %w", err)
	}

	p, err := cmd.Start(ctx, "", r.Tool.command(), r.Tool.extractArgs(archiveFile, dir)...)
	if err != nil {
		return r.fail(l, &ArchiveError{Op: OpExtract, Path: archiveFile, ExitCode: -1, Err: err})
	}
	if err := p.Wait(); err != nil {
		return r.fail(l, &ArchiveError{
			Op:       OpExtract,
			Path:     archiveFile,
			ExitCode: cmd.ExitCode(err),
			Stderr:   p.Stderr(),
			Err:      err,
		})
	}

	// tar may warn without failing (e.g. timestamps in the future).
	if stderr := p.Stderr(); stderr != "" {
		for _, line := range strings.Split(stderr, "\n") {
			l.Warnf("%s", line)
		}
	}
	return nil
}

func (r *Reader) fail(l *log.Logger, err *ArchiveError) error {
	l.Warnf("Tar command failed: %v", err)
	if r.SkipFailure {
		return nil
	}
	return err
}
