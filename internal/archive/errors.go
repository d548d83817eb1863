package archive

import "fmt"

// Operations reported in ArchiveError.Op.
const (
	OpCreate  = "create"
	OpExtract = "extract"
)

// ArchiveError is returned when tar fails to start or exits non-zero.
type ArchiveError struct {
	Op       string // OpCreate or OpExtract
	Path     string // source path (create) or archive file (extract)
	ExitCode int    // -1 when the process did not exit normally
	Stderr   string // captured diagnostic output
	Err      error
}

func (e *ArchiveError) Error() string {
	msg := fmt.Sprintf("tar %s failed with exit code %d for %s", e.Op, e.ExitCode, e.Path)
	if e.Stderr != "" {
		msg += ". Details: " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
