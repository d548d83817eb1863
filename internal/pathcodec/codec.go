// Package pathcodec converts absolute source paths to archive file names
// and back.
//
// A token is the standard base64 encoding of the path's UTF-8 bytes with
// '/' replaced by '-', so it is a single valid file name. '-' is not part of
// the standard alphabet, which keeps the mapping reversible without any
// extra state.
package pathcodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecode is returned when a token is not valid encoded data.
	ErrDecode = errors.New("invalid archive name")

	// ErrEmptyPath is returned when a token decodes to an empty path.
	ErrEmptyPath = errors.New("archive name decodes to an empty path")
)

// Encode returns the archive file name for path.
func Encode(path string) string {
	return strings.ReplaceAll(base64.StdEncoding.EncodeToString([]byte(path)), "/", "-")
}

// Decode returns the source path encoded in token.
func Decode(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(token, "-", "/"))
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrDecode, token, err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: %q", ErrEmptyPath, token)
	}
	return string(raw), nil
}
