package cache

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// MaxKeyLength is the longest accepted key, in characters.
const MaxKeyLength = 255

// CheckKey validates a cache key.
func CheckKey(key string) error {
	if key == "" {
		return &ValidationError{Msg: "key validation error: key cannot be empty"}
	}
	if utf8.RuneCountInString(key) > MaxKeyLength {
		return &ValidationError{Msg: fmt.Sprintf("key validation error: %s cannot be larger than %d characters", key, MaxKeyLength)}
	}
	if strings.Contains(key, ",") {
		return &ValidationError{Msg: fmt.Sprintf("key validation error: %s cannot contain commas", key)}
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "." || seg == ".." {
			return &ValidationError{Msg: fmt.Sprintf("key validation error: %s cannot contain %q path segments", key, seg)}
		}
	}
	return nil
}

// CheckPaths validates the list of paths to save.
func CheckPaths(paths []string) error {
	if len(paths) == 0 {
		return &ValidationError{Msg: "path validation error: at least one directory or file path is required"}
	}
	return nil
}

// IsExactKeyMatch reports whether cacheKey matches key, ignoring case but
// not accents.
func IsExactKeyMatch(key, cacheKey string) bool {
	if cacheKey == "" {
		return false
	}
	c := collate.New(language.Und, collate.IgnoreCase)
	return c.CompareString(key, cacheKey) == 0
}
