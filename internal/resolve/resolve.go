package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/raphi011/cicache/internal/log"
)

const excludePrefix = "!"

// defaultHome is used for ~/ when $HOME is unset, as on hosted runners.
const defaultHome = "/home/runner"

var negationSpace = regexp.MustCompile(`^!\s+`)

// SplitLines splits multi-line input into trimmed, non-empty lines.
// "! pattern" is normalized to "!pattern".
func SplitLines(input string) []string {
	var lines []string
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(negationSpace.ReplaceAllString(line, excludePrefix))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ParsePaths drops comments and blank entries, expands ~/ and makes
// relative patterns absolute against dir (the process working directory
// when empty). Exclusion markers are preserved.
func ParsePaths(dir string, lines []string) ([]string, error) {
	var paths []string
	for _, line := range lines {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		prefix := ""
		if strings.HasPrefix(line, excludePrefix) {
			prefix = excludePrefix
			line = line[len(excludePrefix):]
		}

		p, err := absolute(dir, line)
		if err != nil {
			return nil, err
		}
		paths = append(paths, prefix+p)
	}
	return paths, nil
}

func absolute(dir, p string) (string, error) {
	if strings.HasPrefix(p, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = defaultHome
		}
		return filepath.Join(home, p[2:]), nil
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	if dir != "" {
		return filepath.Join(dir, p), nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return abs, nil
}

// Resolve expands absolute patterns into existing paths.
func Resolve(ctx context.Context, patterns []string) ([]string, error) {
	l := log.FromContext(ctx)

	var includes, excludes []string
	for _, p := range patterns {
		if pattern, ok := strings.CutPrefix(p, excludePrefix); ok {
			if !doublestar.ValidatePathPattern(pattern) {
				return nil, fmt.Errorf("invalid path pattern %q: %w", p, doublestar.ErrBadPattern)
			}
			excludes = append(excludes, pattern)
			continue
		}
		includes = append(includes, p)
	}

	seen := make(map[string]bool)
	var resolved []string
	for _, pattern := range includes {
		matches, err := expand(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			l.Debug("pattern matched nothing", "pattern", pattern)
		}

		for _, m := range matches {
			if seen[m] || excluded(m, excludes) {
				continue
			}
			seen[m] = true
			resolved = append(resolved, m)
		}
	}
	return resolved, nil
}

func expand(pattern string) ([]string, error) {
	if !hasMeta(pattern) {
		if _, err := os.Lstat(pattern); err != nil {
			return nil, nil
		}
		return []string{filepath.Clean(pattern)}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern %q: %w", pattern, err)
	}
	return matches, nil
}

func excluded(path string, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, _ := doublestar.PathMatch(pattern, path); ok {
			return true
		}
	}
	return false
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
