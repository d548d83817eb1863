package keystore

import "github.com/sahilm/fuzzy"

// keySource implements fuzzy.Source over entry keys.
type keySource []Entry

func (s keySource) String(i int) string { return s[i].Key }
func (s keySource) Len() int            { return len(s) }

// Filter returns the entries whose key fuzzy-matches pattern, best match
// first. An empty pattern returns entries unchanged.
func Filter(entries []Entry, pattern string) []Entry {
	if pattern == "" {
		return entries
	}
	matches := fuzzy.FindFrom(pattern, keySource(entries))
	out := make([]Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}
