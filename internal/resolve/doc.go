// Package resolve turns user supplied path patterns into the absolute
// paths the cache engine archives.
//
// Input arrives as newline separated text (one pattern per line). Lines
// starting with # are comments. A leading ~/ expands to $HOME and relative
// patterns are anchored at the working directory.
//
// # Patterns
//
// Patterns use doublestar syntax: * and ? within a path segment, ** across
// segments, [...] classes and {a,b} alternatives. A pattern prefixed with !
// removes previously matched paths:
//
//	~/.npm
//	**/node_modules
//	!**/node_modules/.cache
//
// A pattern without glob characters is kept when the path exists.
// Results keep the order of first appearance and contain no duplicates.
package resolve
