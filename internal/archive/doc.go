// Package archive drives the external tar process that creates and extracts
// single-path cache archives.
//
// Each archive holds exactly one source path (a file or a directory), stored
// relative to its parent directory. [Writer.Archive] runs tar in the parent
// of the source path; [Reader.Extract] recovers the source path from the
// archive's file name (see package pathcodec) and extracts into its parent,
// so the entry lands back where it was captured.
//
// Compression is delegated to an external program passed to tar with -I
// (pigz by default). An empty compressor writes plain tar archives.
package archive
