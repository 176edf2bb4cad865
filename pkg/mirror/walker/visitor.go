package walker

import (
	"os"

	"golang.org/x/sys/unix"
)

// Visitor receives the event stream of one walk. Events arrive in
// depth-first pre-order for directories: a directory's DirEnter precedes
// every event concerning its descendants, and a subdirectory's DirLeave
// precedes its parent's DirLeave. The order of entries inside a directory is
// whatever the directory stream returns.
type Visitor interface {
	// DirEnter is called for every directory, including the walk root,
	// before any of its entries.
	DirEnter(relDir []byte) error

	// File is called once per regular file or subdirectory entry. The
	// return value requests descent and is meaningful only when the entry
	// is a directory.
	File(e *Entry) (descend bool, err error)

	// DirLeave is called after the last entry of the directory.
	DirLeave(relDir []byte) error
}

// Entry describes a single directory entry handed to Visitor.File.
//
// RelDir, Name and Rel are views into the walker's path buffer and must not
// be retained beyond the callback; copy them if needed. File is an open
// handle on the entry, valid for the duration of the callback; the walker
// owns it and closes it (for directories, after the subtree is left).
type Entry struct {
	// RelDir is the root-relative directory containing the entry; empty at
	// the root.
	RelDir []byte

	// Name is the entry's name. Never ".", ".." or empty, and contains no
	// separator.
	Name []byte

	// Rel is the full root-relative path of the entry (RelDir joined with
	// Name by '/').
	Rel []byte

	// IsDir reports whether the entry is a directory.
	IsDir bool

	// Stat is the result of fstat on the entry's own descriptor. For a
	// directory with a nil File it is the parent-relative stat instead.
	Stat unix.Stat_t

	// File is the entry's open handle. It is nil for a directory that
	// could not be opened under the skip policy; such entries are never
	// descended into.
	File *os.File
}
