// Package types provides the core data types for the mirror engine:
// the entry classification, the per-entry manifest record, and the
// comparison rule used by the verify and merge tools.
package types

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DigestSize is the width of the content fingerprint in octets.
const DigestSize = 8

// Digest is the fixed-width content fingerprint of a regular file.
type Digest [DigestSize]byte

// EntryType classifies a manifest entry as a regular file or a directory.
type EntryType int

// Entry types as persisted in the manifest's type column.
const (
	EntryFile EntryType = 0
	EntryDir  EntryType = 1
)

// String returns the string representation of the entry type.
func (t EntryType) String() string {
	switch t {
	case EntryFile:
		return "file"
	case EntryDir:
		return "dir"
	default:
		return "unknown"
	}
}

// FileRecord is the value stored per filesystem entry.
//
// For EntryDir records Size, ModTime and Digest carry no meaning and are
// persisted as NULL. For EntryFile records all fields are set. ModTime is
// kept at second precision: that is what the manifest stores and what the
// filesystem reliably reports.
type FileRecord struct {
	// Type is EntryFile or EntryDir.
	Type EntryType

	// Size is the file size in octets. Meaningful only for EntryFile.
	Size int64

	// ModTime is the last-modified instant, truncated to whole seconds.
	// Meaningful only for EntryFile.
	ModTime time.Time

	// Digest is the content fingerprint. Meaningful only for EntryFile.
	Digest Digest
}

// HumanSize returns the record's size formatted with binary (IEC) units.
func (r FileRecord) HumanSize() string {
	return humanize.IBytes(uint64(r.Size))
}

// Matches reports whether actual is equal to r under the comparison rule:
// for EntryFile records all of type, size, mtime (second precision) and
// digest must agree; for EntryDir records only the type is compared.
func (r FileRecord) Matches(actual FileRecord) bool {
	if r.Type != actual.Type {
		return false
	}
	if r.Type == EntryDir {
		return true
	}
	return r.Size == actual.Size &&
		r.ModTime.Unix() == actual.ModTime.Unix() &&
		r.Digest == actual.Digest
}

// Diff returns the names of the fields that differ between r (the expected
// record) and actual, in a stable order. An empty slice means the records
// match.
func (r FileRecord) Diff(actual FileRecord) []string {
	if r.Type != actual.Type {
		return []string{"type"}
	}
	if r.Type == EntryDir {
		return nil
	}
	var fields []string
	if r.Size != actual.Size {
		fields = append(fields, "size")
	}
	if r.ModTime.Unix() != actual.ModTime.Unix() {
		fields = append(fields, "mtime")
	}
	if r.Digest != actual.Digest {
		fields = append(fields, "digest")
	}
	return fields
}

// JoinRel joins a relative directory and an entry name into a root-relative
// path. The manifest root is the empty string, so entries directly under the
// root join to their bare name.
func JoinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// SplitRel splits a root-relative path into its (dir, name) manifest key.
// Paths without a separator belong to the root directory.
func SplitRel(rel string) (dir, name string) {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[:i], rel[i+1:]
	}
	return "", rel
}
