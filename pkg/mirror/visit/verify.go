package visit

import (
	"fmt"
	"time"

	"github.com/jamesainslie/mirror/pkg/mirror/digest"
	"github.com/jamesainslie/mirror/pkg/mirror/encoding"
	"github.com/jamesainslie/mirror/pkg/mirror/manifest"
	"github.com/jamesainslie/mirror/pkg/mirror/output"
	"github.com/jamesainslie/mirror/pkg/mirror/types"
	"github.com/jamesainslie/mirror/pkg/mirror/walker"
)

// Verify compares the filesystem against the manifest and routes every
// divergence through the MismatchReporter. The merge tool is this same
// visitor with a repairing reporter.
//
// Per directory it keeps the manifest's view of the children on a stack;
// entries are erased as the walk matches them, and whatever remains at
// DirLeave is missing from the filesystem. Directories recorded in the
// manifest but never entered by the walk surface from Finish.
type Verify struct {
	man      *manifest.Manifest
	reporter MismatchReporter
	printer  output.Printer
	stats    *Stats

	remaining map[string]struct{}
	expected  []map[string]types.FileRecord
}

// NewVerify returns the visitor for the verify-dir and merge-dir tools. It
// snapshots the manifest's directory set up front.
func NewVerify(man *manifest.Manifest, reporter MismatchReporter, printer output.Printer, stats *Stats) (*Verify, error) {
	remaining, err := man.Dirs()
	if err != nil {
		return nil, err
	}
	return &Verify{
		man:       man,
		reporter:  reporter,
		printer:   printer,
		stats:     stats,
		remaining: remaining,
	}, nil
}

// DirEnter loads the manifest's children of the directory onto the expected
// stack and marks the directory as seen.
func (v *Verify) DirEnter(relDir []byte) error {
	v.stats.Dirs++

	dirU8, err := encoding.ToUTF8(relDir)
	if err != nil {
		return err
	}
	delete(v.remaining, string(dirU8))

	children, err := v.man.List(string(dirU8))
	if err != nil {
		return err
	}
	v.expected = append(v.expected, children)
	return nil
}

// File matches the entry against the expected map of the current directory.
func (v *Verify) File(e *walker.Entry) (bool, error) {
	if !e.IsDir {
		v.stats.Files++
	}

	nameU8, err := encoding.ToUTF8(e.Name)
	if err != nil {
		return false, err
	}

	top := v.expected[len(v.expected)-1]
	expected, ok := top[string(nameU8)]
	if !ok {
		// Unknown entries are reported once; the walk does not descend
		// into unknown directories.
		v.reporter.NewFile(entryType(e), e.Rel)
		return false, nil
	}
	delete(top, string(nameU8))

	actual, err := actualRecord(e, expected, v.stats)
	if err != nil {
		return false, err
	}
	equal := v.reporter.CheckMismatch(e.Rel, expected, actual)
	return equal, nil
}

// DirLeave reports every expected entry the walk never matched.
func (v *Verify) DirLeave(relDir []byte) error {
	top := v.expected[len(v.expected)-1]
	v.expected = v.expected[:len(v.expected)-1]

	for name, rec := range top {
		nameOS, err := encoding.FromUTF8([]byte(name))
		if err != nil {
			return err
		}
		v.reporter.FileNotFound(rec.Type, joinRel(relDir, nameOS))
	}
	return nil
}

// Finish emits the missing-directory diagnostics for manifest directories
// the walk never visited. Call after the walk completes normally.
func (v *Verify) Finish() error {
	for dir := range v.remaining {
		dirOS, err := encoding.FromUTF8([]byte(dir))
		if err != nil {
			return err
		}
		v.stats.MissingDirs++
		logger.Debug("manifest directory not found in the file system", "dir", string(dirOS))
		v.printer.Event(output.Event{
			Kind:      output.KindMissingDir,
			EntryType: types.EntryDir.String(),
			Rel:       string(dirOS),
		})
	}
	return nil
}

// actualRecord builds the filesystem-side record for comparison. The digest
// is only computed when the manifest record is a file record; comparing
// against a directory record needs the type alone.
func actualRecord(e *walker.Entry, expected types.FileRecord, stats *Stats) (types.FileRecord, error) {
	if e.IsDir {
		return types.FileRecord{Type: types.EntryDir}, nil
	}
	rec := types.FileRecord{
		Type:    types.EntryFile,
		Size:    e.Stat.Size,
		ModTime: time.Unix(walker.Mtim(&e.Stat).Sec, 0),
	}
	if expected.Type != types.EntryFile {
		return rec, nil
	}
	dig, err := digest.Reader(e.File)
	if err != nil {
		return types.FileRecord{}, fmt.Errorf("digesting %q: %w", e.Rel, err)
	}
	stats.BytesHashed += e.Stat.Size
	rec.Digest = dig
	return rec, nil
}

func entryType(e *walker.Entry) types.EntryType {
	if e.IsDir {
		return types.EntryDir
	}
	return types.EntryFile
}

// joinRel joins an OS-encoded relative directory and name into a fresh
// byte slice; the inputs alias the walker's buffer and must not be
// retained.
func joinRel(relDir, name []byte) []byte {
	if len(relDir) == 0 {
		out := make([]byte, len(name))
		copy(out, name)
		return out
	}
	out := make([]byte, 0, len(relDir)+1+len(name))
	out = append(out, relDir...)
	out = append(out, '/')
	out = append(out, name...)
	return out
}
