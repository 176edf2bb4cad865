// Package output renders mismatch events and run summaries for the mirror
// tools. Two formats are provided: "plain" writes one diagnostic line per
// event (one per differing field for a mismatch) to the error stream,
// matching the engine's logging conventions, and
// "json" buffers events and emits a single machine-readable document.
package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/mirror/pkg/mirror/types"
)

// EventKind classifies a mismatch event.
type EventKind string

// Event kinds delivered by the verify and merge reporters.
const (
	// KindNewFile: the filesystem has an entry the manifest lacks.
	KindNewFile EventKind = "new_file"
	// KindNotFound: the manifest expects an entry the filesystem lacks.
	KindNotFound EventKind = "file_not_found"
	// KindMismatch: both sides have the entry but the records differ.
	KindMismatch EventKind = "mismatch"
	// KindMissingDir: a manifest directory was never visited by the walk.
	KindMissingDir EventKind = "missing_dir"
	// KindCopied: the merge tool copied the entry from the source tree.
	KindCopied EventKind = "copied"
)

// Event is one reported divergence between filesystem and manifest.
type Event struct {
	Kind EventKind `json:"kind"`

	// EntryType is "file" or "dir".
	EntryType string `json:"entry_type"`

	// Rel is the root-relative path of the entry, in the OS encoding.
	Rel string `json:"rel"`

	// Fields names the differing record fields for KindMismatch.
	Fields []string `json:"fields,omitempty"`

	// Expected and Actual carry the compared records for KindMismatch.
	Expected *types.FileRecord `json:"expected,omitempty"`
	Actual   *types.FileRecord `json:"actual,omitempty"`
}

// Summary aggregates one tool run.
type Summary struct {
	Tool        string        `json:"tool"`
	Root        string        `json:"root"`
	Dirs        int64         `json:"dirs"`
	Files       int64         `json:"files"`
	BytesHashed int64         `json:"bytes_hashed"`
	NewFiles    int64         `json:"new_files"`
	Missing     int64         `json:"missing"`
	Mismatched  int64         `json:"mismatched"`
	MissingDirs int64         `json:"missing_dirs"`
	Copied      int64         `json:"copied"`
	Elapsed     time.Duration `json:"elapsed"`

	// Complete is false when the walk aborted before covering the tree.
	Complete bool `json:"complete"`
}

// Clean reports whether the run observed no divergence at all.
func (s Summary) Clean() bool {
	return s.NewFiles == 0 && s.Missing == 0 && s.Mismatched == 0 && s.MissingDirs == 0
}

// Printer receives events as they happen and the summary at the end of the
// run.
type Printer interface {
	// Event renders or buffers one event.
	Event(ev Event)

	// Summary finishes the run's output.
	Summary(s Summary) error
}

// factory builds a printer writing events to ew and the summary to sw.
type factory func(ew, sw io.Writer) Printer

var (
	registryMu sync.Mutex
	registry   = make(map[string]factory)
)

// register adds a printer format. Called from init functions.
func register(name string, f factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New returns a printer for the named format. Events go to ew (the error
// stream for the plain format), the summary to sw.
func New(format string, ew, sw io.Writer) (Printer, error) {
	registryMu.Lock()
	f, ok := registry[format]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (have %v)", format, Formats())
	}
	return f(ew, sw), nil
}

// Formats lists the registered format names, sorted.
func Formats() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
