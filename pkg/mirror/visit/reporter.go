// Package visit provides the walker visitors behind the three mirror tools:
// populate fills the manifest, verify compares the filesystem against it,
// and merge reuses verify's comparison to copy missing entries from a source
// tree. Mismatch handling is factored into the MismatchReporter strategy so
// verify and merge share one comparison pass.
package visit

import (
	"github.com/jamesainslie/mirror/pkg/mirror/copier"
	"github.com/jamesainslie/mirror/pkg/mirror/logging"
	"github.com/jamesainslie/mirror/pkg/mirror/output"
	"github.com/jamesainslie/mirror/pkg/mirror/types"
)

// logger is the package-level logger for visitor events.
var logger = logging.Get("visit")

// MismatchReporter receives typed mismatch events from the verify pass and
// decides what to log, repair or ignore. Any method may be a no-op.
type MismatchReporter interface {
	// FileNotFound is called when the manifest expects an entry the
	// filesystem lacks. rel is the root-relative path in the OS encoding.
	FileNotFound(t types.EntryType, rel []byte)

	// NewFile is called when the filesystem has an entry the manifest
	// lacks.
	NewFile(t types.EntryType, rel []byte)

	// CheckMismatch compares the two records under the engine's comparison
	// rule and returns true when they are equal. Callers use the verdict
	// to decide descent into directories.
	CheckMismatch(rel []byte, expected, actual types.FileRecord) bool
}

// Stats aggregates counters across one tool run.
type Stats struct {
	Dirs        int64
	Files       int64
	BytesHashed int64
	NewFiles    int64
	Missing     int64
	Mismatched  int64
	MissingDirs int64
	Copied      int64
}

// LogReporter reports every event through the output printer and keeps the
// run counters. It is the reporter behind verify-dir.
type LogReporter struct {
	Printer output.Printer
	Stats   *Stats
}

// NewLogReporter returns a reporter emitting to p.
func NewLogReporter(p output.Printer, stats *Stats) *LogReporter {
	return &LogReporter{Printer: p, Stats: stats}
}

// FileNotFound reports a manifest entry absent from the filesystem.
func (r *LogReporter) FileNotFound(t types.EntryType, rel []byte) {
	r.Stats.Missing++
	r.Printer.Event(output.Event{Kind: output.KindNotFound, EntryType: t.String(), Rel: string(rel)})
}

// NewFile reports a filesystem entry absent from the manifest.
func (r *LogReporter) NewFile(t types.EntryType, rel []byte) {
	r.Stats.NewFiles++
	r.Printer.Event(output.Event{Kind: output.KindNewFile, EntryType: t.String(), Rel: string(rel)})
}

// CheckMismatch applies the comparison rule and reports differing fields.
func (r *LogReporter) CheckMismatch(rel []byte, expected, actual types.FileRecord) bool {
	fields := expected.Diff(actual)
	if len(fields) == 0 {
		return true
	}
	r.Stats.Mismatched++
	e, a := expected, actual
	r.Printer.Event(output.Event{
		Kind:      output.KindMismatch,
		EntryType: actual.Type.String(),
		Rel:       string(rel),
		Fields:    fields,
		Expected:  &e,
		Actual:    &a,
	})
	return false
}

// MergeReporter is the reporter behind merge-dir. It reports like
// LogReporter but additionally copies entries that are missing from the
// destination tree. New files in the destination are reported, never
// deleted.
type MergeReporter struct {
	*LogReporter
	Engine *copier.Engine
}

// NewMergeReporter returns a reporter that repairs missing entries through
// eng.
func NewMergeReporter(p output.Printer, stats *Stats, eng *copier.Engine) *MergeReporter {
	return &MergeReporter{LogReporter: NewLogReporter(p, stats), Engine: eng}
}

// FileNotFound copies the missing entry from the source tree.
func (r *MergeReporter) FileNotFound(t types.EntryType, rel []byte) {
	r.LogReporter.FileNotFound(t, rel)

	var ok bool
	switch t {
	case types.EntryFile:
		ok = r.Engine.CopyFile(string(rel))
	case types.EntryDir:
		ok = r.Engine.CopySubtree(string(rel))
	}
	if ok {
		r.Stats.Copied++
		r.Printer.Event(output.Event{Kind: output.KindCopied, EntryType: t.String(), Rel: string(rel)})
	}
}
