package output

import (
	"fmt"
	"io"
	"time"
)

// PlainPrinter writes one diagnostic line per event (one per differing field
// for a mismatch), with the offending path quoted, and a styled summary block
// at the end of the run.
type PlainPrinter struct {
	ew io.Writer
	sw io.Writer
}

// Event writes the event to the error stream: a single line, or one line per
// differing field for a mismatch.
func (p *PlainPrinter) Event(ev Event) {
	switch ev.Kind {
	case KindNewFile:
		fmt.Fprintf(p.ew, "New %s found in the file system: %q\n", ev.EntryType, ev.Rel)
	case KindNotFound:
		fmt.Fprintf(p.ew, "%s not found in the file system: %q\n", title(ev.EntryType), ev.Rel)
	case KindMismatch:
		p.mismatch(ev)
	case KindMissingDir:
		fmt.Fprintf(p.ew, "Manifest directory not found in the file system: %q\n", ev.Rel)
	case KindCopied:
		fmt.Fprintf(p.ew, "Copied %s from the source tree: %q\n", ev.EntryType, ev.Rel)
	}
}

// mismatch writes one line per differing field, mirroring the record
// comparison rule.
func (p *PlainPrinter) mismatch(ev Event) {
	for _, field := range ev.Fields {
		switch field {
		case "type":
			fmt.Fprintf(p.ew, "Entry type mismatch for %q: manifest %s, file system %s\n",
				ev.Rel, ev.Expected.Type, ev.Actual.Type)
		case "size":
			fmt.Fprintf(p.ew, "Size mismatch for %q: manifest %d, file system %d\n",
				ev.Rel, ev.Expected.Size, ev.Actual.Size)
		case "mtime":
			fmt.Fprintf(p.ew, "Modification time mismatch for %q: manifest %s, file system %s\n",
				ev.Rel,
				ev.Expected.ModTime.UTC().Format(time.RFC3339),
				ev.Actual.ModTime.UTC().Format(time.RFC3339))
		case "digest":
			fmt.Fprintf(p.ew, "Digest mismatch for %q: manifest %x, file system %x\n",
				ev.Rel, ev.Expected.Digest, ev.Actual.Digest)
		}
	}
}

// Summary writes the styled run summary.
func (p *PlainPrinter) Summary(s Summary) error {
	_, err := io.WriteString(p.sw, renderSummary(s))
	return err
}

func title(entryType string) string {
	switch entryType {
	case "file":
		return "File"
	case "dir":
		return "Directory"
	default:
		return "Entry"
	}
}

func init() {
	register("plain", func(ew, sw io.Writer) Printer {
		return &PlainPrinter{ew: ew, sw: sw}
	})
}

var _ Printer = (*PlainPrinter)(nil)
