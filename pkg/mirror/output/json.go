package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jamesainslie/mirror/pkg/mirror/types"
)

// jsonDocument is the full JSON output structure.
type jsonDocument struct {
	Events  []jsonEvent `json:"events"`
	Summary jsonSummary `json:"summary"`
}

// jsonEvent is an event in JSON output. Records are flattened so consumers
// do not need the internal record shape.
type jsonEvent struct {
	Kind      EventKind       `json:"kind"`
	EntryType string          `json:"entry_type"`
	Rel       string          `json:"rel"`
	Fields    []string        `json:"fields,omitempty"`
	Expected  *jsonFileRecord `json:"expected,omitempty"`
	Actual    *jsonFileRecord `json:"actual,omitempty"`
}

type jsonFileRecord struct {
	Type    string    `json:"type"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"mod_time,omitzero"`
	Digest  string    `json:"digest,omitempty"`
}

type jsonSummary struct {
	Tool        string `json:"tool"`
	Root        string `json:"root"`
	Dirs        int64  `json:"dirs"`
	Files       int64  `json:"files"`
	BytesHashed int64  `json:"bytes_hashed"`
	NewFiles    int64  `json:"new_files"`
	Missing     int64  `json:"missing"`
	Mismatched  int64  `json:"mismatched"`
	MissingDirs int64  `json:"missing_dirs"`
	Copied      int64  `json:"copied"`
	Elapsed     string `json:"elapsed"`
	Complete    bool   `json:"complete"`
	Clean       bool   `json:"clean"`
}

// JSONPrinter buffers events and emits one document with the summary.
type JSONPrinter struct {
	sw     io.Writer
	events []jsonEvent
}

// Event buffers the event for the final document.
func (p *JSONPrinter) Event(ev Event) {
	p.events = append(p.events, jsonEvent{
		Kind:      ev.Kind,
		EntryType: ev.EntryType,
		Rel:       ev.Rel,
		Fields:    ev.Fields,
		Expected:  convertRecord(ev.Expected),
		Actual:    convertRecord(ev.Actual),
	})
}

// Summary emits the buffered document.
func (p *JSONPrinter) Summary(s Summary) error {
	doc := jsonDocument{
		Events: p.events,
		Summary: jsonSummary{
			Tool:        s.Tool,
			Root:        s.Root,
			Dirs:        s.Dirs,
			Files:       s.Files,
			BytesHashed: s.BytesHashed,
			NewFiles:    s.NewFiles,
			Missing:     s.Missing,
			Mismatched:  s.Mismatched,
			MissingDirs: s.MissingDirs,
			Copied:      s.Copied,
			Elapsed:     s.Elapsed.String(),
			Complete:    s.Complete,
			Clean:       s.Clean(),
		},
	}
	if doc.Events == nil {
		doc.Events = []jsonEvent{}
	}
	enc := json.NewEncoder(p.sw)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func convertRecord(r *types.FileRecord) *jsonFileRecord {
	if r == nil {
		return nil
	}
	out := &jsonFileRecord{Type: r.Type.String()}
	if r.Type == types.EntryFile {
		out.Size = r.Size
		out.ModTime = r.ModTime.UTC()
		out.Digest = fmt.Sprintf("%x", r.Digest)
	}
	return out
}

func init() {
	register("json", func(ew, sw io.Writer) Printer {
		return &JSONPrinter{sw: sw}
	})
}

var _ Printer = (*JSONPrinter)(nil)
