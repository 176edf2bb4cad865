// Package journal records one entry per tool run in the state directory, so
// that past create/verify/merge operations and their outcomes can be
// reviewed after the fact. Entries are standalone JSON files named by
// timestamp and id; the journal is append-only and never read by the engine
// itself.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is a single journal record.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Tool      string        `json:"tool"`
	Root      string        `json:"root"`
	Dest      string        `json:"dest,omitempty"`
	Dirs      int64         `json:"dirs"`
	Files     int64         `json:"files"`
	NewFiles  int64         `json:"new_files,omitempty"`
	Missing   int64         `json:"missing,omitempty"`
	Mismatch  int64         `json:"mismatched,omitempty"`
	Copied    int64         `json:"copied,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
	Outcome   string        `json:"outcome"`
}

// Journal writes run entries to a directory.
type Journal struct {
	dir string
}

// New returns a journal rooted at dir. The directory is created on first
// write.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal directory cannot be empty")
	}
	return &Journal{dir: dir}, nil
}

// Log persists the entry, assigning its id and timestamp.
func (j *Journal) Log(e Entry) (*Entry, error) {
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	e.ID = uuid.NewString()
	e.Timestamp = time.Now().UTC()

	data, err := json.MarshalIndent(&e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding journal entry: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", e.Timestamp.Format("20060102T150405Z"), e.ID)
	path := filepath.Join(j.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing journal entry: %w", err)
	}
	return &e, nil
}

// List returns all entries, newest first. Unreadable entries are skipped.
func (j *Journal) List() ([]Entry, error) {
	files, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading journal directory: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(j.dir, f.Name()))
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Timestamp.After(entries[b].Timestamp)
	})
	return entries, nil
}
