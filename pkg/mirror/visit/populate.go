package visit

import (
	"fmt"
	"time"

	"github.com/jamesainslie/mirror/pkg/mirror/digest"
	"github.com/jamesainslie/mirror/pkg/mirror/encoding"
	"github.com/jamesainslie/mirror/pkg/mirror/manifest"
	"github.com/jamesainslie/mirror/pkg/mirror/types"
	"github.com/jamesainslie/mirror/pkg/mirror/walker"
)

// Populate fills the manifest from the filesystem. Every regular file and
// directory the walk yields becomes one manifest row; the caller wraps the
// walk in a single transaction so an aborted run leaves the manifest
// untouched.
type Populate struct {
	man   *manifest.Manifest
	stats *Stats
}

// NewPopulate returns the visitor for the create-db tool.
func NewPopulate(man *manifest.Manifest, stats *Stats) *Populate {
	return &Populate{man: man, stats: stats}
}

// DirEnter carries no populate state.
func (p *Populate) DirEnter(relDir []byte) error {
	p.stats.Dirs++
	return nil
}

// File records the entry and always descends.
func (p *Populate) File(e *walker.Entry) (bool, error) {
	rec, err := recordOf(e, p.stats)
	if err != nil {
		return false, err
	}

	dirU8, err := encoding.ToUTF8(e.RelDir)
	if err != nil {
		return false, err
	}
	nameU8, err := encoding.ToUTF8(e.Name)
	if err != nil {
		return false, err
	}

	logger.Debug("recording entry", "path", string(e.Rel), "type", rec.Type)
	if err := p.man.Put(string(dirU8), string(nameU8), rec); err != nil {
		return false, err
	}
	if !e.IsDir {
		p.stats.Files++
	}
	return true, nil
}

// DirLeave carries no populate state.
func (p *Populate) DirLeave(relDir []byte) error {
	return nil
}

// recordOf builds the manifest record for a walk entry. For files the
// content digest streams from the entry's already-open descriptor.
func recordOf(e *walker.Entry, stats *Stats) (types.FileRecord, error) {
	if e.IsDir {
		return types.FileRecord{Type: types.EntryDir}, nil
	}
	dig, err := digest.Reader(e.File)
	if err != nil {
		return types.FileRecord{}, fmt.Errorf("digesting %q: %w", e.Rel, err)
	}
	stats.BytesHashed += e.Stat.Size
	return types.FileRecord{
		Type:    types.EntryFile,
		Size:    e.Stat.Size,
		ModTime: time.Unix(walker.Mtim(&e.Stat).Sec, 0),
		Digest:  dig,
	}, nil
}
