// Package manifest provides the persistent store of file records backing the
// mirror tools. Records are keyed by (directory, filename) pairs of UTF-8
// octets and live in a single SQLite database file, so a manifest can be
// copied or shipped as one file alongside the tree it describes.
package manifest

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jamesainslie/mirror/pkg/mirror/logging"
	"github.com/jamesainslie/mirror/pkg/mirror/types"
)

// logger is the package-level logger for manifest operations.
var logger = logging.Get("manifest")

// Sentinel errors for the three failure surfaces of the store.
var (
	// ErrOpen indicates the backing file could not be opened or its schema
	// could not be established.
	ErrOpen = errors.New("manifest open failed")

	// ErrRead indicates a query against the store failed.
	ErrRead = errors.New("manifest read failed")

	// ErrWrite indicates a mutation of the store failed.
	ErrWrite = errors.New("manifest write failed")
)

const (
	addFileQuery     = `INSERT OR REPLACE INTO files (file, dir, type, size, last_modified, digest) VALUES (?, ?, ?, ?, ?, ?)`
	getDirFilesQuery = `SELECT file, type, size, last_modified, digest FROM files WHERE dir = ?`
	getDirsQuery     = `SELECT DISTINCT dir FROM files`
)

// Manifest is the transactional store of PathKey → FileRecord.
//
// A Manifest exclusively owns its database connection and prepared
// statements. It is not safe for concurrent use; the engine is
// single-threaded and no sharing contract is offered.
type Manifest struct {
	db    *sql.DB
	tx    *sql.Tx
	put   *sql.Stmt
	files *sql.Stmt
	dirs  *sql.Stmt
}

// Open opens the manifest at path. With create set, a missing file is
// created and initialized with the schema; without it, a missing file is an
// error. Schema and index creation are idempotent, so reopening an existing
// manifest with create set is harmless.
func Open(path string, create bool) (*Manifest, error) {
	if !create {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrOpen, path, err)
		}
	}

	logger.Debug("opening manifest", "path", path, "create", create)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpen, path, err)
	}
	// database/sql pools connections; the engine is single-threaded and the
	// transaction state must live on one connection.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %q: %v", ErrOpen, path, err)
	}

	m := &Manifest{db: db}
	for _, stmt := range []struct {
		dest  **sql.Stmt
		query string
	}{
		{&m.put, addFileQuery},
		{&m.files, getDirFilesQuery},
		{&m.dirs, getDirsQuery},
	} {
		s, err := db.Prepare(stmt.query)
		if err != nil {
			m.finalize()
			return nil, fmt.Errorf("%w: preparing %q: %v", ErrOpen, stmt.query, err)
		}
		*stmt.dest = s
	}

	return m, nil
}

// Begin opens the surrounding transaction for a tool run. Nested
// transactions are not supported.
func (m *Manifest) Begin() error {
	if m.tx != nil {
		return fmt.Errorf("%w: transaction already open", ErrWrite)
	}
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrWrite, err)
	}
	m.tx = tx
	return nil
}

// Commit makes all mutations since Begin durable.
func (m *Manifest) Commit() error {
	if m.tx == nil {
		return fmt.Errorf("%w: no open transaction", ErrWrite)
	}
	err := m.tx.Commit()
	m.tx = nil
	if err != nil {
		return fmt.Errorf("%w: commit: %v", ErrWrite, err)
	}
	return nil
}

// Rollback discards all mutations since Begin, returning the backing file to
// its prior state. Calling it without an open transaction is a no-op so that
// error unwinds can call it unconditionally.
func (m *Manifest) Rollback() error {
	if m.tx == nil {
		return nil
	}
	err := m.tx.Rollback()
	m.tx = nil
	if err != nil {
		return fmt.Errorf("%w: rollback: %v", ErrWrite, err)
	}
	return nil
}

// Put inserts or replaces the record for (dir, name). EntryDir records bind
// the three value columns as NULL.
func (m *Manifest) Put(dir, name string, rec types.FileRecord) error {
	var size, mtime any
	var dig any
	if rec.Type == types.EntryFile {
		size = rec.Size
		mtime = rec.ModTime.Unix()
		dig = rec.Digest[:]
	}
	if _, err := m.stmt(m.put).Exec(name, dir, int(rec.Type), size, mtime, dig); err != nil {
		return fmt.Errorf("%w: put %q/%q: %v", ErrWrite, dir, name, err)
	}
	return nil
}

// List returns the children of dir as a flat mapping from filename to
// record. Subdirectories appear as EntryDir rows. An empty map is a valid
// result.
func (m *Manifest) List(dir string) (map[string]types.FileRecord, error) {
	rows, err := m.stmt(m.files).Query(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %q: %v", ErrRead, dir, err)
	}
	defer rows.Close()

	out := make(map[string]types.FileRecord)
	for rows.Next() {
		var (
			name  string
			typ   int
			size  sql.NullInt64
			mtime sql.NullInt64
			dig   []byte
		)
		if err := rows.Scan(&name, &typ, &size, &mtime, &dig); err != nil {
			return nil, fmt.Errorf("%w: list %q: %v", ErrRead, dir, err)
		}
		rec := types.FileRecord{Type: types.EntryType(typ)}
		if rec.Type == types.EntryFile {
			rec.Size = size.Int64
			rec.ModTime = time.Unix(mtime.Int64, 0)
			copy(rec.Digest[:], dig)
		}
		out[name] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %q: %v", ErrRead, dir, err)
	}
	return out, nil
}

// Dirs returns the distinct directory values across all rows.
func (m *Manifest) Dirs() (map[string]struct{}, error) {
	rows, err := m.stmt(m.dirs).Query()
	if err != nil {
		return nil, fmt.Errorf("%w: dirs: %v", ErrRead, err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var dir string
		if err := rows.Scan(&dir); err != nil {
			return nil, fmt.Errorf("%w: dirs: %v", ErrRead, err)
		}
		out[dir] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: dirs: %v", ErrRead, err)
	}
	return out, nil
}

// Close rolls back any open transaction, finalizes the prepared statements
// and releases the connection. It is idempotent after success.
func (m *Manifest) Close() error {
	if m.db == nil {
		return nil
	}
	_ = m.Rollback()
	err := m.finalize()
	if err != nil {
		return fmt.Errorf("%w: close: %v", ErrWrite, err)
	}
	return nil
}

// stmt routes a prepared statement through the open transaction, if any.
func (m *Manifest) stmt(s *sql.Stmt) *sql.Stmt {
	if m.tx != nil {
		return m.tx.Stmt(s)
	}
	return s
}

func (m *Manifest) finalize() error {
	for _, s := range []*sql.Stmt{m.put, m.files, m.dirs} {
		if s != nil {
			_ = s.Close()
		}
	}
	m.put, m.files, m.dirs = nil, nil, nil
	err := m.db.Close()
	m.db = nil
	return err
}
