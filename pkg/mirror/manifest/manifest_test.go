package manifest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/mirror/pkg/mirror/types"
)

func testManifest(t *testing.T) (*Manifest, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	m, err := Open(path, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, path
}

func fileRecord(size int64, sec int64, dig byte) types.FileRecord {
	var d types.Digest
	d[7] = dig
	return types.FileRecord{Type: types.EntryFile, Size: size, ModTime: time.Unix(sec, 0), Digest: d}
}

func TestOpenMissingWithoutCreate(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.db"), false)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestPutListDirs(t *testing.T) {
	m, _ := testManifest(t)

	require.NoError(t, m.Put("", "a.txt", fileRecord(3, 1700000000, 0x01)))
	require.NoError(t, m.Put("", "sub", types.FileRecord{Type: types.EntryDir}))
	require.NoError(t, m.Put("sub", "b.txt", fileRecord(0, 1700000100, 0x02)))

	root, err := m.List("")
	require.NoError(t, err)
	require.Len(t, root, 2)
	assert.Equal(t, fileRecord(3, 1700000000, 0x01), root["a.txt"])
	assert.Equal(t, types.FileRecord{Type: types.EntryDir}, root["sub"])

	sub, err := m.List("sub")
	require.NoError(t, err)
	require.Len(t, sub, 1)
	assert.Equal(t, fileRecord(0, 1700000100, 0x02), sub["b.txt"])

	empty, err := m.List("no/such/dir")
	require.NoError(t, err)
	assert.Empty(t, empty)

	dirs, err := m.Dirs()
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"": {}, "sub": {}}, dirs)
}

// TestPutReplaces verifies insert-or-replace semantics on the (file, dir)
// primary key.
func TestPutReplaces(t *testing.T) {
	m, _ := testManifest(t)

	require.NoError(t, m.Put("", "a", fileRecord(1, 1700000000, 0x01)))
	require.NoError(t, m.Put("", "a", fileRecord(2, 1700000500, 0x02)))

	root, err := m.List("")
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, fileRecord(2, 1700000500, 0x02), root["a"])
}

// TestDirRecordColumnsNull verifies that directory rows store no size,
// mtime or digest.
func TestDirRecordColumnsNull(t *testing.T) {
	m, _ := testManifest(t)

	require.NoError(t, m.Put("", "d", types.FileRecord{
		// Values beyond the type must be ignored for directories.
		Type: types.EntryDir, Size: 99, ModTime: time.Unix(1700000000, 0),
	}))

	root, err := m.List("")
	require.NoError(t, err)
	assert.Equal(t, types.FileRecord{Type: types.EntryDir}, root["d"])
}

func TestRollbackRestoresPriorState(t *testing.T) {
	m, _ := testManifest(t)

	require.NoError(t, m.Put("", "keep", fileRecord(1, 1700000000, 0x01)))

	require.NoError(t, m.Begin())
	require.NoError(t, m.Put("", "discard", fileRecord(2, 1700000100, 0x02)))
	require.NoError(t, m.Rollback())

	root, err := m.List("")
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Contains(t, root, "keep")
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	m, path := testManifest(t)

	require.NoError(t, m.Begin())
	require.NoError(t, m.Put("", "a", fileRecord(1, 1700000000, 0x01)))
	require.NoError(t, m.Commit())
	require.NoError(t, m.Close())

	reopened, err := Open(path, false)
	require.NoError(t, err)
	defer reopened.Close()

	root, err := reopened.List("")
	require.NoError(t, err)
	assert.Contains(t, root, "a")
}

func TestNestedBeginRejected(t *testing.T) {
	m, _ := testManifest(t)

	require.NoError(t, m.Begin())
	assert.ErrorIs(t, m.Begin(), ErrWrite)
}

func TestCloseIdempotent(t *testing.T) {
	m, _ := testManifest(t)

	require.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}

// TestUTF8KeysOpaque verifies that names are stored and compared as octets,
// with no normalization.
func TestUTF8KeysOpaque(t *testing.T) {
	m, _ := testManifest(t)

	// NFC and NFD spellings of "é" are distinct keys.
	nfc := "caf\u00e9"
	nfd := "cafe\u0301"
	require.NoError(t, m.Put("", nfc, fileRecord(1, 1700000000, 0x01)))
	require.NoError(t, m.Put("", nfd, fileRecord(2, 1700000100, 0x02)))

	root, err := m.List("")
	require.NoError(t, err)
	require.Len(t, root, 2)
	assert.Equal(t, int64(1), root[nfc].Size)
	assert.Equal(t, int64(2), root[nfd].Size)
}
