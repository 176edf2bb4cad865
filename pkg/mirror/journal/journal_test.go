package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAndList(t *testing.T) {
	j, err := New(t.TempDir())
	require.NoError(t, err)

	first, err := j.Log(Entry{Tool: "create-db", Root: "/data", Dirs: 2, Files: 3, Outcome: "ok"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())

	time.Sleep(10 * time.Millisecond)
	second, err := j.Log(Entry{Tool: "verify-dir", Root: "/data", Outcome: "ok"})
	require.NoError(t, err)

	entries, err := j.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.Equal(t, "create-db", entries[1].Tool)
	assert.Equal(t, int64(3), entries[1].Files)
}

func TestListMissingDir(t *testing.T) {
	j, err := New(filepath.Join(t.TempDir(), "never-created"))
	require.NoError(t, err)

	entries, err := j.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewRejectsEmptyDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
