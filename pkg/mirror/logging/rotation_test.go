package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestRotation verifies that exceeding the size limit rotates and
// compresses the old file.
func TestRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 64, MaxBackups: 3, Compress: true})
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()

	payload := bytes.Repeat([]byte("a"), 48)
	for i := 0; i < 4; i++ {
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var current, compressed int
	for _, e := range entries {
		switch {
		case e.Name() == "r.log":
			current++
		case strings.HasSuffix(e.Name(), ".gz"):
			compressed++
		}
	}
	if current != 1 {
		t.Errorf("expected one live log file, found %d", current)
	}
	if compressed == 0 {
		t.Errorf("expected compressed backups, dir: %v", entries)
	}
}

// TestRotationMaxBackups verifies old backups are pruned.
func TestRotationMaxBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 8, MaxBackups: 1, Compress: false})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for i := 0; i < 6; i++ {
		if _, err := w.Write([]byte("0123456789")); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var backups int
	for _, e := range entries {
		if e.Name() != "r.log" {
			backups++
		}
	}
	if backups > 1 {
		t.Errorf("backups not pruned: %d", backups)
	}
}
