package digest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jamesainslie/mirror/pkg/mirror/types"
)

// TestEmptyInput pins the fingerprint of the empty input. Changing the
// digest function invalidates every existing manifest, so this failing is a
// release blocker, not a test to update.
func TestEmptyInput(t *testing.T) {
	want := types.Digest{0xef, 0x46, 0xdb, 0x37, 0x51, 0xd8, 0xe9, 0x99}

	if got := Bytes(nil); got != want {
		t.Errorf("Bytes(nil) = %x, want %x", got, want)
	}
	got, err := Reader(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("Reader(empty) = %x, want %x", got, want)
	}
}

// TestReaderMatchesBytes verifies that the streaming and one-shot paths
// agree, including across chunk boundaries.
func TestReaderMatchesBytes(t *testing.T) {
	inputs := []string{
		"",
		"foo",
		strings.Repeat("x", ChunkSize-1),
		strings.Repeat("x", ChunkSize),
		strings.Repeat("x", ChunkSize+1),
		strings.Repeat("abc", 10*ChunkSize),
	}

	for _, in := range inputs {
		want := Bytes([]byte(in))
		got, err := Reader(strings.NewReader(in))
		if err != nil {
			t.Fatalf("len %d: unexpected error: %v", len(in), err)
		}
		if got != want {
			t.Errorf("len %d: Reader = %x, Bytes = %x", len(in), got, want)
		}
	}
}

// TestHasherIncremental verifies that split updates equal one write.
func TestHasherIncremental(t *testing.T) {
	d := New()
	d.Write([]byte("hello "))
	d.Write([]byte("world"))

	if got, want := d.Sum(), Bytes([]byte("hello world")); got != want {
		t.Errorf("incremental = %x, one-shot = %x", got, want)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

// TestReaderAborts verifies that a read error yields no partial digest.
func TestReaderAborts(t *testing.T) {
	got, err := Reader(failingReader{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got != (types.Digest{}) {
		t.Errorf("partial digest leaked: %x", got)
	}
}
