// Package digest computes the streaming content fingerprint stored in the
// manifest's digest column. The fingerprint is the big-endian encoding of a
// 64-bit xxhash over the file's bytes, giving the fixed 8-octet width the
// manifest schema requires. The function must stay fixed for the lifetime of
// a manifest: changing it invalidates every stored digest.
package digest

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/jamesainslie/mirror/pkg/mirror/types"
)

// ChunkSize is the read granularity for streaming a file through the hash.
const ChunkSize = 4096

// Hasher accumulates file content into a fingerprint.
type Hasher struct {
	h *xxhash.Digest
}

// New returns a Hasher ready to accept content.
func New() *Hasher {
	return &Hasher{h: xxhash.New()}
}

// Write feeds content into the hash. It never fails.
func (d *Hasher) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum finalizes the hash and returns the 8-octet fingerprint.
func (d *Hasher) Sum() types.Digest {
	var out types.Digest
	binary.BigEndian.PutUint64(out[:], d.h.Sum64())
	return out
}

// Reader streams r to completion in ChunkSize reads and returns the
// fingerprint of everything read. Any read error aborts the computation;
// there is no partial result.
func Reader(r io.Reader) (types.Digest, error) {
	d := New()
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			d.h.Write(buf[:n])
		}
		if err == io.EOF {
			return d.Sum(), nil
		}
		if err != nil {
			return types.Digest{}, fmt.Errorf("reading content: %w", err)
		}
	}
}

// Bytes returns the fingerprint of an in-memory byte slice.
func Bytes(p []byte) types.Digest {
	var out types.Digest
	binary.BigEndian.PutUint64(out[:], xxhash.Sum64(p))
	return out
}
