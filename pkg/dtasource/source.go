// Package dtasource provides random-access byte sources for the decoder:
// local files (memory-mapped where the platform supports it) and S3
// objects, unified behind one Source interface so internal/byteio.Reader
// never needs to know where the bytes actually live.
package dtasource

import (
	"errors"
	"strings"
)

// Source is a random-access byte source: exactly what the ByteReader
// contract in §6 of the spec needs ("requires size() and random seek()").
type Source interface {
	ReadAt(p []byte, off int64) (int, error)
	Size() int64
	Close() error
}

// ErrEmpty is returned when opening a zero-length source; a .dta file
// can never be valid at zero bytes (the header alone is nonzero size).
var ErrEmpty = errors.New("dtasource: empty source")

// Open resolves path to a Source, dispatching on URI scheme: "s3://" opens
// an S3Source, anything else opens a local FileSource. This is the single
// entry point dtareader.Open uses to turn a path into a byte source.
func Open(path string) (Source, error) {
	if strings.HasPrefix(path, "s3://") {
		return OpenS3(path)
	}
	return OpenFile(path)
}

// MemorySource wraps an in-memory byte slice, used by tests and by callers
// that already have the file's bytes resident (e.g. small fixtures).
type MemorySource struct {
	data []byte
}

// NewMemorySource wraps data as a Source. The returned Source does not
// take ownership of data; callers must not mutate it while in use.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

func (m *MemorySource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, errors.New("dtasource: offset out of range")
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *MemorySource) Size() int64 { return int64(len(m.data)) }
func (m *MemorySource) Close() error { return nil }
