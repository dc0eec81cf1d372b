// Package byteio wraps a seekable binary source with typed primitive reads
// under an explicit, switchable endianness mode. It plays the role of
// pkg/format's MmapFile + encoding/binary pairing in the teacher repo,
// generalized to any random-access Source rather than only a memory map.
package byteio

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"

	"github.com/korenmiklos/stata-dta/internal/dtaerr"
)

// Order selects the byte order applied to multi-byte reads.
type Order int

const (
	LittleEndian Order = iota
	BigEndian
)

// Source is a random-access byte source: exactly what os.File, an mmap'd
// slice, or a ranged network fetcher can all provide.
type Source interface {
	ReadAt(p []byte, off int64) (int, error)
	Size() int64
}

// StringEncoding selects how ReadNulPadded handles a byte sequence that
// isn't valid UTF-8.
type StringEncoding int

const (
	// LossyUTF8 substitutes U+FFFD for invalid sequences, the default:
	// most .dta producers write UTF-8 or 7-bit ASCII, and a display
	// string is rarely worth failing an entire decode over.
	LossyUTF8 StringEncoding = iota
	// StrictUTF8 fails ReadNulPadded with dtaerr.ErrInvalidFormat instead
	// of substituting, for callers that need to detect mojibake.
	StrictUTF8
)

// Reader is the ByteReader of the spec: every read either consumes the
// stated number of bytes and returns a value, or fails (with
// dtaerr.ErrUnexpectedEOF on a short read, the source's own error on a
// failed read, or dtaerr.ErrInvalidFormat for invalid UTF-8 under
// StrictUTF8). It is not safe for concurrent use — a Reader
// belongs to exactly one decoding pipeline at a time.
type Reader struct {
	src      Source
	pos      int64
	order    Order
	encoding StringEncoding
}

// New wraps src for typed reads, starting at offset 0 in little-endian mode.
func New(src Source) *Reader {
	return &Reader{src: src, order: LittleEndian}
}

// SetStringEncoding changes how ReadNulPadded handles invalid UTF-8 in
// reads issued after this call.
func (r *Reader) SetStringEncoding(e StringEncoding) { r.encoding = e }

// SetOrder changes the endianness applied to reads issued after this call.
// Reads already performed are unaffected, per the spec's "affects only
// reads after the change" contract.
func (r *Reader) SetOrder(o Order) { r.order = o }

// Order returns the current endianness mode.
func (r *Reader) Order() Order { return r.order }

// Position returns the current read cursor.
func (r *Reader) Position() int64 { return r.pos }

// Size returns the total size of the underlying source.
func (r *Reader) Size() int64 { return r.src.Size() }

// Seek moves the cursor to an absolute position.
func (r *Reader) Seek(pos int64) error {
	if pos < 0 || pos > r.src.Size() {
		return dtaerr.ErrUnexpectedEOF
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes (n may be negative).
func (r *Reader) Skip(n int64) error {
	return r.Seek(r.pos + n)
}

func (r *Reader) byteOrder() binary.ByteOrder {
	if r.order == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ReadFixed reads exactly n bytes, advancing the cursor. A short read fails
// with dtaerr.ErrUnexpectedEOF, never returning a partial slice.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.New("byteio: negative read length")
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	got, err := r.src.ReadAt(buf, r.pos)
	if got < n {
		return nil, dtaerr.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadU8 reads one byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.ReadFixed(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a 16-bit unsigned integer in the current byte order.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadFixed(2)
	if err != nil {
		return 0, err
	}
	return r.byteOrder().Uint16(b), nil
}

// ReadU32 reads a 32-bit unsigned integer in the current byte order.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadFixed(4)
	if err != nil {
		return 0, err
	}
	return r.byteOrder().Uint32(b), nil
}

// ReadU64 reads a 64-bit unsigned integer in the current byte order.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.ReadFixed(8)
	if err != nil {
		return 0, err
	}
	return r.byteOrder().Uint64(b), nil
}

// ReadI8 reinterprets one byte as signed.
func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

// ReadI16 reinterprets a 16-bit read as signed.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadI32 reinterprets a 32-bit read as signed.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadF32 reads a 32-bit value and bitcasts it to IEEE 754 single precision.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads a 64-bit value and bitcasts it to IEEE 754 double precision.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadNulPadded reads exactly max bytes and returns the prefix up to (but
// excluding) the first NUL byte, or the full slice if there is none. Bytes
// are decoded as UTF-8; under the default LossyUTF8 invalid sequences are
// replaced with U+FFFD, and under StrictUTF8 they fail the read with
// dtaerr.ErrInvalidFormat. Lossy replacement is the module's documented
// default string-encoding policy: modern .dta producers write
// UTF-8, older ones Latin-1-compatible ASCII, and neither breaks this rule
// for the 7-bit range that dominates variable names and labels.
func (r *Reader) ReadNulPadded(max int) (string, error) {
	b, err := r.ReadFixed(max)
	if err != nil {
		return "", err
	}
	if i := indexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if isValidASCIIOrUTF8(b) {
		return string(b), nil
	}
	if r.encoding == StrictUTF8 {
		return "", dtaerr.At("string", r.pos-int64(len(b)), dtaerr.ErrInvalidFormat)
	}
	return strings.ToValidUTF8(string(b), "�"), nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func isValidASCIIOrUTF8(b []byte) bool {
	return strings.ToValidUTF8(string(b), "") == string(b)
}
