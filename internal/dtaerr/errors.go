// Package dtaerr defines the coarse error taxonomy shared by every decoder
// layer, following the sentinel-error convention in pkg/format/errors.go.
package dtaerr

import "errors"

var (
	// ErrUnexpectedEOF indicates a fixed-size read returned fewer bytes than required.
	ErrUnexpectedEOF = errors.New("stata-dta: unexpected end of file")
	// ErrInvalidFormat indicates a structural problem: a missing tag, a bad
	// byte-order byte, or a section shorter than its declared width.
	ErrInvalidFormat = errors.New("stata-dta: invalid format")
	// ErrUnsupportedVersion indicates format_version is outside the supported set.
	ErrUnsupportedVersion = errors.New("stata-dta: unsupported format version")
	// ErrUnsupportedType indicates a type code outside the recognized ranges.
	ErrUnsupportedType = errors.New("stata-dta: unsupported variable type")
	// ErrStrLUnsupported indicates a strL (long string / GSO) column was
	// asked to materialize a value; schema introspection still works. It is
	// a variant of ErrUnsupportedType: errors.Is matches it against both.
	ErrStrLUnsupported error = strLUnsupported{}
	// ErrClosed indicates an operation was attempted after Close.
	ErrClosed = errors.New("stata-dta: reader is closed")
)

type strLUnsupported struct{}

func (strLUnsupported) Error() string { return "stata-dta: strL columns are not decoded" }

// Is reports ErrStrLUnsupported as a kind of ErrUnsupportedType.
func (strLUnsupported) Is(target error) bool { return target == ErrUnsupportedType }

// DecodeError names the offending section or byte offset, per the
// "carries a human-readable message naming the offending section or byte
// offset where reasonable" requirement.
type DecodeError struct {
	Section string
	Offset  int64
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return e.Section + " at offset " + itoa(e.Offset) + ": " + e.Err.Error()
	}
	return e.Section + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// At wraps err as a DecodeError naming section and byte offset.
func At(section string, offset int64, err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Section: section, Offset: offset, Err: err}
}

// itoa avoids pulling in fmt for a single conversion on the hot error path.
func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
