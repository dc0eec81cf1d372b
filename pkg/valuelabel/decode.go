package valuelabel

import (
	"encoding/binary"

	"github.com/korenmiklos/stata-dta/internal/byteio"
	"github.com/korenmiklos/stata-dta/internal/dtaerr"
	"github.com/korenmiklos/stata-dta/internal/dtaheader"
)

// nameWidth is the value-label set name's fixed field width; unlike
// variable names and formats it never grew in the v118 wide-string
// revision, so one constant covers every supported version.
const nameWidth = 33

// Decode reads every value-label set defined after the data region and
// returns them keyed by name. It is best-effort: like characteristics,
// a value-label section absent or malformed after the documented point
// never fails the overall open, since the row data has already been
// fully described without it.
func Decode(r *byteio.Reader, h *dtaheader.FileHeader) (*Table, error) {
	table := &Table{sets: make(map[string]*Set)}
	order := binary.ByteOrder(binary.LittleEndian)
	if r.Order() == byteio.BigEndian {
		order = binary.BigEndian
	}
	if h.Tagged {
		if err := decodeTagged(r, table, order); err != nil {
			return table, nil // best-effort: swallow, return what we have
		}
		return table, nil
	}
	decodeLegacy(r, table, order)
	return table, nil
}

func decodeTagged(r *byteio.Reader, table *Table, order binary.ByteOrder) error {
	if err := dtaheader.ExpectOpenTag(r, "value_labels"); err != nil {
		return err
	}
	for {
		start := r.Position()
		if err := dtaheader.ExpectOpenTag(r, "lbl"); err != nil {
			if serr := r.Seek(start); serr != nil {
				return serr
			}
			break
		}
		length, err := r.ReadU32()
		if err != nil {
			return err
		}
		body, err := r.ReadFixed(int(length))
		if err != nil {
			return err
		}
		set, err := decodeTable(body, order)
		if err == nil && set != nil {
			table.sets[set.name] = set
		}
		if err := dtaheader.ExpectCloseTag(r, "lbl"); err != nil {
			return err
		}
	}
	return dtaheader.ExpectCloseTag(r, "value_labels")
}

func decodeLegacy(r *byteio.Reader, table *Table, order binary.ByteOrder) {
	for {
		length, err := r.ReadU32()
		if err != nil || length == 0 {
			return
		}
		body, err := r.ReadFixed(int(length))
		if err != nil {
			return
		}
		set, err := decodeTable(body, order)
		if err == nil && set != nil {
			table.sets[set.name] = set
		}
	}
}

// decodeTable parses one value-label table body, laid out as:
//
//	int32 n; int32 txtlen; int32 off[n]; int32 val[n]; char txt[txtlen]
//
// preceded in raw by the nameWidth-byte set name and 3 bytes of alignment
// padding, which decodeTable reads and strips itself. This is the
// stable, cross-implementation binary layout every Stata reader agrees
// on; the format's original decoder documents it only informally.
func decodeTable(raw []byte, order binary.ByteOrder) (*Set, error) {
	if len(raw) < nameWidth+3+8 {
		return nil, dtaerr.ErrInvalidFormat
	}
	name := cString(raw[:nameWidth])
	body := raw[nameWidth+3:]

	br := newSliceReader(body, order)
	n, err := br.readI32()
	if err != nil {
		return nil, err
	}
	txtlen, err := br.readI32()
	if err != nil {
		return nil, err
	}
	if n < 0 || txtlen < 0 {
		return nil, dtaerr.ErrInvalidFormat
	}

	offsets := make([]int32, n)
	for i := range offsets {
		offsets[i], err = br.readI32()
		if err != nil {
			return nil, err
		}
	}
	codes := make([]int32, n)
	for i := range codes {
		codes[i], err = br.readI32()
		if err != nil {
			return nil, err
		}
	}
	txt, err := br.readN(int(txtlen))
	if err != nil {
		return nil, err
	}

	texts := make([]string, n)
	for i, off := range offsets {
		if off < 0 || int(off) > len(txt) {
			return nil, dtaerr.ErrInvalidFormat
		}
		texts[i] = cString(txt[off:])
	}

	return buildSet(name, codes, texts)
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// sliceReader is a minimal cursor over an in-memory value-label table
// body; the wrapping section length is already endianness-decoded by
// byteio.Reader, and the table body's own integers follow the same
// file-wide byte order, so this reuses that order via encoding/binary
// rather than pulling in a second byteio.Reader.
type sliceReader struct {
	b     []byte
	pos   int
	order binary.ByteOrder
}

func newSliceReader(b []byte, order binary.ByteOrder) *sliceReader {
	return &sliceReader{b: b, order: order}
}

func (s *sliceReader) readI32() (int32, error) {
	if s.pos+4 > len(s.b) {
		return 0, dtaerr.ErrUnexpectedEOF
	}
	v := int32(s.order.Uint32(s.b[s.pos : s.pos+4]))
	s.pos += 4
	return v, nil
}

func (s *sliceReader) readN(n int) ([]byte, error) {
	if s.pos+n > len(s.b) {
		return nil, dtaerr.ErrUnexpectedEOF
	}
	out := s.b[s.pos : s.pos+n]
	s.pos += n
	return out, nil
}
