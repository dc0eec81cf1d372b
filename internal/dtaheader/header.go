// Package dtaheader implements the HeaderDecoder: detects legacy vs.
// tagged dialect from the leading byte and decodes the FileHeader record.
package dtaheader

import (
	"github.com/korenmiklos/stata-dta/internal/byteio"
	"github.com/korenmiklos/stata-dta/internal/dtaerr"
)

// FileHeader is the decoded file header, per §3 of the spec.
type FileHeader struct {
	FormatVersion uint8
	ByteOrder     byteio.Order
	FileType      uint8
	NVar          uint16
	NObs          uint64
	DataLabel     string
	Timestamp     string
	Tagged        bool // dialect: true for ≥117, false for ≤115
}

// supportedVersions is the closed set of format_version values this
// decoder recognizes.
var supportedVersions = map[uint8]bool{
	105: true, 108: true, 111: true, 113: true, 114: true, 115: true,
	117: true, 118: true, 119: true,
}

// Decode peeks the first byte to select a dialect and reads the header.
// On return, r's cursor sits immediately after the header (past </header>
// for the tagged dialect, past the timestamp field for the legacy one).
func Decode(r *byteio.Reader) (*FileHeader, error) {
	first, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	var h *FileHeader
	if first == '<' {
		h, err = decodeTagged(r)
	} else {
		h, err = decodeLegacy(r, first)
	}
	if err != nil {
		return nil, err
	}
	if !supportedVersions[h.FormatVersion] {
		return nil, dtaerr.At("format_version", 0, dtaerr.ErrUnsupportedVersion)
	}
	return h, nil
}

func decodeLegacy(r *byteio.Reader, version uint8) (*FileHeader, error) {
	h := &FileHeader{FormatVersion: version, Tagged: false}

	orderByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	switch orderByte {
	case 0x01:
		h.ByteOrder = byteio.BigEndian
	case 0x02:
		h.ByteOrder = byteio.LittleEndian
	default:
		return nil, dtaerr.At("byte_order", r.Position()-1, dtaerr.ErrInvalidFormat)
	}
	r.SetOrder(h.ByteOrder)

	fileType, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	h.FileType = fileType

	if err := r.Skip(1); err != nil { // padding byte
		return nil, err
	}

	nvar, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	h.NVar = nvar

	nobs, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	h.NObs = uint64(nobs)

	label, err := r.ReadNulPadded(81)
	if err != nil {
		return nil, err
	}
	h.DataLabel = label

	ts, err := r.ReadNulPadded(18)
	if err != nil {
		return nil, err
	}
	h.Timestamp = ts

	return h, nil
}

func decodeTagged(r *byteio.Reader) (*FileHeader, error) {
	h := &FileHeader{Tagged: true}

	if err := ExpectLiteral(r, "stata_dta><header><release>"); err != nil {
		return nil, dtaerr.At("<stata_dta><header><release>", r.Position(), err)
	}
	verBytes, err := r.ReadFixed(3)
	if err != nil {
		return nil, err
	}
	version, ok := parseDecimal3(verBytes)
	if !ok {
		return nil, dtaerr.At("release", r.Position()-3, dtaerr.ErrInvalidFormat)
	}
	h.FormatVersion = version
	if err := ExpectCloseTag(r, "release"); err != nil {
		return nil, dtaerr.At("</release>", r.Position(), err)
	}

	if err := ExpectOpenTag(r, "byteorder"); err != nil {
		return nil, dtaerr.At("<byteorder>", r.Position(), err)
	}
	orderBytes, err := r.ReadFixed(3)
	if err != nil {
		return nil, err
	}
	switch string(orderBytes) {
	case "MSF":
		h.ByteOrder = byteio.BigEndian
	case "LSF":
		h.ByteOrder = byteio.LittleEndian
	default:
		return nil, dtaerr.At("byteorder", r.Position()-3, dtaerr.ErrInvalidFormat)
	}
	r.SetOrder(h.ByteOrder)
	if err := ExpectCloseTag(r, "byteorder"); err != nil {
		return nil, dtaerr.At("</byteorder>", r.Position(), err)
	}

	if err := ExpectOpenTag(r, "K"); err != nil {
		return nil, dtaerr.At("<K>", r.Position(), err)
	}
	nvar, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	h.NVar = nvar
	if err := ExpectCloseTag(r, "K"); err != nil {
		return nil, dtaerr.At("</K>", r.Position(), err)
	}

	if err := ExpectOpenTag(r, "N"); err != nil {
		return nil, dtaerr.At("<N>", r.Position(), err)
	}
	if h.FormatVersion >= 118 {
		nobs, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		h.NObs = nobs
	} else {
		nobs, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		h.NObs = uint64(nobs)
	}
	if err := ExpectCloseTag(r, "N"); err != nil {
		return nil, dtaerr.At("</N>", r.Position(), err)
	}

	if err := ExpectOpenTag(r, "label"); err != nil {
		return nil, dtaerr.At("<label>", r.Position(), err)
	}
	if h.FormatVersion >= 118 {
		n, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		label, err := r.ReadNulPadded(int(n))
		if err != nil {
			return nil, err
		}
		h.DataLabel = label
	} else {
		label, err := r.ReadNulPadded(81)
		if err != nil {
			return nil, err
		}
		h.DataLabel = label
	}
	if err := ExpectCloseTag(r, "label"); err != nil {
		return nil, dtaerr.At("</label>", r.Position(), err)
	}

	if err := ExpectOpenTag(r, "timestamp"); err != nil {
		return nil, dtaerr.At("<timestamp>", r.Position(), err)
	}
	ts, err := r.ReadNulPadded(18)
	if err != nil {
		return nil, err
	}
	h.Timestamp = ts
	if err := ExpectCloseTag(r, "timestamp"); err != nil {
		return nil, dtaerr.At("</timestamp>", r.Position(), err)
	}

	if err := ExpectCloseTag(r, "header"); err != nil {
		return nil, dtaerr.At("</header>", r.Position(), err)
	}

	return h, nil
}

func parseDecimal3(b []byte) (uint8, bool) {
	if len(b) != 3 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return uint8(n), true
}
