package dtameta

import (
	"github.com/korenmiklos/stata-dta/internal/byteio"
	"github.com/korenmiklos/stata-dta/internal/dtaerr"
	"github.com/korenmiklos/stata-dta/internal/dtaheader"
	"github.com/korenmiklos/stata-dta/internal/dtatype"
)

// Decode reads every per-variable array in declaration order and returns
// the assembled Metadata. On return, r's cursor sits immediately after
// the characteristics section: right before "<data>" for the tagged
// dialect, or at the start of the row-data region for the legacy dialect.
func Decode(r *byteio.Reader, h *dtaheader.FileHeader) (*Metadata, error) {
	w := widthsFor(h.FormatVersion)
	nvar := int(h.NVar)

	types, err := readTypes(r, h, w)
	if err != nil {
		return nil, dtaerr.At("variable_types", r.Position(), err)
	}
	names, err := readStringArray(r, h.Tagged, "varnames", nvar, w.name)
	if err != nil {
		return nil, dtaerr.At("varnames", r.Position(), err)
	}
	sortOrder, err := readSortOrder(r, h, nvar)
	if err != nil {
		return nil, dtaerr.At("sortlist", r.Position(), err)
	}
	formats, err := readStringArray(r, h.Tagged, "formats", nvar, w.format)
	if err != nil {
		return nil, dtaerr.At("formats", r.Position(), err)
	}
	vlNames, err := readStringArray(r, h.Tagged, "value_label_names", nvar, w.valueLabelName)
	if err != nil {
		return nil, dtaerr.At("value_label_names", r.Position(), err)
	}
	labels, err := readStringArray(r, h.Tagged, "variable_labels", nvar, w.variableLabel)
	if err != nil {
		return nil, dtaerr.At("variable_labels", r.Position(), err)
	}

	skipCharacteristics(r, h) // §4.3: read and discarded, never fails Decode

	variables := make([]Variable, nvar)
	rowWidth := 0
	for i := 0; i < nvar; i++ {
		if names[i] == "" {
			return nil, dtaerr.At("varnames", r.Position(), dtaerr.ErrInvalidFormat)
		}
		variables[i] = Variable{
			Name:           names[i],
			Type:           types[i],
			Format:         formats[i],
			ValueLabelName: vlNames[i],
			Label:          labels[i],
		}
		if types[i].Kind == dtatype.KindString && !dtatype.IsStrL(types[i]) {
			w := types[i].Width
			if w < 1 || w > 244 {
				return nil, dtaerr.At("variable_types", r.Position(), dtaerr.ErrInvalidFormat)
			}
		}
		rowWidth += types[i].ByteWidth()
	}

	return &Metadata{Variables: variables, SortOrder: sortOrder, RowWidth: rowWidth}, nil
}

func readTypes(r *byteio.Reader, h *dtaheader.FileHeader, w widths) ([]dtatype.VarType, error) {
	nvar := int(h.NVar)
	if h.Tagged {
		if err := dtaheader.ExpectOpenTag(r, "variable_types"); err != nil {
			return nil, err
		}
	}
	out := make([]dtatype.VarType, nvar)
	for i := 0; i < nvar; i++ {
		var t dtatype.VarType
		var err error
		if !h.Tagged {
			var code uint8
			code, err = r.ReadU8()
			if err == nil {
				t, err = dtatype.FromLegacyCode(code)
			}
		} else if w.typeCode == 1 {
			var code uint8
			code, err = r.ReadU8()
			if err == nil {
				t, err = dtatype.FromTaggedCode(uint16(code))
			}
		} else {
			var code uint16
			code, err = r.ReadU16()
			if err == nil {
				t, err = dtatype.FromTaggedCode(code)
			}
		}
		if err != nil && err != dtaerr.ErrStrLUnsupported {
			return nil, err
		}
		out[i] = t
	}
	if h.Tagged {
		if err := dtaheader.ExpectCloseTag(r, "variable_types"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readStringArray(r *byteio.Reader, tagged bool, tag string, n, width int) ([]string, error) {
	if tagged {
		if err := dtaheader.ExpectOpenTag(r, tag); err != nil {
			return nil, err
		}
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		s, err := r.ReadNulPadded(width)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	if tagged {
		if err := dtaheader.ExpectCloseTag(r, tag); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readSortOrder(r *byteio.Reader, h *dtaheader.FileHeader, nvar int) ([]uint16, error) {
	if h.Tagged {
		if err := dtaheader.ExpectOpenTag(r, "sortlist"); err != nil {
			return nil, err
		}
	}
	out := make([]uint16, nvar+1)
	for i := range out {
		v, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	if h.Tagged {
		if err := dtaheader.ExpectCloseTag(r, "sortlist"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// skipCharacteristics discards the characteristics section, per §4.3:
// "read and discarded" — located by its closing tag in the tagged
// dialect, or walked record by record in the legacy dialect. Content is
// never retained. A structural surprise stops the walk early; the
// section is optional metadata and must never fail Decode.
func skipCharacteristics(r *byteio.Reader, h *dtaheader.FileHeader) {
	if h.Tagged {
		tags, err := dtaheader.ScanTags(r, boundedScanLimit(r))
		if err != nil {
			return
		}
		rng, ok := tags["characteristics"]
		if !ok {
			return
		}
		if err := r.Seek(rng.End); err != nil {
			return
		}
		dtaheader.ExpectCloseTag(r, "characteristics")
		return
	}

	// Legacy: sequence of (len u32; body[len] bytes) records terminated by len==0.
	for {
		length, err := r.ReadU32()
		if err != nil || length == 0 {
			return
		}
		if _, err := r.ReadFixed(int(length)); err != nil {
			return
		}
	}
}

// boundedScanLimit bounds a lookahead tag scan to whatever remains in the
// file, capped so a pathological file can't force an unbounded read; the
// characteristics section is metadata, not row data, and is expected to
// be small relative to the file as a whole.
func boundedScanLimit(r *byteio.Reader) int64 {
	const cap = 8 << 20 // 8 MiB
	remaining := r.Size() - r.Position()
	if remaining > cap {
		return cap
	}
	return remaining
}
