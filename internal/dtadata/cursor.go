package dtadata

import (
	"github.com/korenmiklos/stata-dta/internal/byteio"
	"github.com/korenmiklos/stata-dta/internal/dtaerr"
	"github.com/korenmiklos/stata-dta/internal/dtaheader"
	"github.com/korenmiklos/stata-dta/internal/dtameta"
	"github.com/korenmiklos/stata-dta/internal/dtatype"
)

type columnLayout struct {
	varType dtatype.VarType
	logical dtatype.LogicalType
	offset  int // byte offset within a row
	strL    bool
}

// Cursor positions to the data region and emits fixed-width rows as
// column batches, honoring endianness and missing-value semantics.
type Cursor struct {
	r          *byteio.Reader
	dataOffset int64
	rowWidth   int
	nobs       uint64
	rowsRead   uint64
	columns    []columnLayout
	tagged     bool
}

// Locate positions the cursor at the start of the data region and applies
// the §3 defensive-truncation rule. It must be called once, immediately
// after dtameta.Decode returns.
func Locate(r *byteio.Reader, h *dtaheader.FileHeader, m *dtameta.Metadata) (*Cursor, error) {
	columns := make([]columnLayout, len(m.Variables))
	offset := 0
	for i, v := range m.Variables {
		columns[i] = columnLayout{
			varType: v.Type,
			logical: dtatype.ToLogical(v.Type),
			offset:  offset,
			strL:    dtatype.IsStrL(v.Type),
		}
		offset += v.Type.ByteWidth()
	}
	rowWidth := m.RowWidth
	if rowWidth == 0 && len(columns) > 0 {
		return nil, dtaerr.At("data", r.Position(), dtaerr.ErrInvalidFormat)
	}

	var dataOffset int64
	if h.Tagged {
		if err := dtaheader.ExpectOpenTag(r, "data"); err != nil {
			return nil, dtaerr.At("<data>", r.Position(), err)
		}
		dataOffset = r.Position()
	} else {
		dataOffset = r.Position()
		if h.FormatVersion == 114 {
			// Known quirk: pandas and some third-party writers pad 5 bytes
			// before the data section in v114 files. Unverified against
			// multiple producers; see the open question this carries from
			// the original decoder's own FIXME.
			dataOffset += 5
		}
	}

	nobs := h.NObs
	if rowWidth > 0 {
		available := r.Size() - dataOffset
		if available < 0 {
			available = 0
		}
		needed := int64(nobs) * int64(rowWidth)
		if available < needed {
			nobs = uint64(available / int64(rowWidth))
		} else if h.Tagged {
			expectedEnd := dataOffset + needed
			if err := r.Seek(expectedEnd); err != nil {
				return nil, err
			}
			if err := dtaheader.ExpectCloseTag(r, "data"); err != nil {
				return nil, dtaerr.At("</data>", expectedEnd, err)
			}
		}
	}

	if err := r.Seek(dataOffset); err != nil {
		return nil, err
	}

	return &Cursor{
		r:          r,
		dataOffset: dataOffset,
		rowWidth:   rowWidth,
		nobs:       nobs,
		columns:    columns,
		tagged:     h.Tagged,
	}, nil
}

// DataEnd returns the absolute byte offset immediately past the row-data
// region, exclusive of the tagged dialect's closing "</data>" tag.
func (c *Cursor) DataEnd() int64 {
	return c.dataOffset + int64(c.nobs)*int64(c.rowWidth)
}

// SeekPastData positions the underlying reader just after the row-data
// region, past "</data>" for the tagged dialect, so a caller can proceed
// to decode whatever section follows (value labels).
func (c *Cursor) SeekPastData() error {
	if err := c.r.Seek(c.DataEnd()); err != nil {
		return err
	}
	if c.tagged {
		if err := dtaheader.ExpectCloseTag(c.r, "data"); err != nil {
			return dtaerr.At("</data>", c.r.Position(), err)
		}
	}
	return nil
}

// NObs returns the (possibly truncated) observation count.
func (c *Cursor) NObs() uint64 { return c.nobs }

// RowsRead returns how many rows have been emitted so far.
func (c *Cursor) RowsRead() uint64 { return c.rowsRead }

// HasMore reports whether further rows remain.
func (c *Cursor) HasMore() bool { return c.rowsRead < c.nobs }

// NextChunk reads at most cap rows into a freshly allocated ColumnBatch.
// Returns (nil, nil) when exhausted, matching the façade's Option<..> contract.
func (c *Cursor) NextChunk(cap int) (*ColumnBatch, error) {
	if !c.HasMore() {
		return nil, nil
	}
	if cap <= 0 {
		cap = 1
	}
	n := int(c.nobs - c.rowsRead)
	if n > cap {
		n = cap
	}

	batch := newBatch(c.columns, n)
	for i := 0; i < n; i++ {
		rowStart := c.dataOffset + int64(c.rowsRead+uint64(i))*int64(c.rowWidth)
		if err := c.decodeRow(rowStart, batch, i); err != nil {
			return nil, err
		}
	}
	c.rowsRead += uint64(n)
	batch.Cardinality = uint32(n)
	return batch, nil
}

func (c *Cursor) decodeRow(rowStart int64, batch *ColumnBatch, rowIdx int) error {
	for ci, col := range c.columns {
		if err := c.r.Seek(rowStart + int64(col.offset)); err != nil {
			return err
		}
		v := &batch.Columns[ci]
		switch {
		case col.strL:
			return dtaerr.At("data", rowStart+int64(col.offset), dtaerr.ErrStrLUnsupported)
		case col.varType.Kind == dtatype.KindString:
			s, err := c.r.ReadNulPadded(col.varType.Width)
			if err != nil {
				return err
			}
			v.Str[rowIdx] = s
			v.Valid[rowIdx] = true
		case col.varType.Kind == dtatype.KindI8:
			x, err := c.r.ReadI8()
			if err != nil {
				return err
			}
			if !dtatype.IsMissingI8(x) {
				v.I8[rowIdx] = x
				v.Valid[rowIdx] = true
			}
		case col.varType.Kind == dtatype.KindI16:
			x, err := c.r.ReadI16()
			if err != nil {
				return err
			}
			if !dtatype.IsMissingI16(x) {
				v.I16[rowIdx] = x
				v.Valid[rowIdx] = true
			}
		case col.varType.Kind == dtatype.KindI32:
			x, err := c.r.ReadI32()
			if err != nil {
				return err
			}
			if !dtatype.IsMissingI32(x) {
				v.I32[rowIdx] = x
				v.Valid[rowIdx] = true
			}
		case col.varType.Kind == dtatype.KindF32:
			x, err := c.r.ReadF32()
			if err != nil {
				return err
			}
			if !dtatype.IsMissingF32(x) {
				v.F32[rowIdx] = x
				v.Valid[rowIdx] = true
			}
		case col.varType.Kind == dtatype.KindF64:
			x, err := c.r.ReadF64()
			if err != nil {
				return err
			}
			if !dtatype.IsMissingF64(x) {
				v.F64[rowIdx] = x
				v.Valid[rowIdx] = true
			}
		}
	}
	return nil
}
