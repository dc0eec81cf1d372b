// Package dtaexport converts decoded column batches into Parquet files,
// adapted from the inventory package's Parquet schema/column mapping but
// running in the opposite direction: writing rows instead of reading them.
// This is a debug/interop convenience for cmd/dta-dump, not part of the
// dtareader host boundary.
package dtaexport

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/korenmiklos/stata-dta/internal/dtadata"
	"github.com/korenmiklos/stata-dta/internal/dtameta"
	"github.com/korenmiklos/stata-dta/internal/dtatype"
)

// Writer streams ColumnBatch values out as rows of a single Parquet file.
// Nullability follows the source .dta file's missing-value semantics. The
// schema is a parquet.Group, which orders its columns by variable name, so
// the Parquet column order is alphabetical, not the .dta variable order.
type Writer struct {
	pw      *parquet.Writer
	columns []dtatype.LogicalType
	leaves  []int // schema column index of each variable, in variable order
}

// NewWriter opens a Parquet writer over w, deriving its schema from vars.
// Every column is optional: a Stata missing sentinel becomes a Parquet
// NULL rather than a sentinel value, so downstream readers don't need to
// know Stata's missing-value encoding.
func NewWriter(w io.Writer, vars []dtameta.Variable) (*Writer, error) {
	schema := buildSchema(vars)
	pw := parquet.NewWriter(w, schema)

	columns := make([]dtatype.LogicalType, len(vars))
	leaves := make([]int, len(vars))
	for i, v := range vars {
		columns[i] = dtatype.ToLogical(v.Type)
		leaf, ok := schema.Lookup(v.Name)
		if !ok {
			return nil, fmt.Errorf("dtaexport: no schema column for variable %q", v.Name)
		}
		leaves[i] = leaf.ColumnIndex
	}
	return &Writer{pw: pw, columns: columns, leaves: leaves}, nil
}

func buildSchema(vars []dtameta.Variable) *parquet.Schema {
	group := make(parquet.Group, len(vars))
	for _, v := range vars {
		group[v.Name] = parquet.Optional(leafNode(v.Type))
	}
	return parquet.NewSchema("row", group)
}

func leafNode(t dtatype.VarType) parquet.Node {
	switch t.Kind {
	case dtatype.KindI8:
		return parquet.Int(8)
	case dtatype.KindI16:
		return parquet.Int(16)
	case dtatype.KindI32:
		return parquet.Int(32)
	case dtatype.KindF32:
		return parquet.Leaf(parquet.FloatType)
	case dtatype.KindF64:
		return parquet.Leaf(parquet.DoubleType)
	default:
		return parquet.String()
	}
}

// WriteBatch appends every row of batch to the output file.
func (w *Writer) WriteBatch(batch *dtadata.ColumnBatch) error {
	n := int(batch.Cardinality)
	if n == 0 {
		return nil
	}
	rows := make([]parquet.Row, n)
	for i := 0; i < n; i++ {
		row := make(parquet.Row, len(batch.Columns))
		for ci := range batch.Columns {
			leaf := w.leaves[ci]
			row[leaf] = cellValue(&batch.Columns[ci], i, leaf)
		}
		rows[i] = row
	}
	if _, err := w.pw.WriteRows(rows); err != nil {
		return fmt.Errorf("dtaexport: write rows: %w", err)
	}
	return nil
}

func cellValue(col *dtadata.ColumnVector, row, columnIndex int) parquet.Value {
	if !col.Valid[row] {
		return parquet.NullValue().Level(0, 0, columnIndex)
	}
	switch col.Type {
	case dtatype.LogicalTinyInt:
		return parquet.Int32Value(int32(col.I8[row])).Level(0, 1, columnIndex)
	case dtatype.LogicalSmallInt:
		return parquet.Int32Value(int32(col.I16[row])).Level(0, 1, columnIndex)
	case dtatype.LogicalInteger:
		return parquet.Int32Value(col.I32[row]).Level(0, 1, columnIndex)
	case dtatype.LogicalFloat:
		return parquet.FloatValue(col.F32[row]).Level(0, 1, columnIndex)
	case dtatype.LogicalDouble:
		return parquet.DoubleValue(col.F64[row]).Level(0, 1, columnIndex)
	default:
		return parquet.ByteArrayValue([]byte(col.Str[row])).Level(0, 1, columnIndex)
	}
}

// Close flushes and finalizes the Parquet file's footer.
func (w *Writer) Close() error {
	return w.pw.Close()
}
