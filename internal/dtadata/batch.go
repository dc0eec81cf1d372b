// Package dtadata implements the DataCursor: positions to the data
// region and decodes fixed-width rows into column-oriented batches.
package dtadata

import "github.com/korenmiklos/stata-dta/internal/dtatype"

// ColumnVector holds one column's decoded values for a batch. Only the
// slice matching Type is populated; Valid[i] is false exactly when cell i
// is NULL (a Stata missing-value sentinel), per §4.4 — strings have no
// missing sentinel and are always valid.
type ColumnVector struct {
	Type  dtatype.LogicalType
	Valid []bool
	I8    []int8
	I16   []int16
	I32   []int32
	F32   []float32
	F64   []float64
	Str   []string
}

// ColumnBatch is a bounded-size, column-oriented slice of decoded rows.
type ColumnBatch struct {
	Cardinality uint32
	Columns     []ColumnVector
}

func newBatch(vars []columnLayout, n int) *ColumnBatch {
	cols := make([]ColumnVector, len(vars))
	for i, v := range vars {
		cols[i] = ColumnVector{Type: v.logical, Valid: make([]bool, n)}
		switch v.varType.Kind {
		case dtatype.KindI8:
			cols[i].I8 = make([]int8, n)
		case dtatype.KindI16:
			cols[i].I16 = make([]int16, n)
		case dtatype.KindI32:
			cols[i].I32 = make([]int32, n)
		case dtatype.KindF32:
			cols[i].F32 = make([]float32, n)
		case dtatype.KindF64:
			cols[i].F64 = make([]float64, n)
		default:
			cols[i].Str = make([]string, n)
		}
	}
	return &ColumnBatch{Columns: cols}
}
