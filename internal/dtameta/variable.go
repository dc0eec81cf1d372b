// Package dtameta implements the MetadataDecoder: per-variable arrays
// (types, names, sort order, formats, value-label names, labels), plus
// the characteristics section, which is read and discarded rather than
// materialized (§4.3). Field widths vary by format version.
package dtameta

import "github.com/korenmiklos/stata-dta/internal/dtatype"

// Variable is one column's metadata, per §3 of the spec.
type Variable struct {
	Name           string
	Type           dtatype.VarType
	Format         string
	ValueLabelName string
	Label          string
}

// Metadata is the full per-variable array set plus the derived row width.
type Metadata struct {
	Variables []Variable
	SortOrder []uint16
	RowWidth  int
}

// widths bundles the per-version field widths from §4.3's section table.
type widths struct {
	typeCode       int
	name           int
	format         int
	valueLabelName int
	variableLabel  int
}

func widthsFor(version uint8) widths {
	if version >= 118 {
		return widths{typeCode: 2, name: 129, format: 57, valueLabelName: 129, variableLabel: 321}
	}
	return widths{typeCode: 1, name: 33, format: 49, valueLabelName: 33, variableLabel: 81}
}
