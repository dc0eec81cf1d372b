package dtatype

import "strings"

// LogicalType is the fixed mapping target for on-disk VarTypes, per §4.4:
// I8->tinyint, I16->smallint, I32->integer, F32->float, F64->double,
// String->varchar. This is one half of the host integration boundary.
type LogicalType int

const (
	LogicalTinyInt LogicalType = iota
	LogicalSmallInt
	LogicalInteger
	LogicalFloat
	LogicalDouble
	LogicalVarchar
)

func (l LogicalType) String() string {
	switch l {
	case LogicalTinyInt:
		return "tinyint"
	case LogicalSmallInt:
		return "smallint"
	case LogicalInteger:
		return "integer"
	case LogicalFloat:
		return "float"
	case LogicalDouble:
		return "double"
	case LogicalVarchar:
		return "varchar"
	default:
		return "unknown"
	}
}

// ToLogical implements stata_type_to_logical: the fixed, host-facing
// mapping from an on-disk VarType to a LogicalType. This is the only
// type-mapping function that crosses the host boundary (§6); it never
// consults the display format.
func ToLogical(t VarType) LogicalType {
	switch t.Kind {
	case KindI8:
		return LogicalTinyInt
	case KindI16:
		return LogicalSmallInt
	case KindI32:
		return LogicalInteger
	case KindF32:
		return LogicalFloat
	case KindF64:
		return LogicalDouble
	default:
		return LogicalVarchar
	}
}

// IsDateFormat is a pure, opt-in helper (not part of the fixed ToLogical
// mapping) for hosts that want to distinguish Stata's date/time display
// formats from plain numerics on I32/F64 columns. The original C++
// decoder's ReadFormats never inspects a format string's content, only
// stores it verbatim, so this checks against Stata's own documented
// time-series display-format prefixes (%td, %tc, %tw, %tm, %tq, %th,
// %ty) directly, including their %-td-style negative-width variants.
func IsDateFormat(format string) bool {
	f := strings.TrimPrefix(format, "%")
	f = strings.TrimPrefix(f, "-")
	for len(f) > 0 && f[0] >= '0' && f[0] <= '9' {
		f = f[1:]
	}
	return strings.HasPrefix(f, "td") || strings.HasPrefix(f, "tc") ||
		strings.HasPrefix(f, "tw") || strings.HasPrefix(f, "tm") ||
		strings.HasPrefix(f, "tq") || strings.HasPrefix(f, "th") ||
		strings.HasPrefix(f, "ty")
}
