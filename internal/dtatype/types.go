// Package dtatype holds the immutable mapping tables shared by every
// decoder layer: legacy type codes, tagged-dialect type codes, canonical
// on-disk widths, and the logical types exposed across the host boundary.
package dtatype

import "github.com/korenmiklos/stata-dta/internal/dtaerr"

// Kind is the discriminant of the VarType sum type.
type Kind int

const (
	KindString Kind = iota
	KindI8
	KindI16
	KindI32
	KindF32
	KindF64
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindI8:
		return "I8"
	case KindI16:
		return "I16"
	case KindI32:
		return "I32"
	case KindF32:
		return "F32"
	case KindF64:
		return "F64"
	default:
		return "Unknown"
	}
}

// VarType is a tagged union over {String(width), I8, I16, I32, F32, F64},
// replacing the on-disk numeric code plus separate length field with a
// single sum type, per the re-architecture note in the spec.
type VarType struct {
	Kind  Kind
	Width int // only meaningful when Kind == KindString; 1..=244
}

// ByteWidth returns the fixed on-disk width of the type in bytes. A strL
// column occupies an 8-byte reference in each row.
func (t VarType) ByteWidth() int {
	switch t.Kind {
	case KindString:
		if IsStrL(t) {
			return 8
		}
		return t.Width
	case KindI8:
		return 1
	case KindI16:
		return 2
	case KindI32:
		return 4
	case KindF32:
		return 4
	case KindF64:
		return 8
	default:
		return 0
	}
}

// Legacy type codes (format versions ≤115): character codes for the
// on-disk type byte.
const (
	legacyByte    = 'b' // 98
	legacyInt     = 'i' // 105
	legacyLong    = 'l' // 108
	legacyFloat   = 'f' // 102
	legacyDouble  = 'd' // 100
)

// FromLegacyCode maps a ≤115-dialect type code to a VarType. Five byte
// values are reserved for the numeric kinds; every other code in 1..=244
// is a fixed-width string of that many bytes, the same range rule the
// tagged dialect uses for its own string codes.
func FromLegacyCode(code byte) (VarType, error) {
	switch code {
	case legacyByte:
		return VarType{Kind: KindI8}, nil
	case legacyInt:
		return VarType{Kind: KindI16}, nil
	case legacyLong:
		return VarType{Kind: KindI32}, nil
	case legacyFloat:
		return VarType{Kind: KindF32}, nil
	case legacyDouble:
		return VarType{Kind: KindF64}, nil
	default:
		if code >= 1 && code <= 244 {
			return VarType{Kind: KindString, Width: int(code)}, nil
		}
		return VarType{}, dtaerr.ErrUnsupportedType
	}
}

// StrLCode is the numeric type code identifying a long-string / GSO
// (generalized string object) column in the ≥117 dialect. Recognized but
// not decoded, per the spec's open question #3.
const StrLCode = 32768

// FromTaggedCode maps a ≥117-dialect numeric type code to a VarType.
// Codes 1..=244 are fixed-width strings of that many bytes; 251..=255 are
// the numeric kinds; 32768 is strL, recognized but flagged.
func FromTaggedCode(code uint16) (VarType, error) {
	switch {
	case code >= 1 && code <= 244:
		return VarType{Kind: KindString, Width: int(code)}, nil
	case code == 251:
		return VarType{Kind: KindI8}, nil
	case code == 252:
		return VarType{Kind: KindI16}, nil
	case code == 253:
		return VarType{Kind: KindI32}, nil
	case code == 254:
		return VarType{Kind: KindF32}, nil
	case code == 255:
		return VarType{Kind: KindF64}, nil
	case code == StrLCode:
		return VarType{Kind: KindString, Width: 0}, dtaerr.ErrStrLUnsupported
	default:
		return VarType{}, dtaerr.ErrUnsupportedType
	}
}

// IsStrL reports whether t was decoded from a strL type code. Width is 0
// only for this case since a real fixed-width string always has Width>=1.
func IsStrL(t VarType) bool {
	return t.Kind == KindString && t.Width == 0
}
