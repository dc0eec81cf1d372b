package dtatype

import (
	"errors"
	"math"
	"testing"

	"github.com/korenmiklos/stata-dta/internal/dtaerr"
)

func TestFromLegacyCode(t *testing.T) {
	tests := []struct {
		code byte
		want Kind
	}{
		{'b', KindI8},
		{'i', KindI16},
		{'l', KindI32},
		{'f', KindF32},
		{'d', KindF64},
	}
	for _, tt := range tests {
		got, err := FromLegacyCode(tt.code)
		if err != nil {
			t.Errorf("FromLegacyCode(%q): %v", tt.code, err)
		}
		if got.Kind != tt.want {
			t.Errorf("FromLegacyCode(%q).Kind = %v, want %v", tt.code, got.Kind, tt.want)
		}
	}
}

func TestFromLegacyCodeStringWidths(t *testing.T) {
	// Any byte in 1..=244 outside the five numeric magic values is a
	// fixed-width string of that many bytes, the same rule the tagged
	// dialect uses for its own string codes.
	for _, code := range []byte{1, 12, 5, 244} {
		vt, err := FromLegacyCode(code)
		if err != nil {
			t.Fatalf("FromLegacyCode(%d): %v", code, err)
		}
		if vt.Kind != KindString || vt.Width != int(code) {
			t.Errorf("FromLegacyCode(%d) = %+v, want String width %d", code, vt, code)
		}
	}
}

func TestFromLegacyCodeRejectsOutOfRange(t *testing.T) {
	if _, err := FromLegacyCode(0); !errors.Is(err, dtaerr.ErrUnsupportedType) {
		t.Errorf("FromLegacyCode(0) = %v, want ErrUnsupportedType", err)
	}
	if _, err := FromLegacyCode(245); !errors.Is(err, dtaerr.ErrUnsupportedType) {
		t.Errorf("FromLegacyCode(245) = %v, want ErrUnsupportedType", err)
	}
}

func TestFromTaggedCodeStringWidths(t *testing.T) {
	for _, code := range []uint16{1, 100, 244} {
		vt, err := FromTaggedCode(code)
		if err != nil {
			t.Fatalf("FromTaggedCode(%d): %v", code, err)
		}
		if vt.Kind != KindString || vt.Width != int(code) {
			t.Errorf("FromTaggedCode(%d) = %+v, want String width %d", code, vt, code)
		}
	}
}

func TestFromTaggedCodeNumerics(t *testing.T) {
	tests := []struct {
		code uint16
		want Kind
	}{
		{251, KindI8},
		{252, KindI16},
		{253, KindI32},
		{254, KindF32},
		{255, KindF64},
	}
	for _, tt := range tests {
		got, err := FromTaggedCode(tt.code)
		if err != nil {
			t.Errorf("FromTaggedCode(%d): %v", tt.code, err)
		}
		if got.Kind != tt.want {
			t.Errorf("FromTaggedCode(%d).Kind = %v, want %v", tt.code, got.Kind, tt.want)
		}
	}
}

func TestFromTaggedCodeStrL(t *testing.T) {
	vt, err := FromTaggedCode(StrLCode)
	if !errors.Is(err, dtaerr.ErrStrLUnsupported) {
		t.Fatalf("FromTaggedCode(strL) err = %v, want ErrStrLUnsupported", err)
	}
	if !IsStrL(vt) {
		t.Error("IsStrL should be true for the strL VarType")
	}
}

func TestFromTaggedCodeOutOfRange(t *testing.T) {
	if _, err := FromTaggedCode(300); !errors.Is(err, dtaerr.ErrUnsupportedType) {
		t.Errorf("FromTaggedCode(300) = %v, want ErrUnsupportedType", err)
	}
}

func TestByteWidth(t *testing.T) {
	tests := []struct {
		t    VarType
		want int
	}{
		{VarType{Kind: KindI8}, 1},
		{VarType{Kind: KindI16}, 2},
		{VarType{Kind: KindI32}, 4},
		{VarType{Kind: KindF32}, 4},
		{VarType{Kind: KindF64}, 8},
		{VarType{Kind: KindString, Width: 20}, 20},
	}
	for _, tt := range tests {
		if got := tt.t.ByteWidth(); got != tt.want {
			t.Errorf("%+v.ByteWidth() = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestToLogical(t *testing.T) {
	tests := []struct {
		t    VarType
		want LogicalType
	}{
		{VarType{Kind: KindI8}, LogicalTinyInt},
		{VarType{Kind: KindI16}, LogicalSmallInt},
		{VarType{Kind: KindI32}, LogicalInteger},
		{VarType{Kind: KindF32}, LogicalFloat},
		{VarType{Kind: KindF64}, LogicalDouble},
		{VarType{Kind: KindString, Width: 5}, LogicalVarchar},
	}
	for _, tt := range tests {
		if got := ToLogical(tt.t); got != tt.want {
			t.Errorf("ToLogical(%+v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestIsDateFormat(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{"%td", true},
		{"%-td", true},
		{"%8.0g", false},
		{"%tc", true},
		{"%12.2f", false},
		{"%ty", true},
	}
	for _, tt := range tests {
		if got := IsDateFormat(tt.format); got != tt.want {
			t.Errorf("IsDateFormat(%q) = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestMissingIntegerThresholds(t *testing.T) {
	if IsMissingI8(100) {
		t.Error("100 should be a legal I8 value, not missing")
	}
	if !IsMissingI8(101) {
		t.Error("101 should be the I8 missing threshold")
	}
	if IsMissingI16(32740) {
		t.Error("32740 should be legal")
	}
	if !IsMissingI16(32741) {
		t.Error("32741 should be missing")
	}
	if IsMissingI32(2_147_483_620) {
		t.Error("2147483620 should be legal")
	}
	if !IsMissingI32(2_147_483_621) {
		t.Error("2147483621 should be missing")
	}
}

func TestMissingFloatSentinels(t *testing.T) {
	if !IsMissingF32(float32(math.NaN())) {
		t.Error("NaN F32 should be missing")
	}
	if IsMissingF32(1.5) {
		t.Error("1.5 should not be missing")
	}
	if !IsMissingF64(math.NaN()) {
		t.Error("NaN F64 should be missing")
	}
	if !IsMissingF64(MissingF64Threshold()) {
		t.Error("the exact threshold value should be classified as missing")
	}
	below := math.Nextafter(MissingF64Threshold(), 0)
	if IsMissingF64(below) {
		t.Error("just below the threshold should not be missing")
	}
	// spec.md's own missing-value scenario uses this literal directly,
	// independent of whatever threshold constant this package computes.
	if !IsMissingF64(8.988e307) {
		t.Error("8.988e307 should be classified as missing")
	}
}
