package dtatype

import "math"

// Missing-value boundaries, per §4.4 of the spec. Stata reserves the top of
// each integer type's range for 27 distinct missing codes (`., .a..z`);
// this decoder collapses all of them to a single NULL, per the spec's
// design contract (§9 "Missing-value policy").
const (
	// MissingI8Threshold: I8 values >= this are missing. Legal range −127..100.
	MissingI8Threshold int8 = 101
	// MissingI16Threshold: I16 values >= this are missing.
	MissingI16Threshold int16 = 32741
	// MissingI32Threshold: I32 values >= this are missing.
	MissingI32Threshold int32 = 2_147_483_621
)

// missingF64Bits is the bit pattern of the double-precision missing
// threshold 8.988e+307, just below Stata's base `.` sentinel
// 8.98846567431158e+307 (0x7fe0000000000000). The 26 extended missing codes
// (.a..z) are the doubles immediately above that sentinel, so comparing
// v >= this threshold classifies all 27 as missing, and the literal
// 8.988e+307 itself is classified as missing too.
var missingF64Bits uint64 = math.Float64bits(8.988e+307)

// MissingF64Threshold is the smallest float64 magnitude classified as missing.
func MissingF64Threshold() float64 {
	return math.Float64frombits(missingF64Bits)
}

// IsMissingI8 reports whether v is Stata's I8 missing sentinel range.
func IsMissingI8(v int8) bool { return v >= MissingI8Threshold }

// IsMissingI16 reports whether v is in Stata's I16 missing sentinel range.
func IsMissingI16(v int16) bool { return v >= MissingI16Threshold }

// IsMissingI32 reports whether v is in Stata's I32 missing sentinel range.
func IsMissingI32(v int32) bool { return v >= MissingI32Threshold }

// IsMissingF32 reports whether v is the F32 missing sentinel (quiet NaN).
func IsMissingF32(v float32) bool { return math.IsNaN(float64(v)) }

// IsMissingF64 reports whether v falls in Stata's double missing range.
func IsMissingF64(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return v >= MissingF64Threshold()
}
