package dtareader

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/korenmiklos/stata-dta/internal/dtaerr"
	"github.com/korenmiklos/stata-dta/internal/dtatype"
	"github.com/korenmiklos/stata-dta/pkg/dtasource"
)

func nulPad(s string, width int) []byte {
	b := make([]byte, width)
	copy(b, s)
	return b
}

func u16le(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

func u32le(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func f64le(v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return b[:]
}

func u16be(v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return b[:]
}

func u32be(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

// buildLegacyV115String assembles a synthetic 1-variable legacy-dialect
// (fixed-width string, width 5), big-endian file with 3 rows, matching the
// dialect's string type-code rule: any type byte in 1..=244 outside the
// five numeric magic values is a string of that many bytes.
func buildLegacyV115String(t *testing.T) []byte {
	t.Helper()
	const nvar = 1
	const nobs = 3

	var buf bytes.Buffer
	buf.WriteByte(115)     // format_version
	buf.WriteByte(0x01)    // byteorder: MSF (big-endian)
	buf.WriteByte(1)       // filetype
	buf.WriteByte(0)       // padding
	buf.Write(u16be(nvar)) // nvar
	buf.Write(u32be(nobs)) // nobs
	buf.Write(nulPad("", 81))
	buf.Write(nulPad("01 Jan 2024 00:00", 18))

	buf.WriteByte(5) // v1: string, width 5

	buf.Write(nulPad("v1", 33))

	for i := 0; i < nvar+1; i++ {
		buf.Write(u16be(0)) // sortlist
	}
	buf.Write(nulPad("", 49)) // formats
	buf.Write(nulPad("", 33)) // value_label_names
	buf.Write(nulPad("", 81)) // variable_labels
	buf.Write(u32be(0))       // characteristics terminator

	buf.Write(nulPad("abc", 5))
	buf.Write(nulPad("de", 5))
	buf.Write([]byte("fghij"))

	buf.Write(u32be(0)) // empty value-label section

	return buf.Bytes()
}

// buildLegacyV114 assembles a synthetic 3-variable legacy-dialect (byte,
// int, double) little-endian file exercising the v114 "+5" data-offset
// quirk and the I8/F64 missing-sentinel boundaries.
func buildLegacyV114(t *testing.T) []byte {
	t.Helper()
	const nvar = 3
	const nobs = 2

	var buf bytes.Buffer
	buf.WriteByte(114)      // format_version
	buf.WriteByte(0x02)     // byteorder: LSF
	buf.WriteByte(1)        // filetype
	buf.WriteByte(0)        // padding
	buf.Write(u16le(nvar))  // nvar
	buf.Write(u32le(nobs))  // nobs
	buf.Write(nulPad("", 81))
	buf.Write(nulPad("01 Jan 2024 00:00", 18))

	buf.WriteByte('b') // v1: byte
	buf.WriteByte('i') // v2: int
	buf.WriteByte('d') // v3: double

	buf.Write(nulPad("v1", 33))
	buf.Write(nulPad("v2", 33))
	buf.Write(nulPad("v3", 33))

	for i := 0; i < nvar+1; i++ {
		buf.Write(u16le(0)) // sortlist
	}
	for i := 0; i < nvar; i++ {
		buf.Write(nulPad("", 49)) // formats
	}
	for i := 0; i < nvar; i++ {
		buf.Write(nulPad("", 33)) // value_label_names
	}
	for i := 0; i < nvar; i++ {
		buf.Write(nulPad("", 81)) // variable_labels
	}
	buf.Write(u32le(0)) // characteristics terminator

	buf.Write(make([]byte, 5)) // v114 quirk padding

	// row 1: valid values
	buf.WriteByte(5)
	buf.Write(u16le(uint16(int16(1000))))
	buf.Write(f64le(3.14159))

	// row 2: byte and double missing sentinels
	buf.WriteByte(101) // >= MissingI8Threshold
	negFive := int16(-5)
	buf.Write(u16le(uint16(negFive)))
	buf.Write(f64le(dtatype.MissingF64Threshold()))

	buf.Write(u32le(0)) // empty value-label section

	return buf.Bytes()
}

func openFixture(t *testing.T, data []byte, opts ...Option) *Reader {
	t.Helper()
	src := dtasource.NewMemorySource(data)
	allOpts := append([]Option{WithSource(src)}, opts...)
	rd, err := Open("fixture.dta", allOpts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return rd
}

func TestLegacyV114RoundTrip(t *testing.T) {
	data := buildLegacyV114(t)
	rd := openFixture(t, data)
	defer rd.Close()

	if rd.Header().FormatVersion != 114 {
		t.Fatalf("FormatVersion = %d, want 114", rd.Header().FormatVersion)
	}
	if got := len(rd.Variables()); got != 3 {
		t.Fatalf("len(Variables()) = %d, want 3", got)
	}
	if rd.NObs() != 2 {
		t.Fatalf("NObs() = %d, want 2", rd.NObs())
	}

	batch, err := rd.NextChunk()
	if err != nil {
		t.Fatalf("NextChunk: %v", err)
	}
	if batch == nil {
		t.Fatal("NextChunk returned nil batch")
	}
	if batch.Cardinality != 2 {
		t.Fatalf("Cardinality = %d, want 2", batch.Cardinality)
	}

	i8 := batch.Columns[0]
	if !i8.Valid[0] || i8.I8[0] != 5 {
		t.Errorf("row0 v1 = (%v, %d), want (true, 5)", i8.Valid[0], i8.I8[0])
	}
	if i8.Valid[1] {
		t.Errorf("row1 v1 should be missing, got valid=%v value=%d", i8.Valid[1], i8.I8[1])
	}

	f64 := batch.Columns[2]
	if !f64.Valid[0] || f64.F64[0] != 3.14159 {
		t.Errorf("row0 v3 = (%v, %v), want (true, 3.14159)", f64.Valid[0], f64.F64[0])
	}
	if f64.Valid[1] {
		t.Errorf("row1 v3 should be missing, got valid=%v", f64.Valid[1])
	}

	if rd.HasMore() {
		t.Error("HasMore() = true after consuming the only chunk")
	}
	batch, err = rd.NextChunk()
	if err != nil || batch != nil {
		t.Errorf("NextChunk after exhaustion = (%v, %v), want (nil, nil)", batch, err)
	}
}

func TestNextChunkAfterCloseFails(t *testing.T) {
	data := buildLegacyV114(t)
	rd := openFixture(t, data)
	if err := rd.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := rd.NextChunk(); err != dtaerr.ErrClosed {
		t.Errorf("NextChunk after Close = %v, want dtaerr.ErrClosed", err)
	}
	if err := rd.Close(); err != nil {
		t.Errorf("second Close = %v, want nil (idempotent)", err)
	}
}

func TestWithChunkCapSplitsRows(t *testing.T) {
	data := buildLegacyV114(t)
	rd := openFixture(t, data, WithChunkCap(1))
	defer rd.Close()

	first, err := rd.NextChunk()
	if err != nil || first == nil || first.Cardinality != 1 {
		t.Fatalf("first NextChunk = (%v, %v), want cardinality 1", first, err)
	}
	if !rd.HasMore() {
		t.Fatal("HasMore() = false, want true after first of two chunks")
	}
	second, err := rd.NextChunk()
	if err != nil || second == nil || second.Cardinality != 1 {
		t.Fatalf("second NextChunk = (%v, %v), want cardinality 1", second, err)
	}
	if rd.HasMore() {
		t.Error("HasMore() = true after consuming both chunks")
	}
}

func TestLegacyV115StringRoundTrip(t *testing.T) {
	data := buildLegacyV115String(t)
	rd := openFixture(t, data)
	defer rd.Close()

	if rd.Header().FormatVersion != 115 {
		t.Fatalf("FormatVersion = %d, want 115", rd.Header().FormatVersion)
	}
	if got := len(rd.Variables()); got != 1 {
		t.Fatalf("len(Variables()) = %d, want 1", got)
	}
	if rd.NObs() != 3 {
		t.Fatalf("NObs() = %d, want 3", rd.NObs())
	}

	batch, err := rd.NextChunk()
	if err != nil {
		t.Fatalf("NextChunk: %v", err)
	}
	if batch.Cardinality != 3 {
		t.Fatalf("Cardinality = %d, want 3", batch.Cardinality)
	}

	col := batch.Columns[0]
	want := []string{"abc", "de", "fghij"}
	for i, w := range want {
		if !col.Valid[i] || col.Str[i] != w {
			t.Errorf("row%d = (%v, %q), want (true, %q)", i, col.Valid[i], col.Str[i], w)
		}
	}
}

// buildTaggedV118F64 assembles a synthetic 1-variable tagged v118 file
// whose single F64 row holds value. TestTaggedV118MissingSentinelLiteral
// passes the literal 8.988e307 rather than any threshold constant this
// decoder computes internally.
func buildTaggedV118F64(t *testing.T, value float64) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("<stata_dta><header><release>118</release>")
	buf.WriteString("<byteorder>LSF</byteorder>")
	buf.WriteString("<K>")
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	buf.WriteString("</K>")
	buf.WriteString("<N>")
	binary.Write(&buf, binary.LittleEndian, uint64(1))
	buf.WriteString("</N>")
	buf.WriteString("<label>")
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	buf.WriteString("</label>")
	buf.WriteString("<timestamp>")
	buf.Write(nulPad("01 Jan 2024 00:00", 18))
	buf.WriteString("</timestamp>")
	buf.WriteString("</header>")

	buf.WriteString("<variable_types>")
	binary.Write(&buf, binary.LittleEndian, uint16(255)) // F64
	buf.WriteString("</variable_types>")

	buf.WriteString("<varnames>")
	buf.Write(nulPad("x", 129))
	buf.WriteString("</varnames>")

	buf.WriteString("<sortlist>")
	for i := 0; i < 2; i++ { // nvar+1
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	buf.WriteString("</sortlist>")

	buf.WriteString("<formats>")
	buf.Write(nulPad("%10.0g", 57))
	buf.WriteString("</formats>")

	buf.WriteString("<value_label_names>")
	buf.Write(nulPad("", 129))
	buf.WriteString("</value_label_names>")

	buf.WriteString("<variable_labels>")
	buf.Write(nulPad("", 321))
	buf.WriteString("</variable_labels>")

	buf.WriteString("<data>")
	buf.Write(f64le(value))
	buf.WriteString("</data>")

	return buf.Bytes()
}

func TestTaggedV118MissingSentinelLiteral(t *testing.T) {
	// spec.md scenario 4: "Tagged v.118, 1 F64 var x 1 row with value
	// 8.988e307. Expected: NULL" — encoded with the exact literal, not the
	// decoder's own computed threshold constant.
	data := buildTaggedV118F64(t, 8.988e307)
	rd := openFixture(t, data)
	defer rd.Close()

	batch, err := rd.NextChunk()
	if err != nil {
		t.Fatalf("NextChunk: %v", err)
	}
	if batch.Columns[0].Valid[0] {
		t.Errorf("8.988e307 should decode as NULL, got valid=%v value=%v",
			batch.Columns[0].Valid[0], batch.Columns[0].F64[0])
	}
}

func TestUnsupportedVersionRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(99)
	buf.WriteByte(0x02)
	buf.WriteByte(1)
	buf.WriteByte(0)
	buf.Write(u16le(0))
	buf.Write(u32le(0))
	buf.Write(nulPad("", 81))
	buf.Write(nulPad("", 18))

	src := dtasource.NewMemorySource(buf.Bytes())
	_, err := Open("bad.dta", WithSource(src))
	if err == nil {
		t.Fatal("Open with format_version 99 should fail")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("unsupported format version")) {
		t.Errorf("error = %v, want mention of unsupported format version", err)
	}
}
