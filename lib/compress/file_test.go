package compress

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/phil-mansfield/gadgetreader/lib/eq"
)

func testHeader(n, width int) *Header {
	return &Header{
		FixedWidthHeader{ int64(n), 1<<30, int64(width),
			1.0, 0.27, 0.73, 0.7, 62.5, 1.7e-3 },
		[]byte{ 5, 4, 3, 2, 1, 0 },
	}
}

func randomVecs(n int, L float64, seed int64) [][3]float64 {
	gen := rand.New(rand.NewSource(seed))
	x := make([][3]float64, n)
	for i := range x {
		for dim := 0; dim < 3; dim++ { x[i][dim] = gen.Float64()*L }
	}
	return x
}

func roundTo32(x [][3]float64) [][3]float64 {
	out := make([][3]float64, len(x))
	for i := range x {
		for dim := 0; dim < 3; dim++ {
			out[i][dim] = float64(float32(x[i][dim]))
		}
	}
	return out
}

func TestBitColumns(t *testing.T) {
	bits := []uint64{ 0, 1, 0xff, 0x1234, math.MaxUint64, 0x0102030405060708 }
	b := make([]byte, len(bits))
	out := make([]uint64, len(bits))

	for col := 0; col < 8; col++ {
		bitsToByte(bits, b, col)
		byteToBits(b, out, col)
	}

	if !eq.Slices(bits, out) {
		t.Errorf("Expected byte columns to reassemble into %x, got %x.",
			bits, out)
	}
}

func TestPositionsRoundTrip(t *testing.T) {
	x := randomVecs(1000, 100.0, 0)
	tests := []struct{
		x [][3]float64
		width int
		exp [][3]float64
	} {
		{ x, 8, x },
		{ roundTo32(x), 4, roundTo32(x) },
		{ x[:1], 8, x[:1] },
		{ x[:0], 4, x[:0] },
		// Positions in double precision are narrowed when written with
		// 4-byte floats.
		{ x[:10], 4, roundTo32(x[:10]) },
	}

	buf := NewBuffer()
	for i := range tests {
		wr := &bytes.Buffer{ }
		hd := testHeader(len(tests[i].x), tests[i].width)
		err := WritePositions(wr, hd, tests[i].x, 3, buf)
		if err != nil {
			t.Errorf("%d) Expected valid write, got '%s'.", i, err.Error())
			continue
		}

		rdHd, out, err := ReadPositions("test", wr, buf)
		if err != nil {
			t.Errorf("%d) Expected valid read, got '%s'.", i, err.Error())
			continue
		}

		if rdHd.FixedWidthHeader != hd.FixedWidthHeader ||
			!eq.Bytes(rdHd.OriginalHeader, hd.OriginalHeader) {
			t.Errorf("%d) Expected header %+v, got %+v.", i, *hd, *rdHd)
		}
		if !eq.Vec64s(out, tests[i].exp) {
			t.Errorf("%d) Positions didn't survive being written.", i)
		}
		if wr.Len() != 0 {
			t.Errorf("%d) Expected the whole file to be read, but %d bytes " +
				"were left.", i, wr.Len())
		}
	}
}

func TestWritePositionsErrors(t *testing.T) {
	x := randomVecs(10, 1.0, 1)
	tests := []*Header{ testHeader(9, 4), testHeader(10, 2), testHeader(10, 0) }

	for i := range tests {
		err := WritePositions(&bytes.Buffer{ }, tests[i], x, 1, NewBuffer())
		if err == nil {
			t.Errorf("%d) Expected WritePositions to fail for %+v.",
				i, tests[i].FixedWidthHeader)
		}
	}
}

func TestReadPositionsErrors(t *testing.T) {
	wr := &bytes.Buffer{ }
	err := WritePositions(wr, testHeader(100, 8), randomVecs(100, 1.0, 2),
		1, NewBuffer())
	if err != nil { t.Fatal(err) }
	b := wr.Bytes()

	newVersion := append([]byte{ }, b...)
	binary.LittleEndian.PutUint32(newVersion[4:], Version + 1)

	tests := [][]byte{
		{ }, b[:3], b[:8], b[:50], b[:len(b) - 1],
		append([]byte{ 0, 0, 0, 0 }, b[4:]...),
		newVersion,
	}

	for i := range tests {
		_, _, err := ReadPositions("test", bytes.NewReader(tests[i]),
			NewBuffer())
		if err == nil {
			t.Errorf("%d) Expected ReadPositions to fail on %d bytes.",
				i, len(tests[i]))
		}
	}
}

func TestCheckFile(t *testing.T) {
	tests := []struct{
		order binary.ByteOrder
		magic uint32
		valid bool
	} {
		{ binary.LittleEndian, MagicNumber, true },
		{ binary.BigEndian, MagicNumber, true },
		// Flipped magic number, but the version wasn't flipped with it.
		{ binary.LittleEndian, ReverseMagicNumber, false },
		{ binary.LittleEndian, 0xbadf00d0, false },
	}

	for i := range tests {
		b := &bytes.Buffer{ }
		binary.Write(b, tests[i].order, tests[i].magic)
		binary.Write(b, tests[i].order, uint32(Version))

		order, err := checkFile("test", b)
		if tests[i].valid != (err == nil) {
			t.Errorf("%d) Expected validity %v, got error %v.",
				i, tests[i].valid, err)
		} else if tests[i].valid && order != tests[i].order {
			t.Errorf("%d) Expected order %v, got %v.", i,
				tests[i].order, order)
		}
	}
}

func TestFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "positions.zst")
	x := roundTo32(randomVecs(500, 62.5, 3))
	hd := testHeader(len(x), 4)

	buf := NewBuffer()
	if err := WriteFile(fname, hd, x, 5, buf); err != nil {
		t.Fatalf("Expected valid write, got '%s'.", err.Error())
	}
	rdHd, out, err := ReadFile(fname, buf)
	if err != nil {
		t.Fatalf("Expected valid read, got '%s'.", err.Error())
	}
	if rdHd.FixedWidthHeader != hd.FixedWidthHeader || !eq.Vec64s(out, x) {
		t.Errorf("Expected to read back what was written.")
	}

	_, _, err = ReadFile(filepath.Join(t.TempDir(), "missing.zst"), buf)
	if err == nil {
		t.Errorf("Expected reading a missing file to fail.")
	}
}
