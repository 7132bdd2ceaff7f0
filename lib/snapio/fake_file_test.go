package snapio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/phil-mansfield/gadgetreader/lib/eq"
)

// fakeHeader returns a raw header for a file with n dark matter particles
// out of nTot, split across nFiles files. The box is 100 cMpc/h on a side
// with z = 1, Om = 0.3, OL = 0.7 and h100 = 0.7.
func fakeHeader(n, nTot uint32, nFiles int32) *rawGadget2Header {
	return &rawGadget2Header{
		NPart: [6]uint32{ 0, n, 0, 0, 0, 0 },
		Mass: [6]float64{ 0, 1.5e-2, 0, 0, 0, 0 },
		Time: 0.5, Redshift: 1.0,
		NPartTotal: [6]uint32{ 0, nTot, 0, 0, 0, 0 },
		NumFiles: nFiles,
		BoxSize: 100.0, Omega0: 0.3, OmegaLambda: 0.7, HubbleParam: 0.7,
	}
}

// writeBlock writes x wrapped in fortran block headers.
func writeBlock(buf *bytes.Buffer, x interface{}) {
	size := uint32(binary.Size(x))
	for _, val := range []interface{}{ size, x, size } {
		err := binary.Write(buf, binary.LittleEndian, val)
		if err != nil { panic(err.Error()) }
	}
}

// fakeFileBytes returns the bytes of a Gadget-2 file with the given header
// and positions. x may be [][3]float32, [][3]float64 or nil, in which case
// the file stops after the header.
func fakeFileBytes(hd *rawGadget2Header, x interface{}) []byte {
	buf := &bytes.Buffer{ }
	writeBlock(buf, hd)
	if x != nil { writeBlock(buf, x) }
	return buf.Bytes()
}

// fakeVecs returns n position vectors whose components are all distinct.
func fakeVecs(n int) [][3]float32 {
	x := make([][3]float32, n)
	for i := range x {
		for dim := 0; dim < 3; dim++ {
			x[i][dim] = float32(3*i + dim) + 0.25
		}
	}
	return x
}

func widen(x [][3]float32) [][3]float64 {
	out := make([][3]float64, len(x))
	for i := range x {
		out[i] = [3]float64{
			float64(x[i][0]), float64(x[i][1]), float64(x[i][2]),
		}
	}
	return out
}

// fakeFile describes one file of a fake snapshot. If missing is true, the
// file is not written.
type fakeFile struct {
	x [][3]float32
	missing bool
	raw []byte
}

// writeFakeSnapshot writes a snapshot to dir with the base name "snapshot"
// and returns the name of file 0. Files with non-nil raw are written as-is.
func writeFakeSnapshot(t *testing.T, dir string, files []fakeFile) string {
	nTot := uint32(0)
	for _, f := range files { nTot += uint32(len(f.x)) }

	for i, f := range files {
		if f.missing { continue }
		b := f.raw
		if b == nil {
			hd := fakeHeader(uint32(len(f.x)), nTot, int32(len(files)))
			b = fakeFileBytes(hd, f.x)
		}
		name := filepath.Join(dir, fmt.Sprintf("snapshot.%d", i))
		err := os.WriteFile(name, b, 0644)
		if err != nil { t.Fatalf("Could not write %s: %s", name, err.Error()) }
	}

	return filepath.Join(dir, "snapshot.0")
}

func TestFakeFileLayout(t *testing.T) {
	x := fakeVecs(3)
	b := fakeFileBytes(fakeHeader(3, 3, 1), x)

	if len(b) != firstBlockOffset + 4 + 3*3*4 + 4 {
		t.Fatalf("Expected fake file to have %d bytes, got %d.",
			firstBlockOffset + 4 + 3*3*4 + 4, len(b))
	}

	tests := []struct{
		offset int
		val uint32
	} {
		{ 0, 256 }, { 4 + 256, 256 }, { 264, 36 }, { 264 + 4 + 36, 36 },
		{ 4 + 4, 3 }, { 4 + 96 + 4, 3 }, { 4 + 124, 1 },
	}

	for i := range tests {
		val := binary.LittleEndian.Uint32(b[tests[i].offset:])
		if val != tests[i].val {
			t.Errorf("%d) Expected uint32 at offset %d to be %d, got %d.",
				i, tests[i].offset, tests[i].val, val)
		}
	}

	hdBytes := b[4:4 + gadget2HeaderSize]
	hd, err := NewReader(Config{ }).DecodeHeader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("Expected fake header to decode, got '%s'.", err.Error())
	} else if !eq.Bytes(hd.ToBytes(), hdBytes) {
		t.Errorf("Expected ToBytes() to match the fake header payload.")
	}
}
