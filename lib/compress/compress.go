/*package compress writes dark matter positions to compact, lossless files.
The bit pattern of each coordinate is split into byte columns and every column
is compressed separately with zstd, so the slowly varying high bytes shrink to
almost nothing.
*/
package compress

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/DataDog/zstd"
	"github.com/pkg/errors"
)

// Buffer is an expandable buffer which is used by compress's functions to
// avoid unneeded heap allocations. The same Buffer can be passed to any number
// of calls, but not to calls running at the same time.
type Buffer struct {
	bits []uint64
	b, bZStd []byte
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{ []uint64{ }, []byte{ }, []byte{ } }
}

// resize resizes the Buffer's per-particle arrays to have length n.
func (buf *Buffer) resize(n int) {
	if cap(buf.bits) >= n {
		buf.bits = buf.bits[:n]
	} else {
		buf.bits = buf.bits[:cap(buf.bits)]
		buf.bits = append(buf.bits, make([]uint64, n - len(buf.bits))...)
	}
	buf.b = resizeBytes(buf.b, n)
}

// floatBits writes the bit patterns of the dim-th component of x to bits,
// using floats that are width bytes wide.
func floatBits(x [][3]float64, dim, width int, bits []uint64) {
	switch width {
	case 4:
		for i := range x {
			bits[i] = uint64(math.Float32bits(float32(x[i][dim])))
		}
	case 8:
		for i := range x { bits[i] = math.Float64bits(x[i][dim]) }
	default:
		panic(fmt.Sprintf("Internal error: float width %d isn't 4 or 8.",
			width))
	}
}

// bitsToFloats is the inverse of floatBits.
func bitsToFloats(bits []uint64, dim, width int, x [][3]float64) {
	switch width {
	case 4:
		for i := range x {
			x[i][dim] = float64(math.Float32frombits(uint32(bits[i])))
		}
	case 8:
		for i := range x { x[i][dim] = math.Float64frombits(bits[i]) }
	default:
		panic(fmt.Sprintf("Internal error: float width %d isn't 4 or 8.",
			width))
	}
}

// bitsToByte writes the col-th byte of every element of bits to b.
func bitsToByte(bits []uint64, b []byte, col int) {
	for i := range bits {
		b[i] = byte((bits[i] >> (8*col)) & 0xff)
	}
}

// byteToBits adds a one-byte column
func byteToBits(b []byte, bits []uint64, col int) {
	for i := range bits {
		bits[i] |= uint64(b[i]) << (8*col)
	}
}

// resizeBytes resizes a byte buffer to have length n.
func resizeBytes(b []byte, n int) []byte {
	if cap(b) >= n {
		b = b[:n]
	} else {
		b = b[:cap(b)]
		b = append(b, make([]byte, n - len(b))...)
	}

	return b
}

// WriteCompressedBitsZStd writes the lowest width bytes of every element of
// bits to wr as width column-ordered zstd blocks. Each block is preceded by
// its length as an int64. Nothing is written for empty arrays.
func WriteCompressedBitsZStd(
	bits []uint64, width, level int, buf *Buffer, wr io.Writer,
) error {
	if len(bits) == 0 { return nil }
	buf.b = resizeBytes(buf.b, len(bits))

	for col := 0; col < width; col++ {
		// Each column gets its own frame so that the high-significance bytes
		// can be compressed to basically nothing.
		bitsToByte(bits, buf.b, col)

		var err error
		buf.bZStd, err = zstd.CompressLevel(buf.bZStd, buf.b, level)
		if err != nil { return errors.Wrap(err, "zstd compression failed") }

		err = binary.Write(wr, binary.LittleEndian, int64(len(buf.bZStd)))
		if err != nil { return err }

		_, err = wr.Write(buf.bZStd)
		if err != nil { return err }
	}

	return nil
}

// ReadCompressedBitsZStd reads the blocks written by WriteCompressedBitsZStd
// into bits, which must have the same length as the array that was written.
func ReadCompressedBitsZStd(
	rd io.Reader, order binary.ByteOrder, width int, buf *Buffer,
	bits []uint64,
) error {
	if len(bits) == 0 { return nil }
	for i := range bits { bits[i] = 0 }

	for col := 0; col < width; col++ {
		nBuf := int64(0)
		err := binary.Read(rd, order, &nBuf)
		if err != nil { return err }
		if nBuf <= 0 {
			return errors.Errorf("zstd block %d has a length of %d bytes",
				col, nBuf)
		}

		buf.bZStd = resizeBytes(buf.bZStd, int(nBuf))
		_, err = io.ReadFull(rd, buf.bZStd)
		if err != nil { return err }

		buf.b, err = zstd.Decompress(buf.b, buf.bZStd)
		if err != nil { return errors.Wrap(err, "zstd decompression failed") }
		if len(buf.b) != len(bits) {
			return errors.Errorf("zstd block %d decompressed to %d bytes, " +
				"but %d were expected", col, len(buf.b), len(bits))
		}

		byteToBits(buf.b, bits, col)
	}

	return nil
}
