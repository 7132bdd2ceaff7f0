package snapio

import (
	"encoding/binary"
	"io"
	"unsafe"

	"github.com/pkg/errors"
)

// PositionBlock contains the dark matter positions of a single file.
type PositionBlock struct {
	// Width is the number of bytes used by each float in the file: 4 or 8.
	// It is 0 for empty blocks.
	Width int
	// X contains one position vector per particle, in file order.
	X [][3]float64
}

// DecodePositions decodes the position block of a file containing n dark
// matter particles. rd must be positioned at the start of the block (i.e.
// just after the header block). The precision of the floats is not stored
// anywhere in the file, so it is inferred from the size of the block.
func (r *Reader) DecodePositions(
	rd io.Reader, n uint32,
) (*PositionBlock, error) {
	return r.decodePositions(rd, n, sourceName(rd), -1)
}

// ReadPositions reads the header and position block of a single file. If the
// header could be read but the positions couldn't, the header is returned
// alongside the error.
func (r *Reader) ReadPositions(
	fileName string,
) (*Header, *PositionBlock, error) {
	f, err := openSnapshotFile(fileName)
	if err != nil { return nil, nil, err }
	defer f.Close()

	hd, err := r.decodeHeader(f, fileName)
	if err != nil { return nil, nil, err }

	info, err := f.Stat()
	if err != nil {
		return hd, nil, errors.Wrapf(err, "could not stat %s", fileName)
	}
	_, err = f.Seek(firstBlockOffset, io.SeekStart)
	if err != nil {
		return hd, nil, errors.Wrapf(err, "could not seek past the header " +
			"of %s", fileName)
	}

	avail := info.Size() - firstBlockOffset
	block, err := r.decodePositions(f, hd.NPart, fileName, avail)
	if err != nil { return hd, nil, err }
	return hd, block, nil
}

// decodePositions reads a position block from rd. avail is the number of
// bytes left in rd, or -1 if that isn't known.
func (r *Reader) decodePositions(
	rd io.Reader, n uint32, name string, avail int64,
) (*PositionBlock, error) {
	size := uint32(0)
	err := binary.Read(rd, order, &size)
	if n == 0 && err == io.EOF {
		// Files without particles are allowed to stop after the header.
		return &PositionBlock{ X: [][3]float64{ } }, nil
	} else if err != nil {
		return nil, readError(err, name, "position block length")
	}

	if n == 0 || size == 0 {
		return &PositionBlock{ X: [][3]float64{ } }, nil
	}

	width, ok := floatWidth(size, n)
	if !ok {
		return nil, errors.Wrapf(ErrFormat, "%s has indeterminate " +
			"precision: a position block of %d bytes would use %g bytes " +
			"per float for %d particles, not 4 or 8", name, size,
			float64(size) / (3*float64(n)), n)
	}
	if avail >= 0 && int64(size) > avail - 4 {
		// Must happen before x is allocated.
		return nil, errors.Wrapf(ErrTruncated, "%s has a %d byte position " +
			"block, but only %d bytes follow its length", name, size,
			avail - 4)
	}

	x := make([][3]float64, n)
	switch width {
	case 4:
		x32 := make([]float32, 3*len(x))
		err = binary.Read(rd, order, x32)
		if err != nil { return nil, readError(err, name, "position block") }
		for i := range x {
			x[i] = [3]float64{
				float64(x32[3*i]), float64(x32[3*i + 1]),
				float64(x32[3*i + 2]),
			}
		}
	case 8:
		// binary.Read falls back to reflection for [][3]float64, which is
		// slow and allocates heavily, so read through a flat view of the
		// same memory instead.
		flat := unsafe.Slice(&x[0][0], 3*len(x))
		err = binary.Read(rd, order, flat)
		if err != nil { return nil, readError(err, name, "position block") }
	}

	if r.checkFooters {
		footer := uint32(0)
		err = binary.Read(rd, order, &footer)
		if err != nil {
			return nil, readError(err, name, "position block footer")
		}
		if footer != size {
			return nil, errors.Wrapf(ErrFormat, "%s is not a valid " +
				"Gadget-2 file: the header, %d, and footer, %d, of the " +
				"position block don't match", name, size, footer)
		}
	}

	return &PositionBlock{ Width: width, X: x }, nil
}

// floatWidth returns the number of bytes per float in a block of size bytes
// holding n 3-vectors. It returns false if that isn't exactly 4 or 8.
func floatWidth(size, n uint32) (int, bool) {
	switch float64(size) / (3*float64(n)) {
	case 4: return 4, true
	case 8: return 8, true
	}
	return 0, false
}
