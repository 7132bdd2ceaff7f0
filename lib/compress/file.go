package compress

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/phil-mansfield/gadgetreader/lib/snapio"
)

const (
	// MagicNumber is an arbitrary number at the start of all position files
	// which should help identify when the code is run on something else by
	// accident.
	MagicNumber = 0xa0d1f5e2
	// ReverseMagicNumber is the magic number if read on a machine with
	// flipped endianness.
	ReverseMagicNumber = 0xe2f5d1a0
	Version = 1
)

// FixedWidthHeader is the part of a position file's header with a fixed size.
type FixedWidthHeader struct {
	// N and NTot give the number of particles in the file and the number
	// declared for the whole snapshot, respectively.
	N, NTot int64
	// Width is the number of bytes used for each float: 4 or 8.
	Width int64
	// Z, OmegaM, OmegaL, H100, L, and Mass give the redshift, Omega_m,
	// Omega_Lambda, H0 / (100 km/s/Mpc), box width in comoving Mpc/h,
	// and particle mass in 10^10 Msun/h.
	Z, OmegaM, OmegaL, H100, L, Mass float64
}

// Header is the header of a position file.
type Header struct {
	FixedWidthHeader
	// OriginalHeader is the 256-byte header payload of the Gadget-2 file the
	// positions were found through.
	OriginalHeader []byte
}

// NewHeader creates the header for a file holding n positions stored with
// floats that are width bytes wide, taken from the snapshot with header hd.
func NewHeader(hd *snapio.Header, n, width int) *Header {
	return &Header{
		FixedWidthHeader{ int64(n), int64(hd.NPartTotal), int64(width),
			hd.Redshift, hd.Omega0, hd.OmegaLambda, hd.HubbleParam,
			hd.BoxSize, hd.Mass },
		hd.ToBytes(),
	}
}

func (hd *Header) read(rd io.Reader, order binary.ByteOrder) error {
	err := binary.Read(rd, order, &hd.FixedWidthHeader)
	if err != nil { return err }

	var nOHeader uint32
	if err := binary.Read(rd, order, &nOHeader); err != nil { return err }
	hd.OriginalHeader = make([]byte, nOHeader)

	_, err = io.ReadFull(rd, hd.OriginalHeader)
	return err
}

func (hd *Header) write(wr io.Writer, order binary.ByteOrder) error {
	err := binary.Write(wr, order, &hd.FixedWidthHeader)
	if err != nil { return err }

	nOHeader := uint32(len(hd.OriginalHeader))
	if err := binary.Write(wr, order, nOHeader); err != nil { return err }

	_, err = wr.Write(hd.OriginalHeader)
	return err
}

// WritePositions writes a header followed by the compressed positions in x to
// wr. level is the zstd compression level.
func WritePositions(
	wr io.Writer, hd *Header, x [][3]float64, level int, buf *Buffer,
) error {
	if hd.N != int64(len(x)) {
		return errors.Errorf("The header says the file stores %d " +
			"particles, but %d positions were given.", hd.N, len(x))
	} else if hd.Width != 4 && hd.Width != 8 {
		return errors.Errorf("Positions can only be written with 4- or " +
			"8-byte floats, not %d-byte floats.", hd.Width)
	}

	order := binary.LittleEndian
	// Write file identification information.
	err := binary.Write(wr, order, uint32(MagicNumber))
	if err != nil { return err }
	err = binary.Write(wr, order, uint32(Version))
	if err != nil { return err }

	if err = hd.write(wr, order); err != nil { return err }

	buf.resize(len(x))
	for dim := 0; dim < 3; dim++ {
		floatBits(x, dim, int(hd.Width), buf.bits)
		err = WriteCompressedBitsZStd(buf.bits, int(hd.Width), level, buf, wr)
		if err != nil { return err }
	}

	return nil
}

// ReadPositions reads a file written by WritePositions from rd. name is only
// used in error messages.
func ReadPositions(
	name string, rd io.Reader, buf *Buffer,
) (*Header, [][3]float64, error) {
	order, err := checkFile(name, rd)
	if err != nil { return nil, nil, err }

	hd := &Header{ }
	if err = hd.read(rd, order); err != nil {
		return nil, nil, errors.Wrapf(err, "could not read the header of %s",
			name)
	}
	if hd.N < 0 || (hd.Width != 4 && hd.Width != 8) {
		return nil, nil, errors.Errorf("The header of %s is corrupted: it " +
			"says the file has %d particles stored as %d-byte floats.",
			name, hd.N, hd.Width)
	}

	x := make([][3]float64, hd.N)
	buf.resize(len(x))
	for dim := 0; dim < 3; dim++ {
		err = ReadCompressedBitsZStd(rd, order, int(hd.Width), buf, buf.bits)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "could not read dimension " +
				"%d of %s", dim, name)
		}
		bitsToFloats(buf.bits, dim, int(hd.Width), x)
	}

	return hd, x, nil
}

// WriteFile writes x to the file fname. See WritePositions.
func WriteFile(
	fname string, hd *Header, x [][3]float64, level int, buf *Buffer,
) error {
	f, err := os.Create(fname)
	if err != nil { return err }

	wr := bufio.NewWriter(f)
	err = WritePositions(wr, hd, x, level, buf)
	if err == nil { err = wr.Flush() }
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads the positions in the file fname. See ReadPositions.
func ReadFile(fname string, buf *Buffer) (*Header, [][3]float64, error) {
	f, err := os.Open(fname)
	if err != nil { return nil, nil, err }
	defer f.Close()

	return ReadPositions(fname, bufio.NewReader(f), buf)
}

// checkFile reads the magic number and version at the start of a file and
// returns the byte order the file was written in.
func checkFile(name string, rd io.Reader) (binary.ByteOrder, error) {
	var magicNumber, version uint32

	// Read the magic number and check that this is actually a position file.
	order := binary.ByteOrder(binary.LittleEndian)
	err := binary.Read(rd, order, &magicNumber)
	if err != nil { return nil, err }

	switch magicNumber {
	case MagicNumber:
	case ReverseMagicNumber: order = binary.BigEndian
	default:
		return order, errors.Errorf("%s is not a position file. All " +
			"position files begin with either the 32-bit integer %x or %x. " +
			"This file begins with %x.", name, MagicNumber,
			ReverseMagicNumber, magicNumber)
	}

	// Check the version.
	err = binary.Read(rd, order, &version)
	if err != nil { return nil, err }
	if version > Version {
		return order, errors.Errorf("The file %s was created with format " +
			"version %d, but you are trying to read it with version %d. " +
			"This means that the file contains features which weren't " +
			"implemented at the time your code was written.", name,
			version, Version)
	}

	return order, nil
}
