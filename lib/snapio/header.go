package snapio

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	gadget2HeaderSize = 256
	// firstBlockOffset is the offset of the first block after the header:
	// the header's leading length word, its payload, and its footer.
	firstBlockOffset = 4 + gadget2HeaderSize + 4
	// darkMatter is the index of dark matter in the per-species arrays.
	darkMatter = 1
)

// rawGadget2Header is a struct with the same layout as the 256 payload bytes
// of a standard Gadget-2 header block.
type rawGadget2Header struct {
	NPart [6]uint32
	Mass [6]float64
	Time, Redshift float64
	FlagSFR, FlagFeedback int32
	NPartTotal [6]uint32
	FlagCooling, NumFiles int32
	BoxSize, Omega0, OmegaLambda, HubbleParam float64
	FlagStellarAge, FlagMetals int32
	NPartTotalHW [6]uint32
	FlagEntropyICs int32
	Empty [60]byte
}

// Header contains the dark matter fields of a Gadget-2 header. Counts and
// masses for the other species are kept internally so that ToBytes can
// reproduce the original block exactly.
type Header struct {
	// NPart is the number of dark matter particles in this file. It may be
	// zero.
	NPart uint32
	// Mass is the mass of a single dark matter particle.
	Mass float64
	// Time is the scale factor for cosmological runs and the simulation time
	// otherwise.
	Time, Redshift float64
	FlagSFR, FlagFeedback int32
	// NPartTotal is the number of dark matter particles across every file
	// in the snapshot.
	NPartTotal uint32
	FlagCooling int32
	// NumFiles is the number of files the snapshot is split across.
	NumFiles int32
	BoxSize, Omega0, OmegaLambda, HubbleParam float64

	raw rawGadget2Header
}

func newHeader(raw *rawGadget2Header) *Header {
	return &Header{
		NPart: raw.NPart[darkMatter], Mass: raw.Mass[darkMatter],
		Time: raw.Time, Redshift: raw.Redshift,
		FlagSFR: raw.FlagSFR, FlagFeedback: raw.FlagFeedback,
		NPartTotal: raw.NPartTotal[darkMatter],
		FlagCooling: raw.FlagCooling, NumFiles: raw.NumFiles,
		BoxSize: raw.BoxSize, Omega0: raw.Omega0,
		OmegaLambda: raw.OmegaLambda, HubbleParam: raw.HubbleParam,
		raw: *raw,
	}
}

// ToBytes returns the 256-byte payload the header was decoded from.
func (hd *Header) ToBytes() []byte {
	buf := &bytes.Buffer{ }
	err := binary.Write(buf, order, &hd.raw)
	if err != nil { panic("Internal error: " + err.Error()) }
	return buf.Bytes()
}

// ScaleFactor returns a = 1/(1 + z).
func (hd *Header) ScaleFactor() float64 { return 1 / (1 + hd.Redshift) }

// DecodeHeader decodes a Gadget-2 header block from rd, which must be
// positioned at the start of a file. Exactly 264 bytes are consumed on
// success, so rd is left at the start of the position block.
func (r *Reader) DecodeHeader(rd io.Reader) (*Header, error) {
	return r.decodeHeader(rd, sourceName(rd))
}

// ReadHeader reads the header of the given file.
func (r *Reader) ReadHeader(fileName string) (*Header, error) {
	f, err := openSnapshotFile(fileName)
	if err != nil { return nil, err }
	defer f.Close()

	return r.decodeHeader(f, fileName)
}

func (r *Reader) decodeHeader(rd io.Reader, name string) (*Header, error) {
	nHeader, nFooter := uint32(0), uint32(0)

	// Read the header block and check that it's the right size.
	err := binary.Read(rd, order, &nHeader)
	if err != nil { return nil, readError(err, name, "header length") }
	if nHeader != gadget2HeaderSize {
		return nil, errors.Wrapf(ErrFormat, "%s is not a valid snapshot " +
			"header: the first integer would lead to a header with %d " +
			"bytes instead of %d", name, nHeader, gadget2HeaderSize)
	}

	raw := &rawGadget2Header{ }
	err = binary.Read(rd, order, raw)
	if err != nil { return nil, readError(err, name, "header") }

	err = binary.Read(rd, order, &nFooter)
	if err != nil { return nil, readError(err, name, "header footer") }
	if r.checkFooters && nHeader != nFooter {
		return nil, errors.Wrapf(ErrFormat, "%s is not a valid Gadget-2 " +
			"file: the header, %d, and footer, %d, of the header block " +
			"don't match", name, nHeader, nFooter)
	}

	return newHeader(raw), nil
}
