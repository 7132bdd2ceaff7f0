/*package snapio contains functions for reading dark matter particle positions
out of multi-file Gadget-2 snapshots. All reading goes through a Reader. A
Reader only holds configuration, so one Reader can be shared by any number of
goroutines and every call decodes its result fresh from the files.
*/
package snapio

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Gadget-2 files are only supported in little endian order.
var order binary.ByteOrder = binary.LittleEndian

// Config contains the options used to create a Reader.
type Config struct {
	// CheckFooters makes the decoders read the trailing length word of each
	// fortran block and confirm that it matches the leading one.
	CheckFooters bool
	// Workers is the number of sibling files that ReadAllPositions and
	// SummarizeCounts read at the same time. Values below 2 read the files
	// one after another.
	Workers int
	// Log receives per-file progress and failure messages. Nothing is logged
	// if Log is nil.
	Log logrus.FieldLogger
}

// Reader reads Gadget-2 headers and position blocks.
type Reader struct {
	checkFooters bool
	workers int
	log logrus.FieldLogger
}

// NewReader creates a Reader with the given configuration.
func NewReader(cfg Config) *Reader {
	log := cfg.Log
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Reader{ cfg.CheckFooters, cfg.Workers, log }
}

// sourceName returns a name for rd that can be used in error messages.
func sourceName(rd io.Reader) string {
	if f, ok := rd.(*os.File); ok { return f.Name() }
	return "the snapshot stream"
}
