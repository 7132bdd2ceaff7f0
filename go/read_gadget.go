/*package read_gadget provides several functions for reading dark matter
positions out of Gadget-2 snapshots. It is a thin layer over lib/snapio that
uses default settings, for callers that only have a file name.
*/
package read_gadget

import (
	"github.com/phil-mansfield/gadgetreader/lib/snapio"
)

type (
	// Header contains the dark matter fields of a Gadget-2 header.
	Header = snapio.Header
	// Snapshot contains the positions of every readable file in a snapshot
	// along with a record of which files couldn't be read.
	Snapshot = snapio.Snapshot
	// CountSummary contains the particle counts declared by one file.
	CountSummary = snapio.CountSummary
)

var reader = snapio.NewReader(snapio.Config{ })

// InitWorkers sets the number of files that ReadAllPositions and
// SummarizeCounts read at the same time. It must not be called while any
// other function in this package is running.
func InitWorkers(nWorkers int) {
	reader = snapio.NewReader(snapio.Config{ Workers: nWorkers })
}

// ReadHeader returns the header of a given file.
func ReadHeader(fileName string) (*Header, error) {
	return reader.ReadHeader(fileName)
}

// ReadPositions returns the header and dark matter positions of a single
// file. The positions are widened to float64 regardless of how they were
// stored.
func ReadPositions(fileName string) (*Header, [][3]float64, error) {
	hd, block, err := reader.ReadPositions(fileName)
	if err != nil { return hd, nil, err }
	return hd, block.X, nil
}

// ReadAllPositions reads every file in the snapshot that fileName belongs to.
// Files which can't be read are skipped and listed by Snapshot.Failures().
func ReadAllPositions(fileName string) (*Snapshot, error) {
	return reader.ReadAllPositions(fileName)
}

// SummarizeCounts returns the particle counts declared by every file in the
// snapshot that fileName belongs to.
func SummarizeCounts(fileName string) ([]CountSummary, error) {
	return reader.SummarizeCounts(fileName)
}
