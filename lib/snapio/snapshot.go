package snapio

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome of reading one file of a snapshot. Exactly one
// of Err and the success fields is meaningful.
type FileResult struct {
	Index int
	FileName string
	// Header is set whenever the header could be decoded, even if the
	// positions couldn't.
	Header *Header
	// Width is the float width of the position block and N is the number of
	// positions it contributed.
	Width, N int
	Err error
}

// Snapshot contains the positions of every readable file in a snapshot.
type Snapshot struct {
	// Header is the header of the file used to find the others.
	Header *Header
	// Files has one entry per file index, in order.
	Files []FileResult
	// X contains the positions of all successfully read files, ordered by
	// file index and then by position within the file.
	X [][3]float64
	// NRead is the sum of the NPart declared by every file that was read
	// successfully. It is smaller than Header.NPartTotal if any files failed.
	// A file that declares particles but stores an empty position block still
	// counts all of them here, so use len(X) for the number of positions.
	NRead uint64
}

// Failures returns the results of the files which couldn't be read.
func (snap *Snapshot) Failures() []FileResult {
	out := []FileResult{ }
	for _, res := range snap.Files {
		if res.Err != nil { out = append(out, res) }
	}
	return out
}

// Missing returns the declared total particle count minus the number of
// particles that were read.
func (snap *Snapshot) Missing() int64 {
	return int64(snap.Header.NPartTotal) - int64(snap.NRead)
}

// CountSummary contains the particle counts declared by a single file's
// header.
type CountSummary struct {
	Index int
	FileName string
	NPart, NPartTotal uint32
	Err error
}

// SumCounts returns the sum of NPart over every file whose header could be
// read.
func SumCounts(counts []CountSummary) uint64 {
	sum := uint64(0)
	for i := range counts {
		if counts[i].Err == nil { sum += uint64(counts[i].NPart) }
	}
	return sum
}

// SiblingName returns the name of file i of the snapshot containing seed.
// The file index is everything after the last '.' of seed and may have any
// number of digits. Indices are written without zero-padding.
func SiblingName(seed string, i int) (string, error) {
	dot := strings.LastIndex(seed, ".")
	if dot == -1 || dot == len(seed) - 1 || !isDigits(seed[dot+1:]) {
		return "", errors.Wrapf(ErrFormat, "%s does not end in a " +
			"'.<file index>' suffix, so the other files of its snapshot " +
			"can't be found", seed)
	} else if i < 0 {
		return "", errors.Errorf("file index %d is negative", i)
	}
	return seed[:dot+1] + strconv.Itoa(i), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' { return false }
	}
	return true
}

// maxNumFiles is the largest NumFiles a header may declare. Larger values
// come from corrupted headers, not real snapshots.
const maxNumFiles = 1 << 16

// siblingNames returns the name of every file in the snapshot containing
// seed, according to hd.
func siblingNames(seed string, hd *Header) ([]string, error) {
	if hd.NumFiles < 1 || hd.NumFiles > maxNumFiles {
		return nil, errors.Wrapf(ErrFormat, "the header of %s says the " +
			"snapshot is split across %d files, but it must be between 1 " +
			"and %d", seed, hd.NumFiles, maxNumFiles)
	}

	names := make([]string, hd.NumFiles)
	for i := range names {
		var err error
		names[i], err = SiblingName(seed, i)
		if err != nil { return nil, err }
	}
	return names, nil
}

// ReadAllPositions reads the positions from every file in the snapshot
// containing seed. Files which can't be read are recorded in
// Snapshot.Files and skipped. An error is only returned if the header of
// seed itself can't be read, since that is where the number of files comes
// from.
func (r *Reader) ReadAllPositions(seed string) (*Snapshot, error) {
	hd, err := r.ReadHeader(seed)
	if err != nil { return nil, err }
	names, err := siblingNames(seed, hd)
	if err != nil { return nil, err }

	files := make([]FileResult, len(names))
	blocks := make([]*PositionBlock, len(names))
	r.forEachFile(len(names), func(i int) {
		files[i], blocks[i] = r.readFile(i, names[i])
	})

	n := 0
	for i := range blocks {
		if blocks[i] != nil { n += len(blocks[i].X) }
	}

	snap := &Snapshot{ Header: hd, Files: files, X: make([][3]float64, 0, n) }
	for i := range files {
		if files[i].Err != nil {
			r.fileLog(files[i].Index, files[i].FileName, files[i].Err).
				Warnf("Error reading positions from %s: %s",
				files[i].FileName, files[i].Err.Error())
			continue
		}
		snap.X = append(snap.X, blocks[i].X...)
		snap.NRead += uint64(files[i].Header.NPart)
	}

	r.log.Infof("N particles read from all files: %d", snap.NRead)
	return snap, nil
}

func (r *Reader) readFile(i int, fileName string) (FileResult, *PositionBlock) {
	res := FileResult{ Index: i, FileName: fileName }

	hd, block, err := r.ReadPositions(fileName)
	res.Header = hd
	if err != nil {
		res.Err = err
		return res, nil
	}

	if len(block.X) == 0 && hd.NPart > 0 {
		r.fileLog(i, fileName, nil).Warnf("%s declares %d particles but " +
			"its position block is empty", fileName, hd.NPart)
	}

	res.Width, res.N = block.Width, len(block.X)
	r.fileLog(i, fileName, nil).Debugf("%d particle positions read", res.N)
	return res, block
}

// SummarizeCounts reads the header of every file in the snapshot containing
// seed and returns the particle counts they declare. As with
// ReadAllPositions, unreadable files are recorded and skipped.
func (r *Reader) SummarizeCounts(seed string) ([]CountSummary, error) {
	hd, err := r.ReadHeader(seed)
	if err != nil { return nil, err }
	names, err := siblingNames(seed, hd)
	if err != nil { return nil, err }

	counts := make([]CountSummary, len(names))
	r.forEachFile(len(names), func(i int) {
		counts[i] = CountSummary{ Index: i, FileName: names[i] }
		fileHd, err := r.ReadHeader(names[i])
		if err != nil {
			counts[i].Err = err
			return
		}
		counts[i].NPart, counts[i].NPartTotal =
			fileHd.NPart, fileHd.NPartTotal
	})

	for i := range counts {
		if counts[i].Err != nil {
			r.fileLog(i, counts[i].FileName, counts[i].Err).
				Warnf("Error reading %s: %s", counts[i].FileName,
				counts[i].Err.Error())
		}
	}

	return counts, nil
}

// forEachFile calls f on every index in [0, n). Indices are spread over
// r.workers goroutines. f must only write to data owned by its index.
func (r *Reader) forEachFile(n int, f func(i int)) {
	if r.workers < 2 {
		for i := 0; i < n; i++ { f(i) }
		return
	}

	g := &errgroup.Group{ }
	g.SetLimit(r.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			f(i)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Reader) fileLog(i int, fileName string, err error) logrus.FieldLogger {
	fields := logrus.Fields{ "index": i, "file": fileName }
	if err != nil { fields["kind"] = Kind(err) }
	return r.log.WithFields(fields)
}
