package snapio

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Every error returned by this package wraps one of these, unless the
// operating system failed in some other way. Test with errors.Is.
var (
	// ErrFormat means the bytes are not laid out like a Gadget-2 file: the
	// header block has the wrong length, the position block has an
	// indeterminate precision, or a footer doesn't match its header.
	ErrFormat = errors.New("invalid Gadget-2 format")
	// ErrTruncated means the file ended before the format said it would.
	ErrTruncated = errors.New("unexpected end of Gadget-2 file")
	// ErrNotFound means a file of the snapshot does not exist.
	ErrNotFound = errors.New("Gadget-2 file not found")
)

// Kind returns a short name for the kind of error err is: "format",
// "truncated", "not-found" or "io". It returns "" for nil.
func Kind(err error) string {
	switch {
	case err == nil: return ""
	case errors.Is(err, ErrFormat): return "format"
	case errors.Is(err, ErrTruncated): return "truncated"
	case errors.Is(err, ErrNotFound): return "not-found"
	}
	return "io"
}

// readError converts an error from binary.Read or io.ReadFull into an
// ErrTruncated if the input ran out.
func readError(err error, name, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrTruncated, "%s ended while reading the %s",
			name, what)
	}
	return errors.Wrapf(err, "could not read the %s of %s", what, name)
}

// openSnapshotFile opens a file for reading. Missing files give ErrNotFound
// and directories give ErrFormat.
func openSnapshotFile(fileName string) (*os.File, error) {
	info, err := os.Stat(fileName)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "%s", fileName)
	} else if err != nil {
		return nil, errors.Wrapf(err, "the file %s cannot be accessed",
			fileName)
	} else if info.IsDir() {
		return nil, errors.Wrapf(ErrFormat,
			"%s is a directory, not a Gadget-2 file", fileName)
	}

	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "the file %s cannot be opened",
			fileName)
	}
	return f, nil
}
