package compression

import (
	"bufio"
	"errors"
	"io"
)

// Run is a maximal sequence of one repeated byte value.
type Run struct {
	Value byte
	// Length is the number of occurrences, not the number of repeats. A Length
	// of 0 means no run was read.
	Length int
}

// NoRun is what [RunScanner.Next] returns with io.EOF or another error.
var NoRun = Run{}

// RunScanner splits a byte stream into runs.
type RunScanner struct {
	source *bufio.Reader
}

func NewRunScanner(source io.Reader) *RunScanner {
	return &RunScanner{source: bufio.NewReader(source)}
}

// Next returns the next run in the stream. At the end of input it returns
// NoRun and io.EOF.
func (scanner *RunScanner) Next() (Run, error) {
	value, err := scanner.source.ReadByte()
	if err != nil {
		return NoRun, err
	}

	run := Run{Value: value, Length: 1}
	for {
		next, err := scanner.source.ReadByte()
		if errors.Is(err, io.EOF) {
			return run, nil
		} else if err != nil {
			return NoRun, err
		}

		if next != value {
			// Can't fail right after a successful ReadByte.
			_ = scanner.source.UnreadByte()
			return run, nil
		}
		run.Length++
	}
}
