package compression

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// maxRepeat is the largest number of extra occurrences one triple can carry.
const maxRepeat = 255

// EncodeRLE8 run-length encodes `input` into `output` until `input` is
// exhausted. It returns the number of encoded bytes written.
func EncodeRLE8(input io.Reader, output io.Writer) (int64, error) {
	scanner := NewRunScanner(input)
	sink := bufio.NewWriter(output)
	written := int64(0)

	emit := func(data ...byte) error {
		n, err := sink.Write(data)
		written += int64(n)
		return err
	}

	for {
		run, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return written, fmt.Errorf("failed to read input: %w", err)
		}

		for run.Length >= 2 {
			extra := run.Length - 2
			if extra > maxRepeat {
				extra = maxRepeat
			}
			if err = emit(run.Value, run.Value, byte(extra)); err != nil {
				return written, err
			}
			run.Length -= extra + 2
		}

		if run.Length == 1 {
			if err = emit(run.Value); err != nil {
				return written, err
			}
		}
	}

	return written, sink.Flush()
}

// DecodeRLE8 reverses [EncodeRLE8]. It returns the number of decoded bytes
// written to `output`.
func DecodeRLE8(input io.Reader, output io.Writer) (int64, error) {
	source := bufio.NewReader(input)
	sink := bufio.NewWriter(output)
	written := int64(0)

	// -1 means the next byte can't complete a pair.
	previous := -1

	for {
		current, err := source.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return written, fmt.Errorf("failed to read input: %w", err)
		}

		if int(current) != previous {
			if err = sink.WriteByte(current); err != nil {
				return written, err
			}
			written++
			previous = int(current)
			continue
		}

		extra, err := source.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return written, fmt.Errorf(
				"missing repeat count after two %#02x bytes: %w", current, err)
		}

		// The first byte of the pair was already written.
		for i := 0; i <= int(extra); i++ {
			if err = sink.WriteByte(current); err != nil {
				return written, err
			}
			written++
		}
		previous = -1
	}

	return written, sink.Flush()
}
