package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// WriteSnapshot compresses the whole of `image`, from offset 0, into `output`.
// `label` is recorded in the gzip header and may be empty. It returns the
// uncompressed size of the image.
func WriteSnapshot(image io.ReadSeeker, output io.Writer, label string) (int64, error) {
	_, err := image.Seek(0, io.SeekStart)
	if err != nil {
		return 0, fmt.Errorf("failed to rewind image: %w", err)
	}

	gzWriter, err := gzip.NewWriterLevel(output, gzip.BestCompression)
	if err != nil {
		return 0, err
	}
	gzWriter.Comment = label

	counter := &countingReader{source: image}
	_, err = EncodeRLE8(counter, gzWriter)
	if err != nil {
		gzWriter.Close()
		return counter.total, err
	}
	return counter.total, gzWriter.Close()
}

// ReadSnapshot decompresses a snapshot made by [WriteSnapshot] into `output`.
// It returns the decompressed size and the label stored with the snapshot.
func ReadSnapshot(input io.Reader, output io.Writer) (int64, string, error) {
	gzReader, err := gzip.NewReader(input)
	if err != nil {
		return 0, "", fmt.Errorf("not a volume snapshot: %w", err)
	}
	defer gzReader.Close()

	n, err := DecodeRLE8(gzReader, output)
	return n, gzReader.Comment, err
}

// ReadSnapshotToBytes is [ReadSnapshot] with the image returned in a new slice.
func ReadSnapshotToBytes(input io.Reader) ([]byte, error) {
	var buffer bytes.Buffer
	_, _, err := ReadSnapshot(input, &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

type countingReader struct {
	source io.Reader
	total  int64
}

func (reader *countingReader) Read(p []byte) (int, error) {
	n, err := reader.source.Read(p)
	reader.total += int64(n)
	return n, err
}
