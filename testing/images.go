package testing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
	"github.com/xkubpise/fatvol/disks"
	"github.com/xkubpise/fatvol/utilities/compression"
)

// NewBlankImage returns a zero-filled in-memory image of `size` bytes and the
// slice backing it. The stream can't grow; writing past the end is an error.
func NewBlankImage(t *testing.T, size int64) (*bytesextra.ReadWriteSeeker, []byte) {
	require.GreaterOrEqual(t, size, int64(0), "image size can't be negative")
	storage := make([]byte, size)
	return bytesextra.NewReadWriteSeeker(storage), storage
}

// NewProfileImage returns a zero-filled image exactly as large as `profile`
// requires.
func NewProfileImage(
	t *testing.T, profile disks.VolumeProfile,
) (*bytesextra.ReadWriteSeeker, []byte) {
	return NewBlankImage(t, profile.TotalSizeBytes())
}

// LoadSnapshot decompresses a volume snapshot and returns a stream over the
// image. Writes to the stream do not affect `snapshot`.
func LoadSnapshot(
	t *testing.T, snapshot []byte, expectedSize int64,
) *bytesextra.ReadWriteSeeker {
	require.NotEmpty(t, snapshot, "snapshot is empty")

	imageBytes, err := compression.ReadSnapshotToBytes(bytes.NewReader(snapshot))
	require.NoError(t, err)
	require.EqualValues(t, expectedSize, len(imageBytes), "restored image is wrong size")
	return bytesextra.NewReadWriteSeeker(imageBytes)
}
