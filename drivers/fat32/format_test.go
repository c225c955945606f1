package fat32_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkubpise/fatvol"
	"github.com/xkubpise/fatvol/drivers/fat32"
	fvtest "github.com/xkubpise/fatvol/testing"
)

func TestPreformatOnlyIsNotFormatted(t *testing.T) {
	fixture := fvtest.NewVolume(t, fat32.Options{})
	require.NoError(t, fixture.Volume.Preformat())

	sink := fatvol.NewDiagnosticLog(0)
	report := fixture.Volume.Validate(sink)
	assert.Equal(t, fatvol.StatusNotFormatted, report.Status)
	assert.Contains(t, sink.String(), "FSInfo sector has bad signatures")
	assert.Contains(t, sink.String(), "FAT #0 doesn't begin with the reserved entries")
	assert.Contains(t, sink.String(), "root directory's cluster is marked free in FAT #0")
	assert.NotContains(t, sink.String(), "unexpected OEM name")
}

func TestFormat(t *testing.T) {
	fixture := fvtest.NewFormattedVolume(t, fat32.Options{})

	report := fixture.Volume.Validate(nil)
	assert.Equal(t, fatvol.StatusFormatted, report.Status)
	assert.Nil(t, report.Problems)
	assert.NoError(t, report.Err())
	assert.EqualValues(t, 20*1024*1024, report.ImageSize)

	assert.Equal(t, fixture.ReadSectors(t, 0, 1), fixture.ReadSectors(t, 6, 1))
	assert.Equal(t, make([]byte, 512), fixture.ClusterContents(t, 2))

	names, err := fixture.Volume.CollectNames(2)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFormatWritesFSInfo(t *testing.T) {
	fixture := fvtest.NewFormattedVolume(t, fat32.Options{})

	info, err := fixture.Volume.ReadFSInfo()
	require.NoError(t, err)
	assert.True(t, info.HasValidSignatures())
	assert.EqualValues(t, 40285, info.FreeCount)
	assert.EqualValues(t, 2, info.NextFree)

	sector := fixture.ReadSectors(t, 1, 1)
	assert.Equal(t, []byte{0x52, 0x52, 0x61, 0x41}, sector[0:4])
	assert.Equal(t, []byte{0x72, 0x72, 0x41, 0x61}, sector[484:488])
	assert.Equal(t, []byte{0x5D, 0x9D, 0x00, 0x00}, sector[488:492])
	assert.Equal(t, []byte{0x02, 0x00, 0x00, 0x00}, sector[492:496])
	assert.Equal(t, []byte{0x00, 0x00, 0x55, 0xAA}, sector[508:512])
}

func TestFormatIsIdempotent(t *testing.T) {
	fixture := fvtest.NewFormattedVolume(t, fat32.Options{})
	fatBefore := fixture.FATRegion(t, 0)
	rootBefore := fixture.ClusterContents(t, 2)
	reserved := fixture.ReadSectors(t, 0, 32)

	_, err := fixture.Volume.MakeDirectory("gone", 2)
	require.NoError(t, err)
	require.NoError(t, fixture.Volume.CreateFile("gone.txt", 2))
	require.NoError(t, fixture.Volume.Format())

	assert.Equal(t, fatBefore, fixture.FATRegion(t, 0))
	assert.Equal(t, fatBefore, fixture.FATRegion(t, 1))
	assert.Equal(t, rootBefore, fixture.ClusterContents(t, 2))
	assert.Equal(t, reserved, fixture.ReadSectors(t, 0, 32))

	cluster, err := fixture.Volume.FAT().FindFreeCluster()
	require.NoError(t, err)
	assert.EqualValues(t, 3, cluster)
}

func TestSizeImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.img")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	require.NoError(t, fat32.SizeImage(file, 20*1024*1024))
	stat, err := file.Stat()
	require.NoError(t, err)
	assert.EqualValues(t, 20*1024*1024, stat.Size())

	require.NoError(t, fat32.SizeImage(file, 4096))
	stat, err = file.Stat()
	require.NoError(t, err)
	assert.EqualValues(t, 4096, stat.Size())
}

// writeSeekerOnly hides every method of the wrapped stream except Write and
// Seek.
type writeSeekerOnly struct {
	io.WriteSeeker
}

func TestSizeImageWithoutTruncate(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "volume-*.img")
	require.NoError(t, err)
	defer file.Close()

	image := writeSeekerOnly{file}
	require.NoError(t, fat32.SizeImage(image, 8192))
	stat, err := file.Stat()
	require.NoError(t, err)
	assert.EqualValues(t, 8192, stat.Size())

	err = fat32.SizeImage(image, 512)
	assert.ErrorIs(t, err, fatvol.ErrInvalidArgument)
}

func TestSizeImageExactSizeIsNoop(t *testing.T) {
	image, storage := fvtest.NewBlankImage(t, 4096)
	storage[100] = 0x77

	require.NoError(t, fat32.SizeImage(image, 4096))
	assert.Len(t, storage, 4096)
	assert.Equal(t, byte(0x77), storage[100])
}
