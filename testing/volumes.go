package testing

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xkubpise/fatvol/disks"
	c "github.com/xkubpise/fatvol/drivers/common"
	"github.com/xkubpise/fatvol/drivers/fat32"
)

// VolumeFixture bundles a volume with raw sector access to its image, for
// checking or corrupting on-disk state behind the engine's back.
type VolumeFixture struct {
	Volume  *fat32.Volume
	Sectors *c.BlockStream
	Storage []byte
}

// NewVolume creates an unformatted, zero-filled volume sized for the profile
// in `options` (the reference profile if none is set).
func NewVolume(t *testing.T, options fat32.Options) VolumeFixture {
	if options.Profile.Slug == "" {
		options.Profile = disks.ReferenceProfile()
	}
	geo, err := fat32.NewGeometry(options.Profile)
	require.NoError(t, err)

	image, storage := NewBlankImage(t, geo.TotalSize())
	volume, err := fat32.NewVolume(image, options)
	require.NoError(t, err)

	return VolumeFixture{
		Volume:  volume,
		Sectors: c.NewBlockStream(image, geo.TotalSectors, geo.BytesPerSector, 0),
		Storage: storage,
	}
}

// NewFormattedVolume is [NewVolume] followed by preformatting and formatting.
func NewFormattedVolume(t *testing.T, options fat32.Options) VolumeFixture {
	fixture := NewVolume(t, options)
	require.NoError(t, fixture.Volume.Preformat(), "preformat failed")
	require.NoError(t, fixture.Volume.Format(), "format failed")
	return fixture
}

// ReadSectors returns a copy of `count` sectors starting at `first`.
func (fixture VolumeFixture) ReadSectors(t *testing.T, first c.BlockID, count uint) []byte {
	data, err := fixture.Sectors.Read(first, count)
	require.NoError(t, err)
	return data
}

// PatchSector overwrites part of one sector, starting at byte `offset`.
func (fixture VolumeFixture) PatchSector(
	t *testing.T, sector c.BlockID, offset uint, data []byte,
) {
	contents := fixture.ReadSectors(t, sector, 1)
	require.LessOrEqual(t, int(offset)+len(data), len(contents), "patch runs past sector")
	copy(contents[offset:], data)
	require.NoError(t, fixture.Sectors.Write(sector, contents))
}

// FATRegion returns a copy of FAT copy `index`.
func (fixture VolumeFixture) FATRegion(t *testing.T, index uint) []byte {
	geo := fixture.Volume.Geometry()
	return fixture.ReadSectors(t, geo.FATStartSector(index), geo.FATSize)
}

// ClusterContents returns a copy of the whole of `cluster`.
func (fixture VolumeFixture) ClusterContents(t *testing.T, cluster c.ClusterID) []byte {
	geo := fixture.Volume.Geometry()
	return fixture.ReadSectors(t, geo.ClusterToSector(cluster), geo.SectorsPerCluster)
}
