package fat32_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkubpise/fatvol"
	"github.com/xkubpise/fatvol/disks"
	c "github.com/xkubpise/fatvol/drivers/common"
	"github.com/xkubpise/fatvol/drivers/fat32"
)

func TestReferenceGeometry(t *testing.T) {
	geo, err := fat32.NewGeometry(disks.ReferenceProfile())
	require.NoError(t, err)

	assert.EqualValues(t, 320, geo.FATSize)
	assert.EqualValues(t, 672, geo.FirstDataSector)
	assert.EqualValues(t, 40288, geo.DataSectors)
	assert.EqualValues(t, 40288, geo.ClusterCount)
	assert.EqualValues(t, 512, geo.BytesPerCluster)
	assert.EqualValues(t, 16, geo.DirentsPerSector)
	assert.EqualValues(t, 16, geo.DirentsPerCluster)
	assert.EqualValues(t, 672, geo.RootDirSector())
	assert.EqualValues(t, 20*1024*1024, geo.TotalSize())
	assert.EqualValues(t, 32, geo.FATStartSector(0))
	assert.EqualValues(t, 352, geo.FATStartSector(1))
}

func TestWideGeometry(t *testing.T) {
	profile, err := disks.GetVolumeProfile("xkubpise-wide")
	require.NoError(t, err)
	geo, err := fat32.NewGeometry(profile)
	require.NoError(t, err)

	assert.EqualValues(t, 64, geo.FATSize)
	assert.EqualValues(t, 160, geo.FirstDataSector)
	assert.EqualValues(t, 1004, geo.ClusterCount)
	assert.EqualValues(t, 4096, geo.BytesPerCluster)
	assert.EqualValues(t, 128, geo.DirentsPerCluster)
}

func TestEveryClusterFitsInVolume(t *testing.T) {
	for _, slug := range disks.ProfileSlugs() {
		profile, err := disks.GetVolumeProfile(slug)
		require.NoError(t, err)
		geo := fat32.MustNewGeometry(profile)

		last := c.ClusterID(geo.ClusterCount - 1)
		end := uint(geo.ClusterToSector(last)) + geo.SectorsPerCluster
		assert.LessOrEqual(t, end, geo.TotalSectors, slug)

		fatEntries := geo.FATSize * geo.BytesPerSector / geo.FATEntrySize
		assert.GreaterOrEqual(t, fatEntries, geo.ClusterCount, slug)
	}
}

func TestClusterBounds(t *testing.T) {
	geo := fat32.MustNewGeometry(disks.ReferenceProfile())

	assert.False(t, geo.IsValidCluster(0))
	assert.False(t, geo.IsValidCluster(1))
	assert.True(t, geo.IsValidCluster(2))
	assert.True(t, geo.IsValidCluster(40287))
	assert.False(t, geo.IsValidCluster(40288))

	assert.ErrorIs(t, geo.CheckCluster(40288), fatvol.ErrArgumentOutOfRange)
	assert.NoError(t, geo.CheckCluster(fat32.RootCluster))
}

func TestFATEntryLocation(t *testing.T) {
	geo := fat32.MustNewGeometry(disks.ReferenceProfile())

	sector, offset := geo.FATEntryLocation(2)
	assert.EqualValues(t, 0, sector)
	assert.EqualValues(t, 8, offset)

	sector, offset = geo.FATEntryLocation(200)
	assert.EqualValues(t, 1, sector)
	assert.EqualValues(t, 288, offset)
}

func TestNewGeometryRejectsBadProfiles(t *testing.T) {
	base := disks.ReferenceProfile()

	tests := []struct {
		Name   string
		Modify func(p *disks.VolumeProfile)
	}{
		{"small sectors", func(p *disks.VolumeProfile) { p.BytesPerSector = 100 }},
		{"no clusters", func(p *disks.VolumeProfile) { p.SectorsPerCluster = 0 }},
		{"no FATs", func(p *disks.VolumeProfile) { p.NumFATs = 0 }},
		{"FAT16 entries", func(p *disks.VolumeProfile) { p.FATEntrySize = 2 }},
		{"tiny reserved region", func(p *disks.VolumeProfile) { p.ReservedSectors = 4 }},
		{"no data region", func(p *disks.VolumeProfile) { p.TotalSectors = 34 }},
	}

	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			profile := base
			test.Modify(&profile)
			_, err := fat32.NewGeometry(profile)
			assert.ErrorIs(t, err, fatvol.ErrInvalidArgument)
		})
	}
}
