// Package fat32 implements a user-space engine for FAT32 volumes stored in a
// flat, fixed-size image. It writes and checks a closed boot sector profile,
// maintains the first copy of the FAT, and manipulates short-name directory
// entries. Every directory occupies exactly one cluster and every file is a
// zero-length placeholder.
package fat32

import (
	"fmt"

	"github.com/xkubpise/fatvol"
	"github.com/xkubpise/fatvol/disks"
	c "github.com/xkubpise/fatvol/drivers/common"
)

// RootCluster is the cluster holding the root directory.
const RootCluster = c.ClusterID(2)

// Fixed sector indexes within the reserved region.
const (
	BootSectorIndex       = c.BlockID(0)
	FSInfoSectorIndex     = c.BlockID(1)
	BackupBootSectorIndex = c.BlockID(6)
)

// Geometry holds the layout of a volume, derived once from its profile.
type Geometry struct {
	BytesPerSector    uint
	SectorsPerCluster uint
	ReservedSectors   uint
	NumFATs           uint
	FATEntrySize      uint
	TotalSectors      uint

	// FATSize is the size of one FAT copy, in sectors.
	FATSize uint
	// FirstDataSector is the sector where cluster 2 begins.
	FirstDataSector uint
	DataSectors     uint
	// ClusterCount bounds the valid cluster range, which is [2, ClusterCount).
	ClusterCount      uint
	BytesPerCluster   uint
	DirentsPerSector  uint
	DirentsPerCluster uint
}

// NewGeometry derives the volume layout from `profile`, and fails if the
// profile can't describe a consistent volume.
func NewGeometry(profile disks.VolumeProfile) (Geometry, error) {
	geo := Geometry{
		BytesPerSector:    profile.BytesPerSector,
		SectorsPerCluster: profile.SectorsPerCluster,
		ReservedSectors:   profile.ReservedSectors,
		NumFATs:           profile.NumFATs,
		FATEntrySize:      profile.FATEntrySize,
		TotalSectors:      profile.TotalSectors,
	}

	if geo.BytesPerSector < 512 || geo.BytesPerSector%DirentSize != 0 {
		return Geometry{}, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("bad sector size: %d", geo.BytesPerSector))
	}
	if geo.SectorsPerCluster == 0 || geo.SectorsPerCluster > 255 {
		return Geometry{}, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("bad sectors per cluster: %d", geo.SectorsPerCluster))
	}
	if geo.NumFATs == 0 || geo.NumFATs > 15 {
		return Geometry{}, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("bad number of FATs: %d", geo.NumFATs))
	}
	if geo.FATEntrySize != 4 {
		return Geometry{}, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("FAT32 entries are 4 bytes, not %d", geo.FATEntrySize))
	}
	if geo.ReservedSectors <= uint(BackupBootSectorIndex) || geo.ReservedSectors > 0xFFFF {
		return Geometry{}, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"reserved region of %d sectors can't hold the backup boot sector at %d",
				geo.ReservedSectors,
				BackupBootSectorIndex))
	}

	geo.FATSize = (geo.TotalSectors*geo.FATEntrySize + geo.BytesPerSector - 1) / geo.BytesPerSector
	geo.FirstDataSector = geo.ReservedSectors + geo.NumFATs*geo.FATSize
	if geo.FirstDataSector >= geo.TotalSectors {
		return Geometry{}, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"no room for data: metadata takes %d of %d sectors",
				geo.FirstDataSector,
				geo.TotalSectors))
	}

	geo.DataSectors = geo.TotalSectors - geo.FirstDataSector
	geo.ClusterCount = geo.DataSectors / geo.SectorsPerCluster
	geo.BytesPerCluster = geo.BytesPerSector * geo.SectorsPerCluster
	geo.DirentsPerSector = geo.BytesPerSector / DirentSize
	geo.DirentsPerCluster = geo.DirentsPerSector * geo.SectorsPerCluster

	if geo.ClusterCount <= uint(RootCluster) {
		return Geometry{}, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("volume has no room for the root cluster (%d clusters)", geo.ClusterCount))
	}
	return geo, nil
}

// MustNewGeometry is [NewGeometry] for profiles known to be valid.
func MustNewGeometry(profile disks.VolumeProfile) Geometry {
	geo, err := NewGeometry(profile)
	if err != nil {
		panic(err)
	}
	return geo
}

// TotalSize is the exact size of the backing image, in bytes.
func (geo Geometry) TotalSize() int64 {
	return int64(geo.BytesPerSector) * int64(geo.TotalSectors)
}

// RootDirSector is the first sector of the root directory.
func (geo Geometry) RootDirSector() c.BlockID {
	return geo.ClusterToSector(RootCluster)
}

// FATStartSector gives the first sector of FAT copy `index`.
func (geo Geometry) FATStartSector(index uint) c.BlockID {
	return c.BlockID(geo.ReservedSectors + index*geo.FATSize)
}

// ClusterToSector returns the first sector of `cluster`. It doesn't check
// bounds.
func (geo Geometry) ClusterToSector(cluster c.ClusterID) c.BlockID {
	return c.BlockID(geo.FirstDataSector + uint(cluster-RootCluster)*geo.SectorsPerCluster)
}

// IsValidCluster returns true if `cluster` is in [2, ClusterCount).
func (geo Geometry) IsValidCluster(cluster c.ClusterID) bool {
	return cluster >= RootCluster && uint(cluster) < geo.ClusterCount
}

// CheckCluster is [Geometry.IsValidCluster] returning an error.
func (geo Geometry) CheckCluster(cluster c.ClusterID) error {
	if !geo.IsValidCluster(cluster) {
		return fatvol.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"invalid cluster number %d: not in [%d, %d)",
				cluster,
				RootCluster,
				geo.ClusterCount))
	}
	return nil
}

// FATEntryLocation gives the sector (relative to the start of a FAT copy) and
// the byte offset within that sector of the entry for `cluster`.
func (geo Geometry) FATEntryLocation(cluster c.ClusterID) (c.LogicalBlock, uint) {
	byteOffset := uint(cluster) * geo.FATEntrySize
	return c.LogicalBlock(byteOffset / geo.BytesPerSector), byteOffset % geo.BytesPerSector
}
