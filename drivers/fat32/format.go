package fat32

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/xkubpise/fatvol"
	c "github.com/xkubpise/fatvol/drivers/common"
)

// SizeImage makes `image` exactly `size` bytes long. Images that can be
// truncated are, so the result stays sparse on disk; otherwise a single zero
// byte is written at the last offset. Shrinking needs truncation.
func SizeImage(image io.WriteSeeker, size int64) error {
	current, err := c.StreamSize(image)
	if err != nil {
		return err
	}
	if current == size {
		return nil
	}

	if truncator, ok := image.(c.Truncator); ok {
		err = truncator.Truncate(size)
		if err != nil {
			return fatvol.ErrIOFailed.Wrap(err)
		}
		return nil
	}

	if current > size {
		return fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("can't shrink image from %d to %d bytes", current, size))
	}

	_, err = image.Seek(size-1, io.SeekStart)
	if err == nil {
		_, err = image.Write([]byte{0})
	}
	if err != nil {
		return fatvol.ErrIOFailed.Wrap(err)
	}
	return nil
}

// Preformat writes the boot sector to sector 0 and to the backup boot sector.
// Nothing else is touched.
func (v *Volume) Preformat() error {
	sector := make([]byte, v.geo.BytesPerSector)
	bootSector := NewBootSector(v.profile, v.geo)
	err := bootSector.MarshalInto(sector)
	if err != nil {
		return err
	}

	for _, index := range []c.BlockID{BootSectorIndex, BackupBootSectorIndex} {
		err = v.sectors.Write(index, sector)
		if err != nil {
			return fatvol.CastToDriverError(err).WithMessage(
				fmt.Sprintf("failed to write boot sector to sector %d", index))
		}
		v.log.WithField("sector", index).Debug("wrote boot sector")
	}
	return nil
}

// Format writes fresh FAT copies, an empty root directory and the FSInfo
// sector. The boot sector must already be in place, see [Volume.Preformat].
// Formatting twice gives identical results.
func (v *Volume) Format() error {
	err := v.fat.WriteInitialTables()
	if err != nil {
		return err
	}

	err = v.clusters.Write(RootCluster, make([]byte, v.geo.BytesPerCluster))
	if err != nil {
		return fatvol.CastToDriverError(err).WithMessage("failed to clear root directory")
	}

	// Everything but the root directory's cluster is free.
	freeCount := uint32(v.geo.ClusterCount - uint(RootCluster) - 1)
	info := NewFSInfo(freeCount, RootCluster)
	sector := make([]byte, v.geo.BytesPerSector)
	err = info.MarshalInto(sector)
	if err != nil {
		return err
	}
	err = v.sectors.Write(FSInfoSectorIndex, sector)
	if err != nil {
		return fatvol.CastToDriverError(err).WithMessage("failed to write FSInfo sector")
	}

	v.log.WithFields(logrus.Fields{
		"clusters":   v.geo.ClusterCount,
		"free_count": freeCount,
	}).Debug("formatted volume")
	return nil
}
