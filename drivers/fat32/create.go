package fat32

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xkubpise/fatvol"
	c "github.com/xkubpise/fatvol/drivers/common"
)

// CreateObject writes a new directory entry named `name` into the directory at
// `parent`.
//
// Folders take ownership of `explicitCluster`: its FAT entry is marked
// end-of-chain and its first sector receives the "." and ".." entries. Files
// ignore `explicitCluster` and always point at cluster 0.
//
// Every check happens before the first write. The writes themselves (the
// entry, the FAT entry, the new folder's cluster) are separate and not atomic.
func (v *Volume) CreateObject(
	name string, explicitCluster c.ClusterID, parent c.ClusterID, kind fatvol.ObjectKind,
) error {
	upper, err := ValidateShortName(name, kind)
	if err != nil {
		return err
	}
	encoded, err := EncodeShortName(upper)
	if err != nil {
		return err
	}

	if kind == fatvol.KindFolder {
		err = v.geo.CheckCluster(explicitCluster)
		if err != nil {
			return err
		}
	} else {
		explicitCluster = 0
	}

	data, err := v.readDirectory(parent)
	if err != nil {
		return err
	}

	var duplicate bool
	v.scanEntries(data, func(_ uint, dirent *RawDirent) bool {
		duplicate = dirent.Name == encoded
		return !duplicate
	})
	if duplicate {
		return fatvol.ErrExists.WithMessage(
			fmt.Sprintf("%q already exists in cluster %d", upper, parent))
	}

	slot, ok := v.firstFreeSlot(data)
	if !ok {
		return fatvol.ErrNoSpaceOnDevice.WithMessage(
			fmt.Sprintf("no free entries in directory at cluster %d", parent))
	}

	if kind == fatvol.KindFolder {
		value, err := v.fat.ReadEntry(explicitCluster)
		if err != nil {
			return err
		}
		if value != EntryFree {
			return fatvol.ErrBusy.WithMessage(
				fmt.Sprintf(
					"cluster %d is already allocated (FAT entry %08X)",
					explicitCluster,
					value))
		}
	}

	log := v.log.WithFields(logrus.Fields{
		"name":    upper,
		"kind":    kind.String(),
		"cluster": explicitCluster,
		"parent":  parent,
	})

	// Only the sector holding the new entry is written back.
	sectorIndex := slot / v.geo.DirentsPerSector
	sectorStart := sectorIndex * v.geo.BytesPerSector
	sector := make([]byte, v.geo.BytesPerSector)
	copy(sector, data[sectorStart:sectorStart+v.geo.BytesPerSector])

	dirent := NewRawDirent(encoded, kind, explicitCluster)
	err = dirent.MarshalInto(sector[(slot%v.geo.DirentsPerSector)*DirentSize:])
	if err != nil {
		return err
	}
	err = v.clusters.WriteBlockInCluster(parent, sectorIndex, sector)
	if err != nil {
		return fatvol.CastToDriverError(err).WithMessage(
			fmt.Sprintf("failed to write entry for %q", upper))
	}
	log.WithField("slot", slot).Debug("wrote directory entry")

	if kind != fatvol.KindFolder {
		return nil
	}

	err = v.fat.MarkEndOfChain(explicitCluster)
	if err != nil {
		return fatvol.CastToDriverError(err).WithMessage(
			fmt.Sprintf("failed to allocate cluster %d for %q", explicitCluster, upper))
	}
	err = v.initializeFolderCluster(explicitCluster, parent)
	if err != nil {
		return err
	}
	log.Debug("initialized folder")
	return nil
}

// initializeFolderCluster zeroes a new folder's cluster and writes its "." and
// ".." entries.
func (v *Volume) initializeFolderCluster(cluster, parent c.ClusterID) error {
	dots, err := newDotEntriesSector(v.geo.BytesPerSector, cluster, parent)
	if err != nil {
		return err
	}

	contents := make([]byte, v.geo.BytesPerCluster)
	copy(contents, dots)
	err = v.clusters.Write(cluster, contents)
	if err != nil {
		return fatvol.CastToDriverError(err).WithMessage(
			fmt.Sprintf("failed to write dot entries to cluster %d", cluster))
	}
	return nil
}

// MakeDirectory allocates the first free cluster and creates a folder named
// `name` in it under `parent`. It returns the new folder's cluster. If the
// volume is full, nothing is written.
func (v *Volume) MakeDirectory(name string, parent c.ClusterID) (c.ClusterID, error) {
	_, err := ValidateShortName(name, fatvol.KindFolder)
	if err != nil {
		return 0, err
	}

	cluster, err := v.fat.FindFreeCluster()
	if err != nil {
		return 0, err
	}

	err = v.CreateObject(name, cluster, parent, fatvol.KindFolder)
	if err != nil {
		return 0, err
	}
	return cluster, nil
}

// CreateFile creates an empty file named `name` under `parent`.
func (v *Volume) CreateFile(name string, parent c.ClusterID) error {
	return v.CreateObject(name, 0, parent, fatvol.KindFile)
}
