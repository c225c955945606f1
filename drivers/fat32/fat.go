package fat32

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xkubpise/fatvol"
	c "github.com/xkubpise/fatvol/drivers/common"
	"github.com/xkubpise/fatvol/drivers/common/blockcache"
)

// FAT entry values. Only the low 28 bits of an entry are significant.
const (
	EntryMask        = 0x0FFFFFFF
	EntryFree        = 0x00000000
	EntryEndOfChain  = 0x0FFFFFFF
	EntryMediaMarker = 0x0FFFFFF8
)

// FATManager reads and updates FAT entries. Only copy 0 is consulted or
// modified after formatting since mirroring is disabled.
type FATManager struct {
	geo     Geometry
	sectors *c.BlockStream
	log     logrus.FieldLogger
}

func NewFATManager(
	geo Geometry, sectors *c.BlockStream, logger logrus.FieldLogger,
) *FATManager {
	return &FATManager{geo: geo, sectors: sectors, log: logger}
}

// openCopy returns a fresh cache over FAT copy `index`. Caches live for a
// single operation so they never go stale.
func (fat *FATManager) openCopy(index uint) *blockcache.BlockCache {
	return blockcache.WrapBlockRange(
		fat.sectors, fat.geo.FATStartSector(index), fat.geo.FATSize)
}

func readEntry(cache *blockcache.BlockCache, geo Geometry, cluster c.ClusterID) (uint32, error) {
	sector, offset := geo.FATEntryLocation(cluster)
	data, err := cache.Block(sector)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data[offset:offset+4]) & EntryMask, nil
}

func writeEntry(
	cache *blockcache.BlockCache, geo Geometry, cluster c.ClusterID, value uint32,
) error {
	sector, offset := geo.FATEntryLocation(cluster)
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], value)
	return cache.WriteAt(sector, offset, raw[:])
}

// ReadEntry returns the masked FAT entry for `cluster`. Entries 0 and 1 may be
// read too.
func (fat *FATManager) ReadEntry(cluster c.ClusterID) (uint32, error) {
	if uint(cluster) >= fat.geo.ClusterCount {
		return 0, fatvol.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"no FAT entry for cluster %d: not in [0, %d)",
				cluster,
				fat.geo.ClusterCount))
	}
	return readEntry(fat.openCopy(0), fat.geo, cluster)
}

// FindFreeCluster scans clusters from the root upward and returns the first
// one whose entry is free. Each FAT sector is read at most once per scan. If
// no cluster is free it returns [fatvol.ErrNoSpaceOnDevice].
func (fat *FATManager) FindFreeCluster() (c.ClusterID, error) {
	cache := fat.openCopy(0)
	for cluster := RootCluster; uint(cluster) < fat.geo.ClusterCount; cluster++ {
		value, err := readEntry(cache, fat.geo, cluster)
		if err != nil {
			return 0, fatvol.CastToDriverError(err).WithMessage(
				fmt.Sprintf("failed to read FAT entry for cluster %d", cluster))
		}
		if value == EntryFree {
			return cluster, nil
		}
	}
	return 0, fatvol.ErrNoSpaceOnDevice.WithMessage(
		fmt.Sprintf("all %d clusters are allocated", fat.geo.ClusterCount-uint(RootCluster)))
}

// MarkEndOfChain sets the entry for `cluster` to end-of-chain, allocating it.
func (fat *FATManager) MarkEndOfChain(cluster c.ClusterID) error {
	err := fat.geo.CheckCluster(cluster)
	if err != nil {
		return err
	}

	cache := fat.openCopy(0)
	err = writeEntry(cache, fat.geo, cluster, EntryEndOfChain)
	if err != nil {
		return err
	}

	fat.log.WithField("cluster", cluster).Debug("marked cluster end-of-chain")
	return cache.Flush()
}

// forEachCopy runs `update` against a fresh cache over every FAT copy and
// flushes it.
func (fat *FATManager) forEachCopy(
	action string, update func(cache *blockcache.BlockCache) error,
) error {
	for index := uint(0); index < fat.geo.NumFATs; index++ {
		cache := fat.openCopy(index)
		err := update(cache)
		if err == nil {
			err = cache.Flush()
		}
		if err != nil {
			return fatvol.CastToDriverError(err).WithMessage(
				fmt.Sprintf("failed to write %s of FAT #%d", action, index))
		}
	}
	return nil
}

// InitializeReservedEntries writes the media marker to entry 0 and an
// end-of-chain marker to entry 1 of every FAT copy.
func (fat *FATManager) InitializeReservedEntries() error {
	return fat.forEachCopy("reserved entries", func(cache *blockcache.BlockCache) error {
		err := writeEntry(cache, fat.geo, 0, EntryMediaMarker)
		if err != nil {
			return err
		}
		return writeEntry(cache, fat.geo, 1, EntryEndOfChain)
	})
}

// ReservedEntries returns the masked values of entries 0 and 1 of FAT copy 0.
func (fat *FATManager) ReservedEntries() (uint32, uint32, error) {
	var raw [8]byte
	err := fat.openCopy(0).Read(0, raw[:])
	if err != nil {
		return 0, 0, err
	}
	media := binary.LittleEndian.Uint32(raw[0:4]) & EntryMask
	endMarker := binary.LittleEndian.Uint32(raw[4:8]) & EntryMask
	return media, endMarker, nil
}

// WriteInitialTables resets every FAT copy for a freshly formatted volume: all
// entries free except the reserved entries and the root directory's cluster,
// which is marked end-of-chain.
func (fat *FATManager) WriteInitialTables() error {
	table := make([]byte, fat.geo.FATSize*fat.geo.BytesPerSector)
	for index := uint(0); index < fat.geo.NumFATs; index++ {
		start := fat.geo.FATStartSector(index)
		err := fat.sectors.Write(start, table)
		if err != nil {
			return fatvol.CastToDriverError(err).WithMessage(
				fmt.Sprintf("failed to clear FAT #%d at sector %d", index, start))
		}
		fat.log.WithFields(logrus.Fields{
			"fat":    index,
			"sector": start,
		}).Debug("cleared FAT")
	}

	err := fat.InitializeReservedEntries()
	if err != nil {
		return err
	}
	return fat.forEachCopy("root directory entry", func(cache *blockcache.BlockCache) error {
		return writeEntry(cache, fat.geo, RootCluster, EntryEndOfChain)
	})
}

// Usage summarizes allocation of the data clusters.
type Usage struct {
	TotalClusters   uint
	UsedClusters    uint
	FreeClusters    uint
	BytesPerCluster uint
	// FirstFree is the lowest free cluster, or 0 if the volume is full.
	FirstFree       c.ClusterID
}

// Usage scans FAT copy 0 into an allocation map and counts the clusters in
// [2, ClusterCount) that are in use.
func (fat *FATManager) Usage() (Usage, error) {
	allocator, err := fat.AllocationMap()
	if err != nil {
		return Usage{}, err
	}

	// Entries 0 and 1 are counted as allocated but aren't clusters.
	usage := Usage{
		TotalClusters:   fat.geo.ClusterCount - uint(RootCluster),
		UsedClusters:    allocator.AllocatedCount() - 2,
		FreeClusters:    allocator.FreeCount(),
		BytesPerCluster: fat.geo.BytesPerCluster,
	}
	first, err := allocator.FirstFree(c.UnitID(RootCluster))
	if err == nil {
		usage.FirstFree = c.ClusterID(first)
	}
	return usage, nil
}

// AllocationMap builds an allocation bitmap over all FAT entries. Entries 0
// and 1 never describe data and are always marked allocated.
func (fat *FATManager) AllocationMap() (c.Allocator, error) {
	allocator := c.NewAllocator(fat.geo.ClusterCount)
	_ = allocator.MarkAllocated(0)
	_ = allocator.MarkAllocated(1)

	cache := fat.openCopy(0)
	err := cache.LoadAll()
	if err != nil {
		return allocator, fatvol.CastToDriverError(err).WithMessage("failed to load FAT #0")
	}
	for cluster := RootCluster; uint(cluster) < fat.geo.ClusterCount; cluster++ {
		value, err := readEntry(cache, fat.geo, cluster)
		if err != nil {
			return allocator, err
		}
		if value != EntryFree {
			// Can't fail, cluster is in range.
			_ = allocator.MarkAllocated(c.UnitID(cluster))
		}
	}
	return allocator, nil
}
