// Bitmap allocation map

package common

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/xkubpise/fatvol"
)

type UnitID uint32

// Allocator tracks which units (clusters, here) are in use. It's a snapshot;
// changing it doesn't touch the disk.
type Allocator struct {
	AllocationBitmap bitmap.Bitmap
	TotalUnits       uint
	allocatedUnits   uint
}

// NewAllocator creates a new allocation bitmap with all bits cleared.
func NewAllocator(totalUnits uint) Allocator {
	return Allocator{
		AllocationBitmap: bitmap.New(int(totalUnits)),
		TotalUnits:       totalUnits,
	}
}

func (alloc *Allocator) checkUnit(unit UnitID) error {
	if uint(unit) >= alloc.TotalUnits {
		return fatvol.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"invalid unit id: %d not in range [0, %d)",
				unit,
				alloc.TotalUnits))
	}
	return nil
}

// MarkAllocated flags `unit` as in use. Marking a unit twice is harmless.
func (alloc *Allocator) MarkAllocated(unit UnitID) error {
	err := alloc.checkUnit(unit)
	if err != nil {
		return err
	}
	if !alloc.AllocationBitmap.Get(int(unit)) {
		alloc.AllocationBitmap.Set(int(unit), true)
		alloc.allocatedUnits++
	}
	return nil
}

// IsAllocated returns true if `unit` is in use. Units out of range are reported
// as in use, since they can never be handed out.
func (alloc *Allocator) IsAllocated(unit UnitID) bool {
	if alloc.checkUnit(unit) != nil {
		return true
	}
	return alloc.AllocationBitmap.Get(int(unit))
}

// AllocatedCount returns the number of units in use.
func (alloc *Allocator) AllocatedCount() uint {
	return alloc.allocatedUnits
}

// FreeCount returns the number of units not in use.
func (alloc *Allocator) FreeCount() uint {
	return alloc.TotalUnits - alloc.allocatedUnits
}

// FirstFree returns the first unit at or after `start` that isn't in use. If
// there is none, it returns [fatvol.ErrNoSpaceOnDevice].
func (alloc *Allocator) FirstFree(start UnitID) (UnitID, error) {
	for i := uint(start); i < alloc.TotalUnits; i++ {
		if !alloc.IsAllocated(UnitID(i)) {
			return UnitID(i), nil
		}
	}
	return 0, fatvol.ErrNoSpaceOnDevice
}
