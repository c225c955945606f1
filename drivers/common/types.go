// Package common contains definitions of fundamental types and functions used
// by the FAT32 engine for block- and cluster-level access to a backing image.
package common

import "math"

// LogicalBlock is the index of a block relative to the start of some region,
// e.g. the N'th sector of a FAT copy.
type LogicalBlock uint

const InvalidLogicalBlock = LogicalBlock(math.MaxUint)

// Truncator is an interface for objects that support a Truncate() method. This
// method must behave just like [os.File.Truncate].
type Truncator interface {
	Truncate(size int64) error
}
