package fat32

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
	"github.com/xkubpise/fatvol"
	c "github.com/xkubpise/fatvol/drivers/common"
)

// DirentSize is the size of a single raw directory entry, in bytes.
const DirentSize = 32

const (
	// AttrDirectory marks an entry as a directory.
	AttrDirectory = 0x10
	// AttrArchive marks an entry as a regular file.
	AttrArchive = 0x20
	// AttrLongName is the attribute combination used by long-name entries,
	// which this engine skips.
	AttrLongName = 0x0F
)

// Values of the first name byte with special meaning.
const (
	markerEndOfDirectory = 0x00
	markerDeleted        = 0xE5
)

// RawDirent is the on-disk representation of a directory entry.
type RawDirent struct {
	Name              ShortName
	Attributes        uint8
	NTReserved        uint8
	CreatedTimeTenths uint8
	CreatedTime       uint16
	CreatedDate       uint16
	LastAccessedDate  uint16
	FirstClusterHigh  uint16
	LastModifiedTime  uint16
	LastModifiedDate  uint16
	FirstClusterLow   uint16
	FileSize          uint32
}

// NewRawDirent creates an entry for a file or folder. Files always point at
// cluster 0.
func NewRawDirent(name ShortName, kind fatvol.ObjectKind, cluster c.ClusterID) RawDirent {
	dirent := RawDirent{Name: name}
	if kind == fatvol.KindFolder {
		dirent.Attributes = AttrDirectory
		dirent.SetFirstCluster(cluster)
	} else {
		dirent.Attributes = AttrArchive
	}
	return dirent
}

// ParseDirent decodes the directory entry in the first [DirentSize] bytes of
// `data`.
func ParseDirent(data []byte) (RawDirent, error) {
	var dirent RawDirent
	if len(data) < DirentSize {
		return dirent, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("directory entry needs %d bytes, got %d", DirentSize, len(data)))
	}

	err := binary.Read(bytes.NewReader(data[:DirentSize]), binary.LittleEndian, &dirent)
	if err != nil {
		return dirent, fatvol.ErrIOFailed.Wrap(err)
	}
	return dirent, nil
}

// MarshalInto writes the entry to the first [DirentSize] bytes of `buffer`.
func (dirent *RawDirent) MarshalInto(buffer []byte) error {
	if len(buffer) < DirentSize {
		return fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("directory entry needs %d bytes, got %d", DirentSize, len(buffer)))
	}

	err := binary.Write(bytewriter.New(buffer[:DirentSize]), binary.LittleEndian, dirent)
	if err != nil {
		return fatvol.ErrIOFailed.Wrap(err)
	}
	return nil
}

func (dirent *RawDirent) FirstCluster() c.ClusterID {
	return c.ClusterID(uint32(dirent.FirstClusterHigh)<<16 | uint32(dirent.FirstClusterLow))
}

func (dirent *RawDirent) SetFirstCluster(cluster c.ClusterID) {
	dirent.FirstClusterHigh = uint16(cluster >> 16)
	dirent.FirstClusterLow = uint16(cluster & 0xFFFF)
}

// IsEndOfDirectory is true for the first never-used slot of a directory. No
// live entries follow it.
func (dirent *RawDirent) IsEndOfDirectory() bool {
	return dirent.Name[0] == markerEndOfDirectory
}

func (dirent *RawDirent) IsDeleted() bool {
	return dirent.Name[0] == markerDeleted
}

// IsFree is true for slots a new entry may be written into.
func (dirent *RawDirent) IsFree() bool {
	return dirent.IsEndOfDirectory() || dirent.IsDeleted()
}

func (dirent *RawDirent) IsLongName() bool {
	return dirent.Attributes&AttrLongName == AttrLongName
}

func (dirent *RawDirent) IsDirectory() bool {
	return dirent.Attributes&AttrDirectory != 0
}

// IsDotEntry is true for the "." and ".." entries of a directory.
func (dirent *RawDirent) IsDotEntry() bool {
	return dirent.Name == dotName || dirent.Name == dotDotName
}

// newDotEntriesSector builds the first sector of a new folder's cluster,
// holding its "." and ".." entries.
func newDotEntriesSector(
	bytesPerSector uint, self c.ClusterID, parent c.ClusterID,
) ([]byte, error) {
	sector := make([]byte, bytesPerSector)

	dot := RawDirent{Name: dotName, Attributes: AttrDirectory}
	dot.SetFirstCluster(self)
	if err := dot.MarshalInto(sector[0:]); err != nil {
		return nil, err
	}

	dotDot := RawDirent{Name: dotDotName, Attributes: AttrDirectory}
	dotDot.SetFirstCluster(parent)
	if err := dotDot.MarshalInto(sector[DirentSize:]); err != nil {
		return nil, err
	}
	return sector, nil
}
