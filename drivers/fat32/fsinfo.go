package fat32

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
	"github.com/xkubpise/fatvol"
	c "github.com/xkubpise/fatvol/drivers/common"
)

const (
	FSInfoLeadSignature   = 0x41615252
	FSInfoStructSignature = 0x61417272
	FSInfoTrailSignature  = 0xAA550000
	// FSInfoUnknown is stored in the free count or hint when it isn't known.
	FSInfoUnknown = 0xFFFFFFFF
)

// RawFSInfo is the on-disk layout of the FSInfo sector.
type RawFSInfo struct {
	LeadSignature   uint32
	Reserved1       [480]byte
	StructSignature uint32
	FreeCount       uint32
	NextFree        uint32
	Reserved2       [12]byte
	TrailSignature  uint32
}

// NewFSInfo creates an FSInfo record with valid signatures.
func NewFSInfo(freeCount uint32, nextFree c.ClusterID) RawFSInfo {
	return RawFSInfo{
		LeadSignature:   FSInfoLeadSignature,
		StructSignature: FSInfoStructSignature,
		FreeCount:       freeCount,
		NextFree:        uint32(nextFree),
		TrailSignature:  FSInfoTrailSignature,
	}
}

// ParseFSInfo decodes an FSInfo record from the first 512 bytes of `data`.
func ParseFSInfo(data []byte) (RawFSInfo, error) {
	var info RawFSInfo
	if len(data) < binary.Size(info) {
		return info, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("FSInfo needs %d bytes, got %d", binary.Size(info), len(data)))
	}

	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &info)
	if err != nil {
		return info, fatvol.ErrIOFailed.Wrap(err)
	}
	return info, nil
}

// MarshalInto writes the record to the start of `buffer`.
func (info *RawFSInfo) MarshalInto(buffer []byte) error {
	err := binary.Write(bytewriter.New(buffer), binary.LittleEndian, info)
	if err != nil {
		return fatvol.ErrInvalidArgument.Wrap(err)
	}
	return nil
}

// HasValidSignatures returns true if all three signatures are in place.
func (info *RawFSInfo) HasValidSignatures() bool {
	return info.LeadSignature == FSInfoLeadSignature &&
		info.StructSignature == FSInfoStructSignature &&
		info.TrailSignature == FSInfoTrailSignature
}
