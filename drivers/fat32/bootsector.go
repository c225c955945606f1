package fat32

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
	"github.com/xkubpise/fatvol"
	"github.com/xkubpise/fatvol/disks"
)

// BootSectorSize is the size of the boot parameter block record. Larger
// sectors are zero-padded after it.
const BootSectorSize = 512

// Values every volume of this engine carries in its boot sector regardless of
// the profile.
const (
	MediaFixedDisk    = 0xF8
	ExpectedExtFlags  = 0x80
	extFlagsMirrorOff = 0x0080
	extFlagsActiveFAT = 0x000F
	extFlagsReserved  = 0xFF70
	driveNumberHDD    = 0x80
	extendedBootSig   = 0x29
	bootSignature     = 0xAA55
)

var (
	jumpStub       = [3]byte{0xEB, 0x58, 0x90}
	fat32TypeLabel = [8]byte{'F', 'A', 'T', '3', '2', ' ', ' ', ' '}
)

// RawBootSector is the on-disk layout of a FAT32 boot sector, little-endian.
type RawBootSector struct {
	JmpBoot           [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	FATSize16         uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
	FATSize32         uint32
	ExtFlags          uint16
	FSVersion         uint16
	RootCluster       uint32
	FSInfoSector      uint16
	BackupBootSector  uint16
	Reserved          [12]byte
	DriveNumber       uint8
	Reserved1         uint8
	BootSignature     uint8
	VolumeID          uint32
	VolumeLabel       [11]byte
	FileSystemType    [8]byte
	BootCode          [420]byte
	Signature         uint16
}

// NewBootSector builds the boot sector for a volume with the given profile.
func NewBootSector(profile disks.VolumeProfile, geo Geometry) RawBootSector {
	bs := RawBootSector{
		JmpBoot:           jumpStub,
		BytesPerSector:    uint16(geo.BytesPerSector),
		SectorsPerCluster: uint8(geo.SectorsPerCluster),
		ReservedSectors:   uint16(geo.ReservedSectors),
		NumFATs:           uint8(geo.NumFATs),
		Media:             MediaFixedDisk,
		SectorsPerTrack:   0x3F,
		NumHeads:          0xFF,
		TotalSectors32:    uint32(geo.TotalSectors),
		FATSize32:         uint32(geo.FATSize),
		ExtFlags:          ExpectedExtFlags,
		RootCluster:       uint32(RootCluster),
		FSInfoSector:      uint16(FSInfoSectorIndex),
		BackupBootSector:  uint16(BackupBootSectorIndex),
		DriveNumber:       driveNumberHDD,
		BootSignature:     extendedBootSig,
		VolumeID:          profile.VolumeID(),
		FileSystemType:    fat32TypeLabel,
		Signature:         bootSignature,
	}
	copy(bs.OEMName[:], profile.OEMName)
	copy(bs.VolumeLabel[:], profile.VolumeLabel)
	return bs
}

// ParseBootSector decodes the first [BootSectorSize] bytes of `data`.
func ParseBootSector(data []byte) (RawBootSector, error) {
	var bs RawBootSector
	if len(data) < BootSectorSize {
		return bs, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"boot sector needs %d bytes, got %d", BootSectorSize, len(data)))
	}

	err := binary.Read(bytes.NewReader(data[:BootSectorSize]), binary.LittleEndian, &bs)
	if err != nil {
		return bs, fatvol.ErrIOFailed.Wrap(err)
	}
	return bs, nil
}

// MarshalInto serializes the boot sector into the beginning of `buffer`, which
// must be at least [BootSectorSize] bytes. The rest of `buffer` is untouched.
func (bs *RawBootSector) MarshalInto(buffer []byte) error {
	if len(buffer) < BootSectorSize {
		return fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"boot sector needs %d bytes, buffer has %d", BootSectorSize, len(buffer)))
	}

	writer := bytewriter.New(buffer[:BootSectorSize])
	err := binary.Write(writer, binary.LittleEndian, bs)
	if err != nil {
		return fatvol.ErrIOFailed.Wrap(err)
	}
	return nil
}

// Discrepancy is one way a boot sector differs from the profile. Details holds
// extra explanatory lines, if any.
type Discrepancy struct {
	Message string
	Details []string
}

// CheckProfile compares every field the engine relies on against `profile`
// and returns all mismatches. It never stops at the first one.
func (bs *RawBootSector) CheckProfile(
	profile disks.VolumeProfile, geo Geometry,
) []Discrepancy {
	var found []Discrepancy
	report := func(format string, args ...any) {
		found = append(found, Discrepancy{Message: fmt.Sprintf(format, args...)})
	}

	if bs.FileSystemType != fat32TypeLabel {
		report(
			"unexpected file system type: %s (hex: % X)",
			printable(bs.FileSystemType[:]),
			bs.FileSystemType[:])
	}
	if !bytes.Equal(bs.OEMName[:], []byte(profile.OEMName)) {
		report("unexpected OEM name: %s (hex: % X)", printable(bs.OEMName[:]), bs.OEMName[:])
	}
	if bs.VolumeID != profile.VolumeID() {
		report("unexpected volume ID: %08X", bs.VolumeID)
	}
	if !bytes.Equal(bs.VolumeLabel[:], []byte(profile.VolumeLabel)) {
		report(
			"unexpected volume label: %s (hex: % X)",
			printable(bs.VolumeLabel[:]),
			bs.VolumeLabel[:])
	}

	if uint(bs.BytesPerSector) != geo.BytesPerSector {
		report("unexpected sector size: %d", bs.BytesPerSector)
	}
	if uint(bs.SectorsPerCluster) != geo.SectorsPerCluster {
		report("unexpected sectors per cluster: %d", bs.SectorsPerCluster)
	}
	if uint(bs.ReservedSectors) != geo.ReservedSectors {
		report("unexpected number of reserved sectors: %d", bs.ReservedSectors)
	}
	if uint(bs.NumFATs) != geo.NumFATs {
		report("unexpected number of FATs: %d", bs.NumFATs)
	}
	if bs.RootEntryCount != 0 {
		report("BPB declares a fixed root directory of %d entries", bs.RootEntryCount)
	}
	if bs.TotalSectors16 != 0 {
		report("BPB sets the 16-bit total sector count to %d", bs.TotalSectors16)
	}
	if uint(bs.TotalSectors32) != geo.TotalSectors {
		report(
			"volume must have %d sectors in total, not %d",
			geo.TotalSectors,
			bs.TotalSectors32)
	}
	if bs.FATSize16 != 0 {
		report("BPB sets the 16-bit FAT size to %d", bs.FATSize16)
	}
	if uint(bs.FATSize32) != geo.FATSize {
		report("FAT size must be %d sectors, not %d", geo.FATSize, bs.FATSize32)
	}
	if bs.ExtFlags != ExpectedExtFlags {
		found = append(found, Discrepancy{
			Message: fmt.Sprintf("BPB has unexpected extended flags: 0x%04X", bs.ExtFlags),
			Details: DescribeExtendedFlags(bs.ExtFlags, geo.NumFATs),
		})
	}
	if bs.FSVersion != 0 {
		report("file system version should be zero, got %d", bs.FSVersion)
	}

	if bs.RootCluster != uint32(RootCluster) {
		report("root directory must be at cluster %d, not %d", RootCluster, bs.RootCluster)
	}
	if bs.FSInfoSector != uint16(FSInfoSectorIndex) {
		report("FSInfo must be at sector %d, not %d", FSInfoSectorIndex, bs.FSInfoSector)
	}
	if bs.BackupBootSector != uint16(BackupBootSectorIndex) {
		report(
			"backup boot sector must be at sector %d, not %d",
			BackupBootSectorIndex,
			bs.BackupBootSector)
	}
	if bs.Signature != bootSignature {
		report("missing boot signature 55 AA: found %04X", bs.Signature)
	}
	return found
}

// DescribeExtendedFlags explains the extended flags field in plain words: the
// mirroring bit, the active FAT and any reserved bits that are set.
func DescribeExtendedFlags(flags uint16, numFATs uint) []string {
	var lines []string

	if flags&extFlagsMirrorOff != 0 {
		lines = append(lines, "mirroring is disabled, as expected")
	} else {
		lines = append(lines, "mirroring is enabled, which this engine doesn't support")
	}

	activeFAT := uint(flags & extFlagsActiveFAT)
	switch {
	case activeFAT == 0:
		lines = append(lines, "active FAT is #0, as expected")
	case activeFAT > numFATs:
		lines = append(
			lines,
			fmt.Sprintf(
				"active FAT #%d is greater than the number of FATs (%d)",
				activeFAT,
				numFATs))
	default:
		lines = append(lines, fmt.Sprintf("active FAT is #%d; only FAT #0 is used", activeFAT))
	}

	if flags&extFlagsReserved != 0 {
		lines = append(
			lines,
			fmt.Sprintf(
				"warning: reserved bits in extended flags are set (0x%04X)",
				flags&extFlagsReserved))
	}
	return lines
}

// printable replaces unprintable bytes with '.'.
func printable(data []byte) string {
	out := make([]byte, len(data))
	for i, ch := range data {
		if ch < 0x20 || ch > 0x7E {
			ch = '.'
		}
		out[i] = ch
	}
	return string(out)
}
