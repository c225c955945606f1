package disks

import (
	_ "embed"
	"fmt"
	"strconv"

	"github.com/gocarina/gocsv"
)

////////////////////////////////////////////////////////////////////////////////
// Volume profiles

// VolumeProfile is the closed set of boot sector values a volume must carry for
// the engine to operate on it. Geometry fields are raw inputs; derived values
// such as the FAT size live with the FAT32 driver.
type VolumeProfile struct {
	Slug        string `csv:"slug"`
	Name        string `csv:"name"`
	OEMName     string `csv:"oem_name"`
	VolumeLabel string `csv:"volume_label"`
	// RawVolumeID is kept as text so it can be written in hex in the CSV. Use
	// VolumeID() to get the number.
	RawVolumeID string `csv:"volume_id"`

	BytesPerSector    uint `csv:"bytes_per_sector"`
	SectorsPerCluster uint `csv:"sectors_per_cluster"`
	ReservedSectors   uint `csv:"reserved_sectors"`
	NumFATs           uint `csv:"num_fats"`
	FATEntrySize      uint `csv:"fat_entry_size"`
	TotalSectors      uint `csv:"total_sectors"`

	Notes string `csv:"notes"`

	volumeID uint32 `csv:"-"`
}

// VolumeID returns the 32-bit serial number stored in the boot sector.
func (p VolumeProfile) VolumeID() uint32 {
	return p.volumeID
}

// TotalSizeBytes gives the exact size a backing image must have.
func (p VolumeProfile) TotalSizeBytes() int64 {
	return int64(p.BytesPerSector) * int64(p.TotalSectors)
}

func (p *VolumeProfile) validate() error {
	if len(p.OEMName) != 8 {
		return fmt.Errorf("OEM name %q must be exactly 8 bytes", p.OEMName)
	}
	if len(p.VolumeLabel) != 11 {
		return fmt.Errorf("volume label %q must be exactly 11 bytes", p.VolumeLabel)
	}
	id, err := strconv.ParseUint(p.RawVolumeID, 0, 32)
	if err != nil {
		return fmt.Errorf("bad volume ID %q: %w", p.RawVolumeID, err)
	}
	p.volumeID = uint32(id)
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// ReferenceProfileSlug names the 20 MiB profile used when none is given.
const ReferenceProfileSlug = "xkubpise"

//go:embed volume-profiles.csv
var volumeProfilesRawCSV string
var volumeProfiles map[string]VolumeProfile
var volumeProfileSlugs []string

// GetVolumeProfile returns a copy of the predefined profile with the given slug.
func GetVolumeProfile(slug string) (VolumeProfile, error) {
	profile, ok := volumeProfiles[slug]
	if ok {
		return profile, nil
	}

	err := fmt.Errorf("no predefined volume profile exists with slug %q", slug)
	return VolumeProfile{}, err
}

// ReferenceProfile returns the 20 MiB reference profile.
func ReferenceProfile() VolumeProfile {
	profile, err := GetVolumeProfile(ReferenceProfileSlug)
	if err != nil {
		panic(err)
	}
	return profile
}

// ProfileSlugs lists the slugs of all predefined profiles in catalog order.
func ProfileSlugs() []string {
	slugs := make([]string, len(volumeProfileSlugs))
	copy(slugs, volumeProfileSlugs)
	return slugs
}

func init() {
	var rows []*VolumeProfile
	err := gocsv.UnmarshalString(volumeProfilesRawCSV, &rows)
	if err != nil {
		panic(fmt.Errorf("failed to decode volume profiles: %w", err))
	}

	volumeProfiles = make(map[string]VolumeProfile, len(rows))

	for i, row := range rows {
		if err = row.validate(); err != nil {
			panic(fmt.Errorf("invalid volume profile on row %d: %w", i+1, err))
		}

		_, exists := volumeProfiles[row.Slug]
		if exists {
			message := fmt.Errorf(
				"duplicate definition for profile %q found on row %d",
				row.Slug,
				i+1)
			panic(message)
		}
		volumeProfiles[row.Slug] = *row
		volumeProfileSlugs = append(volumeProfileSlugs, row.Slug)
	}
}
