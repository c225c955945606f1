package fat32

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/xkubpise/fatvol"
	"github.com/xkubpise/fatvol/disks"
	c "github.com/xkubpise/fatvol/drivers/common"
)

// Options configures a [Volume].
type Options struct {
	// Profile is the closed boot sector profile the volume must match. The zero
	// value selects the reference profile.
	Profile disks.VolumeProfile
	// RequireAbsolutePaths makes [Volume.ResolvePath] reject paths that don't
	// begin with "/".
	RequireAbsolutePaths bool
	// Logger receives debug output. Defaults to a logger that discards
	// everything.
	Logger logrus.FieldLogger
}

// Volume is a handle on one FAT32 image. All state lives in the image; the
// handle only caches the geometry. A Volume must not be shared between
// goroutines, and no two Volumes may operate on the same image at once.
type Volume struct {
	profile              disks.VolumeProfile
	geo                  Geometry
	image                io.ReadWriteSeeker
	sectors              *c.BlockStream
	clusters             *c.ClusterStream
	fat                  *FATManager
	requireAbsolutePaths bool
	log                  logrus.FieldLogger
}

// NewVolume wraps `image`. It does not check the image in any way; use
// [Volume.Validate] for that, or [Volume.Preformat] and [Volume.Format] to
// create a volume from scratch.
func NewVolume(image io.ReadWriteSeeker, options Options) (*Volume, error) {
	profile := options.Profile
	if profile.Slug == "" {
		profile = disks.ReferenceProfile()
	}

	geo, err := NewGeometry(profile)
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		discard := logrus.New()
		discard.Out = io.Discard
		logger = discard
	}
	log := logger.WithField("volume", profile.Slug)

	sectors := c.NewBlockStream(image, geo.TotalSectors, geo.BytesPerSector, 0)
	clusters, err := c.NewClusterStream(
		sectors,
		geo.SectorsPerCluster,
		c.BlockID(geo.FirstDataSector),
		RootCluster,
		c.ClusterID(geo.ClusterCount-1),
	)
	if err != nil {
		return nil, fatvol.CastToDriverError(err).WithMessage("bad cluster layout")
	}

	return &Volume{
		profile:              profile,
		geo:                  geo,
		image:                image,
		sectors:              sectors,
		clusters:             clusters,
		fat:                  NewFATManager(geo, sectors, log),
		requireAbsolutePaths: options.RequireAbsolutePaths,
		log:                  log,
	}, nil
}

func (v *Volume) Geometry() Geometry {
	return v.geo
}

func (v *Volume) Profile() disks.VolumeProfile {
	return v.profile
}

// FAT gives access to the volume's allocation table.
func (v *Volume) FAT() *FATManager {
	return v.fat
}

// RootCluster returns the cluster of the root directory.
func (v *Volume) RootCluster() c.ClusterID {
	return RootCluster
}

// Usage reports how many data clusters are allocated.
func (v *Volume) Usage() (Usage, error) {
	return v.fat.Usage()
}

// ReadFSInfo reads the FSInfo sector.
func (v *Volume) ReadFSInfo() (RawFSInfo, error) {
	sector, err := v.sectors.Read(FSInfoSectorIndex, 1)
	if err != nil {
		return RawFSInfo{}, err
	}
	return ParseFSInfo(sector)
}
