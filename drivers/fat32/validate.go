package fat32

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/xkubpise/fatvol"
	c "github.com/xkubpise/fatvol/drivers/common"
)

// ValidationReport is the outcome of [Volume.Validate].
type ValidationReport struct {
	Status       fatvol.FormatStatus
	ImageSize    int64
	ExpectedSize int64
	// Problems holds one error per discrepancy, in the order found. It's nil
	// for a correctly formatted volume.
	Problems *multierror.Error
}

// Err returns nil if the volume is formatted, or an error wrapping every
// discrepancy otherwise.
func (report ValidationReport) Err() error {
	var base fatvol.DriverError
	switch report.Status {
	case fatvol.StatusFormatted:
		return nil
	case fatvol.StatusBadSize:
		base = fatvol.ErrInvalidFileSystem.WithMessage(
			fmt.Sprintf(
				"image is %d bytes, expected %d", report.ImageSize, report.ExpectedSize))
	default:
		base = fatvol.ErrInvalidFileSystem.WithMessage(
			fmt.Sprintf("image doesn't match profile (%s)", report.Status))
	}

	if report.Problems == nil {
		return base
	}
	return base.Wrap(report.Problems)
}

type reportBuilder struct {
	report ValidationReport
	sink   fatvol.DiagnosticSink
}

func (builder *reportBuilder) problem(message string, details ...string) {
	builder.report.Problems = multierror.Append(
		builder.report.Problems, fatvol.ErrInvalidFileSystem.WithMessage(message))

	if builder.sink == nil {
		return
	}
	builder.sink.Append(message)
	for _, detail := range details {
		builder.sink.Append("\t" + detail)
	}
}

// Validate checks the image against the volume's profile. Every discrepancy
// found is recorded in the report and appended to `sink`, which may be nil.
//
// An image of the wrong size is still checked as far as it can be read, but
// the status is [fatvol.StatusBadSize] regardless.
func (v *Volume) Validate(sink fatvol.DiagnosticSink) ValidationReport {
	builder := reportBuilder{
		report: ValidationReport{ExpectedSize: v.geo.TotalSize()},
		sink:   sink,
	}

	size, err := c.StreamSize(v.image)
	if err != nil {
		builder.problem(fmt.Sprintf("couldn't determine the size of the volume: %s", err))
		builder.report.Status = fatvol.StatusBadSize
		return builder.report
	}
	builder.report.ImageSize = size

	wrongSize := size != v.geo.TotalSize()
	if wrongSize {
		builder.problem(
			fmt.Sprintf(
				"volume must be exactly %d bytes, but it is %d bytes",
				v.geo.TotalSize(),
				size))
	}
	if size < BootSectorSize {
		builder.problem(
			fmt.Sprintf(
				"volume is smaller than the %d bytes needed for a boot sector",
				BootSectorSize))
		builder.report.Status = fatvol.StatusBadSize
		return builder.report
	}

	raw := make([]byte, BootSectorSize)
	_, err = v.image.Seek(0, io.SeekStart)
	if err == nil {
		_, err = io.ReadFull(v.image, raw)
	}
	if err != nil {
		builder.problem(fmt.Sprintf("couldn't read the full boot sector: %s", err))
		builder.report.Status = fatvol.StatusBadSize
		return builder.report
	}

	bootSector, err := ParseBootSector(raw)
	if err != nil {
		builder.problem(err.Error())
	} else {
		for _, discrepancy := range bootSector.CheckProfile(v.profile, v.geo) {
			builder.problem(discrepancy.Message, discrepancy.Details...)
		}
	}
	v.checkStructures(&builder)

	switch {
	case wrongSize:
		builder.report.Status = fatvol.StatusBadSize
	case builder.report.Problems != nil:
		builder.report.Status = fatvol.StatusNotFormatted
	default:
		builder.report.Status = fatvol.StatusFormatted
	}
	return builder.report
}

// checkStructures checks what Format writes outside the boot sector: the
// backup boot sector, the FSInfo signatures and the reserved entries of FAT 0.
func (v *Volume) checkStructures(builder *reportBuilder) {
	primary, err := v.sectors.Read(BootSectorIndex, 1)
	if err != nil {
		builder.problem(fmt.Sprintf("couldn't read sector %d: %s", BootSectorIndex, err))
	} else {
		backup, err := v.sectors.Read(BackupBootSectorIndex, 1)
		if err != nil {
			builder.problem(
				fmt.Sprintf("couldn't read backup boot sector %d: %s", BackupBootSectorIndex, err))
		} else if !bytes.Equal(primary, backup) {
			builder.problem(
				fmt.Sprintf(
					"backup boot sector at %d differs from the boot sector",
					BackupBootSectorIndex))
		}
	}

	info, err := v.ReadFSInfo()
	if err != nil {
		builder.problem(fmt.Sprintf("couldn't read FSInfo sector: %s", err))
	} else if !info.HasValidSignatures() {
		builder.problem(
			fmt.Sprintf(
				"FSInfo sector has bad signatures: %08X %08X %08X",
				info.LeadSignature,
				info.StructSignature,
				info.TrailSignature))
	}

	media, endMarker, err := v.fat.ReservedEntries()
	if err == nil && (media != EntryMediaMarker || endMarker != EntryEndOfChain) {
		builder.problem(
			fmt.Sprintf(
				"FAT #0 doesn't begin with the reserved entries: found %08X %08X",
				media,
				endMarker))
	}
	if err != nil {
		builder.problem(fmt.Sprintf("couldn't read FAT #0: %s", err))
		return
	}

	root, err := v.fat.ReadEntry(RootCluster)
	if err != nil {
		builder.problem(fmt.Sprintf("couldn't read FAT #0: %s", err))
	} else if root == EntryFree {
		builder.problem("root directory's cluster is marked free in FAT #0")
	}
}
