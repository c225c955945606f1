package main

import (
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"github.com/xkubpise/fatvol"
	"github.com/xkubpise/fatvol/disks"
	c "github.com/xkubpise/fatvol/drivers/common"
	"github.com/xkubpise/fatvol/drivers/fat32"
	"github.com/xkubpise/fatvol/utilities/compression"
)

// maxPathLength bounds the output of `pwd`.
const maxPathLength = 4096

type commandSet struct {
	fs  afero.Fs
	out io.Writer
}

func expectArgs(ctx *cli.Context, min, max int) error {
	if ctx.NArg() < min || ctx.NArg() > max {
		return cli.Exit(
			fmt.Sprintf("usage: %s %s %s", ctx.App.Name, ctx.Command.Name, ctx.Command.ArgsUsage),
			2)
	}
	return nil
}

func volumeOptions(ctx *cli.Context) (fat32.Options, error) {
	profile, err := disks.GetVolumeProfile(ctx.String("profile"))
	if err != nil {
		return fat32.Options{}, cli.Exit(err.Error(), 2)
	}
	return fat32.Options{
		Profile:              profile,
		RequireAbsolutePaths: !ctx.Bool("allow-relative"),
		Logger:               log.StandardLogger(),
	}, nil
}

// openVolume opens the image at `imagePath` with the given flags. When
// `mustBeFormatted` is set, images that don't pass the check are refused.
func (cmd *commandSet) openVolume(
	ctx *cli.Context, imagePath string, flags int, mustBeFormatted bool,
) (afero.File, *fat32.Volume, error) {
	options, err := volumeOptions(ctx)
	if err != nil {
		return nil, nil, err
	}

	file, err := cmd.fs.OpenFile(imagePath, flags, 0o644)
	if err != nil {
		return nil, nil, err
	}

	volume, err := fat32.NewVolume(file, options)
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	if mustBeFormatted {
		err = volume.Validate(nil).Err()
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf(
				"%s isn't a usable volume, run `check` for details: %w", imagePath, err)
		}
	}
	return file, volume, nil
}

// splitParent resolves everything but the last segment of `target` and
// returns the parent's cluster with the final name.
func splitParent(volume *fat32.Volume, target string) (c.ClusterID, string, error) {
	dir, name := path.Split(target)
	if name == "" {
		return 0, "", fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("path %q doesn't end in a name", target))
	}
	if dir == "" {
		dir = "."
	}

	parent, err := volume.ResolvePath(dir, volume.RootCluster())
	if err != nil {
		return 0, "", err
	}
	return parent, name, nil
}

func (cmd *commandSet) createImage(ctx *cli.Context) error {
	if err := expectArgs(ctx, 1, 1); err != nil {
		return err
	}

	flags := os.O_RDWR | os.O_CREATE | os.O_EXCL
	if ctx.Bool("force") {
		flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}
	imagePath := ctx.Args().First()
	file, volume, err := cmd.openVolume(ctx, imagePath, flags, false)
	if err != nil {
		return err
	}
	defer file.Close()

	err = fat32.SizeImage(file, volume.Geometry().TotalSize())
	if err == nil {
		err = volume.Preformat()
	}
	if err == nil {
		err = volume.Format()
	}
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"image":   imagePath,
		"profile": volume.Profile().Slug,
		"bytes":   volume.Geometry().TotalSize(),
	}).Info("created volume")
	return file.Sync()
}

func (cmd *commandSet) checkImage(ctx *cli.Context) error {
	if err := expectArgs(ctx, 1, 1); err != nil {
		return err
	}

	file, volume, err := cmd.openVolume(ctx, ctx.Args().First(), os.O_RDONLY, false)
	if err != nil {
		return err
	}
	defer file.Close()

	sink := fatvol.NewDiagnosticLog(fatvol.DefaultDiagnosticCapacity)
	report := volume.Validate(sink)
	if report.Problems != nil {
		sink.Appendf("%d problems found", len(report.Problems.Errors))
	}
	fmt.Fprintf(cmd.out, "%s: %s\n", ctx.Args().First(), report.Status)
	fmt.Fprint(cmd.out, sink.String())
	if sink.Truncated() {
		fmt.Fprintf(
			cmd.out, "\t(%d problems in total, some not shown)\n", len(report.Problems.Errors))
	}

	if report.Status != fatvol.StatusFormatted {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *commandSet) makeDirectory(ctx *cli.Context) error {
	if err := expectArgs(ctx, 2, 2); err != nil {
		return err
	}

	file, volume, err := cmd.openVolume(ctx, ctx.Args().Get(0), os.O_RDWR, true)
	if err != nil {
		return err
	}
	defer file.Close()

	parent, name, err := splitParent(volume, ctx.Args().Get(1))
	if err != nil {
		return err
	}
	cluster, err := volume.MakeDirectory(name, parent)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.out, cluster)
	return nil
}

func (cmd *commandSet) createFile(ctx *cli.Context) error {
	if err := expectArgs(ctx, 2, 2); err != nil {
		return err
	}

	file, volume, err := cmd.openVolume(ctx, ctx.Args().Get(0), os.O_RDWR, true)
	if err != nil {
		return err
	}
	defer file.Close()

	parent, name, err := splitParent(volume, ctx.Args().Get(1))
	if err != nil {
		return err
	}
	return volume.CreateFile(name, parent)
}

func (cmd *commandSet) listDirectory(ctx *cli.Context) error {
	if err := expectArgs(ctx, 1, 2); err != nil {
		return err
	}

	file, volume, err := cmd.openVolume(ctx, ctx.Args().Get(0), os.O_RDONLY, true)
	if err != nil {
		return err
	}
	defer file.Close()

	target := "/"
	if ctx.NArg() > 1 {
		target = ctx.Args().Get(1)
	}
	cluster, err := volume.ResolvePath(target, volume.RootCluster())
	if err != nil {
		return err
	}

	nodes, err := volume.ListDirectory(cluster)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		kind := ""
		if node.IsDirectory {
			kind = "<DIR>"
		}
		fmt.Fprintf(cmd.out, "%-12s %-5s %8d\n", node.Name, kind, node.FirstCluster)
	}
	return nil
}

func (cmd *commandSet) resolvePath(ctx *cli.Context) error {
	if err := expectArgs(ctx, 2, 2); err != nil {
		return err
	}

	file, volume, err := cmd.openVolume(ctx, ctx.Args().Get(0), os.O_RDONLY, true)
	if err != nil {
		return err
	}
	defer file.Close()

	cluster, err := volume.ResolvePath(ctx.Args().Get(1), volume.RootCluster())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.out, cluster)
	return nil
}

func (cmd *commandSet) printPath(ctx *cli.Context) error {
	if err := expectArgs(ctx, 2, 2); err != nil {
		return err
	}

	cluster, err := strconv.ParseUint(ctx.Args().Get(1), 0, 32)
	if err != nil {
		return cli.Exit(fmt.Sprintf("bad cluster number %q: %s", ctx.Args().Get(1), err), 2)
	}

	file, volume, err := cmd.openVolume(ctx, ctx.Args().Get(0), os.O_RDONLY, true)
	if err != nil {
		return err
	}
	defer file.Close()

	result, err := volume.BuildPathToRoot(c.ClusterID(cluster), maxPathLength)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.out, result)
	return nil
}

func (cmd *commandSet) showUsage(ctx *cli.Context) error {
	if err := expectArgs(ctx, 1, 1); err != nil {
		return err
	}

	file, volume, err := cmd.openVolume(ctx, ctx.Args().First(), os.O_RDONLY, true)
	if err != nil {
		return err
	}
	defer file.Close()

	usage, err := volume.Usage()
	if err != nil {
		return err
	}

	bytesPerCluster := uint64(usage.BytesPerCluster)
	fmt.Fprintf(
		cmd.out,
		"clusters: %s total, %s used, %s free (%s each)\n",
		humanize.Comma(int64(usage.TotalClusters)),
		humanize.Comma(int64(usage.UsedClusters)),
		humanize.Comma(int64(usage.FreeClusters)),
		humanize.IBytes(bytesPerCluster))
	fmt.Fprintf(
		cmd.out,
		"space:    %s total, %s used, %s free\n",
		humanize.IBytes(uint64(usage.TotalClusters)*bytesPerCluster),
		humanize.IBytes(uint64(usage.UsedClusters)*bytesPerCluster),
		humanize.IBytes(uint64(usage.FreeClusters)*bytesPerCluster))
	if usage.FirstFree != 0 {
		fmt.Fprintf(cmd.out, "next free cluster: %d\n", usage.FirstFree)
	} else {
		fmt.Fprintln(cmd.out, "next free cluster: none")
	}
	return nil
}

func (cmd *commandSet) dumpImage(ctx *cli.Context) error {
	if err := expectArgs(ctx, 2, 2); err != nil {
		return err
	}

	file, volume, err := cmd.openVolume(ctx, ctx.Args().Get(0), os.O_RDONLY, false)
	if err != nil {
		return err
	}
	defer file.Close()

	output, err := cmd.fs.Create(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	defer output.Close()

	size, err := compression.WriteSnapshot(file, output, volume.Profile().Slug)
	if err != nil {
		return err
	}
	log.WithField("bytes", size).Info("wrote snapshot")
	return output.Sync()
}

func (cmd *commandSet) restoreImage(ctx *cli.Context) error {
	if err := expectArgs(ctx, 2, 2); err != nil {
		return err
	}

	options, err := volumeOptions(ctx)
	if err != nil {
		return err
	}

	input, err := cmd.fs.Open(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	defer input.Close()

	output, err := cmd.fs.Create(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	defer output.Close()

	size, label, err := compression.ReadSnapshot(input, output)
	if err != nil {
		return err
	}
	if label != options.Profile.Slug {
		log.WithFields(log.Fields{
			"snapshot": label,
			"profile":  options.Profile.Slug,
		}).Warn("snapshot was taken with a different profile")
	}
	log.WithField("bytes", size).Info("restored image")

	volume, err := fat32.NewVolume(output, options)
	if err != nil {
		return err
	}
	err = volume.Validate(nil).Err()
	if err != nil {
		log.WithError(err).Warn("restored image doesn't match the profile")
	}
	return output.Sync()
}
