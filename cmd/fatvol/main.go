package main

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"github.com/xkubpise/fatvol/disks"
)

func main() {
	app := newApp(afero.NewOsFs(), os.Stdout)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

// newApp builds the command-line app. Images and snapshots are opened through
// `fs`, and command output goes to `out`.
func newApp(fs afero.Fs, out io.Writer) *cli.App {
	commands := commandSet{fs: fs, out: out}

	return &cli.App{
		Name:      "fatvol",
		Usage:     "Create, check and modify FAT32 volume images",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "volume profile the image must match",
				Value:   disks.ReferenceProfileSlug,
				EnvVars: []string{"FATVOL_PROFILE"},
			},
			&cli.BoolFlag{
				Name:    "allow-relative",
				Usage:   "accept paths that don't start with /, resolved from the root",
				EnvVars: []string{"FATVOL_ALLOW_RELATIVE"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "log every step the engine takes",
				EnvVars: []string{"FATVOL_DEBUG"},
			},
		},
		Before: configureLogging,
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create an image and format it",
				ArgsUsage: "IMAGE",
				Action:    commands.createImage,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "overwrite IMAGE if it already exists",
					},
				},
			},
			{
				Name:      "check",
				Usage:     "Check that an image matches the profile",
				ArgsUsage: "IMAGE",
				Action:    commands.checkImage,
			},
			{
				Name:      "mkdir",
				Usage:     "Create a directory",
				ArgsUsage: "IMAGE PATH",
				Action:    commands.makeDirectory,
			},
			{
				Name:      "touch",
				Usage:     "Create an empty file",
				ArgsUsage: "IMAGE PATH",
				Action:    commands.createFile,
			},
			{
				Name:      "ls",
				Usage:     "List a directory",
				ArgsUsage: "IMAGE [PATH]",
				Action:    commands.listDirectory,
			},
			{
				Name:      "resolve",
				Usage:     "Print the cluster a directory path leads to",
				ArgsUsage: "IMAGE PATH",
				Action:    commands.resolvePath,
			},
			{
				Name:      "pwd",
				Usage:     "Print the absolute path of the directory in a cluster",
				ArgsUsage: "IMAGE CLUSTER",
				Action:    commands.printPath,
			},
			{
				Name:      "df",
				Usage:     "Show cluster usage",
				ArgsUsage: "IMAGE",
				Action:    commands.showUsage,
			},
			{
				Name:      "dump",
				Usage:     "Write a compressed snapshot of an image",
				ArgsUsage: "IMAGE SNAPSHOT",
				Action:    commands.dumpImage,
			},
			{
				Name:      "restore",
				Usage:     "Recreate an image from a snapshot",
				ArgsUsage: "SNAPSHOT IMAGE",
				Action:    commands.restoreImage,
			},
		},
	}
}

func configureLogging(ctx *cli.Context) error {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if ctx.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	return nil
}
