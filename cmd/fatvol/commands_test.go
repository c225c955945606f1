package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"github.com/xkubpise/fatvol"
)

func runApp(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp(fs, &out)
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"fatvol"}, args...))
	return out.String(), err
}

func newFormattedImage(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	_, err := runApp(t, fs, "create", "vol.img")
	require.NoError(t, err)
	return fs
}

func TestCreateAndCheck(t *testing.T) {
	fs := newFormattedImage(t)

	stat, err := fs.Stat("vol.img")
	require.NoError(t, err)
	assert.EqualValues(t, 20*1024*1024, stat.Size())

	out, err := runApp(t, fs, "check", "vol.img")
	require.NoError(t, err)
	assert.Equal(t, "vol.img: formatted\n", out)
}

func TestCreateRefusesToOverwrite(t *testing.T) {
	fs := newFormattedImage(t)
	_, err := runApp(t, fs, "mkdir", "vol.img", "/keep")
	require.NoError(t, err)

	_, err = runApp(t, fs, "create", "vol.img")
	assert.Error(t, err)

	out, err := runApp(t, fs, "ls", "vol.img")
	require.NoError(t, err)
	assert.Contains(t, out, "keep")

	_, err = runApp(t, fs, "create", "--force", "vol.img")
	require.NoError(t, err)
	out, err = runApp(t, fs, "ls", "vol.img")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCheckBlankImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "blank.img", make([]byte, 20*1024*1024), 0o644))

	out, err := runApp(t, fs, "check", "blank.img")
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.True(t, strings.HasPrefix(out, "blank.img: not formatted\n"), out)
	assert.Contains(t, out, "\tunexpected OEM name: ")
	assert.Regexp(t, `\t\d+ problems found\n$`, out)

	_, err = runApp(t, fs, "mkdir", "blank.img", "/nope")
	assert.ErrorIs(t, err, fatvol.ErrInvalidFileSystem)
}

func TestDirectoryCommands(t *testing.T) {
	fs := newFormattedImage(t)

	out, err := runApp(t, fs, "mkdir", "vol.img", "/docs")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = runApp(t, fs, "mkdir", "vol.img", "/docs/sub")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)

	_, err = runApp(t, fs, "touch", "vol.img", "/docs/readme.txt")
	require.NoError(t, err)

	out, err = runApp(t, fs, "ls", "vol.img", "/docs")
	require.NoError(t, err)
	assert.Equal(
		t,
		".            <DIR>        3\n"+
			"..           <DIR>        2\n"+
			"readme.txt                0\n"+
			"sub          <DIR>        4\n",
		out)

	out, err = runApp(t, fs, "resolve", "vol.img", "/DOCS/sub")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)

	out, err = runApp(t, fs, "pwd", "vol.img", "4")
	require.NoError(t, err)
	assert.Equal(t, "/docs/sub\n", out)

	_, err = runApp(t, fs, "mkdir", "vol.img", "/docs")
	assert.ErrorIs(t, err, fatvol.ErrExists)

	_, err = runApp(t, fs, "resolve", "vol.img", "/missing")
	assert.ErrorIs(t, err, fatvol.ErrNotFound)
}

func TestRelativePaths(t *testing.T) {
	fs := newFormattedImage(t)

	_, err := runApp(t, fs, "mkdir", "vol.img", "docs")
	assert.ErrorIs(t, err, fatvol.ErrInvalidArgument)

	out, err := runApp(t, fs, "--allow-relative", "mkdir", "vol.img", "docs")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = runApp(t, fs, "--allow-relative", "resolve", "vol.img", "docs")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestShowUsage(t *testing.T) {
	fs := newFormattedImage(t)
	_, err := runApp(t, fs, "mkdir", "vol.img", "/a")
	require.NoError(t, err)

	out, err := runApp(t, fs, "df", "vol.img")
	require.NoError(t, err)
	assert.Contains(t, out, "clusters: 40,286 total, 2 used, 40,284 free (512 B each)\n")
	assert.Contains(t, out, "next free cluster: 4\n")
}

func TestDumpAndRestore(t *testing.T) {
	fs := newFormattedImage(t)
	_, err := runApp(t, fs, "mkdir", "vol.img", "/saved")
	require.NoError(t, err)

	_, err = runApp(t, fs, "dump", "vol.img", "vol.snap")
	require.NoError(t, err)

	stat, err := fs.Stat("vol.snap")
	require.NoError(t, err)
	assert.Less(t, stat.Size(), int64(64*1024), "snapshot of a nearly empty volume is too big")

	_, err = runApp(t, fs, "restore", "vol.snap", "copy.img")
	require.NoError(t, err)

	original, err := afero.ReadFile(fs, "vol.img")
	require.NoError(t, err)
	restored, err := afero.ReadFile(fs, "copy.img")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(original, restored), "restored image differs")

	out, err := runApp(t, fs, "resolve", "copy.img", "/saved")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestBadArguments(t *testing.T) {
	fs := newFormattedImage(t)

	_, err := runApp(t, fs, "mkdir", "vol.img")
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())

	_, err = runApp(t, fs, "pwd", "vol.img", "twelve")
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())

	_, err = runApp(t, fs, "--profile", "nonexistent", "check", "vol.img")
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
}
