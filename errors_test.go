package fatvol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xkubpise/fatvol"
)

func TestDriverErrorWithMessage(t *testing.T) {
	newErr := fatvol.ErrNoSpaceOnDevice.WithMessage("asdfqwerty")
	assert.Equal(
		t, "No space left on device: asdfqwerty", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, fatvol.ErrNoSpaceOnDevice)
	assert.NotErrorIs(t, newErr, fatvol.ErrNotFound)
}

func TestDriverErrorWrap(t *testing.T) {
	originalErr := errors.New("original error")
	newErr := fatvol.ErrExists.Wrap(originalErr)
	expectedMessage := "File exists: original error"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, fatvol.ErrExists, "driver error not set as parent")
}

func TestCastToDriverError(t *testing.T) {
	assert.Nil(t, fatvol.CastToDriverError(nil))

	existing := fatvol.ErrNotFound.WithMessage("gone")
	assert.Equal(t, existing, fatvol.CastToDriverError(existing))

	plain := errors.New("disk on fire")
	cast := fatvol.CastToDriverError(plain)
	assert.ErrorIs(t, cast, fatvol.ErrIOFailed)
	assert.ErrorIs(t, cast, plain)
}

func TestDiagnosticLogTruncates(t *testing.T) {
	log := fatvol.NewDiagnosticLog(16)

	assert.True(t, log.Append("abc"))
	assert.Equal(t, "\tabc\n", log.String())
	assert.False(t, log.Truncated())

	// 5 bytes used, 11 left; "\t0123456789abc\n" is 15 bytes.
	assert.False(t, log.Append("0123456789abc"))
	assert.True(t, log.Truncated())
	assert.Equal(t, 16, log.Len())
	assert.Equal(t, "\tabc\n\t0123456789", log.String())

	assert.False(t, log.Appendf("more %d", 1))
	assert.Equal(t, 16, log.Len())
}

func TestStatusAndKindStrings(t *testing.T) {
	assert.Equal(t, "bad size", fatvol.StatusBadSize.String())
	assert.Equal(t, "not formatted", fatvol.StatusNotFormatted.String())
	assert.Equal(t, "formatted", fatvol.StatusFormatted.String())
	assert.Equal(t, "folder", fatvol.KindFolder.String())
	assert.Equal(t, "file", fatvol.KindFile.String())
}
