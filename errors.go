package fatvol

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type DriverError interface {
	error
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
}

type baseVolumeError string

const rootError = baseVolumeError("")

var ErrArgumentOutOfRange = rootError.WithMessage("Numerical argument out of domain")
var ErrBusy = rootError.WithMessage("Device or resource busy")
var ErrExists = rootError.WithMessage("File exists")
var ErrFileSystemCorrupted = rootError.WithMessage("Structure needs cleaning")
var ErrInvalidArgument = rootError.WithMessage("Invalid argument")
var ErrInvalidFileSystem = rootError.WithMessage("Wrong medium type")
var ErrIOFailed = rootError.WithMessage("Input/output error")
var ErrNameTooLong = rootError.WithMessage("File name too long")
var ErrNoSpaceOnDevice = rootError.WithMessage("No space left on device")
var ErrNotADirectory = rootError.WithMessage("Not a directory")
var ErrNotFound = rootError.WithMessage("No such file or directory")
var ErrResultOutOfRange = rootError.WithMessage("Numerical result out of range")

func (e baseVolumeError) Error() string {
	return string(e)
}

func (e baseVolumeError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       message,
		originalError: e,
	}
}

func (e baseVolumeError) Wrap(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customDriverError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

// Wrap attaches `err` as a cause. Both the receiver and `err` remain visible to
// [errors.Is] and [errors.As].
func (e customDriverError) Wrap(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customDriverError) Unwrap() error {
	return e.originalError
}

// CastToDriverError converts `err` into a [DriverError]. Errors that already
// are one are returned unchanged; anything else is treated as an I/O failure.
// nil stays nil.
func CastToDriverError(err error) DriverError {
	if err == nil {
		return nil
	}
	if drvErr, ok := err.(DriverError); ok {
		return drvErr
	}
	return ErrIOFailed.Wrap(err)
}
