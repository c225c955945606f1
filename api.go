package fatvol

import "fmt"

// ObjectKind selects the naming rules and on-disk attribute used when creating
// a directory entry.
type ObjectKind int

const (
	// KindFile is a regular file. Files get an 8.3 name and never own a data
	// cluster.
	KindFile ObjectKind = iota
	// KindFolder is a directory. Folder names are up to eight characters with
	// no extension, and each folder owns exactly one cluster.
	KindFolder
)

func (k ObjectKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	default:
		return fmt.Sprintf("ObjectKind(%d)", int(k))
	}
}

// FormatStatus is the outcome of checking a backing image against a volume
// profile.
type FormatStatus int

const (
	// StatusBadSize means the image is the wrong size or too small to hold a
	// boot sector. Nothing else about it matters.
	StatusBadSize FormatStatus = iota
	// StatusNotFormatted means the image has the right size but at least one
	// field disagrees with the profile.
	StatusNotFormatted
	// StatusFormatted means the image matches the profile exactly.
	StatusFormatted
)

func (s FormatStatus) String() string {
	switch s {
	case StatusBadSize:
		return "bad size"
	case StatusNotFormatted:
		return "not formatted"
	case StatusFormatted:
		return "formatted"
	default:
		return fmt.Sprintf("FormatStatus(%d)", int(s))
	}
}

//go:generate mockgen -destination=testing/mock_sink.go -package=testing github.com/xkubpise/fatvol DiagnosticSink

// DiagnosticSink receives human-readable lines describing problems found while
// checking a volume. Implementations may drop lines once they're full.
type DiagnosticSink interface {
	// Append adds one line to the sink. It returns false if the line (or part
	// of it) was dropped.
	Append(line string) bool
}
