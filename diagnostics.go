package fatvol

import (
	"fmt"
	"strings"
)

// DefaultDiagnosticCapacity is the number of bytes a [DiagnosticLog] created
// with a non-positive capacity will hold.
const DefaultDiagnosticCapacity = 4 * 1024

// DiagnosticLog is a bounded, append-only text buffer implementing
// [DiagnosticSink]. Each line is stored with a leading tab and a trailing
// newline. When a line doesn't fit, as much of it as possible is kept and the
// rest (and every later line) is silently dropped.
type DiagnosticLog struct {
	capacity  int
	builder   strings.Builder
	truncated bool
}

// NewDiagnosticLog creates an empty log holding at most `capacity` bytes.
func NewDiagnosticLog(capacity int) *DiagnosticLog {
	if capacity <= 0 {
		capacity = DefaultDiagnosticCapacity
	}
	return &DiagnosticLog{capacity: capacity}
}

func (log *DiagnosticLog) Append(line string) bool {
	entry := "\t" + strings.TrimRight(line, "\n") + "\n"
	spaceLeft := log.capacity - log.builder.Len()
	if spaceLeft <= 0 {
		log.truncated = true
		return false
	}

	if len(entry) > spaceLeft {
		log.builder.WriteString(entry[:spaceLeft])
		log.truncated = true
		return false
	}
	log.builder.WriteString(entry)
	return true
}

// Appendf formats a line and appends it.
func (log *DiagnosticLog) Appendf(format string, args ...any) bool {
	return log.Append(fmt.Sprintf(format, args...))
}

// Truncated returns true if any line was dropped or cut short.
func (log *DiagnosticLog) Truncated() bool {
	return log.truncated
}

// Len returns the number of bytes currently held.
func (log *DiagnosticLog) Len() int {
	return log.builder.Len()
}

func (log *DiagnosticLog) String() string {
	return log.builder.String()
}
