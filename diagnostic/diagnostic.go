// Package diagnostic routes the non-fatal warnings codecs emit when they
// fall back to a documented lossy behavior (missing sync mark, mixed
// NO_SYNC statuses, bad checksums, and so on) to a diagnostic stream,
// per spec §7. Conversion always continues after a warning.
package diagnostic

import (
	"fmt"
	"io"
	"os"
)

// Log collects warnings as they happen and mirrors each one to an output
// stream (normally os.Stderr). Tests construct a Log with a buffer instead,
// so they can assert on warning occurrence rather than just on fallback
// output content.
type Log struct {
	out      io.Writer
	Warnings []string
}

// New returns a Log writing to out. A nil out disables mirroring but still
// records warnings.
func New(out io.Writer) *Log {
	return &Log{out: out}
}

// Warnf records a formatted warning and writes it to the diagnostic stream.
func (l *Log) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.Warnings = append(l.Warnings, msg)
	if l.out != nil {
		fmt.Fprintf(l.out, "warning: %s\n", msg)
	}
}

// Discard is a Log that still records warnings but writes them nowhere;
// useful as a zero-value-safe default for codec constructors that don't need to surface
// warnings (e.g. round-trip tests exercising only the happy path).
func Discard() *Log {
	return New(nil)
}

// Stderr is the default diagnostic stream for CLI use.
func Stderr() *Log {
	return New(os.Stderr)
}
