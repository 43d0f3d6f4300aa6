// Package commodore defines the shared codec contract and error taxonomy
// used by the three format codecs (d64, g64, i64), per spec §7.
package commodore

import (
	"io"

	"github.com/pkg/errors"

	"commodoreconv/commodore/halftrack"
	"commodoreconv/diagnostic"
)

// Sentinel errors, compared with errors.Is after unwrapping.
var (
	// ErrUnsupportedSize is returned when a LOGICAL input's size does not
	// match any entry in the recognized-size table (spec §4.3).
	ErrUnsupportedSize = errors.New("unsupported image size")

	// ErrBadMagic is returned when a GCR input is missing the magic string.
	ErrBadMagic = errors.New("bad GCR magic")

	// ErrNonStandardSpeed is returned when encoding to LOGICAL from a
	// half-track whose zone differs from the default for that half-track.
	ErrNonStandardSpeed = errors.New("non-standard track speed")

	// ErrOutputExists is returned when the output path already exists.
	ErrOutputExists = errors.New("output already exists")

	// ErrInvariantViolation indicates an internal assertion failed on
	// encode (track too long, timing out of range, offset mismatch): it
	// signals input data that violates the target format's structural
	// limits, and is always fatal.
	ErrInvariantViolation = errors.New("invariant violation")
)

// Decoder turns a format's on-disk byte stream into the shared half-track
// model.
type Decoder interface {
	Decode(r io.ReadSeeker, log *diagnostic.Log) (*halftrack.Image, error)
}

// Encoder turns the shared half-track model into a format's on-disk byte
// stream.
type Encoder interface {
	Encode(img *halftrack.Image, w io.Writer, log *diagnostic.Log) error
}

// Codec is both directions of a format, as named in spec §2.
type Codec interface {
	Decoder
	Encoder
}
