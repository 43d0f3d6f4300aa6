// Package d64 implements the LOGICAL sector image codec (spec §4.3): a
// fixed flat concatenation of 256-byte sectors, optionally followed by a
// per-sector error-status byte block, mediated through GCR-encoded sync
// marks, header blocks and data blocks on the half-track side. Handles
// both the .d64 and .d71 extensions (spec §4.4): a .d71 image is simply
// two concatenated 35-track sides, and only the first side is kept (see
// the double-sided Non-goal in spec §1).
package d64

// Error-status codes a sector can carry in an extended LOGICAL image.
const (
	StatusOK         = 0
	StatusNoHeader   = 20
	StatusNoSync     = 21
	StatusNoData     = 22
	StatusBadData    = 23
	StatusBadHeader  = 27
	StatusIDMismatch = 29
)

const (
	diskIDOffset = 0x165a2
	sectorSize   = 256

	gcrSync = "\xff\xff\xff\xff\xff" // 5 bytes = 40 consecutive 1 bits
	gcrGap  = 0x55
)

// sectorCount returns the number of 256-byte sectors on logical track t
// (1-based, 1..42).
func sectorCount(t int) int {
	switch {
	case t <= 17:
		return 21
	case t <= 24:
		return 19
	case t <= 30:
		return 18
	default:
		return 17
	}
}

// postDataGap returns the number of 0x55 gap bytes following each sector's
// data block on logical track t.
func postDataGap(t int) int {
	switch {
	case t <= 17:
		return 8
	case t <= 24:
		return 17
	case t <= 30:
		return 12
	default:
		return 9
	}
}

// sizeLayout describes one recognized LOGICAL image size (spec §4.3).
type sizeLayout struct {
	trackCount    int
	hasErrorBlock bool
}

var sizeTable = map[int64]sizeLayout{
	174848: {35, false},
	175531: {35, true},
	196608: {40, false},
	197376: {40, true},
	205312: {42, false},
	206114: {42, true},
	349696: {70, false}, // two-sided (D71): truncated to 35, warn
	351062: {70, true},
}

// dataSize returns the byte length of the sector-data region for a nominal
// track count, i.e. the offset at which an error-status block (if any)
// begins.
func dataSize(trackCount int) int64 {
	var total int64
	if trackCount > 42 {
		// Two-sided images are two concatenated 35-track sides; the table
		// above only ever pairs trackCount==70 with this case.
		total = 2 * trackSpanSize(35)
	} else {
		total = trackSpanSize(trackCount)
	}
	return total
}

func trackSpanSize(trackCount int) int64 {
	var n int64
	for t := 1; t <= trackCount; t++ {
		n += int64(sectorCount(t))
	}
	return n * sectorSize
}

// sectorCountAt returns the sector count for track index i (0-based) out of
// trackCount nominal tracks, wrapping every 35 tracks for two-sided images.
func sectorCountAt(i, trackCount int) int {
	if trackCount > 42 {
		return sectorCount((i % 35) + 1)
	}
	return sectorCount(i + 1)
}

// Codec implements commodore.Codec for the LOGICAL (.d64/.d71) format.
type Codec struct{}
