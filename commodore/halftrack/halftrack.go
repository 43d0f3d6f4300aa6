// Package halftrack implements the shared domain object every codec
// decodes into and encodes from: a sparse map from half-track number to its
// raw GCR bytes and speed zone, plus the default speed-zone table derived
// from the drive's physical geometry (spec §3).
package halftrack

// SideTrackCount is the number of half-tracks a single-sided 5.25" image
// can hold (84 half-tracks = 42 physical tracks).
const SideTrackCount = 84

// ZoneByteLength maps a speed zone (0..3) to its canonical byte-per-track
// capacity. Zone 3 is fastest/outer, zone 0 slowest/inner.
var ZoneByteLength = [4]int{6250, 6666, 7142, 7692}

// defaultSpeed assigns zone 3 to half-tracks 0..33 (logical tracks 1..17),
// zone 2 to 34..47 (18..24), zone 1 to 48..59 (25..30), zone 0 to 60..83
// (31..42).
var defaultSpeed = func() [SideTrackCount]int {
	var zones [SideTrackCount]int
	for h := 0; h < SideTrackCount; h++ {
		switch {
		case h < 34:
			zones[h] = 3
		case h < 48:
			zones[h] = 2
		case h < 60:
			zones[h] = 1
		default:
			zones[h] = 0
		}
	}
	return zones
}()

// DefaultZone returns the standard speed zone for a half-track number.
// The second return value is false if halfTrack is out of range.
func DefaultZone(halfTrack int) (int, bool) {
	if halfTrack < 0 || halfTrack >= SideTrackCount {
		return 0, false
	}
	return defaultSpeed[halfTrack], true
}

// Track is one half-track's raw GCR payload and the speed zone it was
// recorded at.
type Track struct {
	Data  []byte
	Speed int
}

// Image is the sparse half-track model shared by all three codecs. Absence
// of a key means the half-track is blank. An Image is constructed once by a
// decode and consumed once by an encode; it exclusively owns its track
// buffers.
type Image struct {
	Tracks map[int]Track
}

// New returns an empty Image.
func New() *Image {
	return &Image{Tracks: make(map[int]Track)}
}

// Get returns the track at halfTrack and whether it is present.
func (img *Image) Get(halfTrack int) (Track, bool) {
	t, ok := img.Tracks[halfTrack]
	return t, ok
}

// Set stores a half-track's data and speed zone.
func (img *Image) Set(halfTrack int, data []byte, speed int) {
	img.Tracks[halfTrack] = Track{Data: data, Speed: speed}
}

// Capacity returns the canonical byte capacity for a speed zone.
func Capacity(speed int) int {
	return ZoneByteLength[speed]
}
