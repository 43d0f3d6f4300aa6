package halftrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_DefaultZone_Boundaries(t *testing.T) {
	cases := []struct {
		halfTrack int
		zone      int
	}{
		{0, 3}, {33, 3},
		{34, 2}, {47, 2},
		{48, 1}, {59, 1},
		{60, 0}, {83, 0},
	}
	for _, c := range cases {
		zone, ok := DefaultZone(c.halfTrack)
		assert.True(t, ok)
		assert.Equalf(t, c.zone, zone, "half-track %d", c.halfTrack)
	}
}

func Test_DefaultZone_OutOfRange(t *testing.T) {
	_, ok := DefaultZone(-1)
	assert.False(t, ok)
	_, ok = DefaultZone(SideTrackCount)
	assert.False(t, ok)
}

func Test_Image_GetSet(t *testing.T) {
	img := New()
	_, ok := img.Get(10)
	assert.False(t, ok)

	img.Set(10, []byte{1, 2, 3}, 2)
	track, ok := img.Get(10)
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, track.Data)
	assert.Equal(t, 2, track.Speed)
}

func Test_Capacity_MatchesZoneTable(t *testing.T) {
	for zone, length := range ZoneByteLength {
		assert.Equal(t, length, Capacity(zone))
	}
}
