package i64

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commodoreconv/commodore"
	"commodoreconv/commodore/halftrack"
	"commodoreconv/diagnostic"
)

func fillTrack(h int) []byte {
	speed, _ := halftrack.DefaultZone(h)
	data := make([]byte, halftrack.Capacity(speed))
	for i := range data {
		data[i] = byte(0xaa ^ i)
	}
	return data
}

func Test_Encode_Decode_RoundTrip(t *testing.T) {
	img := halftrack.New()
	for _, h := range []int{0, 20, 60} {
		speed, _ := halftrack.DefaultZone(h)
		img.Set(h, fillTrack(h), speed)
	}

	var buf bytes.Buffer
	require.NoError(t, Codec{}.Encode(img, &buf, diagnostic.Discard()))
	assert.Equal(t, int64(fileSize), int64(buf.Len()))

	got, err := Codec{}.Decode(bytes.NewReader(buf.Bytes()), diagnostic.Discard())
	require.NoError(t, err)

	for _, h := range []int{0, 20, 60} {
		want, ok := img.Get(h)
		require.True(t, ok)
		track, ok := got.Get(h)
		require.True(t, ok, "half-track %d missing after round-trip", h)
		assert.Equal(t, want.Data, track.Data)
		assert.Equal(t, want.Speed, track.Speed)
	}

	for h := 1; h < halftrack.SideTrackCount; h++ {
		switch h {
		case 0, 20, 60:
			continue
		}
		_, ok := got.Get(h)
		assert.False(t, ok, "half-track %d should be absent", h)
	}
}

func Test_Decode_RejectsWrongSize(t *testing.T) {
	_, err := Codec{}.Decode(bytes.NewReader(make([]byte, 100)), diagnostic.Discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, commodore.ErrUnsupportedSize))
}

func Test_Encode_RejectsOversizedTrack(t *testing.T) {
	img := halftrack.New()
	img.Set(0, make([]byte, TrackLength+1), 3)

	var buf bytes.Buffer
	err := Codec{}.Encode(img, &buf, diagnostic.Discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, commodore.ErrInvariantViolation))
}
