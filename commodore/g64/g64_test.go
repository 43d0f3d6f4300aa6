package g64

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

func Test_Encode_Decode_RoundTrip(t *testing.T) {
	img := halftrack.New()
	img.Set(0, bytes.Repeat([]byte{0x55, 0xaa}, 100), 3)
	img.Set(2, bytes.Repeat([]byte{0x12, 0x34, 0x56}, 50), 2)

	var buf bytes.Buffer
	require.NoError(t, Codec{}.Encode(img, &buf, diagnostic.Discard()))

	got, err := Codec{}.Decode(bytes.NewReader(buf.Bytes()), diagnostic.Discard())
	require.NoError(t, err)

	for _, h := range []int{0, 2} {
		want, _ := img.Get(h)
		track, ok := got.Get(h)
		require.True(t, ok)
		assert.Equal(t, want.Data, track.Data)
		assert.Equal(t, want.Speed, track.Speed)
	}

	_, ok := got.Get(4)
	assert.False(t, ok)
}

func Test_Decode_RejectsBadMagic(t *testing.T) {
	_, err := Codec{}.Decode(bytes.NewReader(make([]byte, 20)), diagnostic.Discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, commodore.ErrBadMagic))
}

func Test_Encode_RejectsOversizedTrack(t *testing.T) {
	img := halftrack.New()
	img.Set(0, make([]byte, writeMaxTrackLen+1), 0)

	var buf bytes.Buffer
	err := Codec{}.Encode(img, &buf, diagnostic.Discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, commodore.ErrInvariantViolation))
}

func Test_Decode_LegacyPackedSpeedTable_UsesMax(t *testing.T) {
	img := halftrack.New()
	img.Set(0, bytes.Repeat([]byte{0x01}, 8), 0)

	var buf bytes.Buffer
	require.NoError(t, Codec{}.Encode(img, &buf, diagnostic.Discard()))

	// Overwrite half-track 0's speed field with an absolute offset pointing
	// past the track data, and write a packed 2-bit-per-byte table there
	// (one byte per 4 GCR bytes; track 0 is 8 bytes long) containing zones
	// 1 and 3 so decode must report the maximum, zone 3.
	out := buf.Bytes()
	speedTableOffset := int64(len(out))
	packed := []byte{0b01_11_01_11, 0b01_11_01_11}
	out = append(out, packed...)

	speedFieldOffset := int64(len(magic) + 3 + 4*writeTrackCount)
	var off [4]byte
	putUint32LE(off[:], uint32(speedTableOffset))
	copy(out[speedFieldOffset:speedFieldOffset+4], off[:])

	log := diagnostic.New(nil)
	got, err := Codec{}.Decode(bytes.NewReader(out), log)
	require.NoError(t, err)

	track, ok := got.Get(0)
	require.True(t, ok)
	assert.Equal(t, 3, track.Speed)
	assert.NotEmpty(t, log.Warnings)
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
