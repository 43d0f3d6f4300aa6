package storage

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Reader_ReadByte_ReadBytes(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04}))

	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b)

	rest, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x03, 0x04}, rest)
}

func Test_Reader_PosAndLen(t *testing.T) {
	r := NewReader(bytes.NewReader(make([]byte, 10)))

	length, err := r.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(10), length)

	_, err = r.ReadBytes(4)
	require.NoError(t, err)

	pos, err := r.Pos()
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)

	// Len must restore the original position.
	_, err = r.Len()
	require.NoError(t, err)
	pos, err = r.Pos()
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)
}

func Test_Reader_SatisfiesIoReadSeeker(t *testing.T) {
	var _ io.ReadSeeker = NewReader(bytes.NewReader(nil))
}

func Test_Writer_TracksPosition(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	n, err := w.Write([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(3), w.Pos())

	_, err = w.Write([]byte{0x04})
	require.NoError(t, err)
	assert.Equal(t, int64(4), w.Pos())
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf.Bytes())
}
