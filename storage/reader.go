// Package storage provides the byte-stream contract shared by every disk
// image codec: sequential read, absolute seek, and size/position query,
// wrapped around whatever io.ReadSeeker or io.Writer the caller opened.
package storage

import (
	"io"

	"github.com/pkg/errors"
)

// Reader wraps an io.ReadSeeker, forwarding Read and Seek directly so it
// satisfies io.ReadSeeker itself (codecs can pass it straight through, or
// hand it to encoding/binary.Read), while adding the small conveniences
// codecs otherwise repeat: whole-buffer reads and a position/size query.
type Reader struct {
	r io.ReadSeeker
}

func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

func (r *Reader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	return r.r.Seek(offset, whence)
}

// ReadByte reads and returns a single byte.
func (r *Reader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBytes reads exactly n bytes, failing if the stream is short.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, errors.Wrapf(err, "reading %d bytes", n)
	}
	return buf, nil
}

// Pos returns the current absolute offset.
func (r *Reader) Pos() (int64, error) {
	return r.r.Seek(0, io.SeekCurrent)
}

// Len returns the total size of the stream, restoring the current position.
func (r *Reader) Len() (int64, error) {
	cur, err := r.Pos()
	if err != nil {
		return 0, err
	}
	end, err := r.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.r.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}
