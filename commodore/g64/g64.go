// Package g64 implements the GCR half-track image codec (spec §6.3): a
// variable-offset binary layout carrying raw GCR bitstreams for up to 84
// half-tracks, each with an independent data offset and a per-track (or,
// legacy, per-byte) speed zone.
package g64

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"commodoreconv/commodore"
	"commodoreconv/commodore/halftrack"
	"commodoreconv/diagnostic"
)

const (
	magic             = "GCR-1541\x00"
	writeMaxTrackLen  = 7928
	writeTrackCount   = halftrack.SideTrackCount
	trackOffsetHeader = 2 // length-prefix bytes before each track's GCR data
)

// Codec implements commodore.Codec for the GCR (.g64) format.
type Codec struct{}

// Decode parses the magic, track-count, per-track data offsets and per-track
// speed fields, then reads each present track's length-prefixed GCR data.
// A speed field that is an absolute offset (rather than a literal 0..3
// zone) points at a packed 2-bit-per-byte legacy speed table; if that table
// shows more than one zone, the track is assigned its maximum zone and a
// warning is logged (spec §6.3, §7).
func (Codec) Decode(r io.ReadSeeker, log *diagnostic.Log) (*halftrack.Image, error) {
	magicBuf := make([]byte, len(magic))
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return nil, errors.Wrap(err, "g64: reading magic")
	}
	if string(magicBuf) != magic {
		return nil, errors.Wrapf(commodore.ErrBadMagic, "g64: got %q", magicBuf)
	}

	var header [3]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.Wrap(err, "g64: reading track count / max track length")
	}
	trackCount := int(header[0])
	maxTrackLength := int(binary.LittleEndian.Uint16(header[1:3]))

	dataOffsets := make([]uint32, trackCount)
	speedFields := make([]uint32, trackCount)
	for i := range dataOffsets {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, errors.Wrapf(err, "g64: reading data offset %d", i)
		}
		dataOffsets[i] = binary.LittleEndian.Uint32(buf[:])
	}
	for i := range speedFields {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, errors.Wrapf(err, "g64: reading speed field %d", i)
		}
		speedFields[i] = binary.LittleEndian.Uint32(buf[:])
	}

	img := halftrack.New()
	trackLengths := make([]int, trackCount)
	for h, offset := range dataOffsets {
		if offset == 0 {
			continue
		}
		if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
			return nil, errors.Wrapf(err, "g64: seeking to half-track %d data", h)
		}
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, errors.Wrapf(err, "g64: reading half-track %d length", h)
		}
		trackLength := int(binary.LittleEndian.Uint16(lenBuf[:]))
		if trackLength > maxTrackLength {
			return nil, errors.Errorf("g64: half-track %d length %d exceeds max %d", h, trackLength, maxTrackLength)
		}
		data := make([]byte, trackLength)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, errors.Wrapf(err, "g64: reading half-track %d data", h)
		}
		trackLengths[h] = trackLength
		img.Set(h, data, 0) // speed filled in below
	}

	for h, speedOffset := range speedFields {
		trackLength := trackLengths[h]
		if trackLength == 0 {
			continue
		}
		var speed int
		if speedOffset <= 3 {
			speed = int(speedOffset)
		} else {
			var err error
			speed, err = readPackedSpeed(r, int64(speedOffset), trackLength, log, h)
			if err != nil {
				return nil, err
			}
		}
		t, _ := img.Get(h)
		t.Speed = speed
		img.Tracks[h] = t
	}

	return img, nil
}

// readPackedSpeed reads the legacy 2-bit-per-byte speed table (one entry
// per GCR data byte, MSB-aligned within each speed byte) and returns the
// maximum zone present, warning if more than one zone is used.
func readPackedSpeed(r io.ReadSeeker, offset int64, trackLength int, log *diagnostic.Log, halfTrack int) (int, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0, errors.Wrapf(err, "g64: seeking to half-track %d speed table", halfTrack)
	}
	speedBytes := make([]byte, (trackLength+3)/4)
	if _, err := io.ReadFull(r, speedBytes); err != nil {
		return 0, errors.Wrapf(err, "g64: reading half-track %d speed table", halfTrack)
	}
	seen := make(map[int]bool)
	max := 0
	for i := 0; i < trackLength; i++ {
		byteIndex, shift := i/4, i%4
		speed := int((speedBytes[byteIndex] >> (6 - shift*2)) & 0x3)
		if !seen[speed] {
			seen[speed] = true
			if speed > max {
				max = speed
			}
		}
	}
	if len(seen) > 1 {
		if log != nil {
			log.Warnf("half-track %d: multiple speeds used in legacy table, using max", halfTrack)
		}
	}
	return max, nil
}

// Encode writes the magic, the (trackCount, maxTrackLength) header, the
// track-data-offset and speed tables, then each track's length-prefixed GCR
// data, padded with 0x55 (already valid GCR, unlike 0x00) up to
// writeMaxTrackLen. Per-track speed tables are never emitted on encode: the
// speed field is always the literal zone integer.
func (Codec) Encode(img *halftrack.Image, w io.Writer, log *diagnostic.Log) error {
	var tracks []struct {
		half int
		data []byte
	}
	for h := 0; h < writeTrackCount; h++ {
		if t, ok := img.Get(h); ok {
			if len(t.Data) > writeMaxTrackLen {
				return errors.Wrapf(commodore.ErrInvariantViolation, "g64: half-track %d length %d exceeds max %d", h, len(t.Data), writeMaxTrackLen)
			}
			tracks = append(tracks, struct {
				half int
				data []byte
			}{h, t.Data})
		}
	}

	baseOffset := int64(len(magic) + 3 + 4*2*writeTrackCount)
	offsets := make([]uint32, writeTrackCount)
	speeds := make([]uint32, writeTrackCount)
	current := baseOffset
	trackSet := make(map[int][]byte, len(tracks))
	for _, t := range tracks {
		trackSet[t.half] = t.data
	}
	for h := 0; h < writeTrackCount; h++ {
		if _, ok := trackSet[h]; ok {
			offsets[h] = uint32(current)
			current += int64(writeMaxTrackLen) + trackOffsetHeader
			track, _ := img.Get(h)
			speeds[h] = uint32(track.Speed)
		}
	}

	var buf []byte
	buf = append(buf, []byte(magic)...)
	buf = append(buf, byte(writeTrackCount))
	var lenField [2]byte
	binary.LittleEndian.PutUint16(lenField[:], writeMaxTrackLen)
	buf = append(buf, lenField[:]...)
	for _, off := range offsets {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], off)
		buf = append(buf, b[:]...)
	}
	for _, sp := range speeds {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], sp)
		buf = append(buf, b[:]...)
	}
	if int64(len(buf)) != baseOffset {
		return errors.Wrapf(commodore.ErrInvariantViolation, "g64: header size mismatch: wrote %d, expected %d", len(buf), baseOffset)
	}

	for h := 0; h < writeTrackCount; h++ {
		data, ok := trackSet[h]
		if !ok {
			continue
		}
		if int64(offsets[h]) != int64(len(buf)) {
			return errors.Wrapf(commodore.ErrInvariantViolation, "g64: half-track %d offset mismatch: wrote %d, expected %d", h, len(buf), offsets[h])
		}
		var lb [2]byte
		binary.LittleEndian.PutUint16(lb[:], uint16(len(data)))
		buf = append(buf, lb[:]...)
		buf = append(buf, data...)
		if len(data) < writeMaxTrackLen {
			buf = append(buf, paddingBytes(writeMaxTrackLen-len(data))...)
		}
	}

	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "g64: writing image")
	}
	return nil
}

func paddingBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0x55
	}
	return b
}
