package d64

import (
	"io"

	"github.com/pkg/errors"

	"commodoreconv/commodore"
	"commodoreconv/commodore/bitstream"
	"commodoreconv/commodore/gcr"
	"commodoreconv/commodore/halftrack"
	"commodoreconv/diagnostic"
)

var emptyBlock = make([]byte, sectorSize)

// outputTrackCount chooses the standard tier (35/40/42) that covers every
// even half-track actually present in img, so re-encoding a standard
// 35-track LOGICAL image round-trips to the same size instead of always
// emitting the maximum 42-track layout.
func outputTrackCount(img *halftrack.Image) int {
	maxTrack := 0
	for t := 1; t <= 42; t++ {
		if _, ok := img.Get(2 * (t - 1)); ok {
			maxTrack = t
		}
	}
	for _, tier := range [...]int{35, 40, 42} {
		if maxTrack <= tier {
			return tier
		}
	}
	return 42
}

// Encode reconstructs a LOGICAL sector image from a half-track GCR model
// (spec §4.3.2). Odd half-tracks are never consulted: the logical format
// has no representation for half-step positions.
func (Codec) Encode(img *halftrack.Image, w io.Writer, log *diagnostic.Log) error {
	trackCount := outputTrackCount(img)

	for t := 1; t <= trackCount; t++ {
		h := 2 * (t - 1)
		track, present := img.Get(h)
		if !present {
			if _, err := w.Write(make([]byte, sectorSize*sectorCount(t))); err != nil {
				return errors.Wrapf(err, "d64: writing blank track %d", t)
			}
			continue
		}

		defaultZone, _ := halftrack.DefaultZone(h)
		if track.Speed != defaultZone {
			return errors.Wrapf(commodore.ErrNonStandardSpeed, "d64: half-track %d speed %d, standard is %d", h, track.Speed, defaultZone)
		}

		out, err := decodeTrack(track.Data, t, log)
		if err != nil {
			return errors.Wrapf(err, "d64: decoding track %d", t)
		}
		if _, err := w.Write(out); err != nil {
			return errors.Wrapf(err, "d64: writing track %d", t)
		}
	}
	return nil
}

// decodeTrack recovers a single logical track's sector bytes from its raw
// GCR bitstream.
func decodeTrack(trackData []byte, t int, log *diagnostic.Log) ([]byte, error) {
	blank := func() []byte { return make([]byte, sectorSize*sectorCount(t)) }

	stripped := stripTrailing(trackData, 0x00)
	bits := bitstream.ToBits(stripped)
	rotated, found := bitstream.RotateToFirstSync(bits)
	if !found {
		if log != nil {
			log.Warnf("half-track %d: no sync mark, assuming empty", 2*(t-1))
		}
		return blank(), nil
	}

	var chunks [][]byte
	for _, frag := range bitstream.SplitOnSync(rotated) {
		decoded := gcr.DecodeLenient(bitstream.ToBytes(frag))
		if len(decoded) == 0 {
			continue
		}
		chunks = append(chunks, decoded)
	}
	if len(chunks) == 0 {
		if log != nil {
			log.Warnf("half-track %d: no valid block found, assuming empty", 2*(t-1))
		}
		return blank(), nil
	}

	if chunks[0][0] == 0x07 {
		chunks = append(chunks[1:], chunks[0])
	}

	type bucket struct {
		candidates map[int][][]byte
	}
	buckets := make(map[[2]byte]*bucket)
	var order [][2]byte

	i := 0
	for i < len(chunks) {
		header := chunks[i]
		i++

		stripped := stripTrailing(header, 0x0f)
		if len(stripped) < 6 || stripped[0] != 0x08 {
			if log != nil {
				log.Warnf("half-track %d: not a (complete) block header", 2*(t-1))
			}
			continue
		}
		checksum, sector, headerTrack, id0, id1 := stripped[1], stripped[2], stripped[3], stripped[4], stripped[5]
		if int(headerTrack) != t {
			if log != nil {
				log.Warnf("half-track %d: header claims track %d, expected %d", 2*(t-1), headerTrack, t)
			}
			continue
		}
		if checksum != (sector ^ headerTrack ^ id0 ^ id1) {
			if log != nil {
				log.Warnf("half-track %d: bad header checksum", 2*(t-1))
			}
			continue
		}

		if i >= len(chunks) {
			if log != nil {
				log.Warnf("half-track %d: header with no following data block", 2*(t-1))
			}
			continue
		}
		data := chunks[i]
		i++
		if len(data) < 258 || data[0] != 0x07 {
			if log != nil {
				log.Warnf("half-track %d: not a (complete) data block", 2*(t-1))
			}
			continue
		}
		sum := byte(0)
		for _, b := range data[1:257] {
			sum ^= b
		}
		if sum != data[257] {
			if log != nil {
				log.Warnf("half-track %d: bad data checksum", 2*(t-1))
			}
			continue
		}

		key := [2]byte{id0, id1}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{candidates: make(map[int][][]byte)}
			buckets[key] = b
			order = append(order, key)
		}
		b.candidates[int(sector)] = append(b.candidates[int(sector)], append([]byte(nil), data[1:257]...))
	}

	if len(buckets) == 0 {
		if log != nil {
			log.Warnf("half-track %d: no valid block found, assuming empty", 2*(t-1))
		}
		return blank(), nil
	}

	bestCount := -1
	var bestKey [2]byte
	for _, key := range order {
		cnt := len(buckets[key].candidates)
		if cnt > bestCount {
			bestCount = cnt
			bestKey = key
		}
	}
	selected := buckets[bestKey].candidates

	out := make([]byte, 0, sectorSize*sectorCount(t))
	for s := 0; s < sectorCount(t); s++ {
		candidates := selected[s]
		if len(candidates) == 1 {
			out = append(out, candidates[0]...)
		} else {
			out = append(out, emptyBlock...)
		}
	}
	return out, nil
}

func stripTrailing(data []byte, b byte) []byte {
	i := len(data)
	for i > 0 && data[i-1] == b {
		i--
	}
	return data[:i]
}
