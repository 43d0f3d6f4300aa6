// Package i64 implements the FLUX-timing half-track codec (spec §4.2): raw
// GCR payloads for up to 84 half-tracks, plus fixed-point timing metadata
// sufficient to reconstruct bit-cell timing behavior on replay.
package i64

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"commodoreconv/commodore"
	"commodoreconv/commodore/halftrack"
	"commodoreconv/diagnostic"
)

const (
	// TrackLength is the fixed per-track payload size: 2^ceil(log2(7692)).
	TrackLength = 0x2000

	metadataBlockOffset = TrackLength * halftrack.SideTrackCount
	fileSize            = metadataBlockOffset + 0x400
)

// Drive-design constants the 9602 monostable time-domain filter is built
// from (Fairchild 9602 datasheet page 5, figure 6). These only exist to
// derive filterPulseWidthCycles below; nothing else in this package uses
// them directly.
const (
	baseClockFrequencyHz = 16e6
	filterResistorKOhm   = 22   // +/- 5%
	filterCapacitorPF    = 330  // +/- 5%
	filterK              = 0.37 // from Fairchild 9602 datasheet
)

// filterPulseWidthCycles is the hardware time-domain-filter pulse width, in
// 16MHz clock cycles: must be longer than a "1" bit-cell and shorter than a
// "0" bit-cell at every speed zone, so the filter can tell flux-change
// timing from a timeout. Typical component values put it around 45 cycles;
// this computes the ~44.88-45 figure from the same constants the circuit
// was built from rather than hardcoding the result.
var filterPulseWidthCycles = func() float64 {
	pulseWidthNs := filterK * filterResistorKOhm * filterCapacitorPF * (1 + 1/float64(filterResistorKOhm))
	return baseClockFrequencyHz * pulseWidthNs * 1e-9
}()

// oneShiftClockCycleCount / zeroShiftClockCycleCount: at the slowest speed
// (zone 0), it takes 32 clock cycles to shift a "1" and 64 to shift a "0" -
// a magnetic head only reads flux changes (a "1"), so absence of one is
// handled as a timeout, twice as long in this drive's design.
const (
	oneShiftClockCycleCount  = 32
	zeroShiftClockCycleCount = 64
)

// standardOneDelay / standardZeroDelay: (16-zone) * 2 / * 4 respectively -
// the number of 16MHz pulses needed to overflow the UE6 counter for that
// speed zone, times 2 cycles per UF4 bit clock-in/out.
var standardOneDelay = [4]int{32, 30, 28, 26}
var standardZeroDelay = [4]int{64, 60, 56, 52}

func init() {
	if !(oneShiftClockCycleCount < filterPulseWidthCycles && filterPulseWidthCycles < zeroShiftClockCycleCount) {
		panic(errors.Errorf("i64: time-domain filter pulse width %f cycles out of range", filterPulseWidthCycles))
	}
}

type metadataRecord struct {
	SpeedAndClockInt byte
	ClockFrac        byte
	TrackLength      uint16
	PrevLengthRatio  uint16
	NextLengthRatio  uint16
}

// Codec implements commodore.Codec for the FLUX (.i64) format.
type Codec struct{}

// Decode reads the 84 fixed-size metadata records followed by 84 raw
// 8192-byte track payloads. A track whose payload is entirely zero is
// treated as absent.
func (Codec) Decode(r io.ReadSeeker, log *diagnostic.Log) (*halftrack.Image, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "i64: measuring input size")
	}
	if size != fileSize {
		return nil, errors.Wrapf(commodore.ErrUnsupportedSize, "i64: size %d, expected %d", size, fileSize)
	}

	if _, err := r.Seek(metadataBlockOffset, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "i64: seeking to metadata block")
	}
	records := make([]metadataRecord, halftrack.SideTrackCount)
	for i := range records {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, errors.Wrapf(err, "i64: reading metadata record %d", i)
		}
		records[i] = metadataRecord{
			SpeedAndClockInt: buf[0],
			ClockFrac:        buf[1],
			TrackLength:      binary.BigEndian.Uint16(buf[2:4]),
			PrevLengthRatio:  binary.BigEndian.Uint16(buf[4:6]),
			NextLengthRatio:  binary.BigEndian.Uint16(buf[6:8]),
		}
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "i64: rewinding to track data")
	}
	img := halftrack.New()
	for h, rec := range records {
		buf := make([]byte, TrackLength)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrapf(err, "i64: reading half-track %d", h)
		}
		if isBlank(buf) {
			continue
		}
		speed := int(rec.SpeedAndClockInt >> 6)
		length := int(rec.TrackLength)
		if length > len(buf) {
			length = len(buf)
		}
		img.Set(h, append([]byte(nil), buf[:length]...), speed)
	}
	return img, nil
}

func isBlank(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// Encode writes the fixed FLUX layout: 84 track payloads followed by the
// metadata block, computing clock timing and length-ratio metadata per spec
// §4.2 from each half-track's speed zone: the track's own recorded zone when
// it is present, the default zone from the speed-zone table when it is absent.
func (Codec) Encode(img *halftrack.Image, w io.Writer, log *diagnostic.Log) error {
	var records []metadataRecord
	var out []byte

	var previousLength int
	haveLength := false

	for h := 0; h < halftrack.SideTrackCount; h++ {
		track, present := img.Get(h)
		var trackLength int
		var payload []byte
		speed, _ := halftrack.DefaultZone(h)
		if present {
			speed = track.Speed
			trackLength = len(track.Data)
			if trackLength > TrackLength {
				return errors.Wrapf(commodore.ErrInvariantViolation, "i64: half-track %d length %d exceeds %d", h, trackLength, TrackLength)
			}
			payload = track.Data
		} else {
			if haveLength {
				trackLength = previousLength
			} else {
				trackLength = TrackLength
			}
			payload = nil
		}

		delay := float64(halftrack.Capacity(speed)) / float64(trackLength) * float64(standardZeroDelay[speed])
		if !(filterPulseWidthCycles < delay && delay < float64(standardOneDelay[speed]+standardZeroDelay[speed])) {
			return errors.Wrapf(commodore.ErrInvariantViolation, "i64: half-track %d delay %f out of range", h, delay)
		}
		delayInt := math.Floor(delay)
		delayFrac := delay - delayInt

		clockInt := int(delayInt)
		if clockInt < 32 || clockInt > 95 {
			return errors.Wrapf(commodore.ErrInvariantViolation, "i64: half-track %d clock integer %d out of [32,95]", h, clockInt)
		}

		if !haveLength {
			previousLength = trackLength
			haveLength = true
		}
		prevRatio := round(float64(previousLength) / float64(trackLength) * 32768)

		var nextLength int
		if nextTrack, ok := img.Get(h + 1); ok {
			nextLength = len(nextTrack.Data)
		} else {
			nextLength = trackLength
		}
		nextRatio := round(float64(nextLength) / float64(trackLength) * 32768)

		records = append(records, metadataRecord{
			SpeedAndClockInt: byte(speed<<6) | byte(clockInt-32),
			ClockFrac:        byte(delayFrac * 256),
			TrackLength:      uint16(trackLength),
			PrevLengthRatio:  uint16(prevRatio),
			NextLengthRatio:  uint16(nextRatio),
		})

		out = append(out, payload...)
		out = append(out, make([]byte, TrackLength-len(payload))...)

		previousLength = trackLength
	}

	if _, err := w.Write(out); err != nil {
		return errors.Wrap(err, "i64: writing track data")
	}

	metaBuf := make([]byte, 0, halftrack.SideTrackCount*8)
	for _, rec := range records {
		var buf [8]byte
		buf[0] = rec.SpeedAndClockInt
		buf[1] = rec.ClockFrac
		binary.BigEndian.PutUint16(buf[2:4], rec.TrackLength)
		binary.BigEndian.PutUint16(buf[4:6], rec.PrevLengthRatio)
		binary.BigEndian.PutUint16(buf[6:8], rec.NextLengthRatio)
		metaBuf = append(metaBuf, buf[:]...)
	}
	metaBuf = append(metaBuf, make([]byte, 0x400-len(metaBuf))...)
	if _, err := w.Write(metaBuf); err != nil {
		return errors.Wrap(err, "i64: writing metadata block")
	}
	return nil
}

func round(f float64) int {
	return int(math.Floor(f + 0.5))
}
