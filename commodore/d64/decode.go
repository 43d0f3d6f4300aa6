package d64

import (
	"io"

	"github.com/pkg/errors"

	"commodoreconv/commodore"
	"commodoreconv/commodore/gcr"
	"commodoreconv/commodore/halftrack"
	"commodoreconv/diagnostic"
)

// Decode reads a LOGICAL sector image and assembles each track's GCR
// bitstream: sync marks, header and data blocks (with their checksums and
// error-status injection), and inter-block gaps (spec §4.3.1).
func (Codec) Decode(r io.ReadSeeker, log *diagnostic.Log) (*halftrack.Image, error) {
	size, err := streamLen(r)
	if err != nil {
		return nil, errors.Wrap(err, "d64: measuring input size")
	}
	layout, ok := sizeTable[size]
	if !ok {
		return nil, errors.Wrapf(commodore.ErrUnsupportedSize, "d64: size %d", size)
	}

	id0, id1, err := readDiskID(r)
	if err != nil {
		return nil, errors.Wrap(err, "d64: reading disk id")
	}
	idSum := id0 ^ id1
	badID0, badID1 := id0, id1^1
	badIDSum := badID0 ^ badID1

	trackCount := layout.trackCount
	if trackCount > 42 {
		if log != nil {
			log.Warnf("double-sided disk support is not implemented; truncating to 35 tracks")
		}
		trackCount = 35
	}

	errorList, err := readErrorList(r, layout)
	if err != nil {
		return nil, errors.Wrap(err, "d64: reading error status block")
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "d64: rewinding to sector data")
	}

	img := halftrack.New()
	for t := 1; t <= trackCount; t++ {
		trackErrors := errorList[t-1]

		allNoSync := true
		anyNoSync := false
		for _, st := range trackErrors {
			if st == StatusNoSync {
				anyNoSync = true
			} else {
				allNoSync = false
			}
		}
		if allNoSync {
			// No sync anywhere on this track: leave the half-track absent
			// and still consume its sector bytes from the stream.
			if _, err := r.Seek(int64(sectorCount(t)*sectorSize), io.SeekCurrent); err != nil {
				return nil, errors.Wrapf(err, "d64: skipping track %d", t)
			}
			continue
		}
		if anyNoSync && log != nil {
			log.Warnf("track %d: mix of NO_SYNC and other block statuses, ignoring NO_SYNC", t)
		}

		var trackGCR []byte
		gap := postDataGap(t)
		for s := 0; s < sectorCount(t); s++ {
			status := trackErrors[s]

			blockData := make([]byte, sectorSize)
			if _, err := io.ReadFull(r, blockData); err != nil {
				return nil, errors.Wrapf(err, "d64: reading track %d sector %d", t, s)
			}

			blockID0, blockID1, blockIDSum := id0, id1, idSum
			if status == StatusIDMismatch {
				blockID0, blockID1, blockIDSum = badID0, badID1, badIDSum
			}

			headerType := byte(0x08)
			if status == StatusNoHeader {
				headerType = 0x00
			}
			checksum := byte(t) ^ byte(s) ^ blockIDSum
			if status == StatusBadHeader {
				checksum ^= 1
			}
			header := []byte{
				headerType,
				checksum,
				byte(s),
				byte(t),
				blockID0,
				blockID1,
				0x0f, 0x0f,
			}
			headerGCR, err := gcr.Encode(header)
			if err != nil {
				return nil, errors.Wrapf(err, "d64: gcr-encoding track %d sector %d header", t, s)
			}

			dataChecksum := byte(0)
			for _, b := range blockData {
				dataChecksum ^= b
			}
			if status == StatusBadData {
				dataChecksum++
			}
			dataType := byte(0x07)
			if status == StatusNoData {
				dataType = 0x00
			}
			data := make([]byte, 0, 260)
			data = append(data, dataType)
			data = append(data, blockData...)
			data = append(data, dataChecksum, 0x00, 0x00)
			dataGCR, err := gcr.Encode(data)
			if err != nil {
				return nil, errors.Wrapf(err, "d64: gcr-encoding track %d sector %d data", t, s)
			}

			trackGCR = append(trackGCR, gcrSync...)
			trackGCR = append(trackGCR, headerGCR...)
			trackGCR = append(trackGCR, repeatByte(gcrGap, 9)...)
			trackGCR = append(trackGCR, gcrSync...)
			trackGCR = append(trackGCR, dataGCR...)
			trackGCR = append(trackGCR, repeatByte(gcrGap, gap)...)
		}

		halfTrack := 2 * (t - 1)
		speed, _ := halftrack.DefaultZone(halfTrack)
		capacity := halftrack.Capacity(speed)
		if len(trackGCR) < capacity {
			trackGCR = append(trackGCR, repeatByte(gcrGap, capacity-len(trackGCR))...)
		}
		img.Set(halfTrack, trackGCR, speed)
	}

	return img, nil
}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func streamLen(r io.ReadSeeker) (int64, error) {
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

// readDiskID reads the two BAM disk-id bytes at diskIDOffset, returned in
// reverse on-disk order (spec §4.3: "read in reverse order").
func readDiskID(r io.ReadSeeker) (id0, id1 byte, err error) {
	if _, err = r.Seek(diskIDOffset, io.SeekStart); err != nil {
		return 0, 0, err
	}
	var buf [2]byte
	if _, err = io.ReadFull(r, buf[:]); err != nil {
		return 0, 0, err
	}
	return buf[1], buf[0], nil
}

// readErrorList returns, for each nominal track (0-based index), the
// per-sector error status. Absent an error block, every sector is OK.
func readErrorList(r io.ReadSeeker, layout sizeLayout) ([][]int, error) {
	nominal := layout.trackCount
	list := make([][]int, nominal)
	if !layout.hasErrorBlock {
		for t := range list {
			list[t] = make([]int, sectorCountAt(t, nominal))
		}
		return list, nil
	}

	offset := dataSize(nominal)
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	for t := range list {
		n := sectorCountAt(t, nominal)
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrapf(err, "reading error status for track %d", t+1)
		}
		statuses := make([]int, n)
		for i, b := range buf {
			statuses[i] = int(b)
		}
		list[t] = statuses
	}
	return list, nil
}
