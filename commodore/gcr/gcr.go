// Package gcr implements the 4-bit-nibble <-> 5-bit-codeword Group-Coded
// Recording encoder/decoder described in spec §4.1: each nibble maps to a
// 5-bit codeword chosen so the drive's flux-change clock recovery never
// sees more than two consecutive 0 bits across a codeword boundary.
package gcr

import (
	"github.com/pkg/errors"

	"commodoreconv/commodore/bitstream"
)

// codewords is the fixed 16-entry nibble-to-5-bit table.
var codewords = [16]uint32{
	0b01010, 0b01011, 0b10010, 0b10011,
	0b01110, 0b01111, 0b10110, 0b10111,
	0b01001, 0b11001, 0b11010, 0b11011,
	0b01101, 0b11101, 0b11110, 0b10101,
}

// reverse maps a 5-bit codeword back to its nibble. Codewords not present in
// the table are absent from the map; Decode treats a miss as 0 (lenient:
// physical reads may contain corruption).
var reverse = func() map[uint32]byte {
	m := make(map[uint32]byte, len(codewords))
	for nibble, word := range codewords {
		m[word] = byte(nibble)
	}
	return m
}()

// Encode packs each nibble of data (high nibble first, then low) into its
// 5-bit codeword and repacks the resulting bit stream into bytes MSB-first.
// len(data) must be a multiple of 4, so the output is a whole number of
// bytes; callers are responsible for padding their payload to that
// boundary (spec §4.3).
func Encode(data []byte) ([]byte, error) {
	if len(data)%4 != 0 {
		return nil, errors.Errorf("gcr: input length %d is not a multiple of 4", len(data))
	}
	w := bitstream.NewWriter()
	for _, b := range data {
		w.WriteBits(codewords[b>>4], 5)
		w.WriteBits(codewords[b&0xf], 5)
	}
	return w.Bytes(), nil
}

// Decode is the inverse of Encode: len(gcrData) must be a multiple of 5,
// since every 4 input bytes produce 5 GCR bytes (40 bits = 8 codewords).
// Unknown 5-bit codewords decode to 0.
func Decode(gcrData []byte) ([]byte, error) {
	if len(gcrData)%5 != 0 {
		return nil, errors.Errorf("gcr: input length %d is not a multiple of 5", len(gcrData))
	}
	return decodeCore(gcrData), nil
}

// DecodeLenient decodes as many complete nibble pairs (10 bits each) as fit
// in data, silently discarding any trailing incomplete bits. Unlike Decode,
// it does not require a multiple-of-5 length: it exists for the LOGICAL
// codec's sync-mark-delimited fragment recovery (spec §4.3.2), where
// fragment boundaries come from scanning a raw bitstream and essentially
// never land on a clean byte boundary.
func DecodeLenient(data []byte) []byte {
	return decodeCore(data)
}

func decodeCore(gcrData []byte) []byte {
	r := bitstream.NewReader(gcrData)
	out := make([]byte, 0, len(gcrData)*8/10)
	for {
		hi, ok := r.ReadBits(5)
		if !ok {
			break
		}
		lo, ok := r.ReadBits(5)
		if !ok {
			break
		}
		out = append(out, reverse[hi]<<4|reverse[lo])
	}
	return out
}
