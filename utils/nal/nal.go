package nal

import (
	"github.com/ugparu/vvcmedia/utils/bits/pio"
)

// Framing formats detected by SplitNALUs.
const (
	FormatRaw    = iota // Single NAL unit without framing.
	FormatAVCC          // 4-byte big-endian length prefixes.
	FormatAnnexB        // Start code prefixes.
)

// MinNaluSize is the minimum size of a Network Abstraction Layer Unit (NALU).
const MinNaluSize = 4

// LengthSize is the size of the length prefix written by AVCCMarshal.
const LengthSize = 4

// StartCodeLen returns 3 or 4 when b begins with a 0x000001 or 0x00000001 start code, 0 otherwise.
func StartCodeLen(b []byte) int {
	switch {
	case len(b) >= 3 && pio.U24BE(b) == 1:
		return 3 //nolint:mnd
	case len(b) >= 4 && pio.U32BE(b) == 1:
		return 4 //nolint:mnd
	}
	return 0
}

// findStartCode returns the index of the next 0x000001 at or after pos, or len(b).
func findStartCode(b []byte, pos int) int {
	for i := pos; i+2 < len(b); i++ {
		if b[i+2] > 1 {
			// none of b[i], b[i+1], b[i+2] can open a start code ending at i+2
			i += 2
			continue
		}
		if b[i] == 0 && b[i+1] == 0 && b[i+2] == 1 {
			return i
		}
	}
	return len(b)
}

// SplitAnnexB splits an Annex-B byte stream into NAL units. Start codes and trailing
// zero bytes are removed; bytes before the first start code are ignored. The returned
// slices alias b.
func SplitAnnexB(b []byte) (nalus [][]byte) {
	pos := findStartCode(b, 0)
	for pos < len(b) {
		start := pos + 3 //nolint:mnd
		next := findStartCode(b, start)
		end := next
		for end > start && b[end-1] == 0 {
			end--
		}
		if end > start {
			nalus = append(nalus, b[start:end])
		}
		pos = next
	}
	return
}

// SplitAVCC splits a buffer of 4-byte length-prefixed NAL units. A length that runs past
// the end of the buffer is clipped to the bytes that remain.
func SplitAVCC(b []byte) (nalus [][]byte) {
	for len(b) > LengthSize {
		size := min(int(pio.U32BE(b)), len(b)-LengthSize)
		b = b[LengthSize:]
		if size > 0 {
			nalus = append(nalus, b[:size])
		}
		b = b[size:]
	}
	return
}

// AVCCMarshal writes every NAL unit behind a 4-byte big-endian length.
func AVCCMarshal(nalus [][]byte) []byte {
	n := 0
	for _, nalu := range nalus {
		n += LengthSize + len(nalu)
	}
	buf := make([]byte, n)
	pos := 0
	for _, nalu := range nalus {
		pio.PutU32BE(buf[pos:], uint32(len(nalu))) //nolint:gosec // NAL units are far below 4 GiB
		pos += LengthSize
		pos += copy(buf[pos:], nalu)
	}
	return buf
}

// AnnexBMarshal writes every NAL unit behind a 4-byte start code.
func AnnexBMarshal(nalus [][]byte) []byte {
	n := 0
	for _, nalu := range nalus {
		n += 4 + len(nalu) //nolint:mnd
	}
	buf := make([]byte, 0, n)
	for _, nalu := range nalus {
		buf = append(buf, 0, 0, 0, 1)
		buf = append(buf, nalu...)
	}
	return buf
}

// SplitNALUs splits a byte slice into Network Abstraction Layer Units (NALUs)
// based on different formats (Raw, AVCC, or ANNEXB) and returns the NALUs and the format type.
func SplitNALUs(b []byte) (nalus [][]byte, typ int) {
	// If the byte slice is smaller than the minimum NALU size, consider it as a single raw NALU.
	if len(b) < MinNaluSize {
		return [][]byte{b}, FormatRaw
	}

	if StartCodeLen(b) > 0 {
		return SplitAnnexB(b), FormatAnnexB
	}

	// A plausible first length prefix selects AVCC; corrupted tails are salvaged by clipping.
	if val4 := pio.U32BE(b); val4 > 0 && val4 <= uint32(len(b)-LengthSize) { //nolint:gosec
		if nalus = SplitAVCC(b); len(nalus) > 0 {
			return nalus, FormatAVCC
		}
	}

	// If none of the formats match, consider it as a single raw NALU.
	return [][]byte{b}, FormatRaw
}
