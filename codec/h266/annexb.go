package h266

import (
	"bytes"
	"io"

	"github.com/ugparu/vvcmedia/utils/bits/pio"
	"github.com/ugparu/vvcmedia/utils/nal"
)

// Unit is one NAL unit found in a byte stream. NALU aliases the scanned buffer and
// includes the 2-byte header.
type Unit struct {
	Type NALUnitType
	NALU []byte
}

// Payload returns the bytes after the NAL unit header.
func (u Unit) Payload() []byte {
	return u.NALU[HeaderSize:]
}

// ParseUnits splits an Annex-B stream into NAL units. Units shorter than the NAL unit
// header are skipped.
func ParseUnits(b []byte) (units []Unit) {
	for _, nalu := range nal.SplitAnnexB(b) {
		if len(nalu) < HeaderSize {
			continue
		}
		units = append(units, Unit{Type: TypeOf(nalu), NALU: nalu})
	}
	return
}

// splitStream accepts Annex-B input, or 4-byte length-prefixed input whose lengths are
// clipped to the bytes that remain.
func splitStream(in []byte) [][]byte {
	if nal.StartCodeLen(in) > 0 {
		return nal.SplitAnnexB(in)
	}
	return nal.SplitAVCC(in)
}

// AnnexBToMP4 rewrites every NAL unit of in as a 4-byte big-endian length followed by the
// NAL unit. With filterPS, VPS, SPS and PPS units are dropped and counted in psCount.
// written is the number of bytes written to w.
func AnnexBToMP4(w io.Writer, in []byte, filterPS bool) (written int, psCount int, err error) {
	var prefix [nal.LengthSize]byte
	for _, nalu := range splitStream(in) {
		if filterPS && len(nalu) >= HeaderSize {
			switch TypeOf(nalu) {
			case NalUnitVps, NalUnitSps, NalUnitPps:
				psCount++
				continue
			}
		}
		pio.PutU32BE(prefix[:], uint32(len(nalu))) //nolint:gosec // bounded by len(in)
		if _, err = w.Write(prefix[:]); err != nil {
			return
		}
		if _, err = w.Write(nalu); err != nil {
			return
		}
		written += nal.LengthSize + len(nalu)
	}
	return
}

// AnnexBToMP4Buf is AnnexBToMP4 into a new buffer.
func AnnexBToMP4Buf(in []byte, filterPS bool) (out []byte, psCount int, err error) {
	var buf bytes.Buffer
	buf.Grow(len(in))
	if _, psCount, err = AnnexBToMP4(&buf, in, filterPS); err != nil {
		return
	}
	out = buf.Bytes()
	return
}
