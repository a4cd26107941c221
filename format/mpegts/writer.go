package mpegts

import (
	"context"
	"io"
	"time"

	"github.com/asticode/go-astits"
	"github.com/ugparu/vvcmedia/codec/h266"
	"github.com/ugparu/vvcmedia/utils/nal"
)

const (
	videoPID      = 256
	videoStreamID = 224
	pcrOffset     = 400 * time.Millisecond
	pcrInterval   = 3
	clockRate     = 90000
)

// Writer muxes H.266 access units into a single-program MPEG-TS stream.
type Writer struct {
	inner      *astits.Muxer
	pcrCounter int
}

// NewWriter allocates a Writer that sends TS packets to w.
func NewWriter(ctx context.Context, w io.Writer) *Writer {
	tw := &Writer{
		inner: astits.NewMuxer(ctx, w),
	}

	tw.inner.AddElementaryStream(astits.PMTElementaryStream{ //nolint:errcheck // PID is fixed
		ElementaryPID: videoPID,
		StreamType:    StreamTypeVVCVideo,
	})
	tw.inner.SetPCRPID(videoPID)

	// Tables are written by WriteData when a random access packet of the PCR PID passes.
	return tw
}

func (w *Writer) String() string {
	return "MPEGTS_VVC_WRITER"
}

func clock(d time.Duration) *astits.ClockReference {
	return &astits.ClockReference{Base: int64(d.Seconds() * clockRate)}
}

// accessUnitDelimiter returns an AUD with aud_irap_or_gdr_flag set for key pictures and
// aud_pic_type 2 (B, P and I slices allowed).
func accessUnitDelimiter(key bool) []byte {
	if key {
		return []byte{0x00, byte(h266.NalUnitAud)<<3 | 1, 0xa8}
	}
	return []byte{0x00, byte(h266.NalUnitAud)<<3 | 1, 0x28}
}

// WriteVVC writes one access unit. An AUD is prepended and the NAL units are sent as an
// Annex-B stream. key marks access units that start with an IRAP or GDR picture.
func (w *Writer) WriteVVC(pcr, dts, pts time.Duration, key bool, nalus [][]byte) (err error) {
	nalus = append([][]byte{accessUnitDelimiter(key)}, nalus...)

	var af *astits.PacketAdaptationField
	if key {
		af = &astits.PacketAdaptationField{RandomAccessIndicator: true}
	}

	if w.pcrCounter == 0 {
		if af == nil {
			af = &astits.PacketAdaptationField{}
		}
		af.HasPCR = true
		af.PCR = clock(pcr)
		w.pcrCounter = pcrInterval
	}
	w.pcrCounter--

	oh := &astits.PESOptionalHeader{
		MarkerBits: 2, //nolint:mnd
	}
	if dts == pts {
		oh.PTSDTSIndicator = astits.PTSDTSIndicatorOnlyPTS
		oh.PTS = clock(pts + pcrOffset)
	} else {
		oh.PTSDTSIndicator = astits.PTSDTSIndicatorBothPresent
		oh.DTS = clock(dts + pcrOffset)
		oh.PTS = clock(pts + pcrOffset)
	}

	_, err = w.inner.WriteData(&astits.MuxerData{
		PID:             videoPID,
		AdaptationField: af,
		PES: &astits.PESData{
			Header: &astits.PESHeader{
				OptionalHeader: oh,
				StreamID:       videoStreamID,
			},
			Data: nal.AnnexBMarshal(nalus),
		},
	})
	return
}
