package rtp

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
	"github.com/ugparu/vvcmedia/codec/h266"
	"github.com/ugparu/vvcmedia/codec/h266/h266test"
)

func testSPS(width, height uint) []byte {
	ptl := h266test.Profile(1, 0, 51)
	return h266test.SPS{PTL: &ptl, Width: width, Height: height}.NALU()
}

func testVPS() []byte {
	return h266test.VPS{PTL: h266test.Profile(1, 0, 51)}.NALU()
}

func testParameters(t *testing.T) *h266.CodecParameters {
	t.Helper()
	par, err := h266.NewCodecParametersFromAnnexB(
		h266test.AnnexB(testVPS(), testSPS(1280, 720), h266test.Opaque(h266test.TypePPS, 8)), true)
	require.NoError(t, err)
	return &par
}

func payloadPacket(seq uint16, payload []byte) *rtp.Packet {
	return &rtp.Packet{
		Header:  rtp.Header{Version: 2, SequenceNumber: seq, Timestamp: 9000},
		Payload: payload,
	}
}

func TestPacketizeDepacketize(t *testing.T) {
	t.Parallel()

	par := testParameters(t)
	idr := h266test.Opaque(h266test.TypeIDR, 3000)
	slice := h266test.Opaque(1, 100)

	p := NewVVCPacketizer(96, 1000, par)
	pkts := p.Packetize(time.Second, true, [][]byte{idr, slice})

	// one aggregation packet, four fragments, one single NAL unit packet
	require.Len(t, pkts, 6)
	require.Equal(t, h266.NalUnitAP, h266.TypeOf(pkts[0].Payload))
	for i, pkt := range pkts {
		require.Equal(t, uint32(90000), pkt.Timestamp)
		require.Equal(t, i == len(pkts)-1, pkt.Marker)
		require.Equal(t, pkts[0].SequenceNumber+uint16(i), pkt.SequenceNumber) //nolint:gosec
		require.LessOrEqual(t, len(pkt.Payload), 1000)
	}

	d := NewVVCDepacketizer(3, true)
	_, err := d.CodecParameters()
	require.Error(t, err)

	var out [][]byte
	for _, pkt := range pkts {
		nalus, err := d.Depacketize(pkt)
		require.NoError(t, err)
		out = append(out, nalus...)
	}
	require.Equal(t, [][]byte{par.VPS(), par.SPS(), par.PPS(), idr, slice}, out)

	got, err := d.CodecParameters()
	require.NoError(t, err)
	require.Equal(t, par.Record, got.Record)
	require.Equal(t, uint8(3), got.StreamIndex())
	require.Equal(t, uint(1280), got.Width())

	again, err := d.CodecParameters()
	require.NoError(t, err)
	require.Same(t, got, again)
}

func TestPacketizeDeltaUnit(t *testing.T) {
	t.Parallel()

	p := NewVVCPacketizer(96, 0, testParameters(t))
	pkts := p.Packetize(0, false, [][]byte{h266test.Opaque(1, 40), {0x01}})
	require.Len(t, pkts, 1)
	require.Equal(t, h266.NalUnitStsa, h266.TypeOf(pkts[0].Payload))
}

func TestDepacketizeAggregationErrors(t *testing.T) {
	t.Parallel()

	apHeader := []byte{0x00, byte(h266.NalUnitAP)<<3 | 1}
	tests := []struct {
		name string
		body []byte
	}{
		{"empty", nil},
		{"truncated size", []byte{0x00}},
		{"unit too short", []byte{0x00, 0x01, 0x00}},
		{"unit past end", []byte{0x00, 0x05, 0x00, 0x79, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := NewVVCDepacketizer(0, true)
			_, err := d.Depacketize(payloadPacket(1, append(append([]byte(nil), apHeader...), tt.body...)))
			require.ErrorIs(t, err, ErrInvalidPayload)
		})
	}

	d := NewVVCDepacketizer(0, true)
	_, err := d.Depacketize(payloadPacket(1, []byte{0x00}))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func fu(start, end bool, data ...byte) []byte {
	header := byte(h266test.TypeIDR)
	if start {
		header |= fuStartBit
	}
	if end {
		header |= fuEndBit
	}
	return append([]byte{0x00, byte(h266.NalUnitFU)<<3 | 1, header}, data...)
}

func TestDepacketizeFragments(t *testing.T) {
	t.Parallel()

	d := NewVVCDepacketizer(0, true)

	nalus, err := d.Depacketize(payloadPacket(10, fu(true, false, 0xaa)))
	require.NoError(t, err)
	require.Empty(t, nalus)
	nalus, err = d.Depacketize(payloadPacket(11, fu(false, false, 0xbb)))
	require.NoError(t, err)
	require.Empty(t, nalus)
	nalus, err = d.Depacketize(payloadPacket(12, fu(false, true, 0xcc)))
	require.NoError(t, err)
	require.Equal(t, [][]byte{{0x00, h266test.TypeIDR<<3 | 1, 0xaa, 0xbb, 0xcc}}, nalus)

	_, err = d.Depacketize(payloadPacket(13, fu(false, true, 0xdd)))
	require.ErrorIs(t, err, ErrFragmentLost)

	_, err = d.Depacketize(payloadPacket(14, fu(true, true, 0xdd)))
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = d.Depacketize(payloadPacket(15, []byte{0x00, byte(h266.NalUnitFU)<<3 | 1}))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDepacketizeSequenceGapDropsFragment(t *testing.T) {
	t.Parallel()

	d := NewVVCDepacketizer(0, true)
	_, err := d.Depacketize(payloadPacket(100, fu(true, false, 0x01)))
	require.NoError(t, err)
	_, err = d.Depacketize(payloadPacket(102, fu(false, true, 0x03)))
	require.ErrorIs(t, err, ErrFragmentLost)
}

func TestDepacketizeTracksParameterSets(t *testing.T) {
	t.Parallel()

	d := NewVVCDepacketizer(0, false)
	for i, nalu := range [][]byte{testVPS(), testSPS(640, 480), testSPS(640, 480), h266test.Opaque(h266test.TypePPS, 8)} {
		_, err := d.Depacketize(payloadPacket(uint16(i), nalu)) //nolint:gosec
		require.NoError(t, err)
	}
	require.Equal(t, 1, d.Record().Count(h266.NalUnitSps))
	require.Equal(t, uint16(640), d.Record().MaxPictureWidth)
	first, err := d.CodecParameters()
	require.NoError(t, err)

	_, err = d.Depacketize(payloadPacket(10, testSPS(1920, 1080)))
	require.NoError(t, err)
	require.Equal(t, 1, d.Record().Count(h266.NalUnitSps))
	require.Equal(t, uint16(1920), d.Record().MaxPictureWidth)
	require.False(t, d.Record().Array(h266.NalUnitSps).ArrayCompleteness)

	second, err := d.CodecParameters()
	require.NoError(t, err)
	require.NotEqual(t, first.Record, second.Record)

	_, err = d.Depacketize(payloadPacket(11, h266test.NALU(h266test.TypeSPS, []byte{0x00})))
	require.NoError(t, err)
	require.Equal(t, uint16(1920), d.Record().MaxPictureWidth)
	require.Equal(t, 1, d.Record().Count(h266.NalUnitSps))
}

func TestInterleavedReader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	video := NewInterleavedWriter(&buf, 0)
	other := NewInterleavedWriter(&buf, 2)

	require.NoError(t, other.WritePacket(payloadPacket(1, []byte{0x01, 0x02})))
	buf.Write([]byte{interleavedMagic, 0, 0, 8, 0x80, rtcpReceiverReport, 0, 1, 0, 0, 0, 1})
	require.NoError(t, video.WritePacket(payloadPacket(7, []byte{0x00, 0x09, 0x10})))

	r := NewInterleavedReader(&buf, 0)
	pkt, err := r.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, uint16(7), pkt.SequenceNumber)
	require.Equal(t, []byte{0x00, 0x09, 0x10}, pkt.Payload)

	_, err = r.ReadPacket()
	require.ErrorIs(t, err, io.EOF)
}

func TestInterleavedReaderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		err  error
	}{
		{"bad magic", []byte{0x25, 0, 0, 1, 0}, ErrInvalidFraming},
		{"truncated body", []byte{interleavedMagic, 0, 0, 20, 0x80}, io.ErrUnexpectedEOF},
		{"short rtp", []byte{interleavedMagic, 0, 0, 2, 0x80, 0x60}, ErrInvalidFraming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewInterleavedReader(bytes.NewReader(tt.in), 0).ReadPacket()
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestVVCReader(t *testing.T) {
	t.Parallel()

	par := testParameters(t)
	p := NewVVCPacketizer(96, 500, par)

	var buf bytes.Buffer
	w := NewInterleavedWriter(&buf, 0)
	units := [][][]byte{
		{h266test.Opaque(h266test.TypeIDR, 1200)},
		{h266test.Opaque(1, 100), h266test.Opaque(1, 100)},
	}
	for i, au := range units {
		for _, pkt := range p.Packetize(time.Duration(i)*40*time.Millisecond, i == 0, au) {
			require.NoError(t, w.WritePacket(pkt))
		}
	}

	r := NewVVCReader(&buf, 0, true)
	key, err := r.ReadAccessUnit()
	require.NoError(t, err)
	require.True(t, key.Key)
	require.Equal(t, append([][]byte{par.VPS(), par.SPS(), par.PPS()}, units[0]...), key.NALUs)

	delta, err := r.ReadAccessUnit()
	require.NoError(t, err)
	require.False(t, delta.Key)
	require.Equal(t, key.Timestamp+3600, delta.Timestamp)
	require.Equal(t, units[1], delta.NALUs)

	_, err = r.ReadAccessUnit()
	require.ErrorIs(t, err, io.EOF)

	got, err := r.CodecParameters()
	require.NoError(t, err)
	require.Equal(t, par.Record, got.Record)
}

func TestVVCReaderSplitsOnTimestamp(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewInterleavedWriter(&buf, 0)
	for i, ts := range []uint32{100, 100, 200} {
		require.NoError(t, w.WritePacket(&rtp.Packet{
			Header:  rtp.Header{Version: 2, SequenceNumber: uint16(i), Timestamp: ts}, //nolint:gosec
			Payload: h266test.Opaque(1, 10),
		}))
	}

	r := NewVVCReader(&buf, 0, true)
	au, err := r.ReadAccessUnit()
	require.NoError(t, err)
	require.Equal(t, uint32(100), au.Timestamp)
	require.Len(t, au.NALUs, 2)

	au, err = r.ReadAccessUnit()
	require.NoError(t, err)
	require.Equal(t, uint32(200), au.Timestamp)
	require.Len(t, au.NALUs, 1)

	_, err = r.ReadAccessUnit()
	require.ErrorIs(t, err, io.EOF)
}

func TestVVCReaderReadPacket(t *testing.T) {
	t.Parallel()

	par := testParameters(t)
	var buf bytes.Buffer
	w := NewInterleavedWriter(&buf, 0)

	// a delta unit before any parameter set is dropped
	early := NewVVCPacketizer(96, 0, nil)
	for _, pkt := range early.Packetize(0, false, [][]byte{h266test.Opaque(1, 20)}) {
		require.NoError(t, w.WritePacket(pkt))
	}
	p := NewVVCPacketizer(96, 0, par)
	idr := h266test.Opaque(h266test.TypeIDR, 50)
	for _, pkt := range p.Packetize(2*time.Second, true, [][]byte{idr}) {
		require.NoError(t, w.WritePacket(pkt))
	}
	slice := h266test.Opaque(1, 30)
	for _, pkt := range p.Packetize(2*time.Second+500*time.Millisecond, false, [][]byte{slice}) {
		require.NoError(t, w.WritePacket(pkt))
	}

	r := NewVVCReader(&buf, 0, true)
	first, err := r.ReadPacket()
	require.NoError(t, err)
	require.True(t, first.IsKeyFrame())
	require.Zero(t, first.Timestamp())
	require.Equal(t, [][]byte{par.VPS(), par.SPS(), par.PPS(), idr}, first.NALUs())
	require.Equal(t, uint(1280), first.CodecParameters().Width())

	second, err := r.ReadPacket()
	require.NoError(t, err)
	require.False(t, second.IsKeyFrame())
	require.Equal(t, 500*time.Millisecond, second.Timestamp())
	require.Equal(t, [][]byte{slice}, second.NALUs())

	_, err = r.ReadPacket()
	require.ErrorIs(t, err, io.EOF)
}
