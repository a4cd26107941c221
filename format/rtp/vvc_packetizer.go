package rtp

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/pion/rtp"
	"github.com/ugparu/vvcmedia/codec/h266"
)

const (
	// DefaultMTU bounds RTP payloads. Interleaved framing is not limited by the UDP MTU,
	// but small packets keep receivers happy.
	DefaultMTU = 1200

	defaultClockRate = 90000
	rtpVersion       = 2
)

// VVCPacketizer splits H.266 access units into RTP packets. Parameter sets sent in front
// of key access units are aggregated into one packet when they fit, and NAL units larger
// than the MTU are fragmented.
type VVCPacketizer struct {
	payloadType uint8
	mtu         int
	clockRate   uint32
	ssrc        uint32
	sequence    uint16
	par         *h266.CodecParameters
}

// NewVVCPacketizer returns a packetizer. When par is not nil its VPS, SPS and PPS are sent
// before every key access unit.
func NewVVCPacketizer(payloadType uint8, mtu int, par *h266.CodecParameters) *VVCPacketizer {
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	return &VVCPacketizer{
		payloadType: payloadType,
		mtu:         mtu,
		clockRate:   defaultClockRate,
		ssrc:        rand.Uint32(),               //nolint:gosec // non-crypto random is sufficient here
		sequence:    uint16(rand.UintN(1 << 16)), //nolint:gosec // non-crypto random is sufficient here
		par:         par,
	}
}

func (p *VVCPacketizer) String() string {
	return fmt.Sprintf("RTP_VVC_PACKETIZER pt=%d mtu=%d", p.payloadType, p.mtu)
}

func (p *VVCPacketizer) packet(payload []byte, ts uint32, marker bool) *rtp.Packet {
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        rtpVersion,
			Marker:         marker,
			PayloadType:    p.payloadType,
			SequenceNumber: p.sequence,
			Timestamp:      ts,
			SSRC:           p.ssrc,
		},
		Payload: payload,
	}
	p.sequence++
	return pkt
}

// Packetize returns the RTP packets of one access unit presented at pts. The marker bit is
// set on the last packet.
func (p *VVCPacketizer) Packetize(pts time.Duration, key bool, nalus [][]byte) (pkts []*rtp.Packet) {
	ts := uint32(uint64(pts) * uint64(p.clockRate) / uint64(time.Second)) //nolint:gosec // RTP timestamps wrap
	nalus = slices.DeleteFunc(slices.Clone(nalus), func(nalu []byte) bool {
		return len(nalu) < h266.HeaderSize
	})

	if key && p.par != nil {
		if ps := p.parameterSets(); len(ps) > 0 {
			if ap := aggregate(ps, p.mtu); ap != nil {
				pkts = append(pkts, p.packet(ap, ts, len(nalus) == 0))
			} else {
				nalus = append(ps, nalus...)
			}
		}
	}

	for i, nalu := range nalus {
		last := i == len(nalus)-1

		if len(nalu) <= p.mtu {
			pkts = append(pkts, p.packet(nalu, ts, last))
			continue
		}
		pkts = append(pkts, p.fragment(nalu, ts, last)...)
	}
	return
}

func (p *VVCPacketizer) parameterSets() (ps [][]byte) {
	for _, typ := range []h266.NALUnitType{h266.NalUnitVps, h266.NalUnitSps, h266.NalUnitPps} {
		if arr := p.par.RecordInfo.Array(typ); arr != nil {
			ps = append(ps, arr.NALUnits...)
		}
	}
	return
}

// aggregate packs nalus into one aggregation packet, or returns nil when they do not fit
// into mtu or there is only one unit.
func aggregate(nalus [][]byte, mtu int) []byte {
	if len(nalus) < 2 { //nolint:mnd
		return nil
	}

	size := h266.HeaderSize
	forbidden := byte(0)
	layerID := byte(layerIDMask)
	tid := byte(tidMask)
	for _, nalu := range nalus {
		size += apSizeLength + len(nalu)
		forbidden |= nalu[0] & forbiddenBit
		layerID = min(layerID, nalu[0]&layerIDMask)
		tid = min(tid, nalu[1]&tidMask)
	}
	if size > mtu {
		return nil
	}

	ap := make([]byte, 0, size)
	ap = append(ap, forbidden|layerID, byte(h266.NalUnitAP)<<3|tid)
	for _, nalu := range nalus {
		ap = append(ap, byte(len(nalu)>>8), byte(len(nalu))) //nolint:gosec // bounded by mtu
		ap = append(ap, nalu...)
	}
	return ap
}

// fragment splits nalu into fragmentation units. The payload header keeps the original F,
// Z, LayerId and TID fields; the FU header carries the original type.
func (p *VVCPacketizer) fragment(nalu []byte, ts uint32, last bool) (pkts []*rtp.Packet) {
	hdr0 := nalu[0]
	hdr1 := byte(h266.NalUnitFU)<<3 | nalu[1]&tidMask
	typ := byte(h266.TypeOf(nalu))
	data := nalu[h266.HeaderSize:]

	maxFragment := p.mtu - h266.HeaderSize - fuHeaderSize
	if maxFragment <= 0 {
		return []*rtp.Packet{p.packet(nalu, ts, last)}
	}

	for offset := 0; offset < len(data); {
		size := min(maxFragment, len(data)-offset)
		start := offset == 0
		end := offset+size == len(data)

		fuHeader := typ
		if start {
			fuHeader |= fuStartBit
		}
		if end {
			fuHeader |= fuEndBit
		}

		payload := make([]byte, 0, h266.HeaderSize+fuHeaderSize+size)
		payload = append(payload, hdr0, hdr1, fuHeader)
		payload = append(payload, data[offset:offset+size]...)
		pkts = append(pkts, p.packet(payload, ts, last && end))

		offset += size
	}
	return
}
