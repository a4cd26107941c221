package rtp

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/pion/rtp"
	"github.com/ugparu/vvcmedia/codec/h266"
	"github.com/ugparu/vvcmedia/utils/logger"
)

const (
	fuHeaderSize = 1
	apSizeLength = 2

	fuStartBit = 0x80
	fuEndBit   = 0x40
	fuTypeMask = 0x1f

	layerIDMask  = 0x3f
	tidMask      = 0x07
	forbiddenBit = 0x80
)

var (
	// ErrInvalidPayload is returned for RTP payloads that break the H.266 payload format.
	ErrInvalidPayload = errors.New("rtp: invalid H.266 payload")
	// ErrFragmentLost is returned when a fragmentation unit continues a NAL unit whose
	// start was never received.
	ErrFragmentLost = errors.New("rtp: H.266 fragment lost")
)

type psKey struct {
	typ h266.NALUnitType
	id  uint8
}

// VVCDepacketizer turns RTP payloads of an H.266 stream into NAL units. Single NAL unit
// packets, aggregation packets and fragmentation units are supported; DONL fields are not.
//
// Every VPS, SPS and PPS seen on the wire is kept per parameter set id, and a
// configuration record is rebuilt from the current set whenever one of them changes.
type VVCDepacketizer struct {
	index               uint8
	psArrayCompleteness bool

	fragment    bytes.Buffer
	fragmenting bool
	lastSeq     uint16
	seqValid    bool

	parameterSets map[psKey][]byte
	record        *h266.ConfigRecord
	codecPar      *h266.CodecParameters
}

// NewVVCDepacketizer returns a depacketizer whose codec parameters carry stream index.
func NewVVCDepacketizer(index uint8, psArrayCompleteness bool) *VVCDepacketizer {
	return &VVCDepacketizer{
		index:               index,
		psArrayCompleteness: psArrayCompleteness,
		parameterSets:       make(map[psKey][]byte),
		record:              h266.NewConfigRecord(),
	}
}

func (d *VVCDepacketizer) String() string {
	return fmt.Sprintf("RTP_VVC_DEPACKETIZER idx=%d", d.index)
}

// Depacketize returns the NAL units completed by pkt. Units of single NAL unit packets and
// aggregation packets alias pkt.Payload; reassembled fragments are fresh slices.
func (d *VVCDepacketizer) Depacketize(pkt *rtp.Packet) (nalus [][]byte, err error) {
	if d.seqValid && pkt.SequenceNumber != d.lastSeq+1 && d.fragmenting {
		logger.Warningf(d, "Sequence jump %d -> %d inside a fragmented NAL unit", d.lastSeq, pkt.SequenceNumber)
		d.fragmenting = false
		d.fragment.Reset()
	}
	d.lastSeq = pkt.SequenceNumber
	d.seqValid = true

	payload := pkt.Payload
	if len(payload) < h266.HeaderSize {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrInvalidPayload, len(payload))
	}

	switch h266.TypeOf(payload) {
	case h266.NalUnitAP:
		nalus, err = splitAggregation(payload[h266.HeaderSize:])
	case h266.NalUnitFU:
		var nalu []byte
		if nalu, err = d.reassemble(payload); nalu != nil {
			nalus = [][]byte{nalu}
		}
	default:
		nalus = [][]byte{payload}
	}
	if err != nil {
		return nil, err
	}

	for _, nalu := range nalus {
		d.observe(nalu)
	}
	return nalus, nil
}

func splitAggregation(b []byte) (nalus [][]byte, err error) {
	for len(b) > 0 {
		if len(b) < apSizeLength {
			return nil, fmt.Errorf("%w: aggregation unit size field truncated", ErrInvalidPayload)
		}
		size := int(b[0])<<8 | int(b[1])
		b = b[apSizeLength:]
		if size < h266.HeaderSize || size > len(b) {
			return nil, fmt.Errorf("%w: aggregation unit of %d bytes, %d left", ErrInvalidPayload, size, len(b))
		}
		nalus = append(nalus, b[:size])
		b = b[size:]
	}
	if len(nalus) == 0 {
		return nil, fmt.Errorf("%w: empty aggregation packet", ErrInvalidPayload)
	}
	return
}

func (d *VVCDepacketizer) reassemble(payload []byte) (nalu []byte, err error) {
	if len(payload) < h266.HeaderSize+fuHeaderSize {
		return nil, fmt.Errorf("%w: fragmentation unit of %d bytes", ErrInvalidPayload, len(payload))
	}
	fuHeader := payload[h266.HeaderSize]
	start := fuHeader&fuStartBit != 0
	end := fuHeader&fuEndBit != 0
	data := payload[h266.HeaderSize+fuHeaderSize:]

	switch {
	case start && end:
		return nil, fmt.Errorf("%w: fragmentation unit with both start and end bits", ErrInvalidPayload)
	case start:
		if d.fragmenting {
			logger.Warning(d, "Fragmented NAL unit restarted before its end")
		}
		d.fragment.Reset()
		d.fragment.WriteByte(payload[0])
		d.fragment.WriteByte((fuHeader&fuTypeMask)<<3 | payload[1]&tidMask)
		d.fragment.Write(data)
		d.fragmenting = true
		return nil, nil
	case !d.fragmenting:
		return nil, ErrFragmentLost
	}

	d.fragment.Write(data)
	if !end {
		return nil, nil
	}
	d.fragmenting = false
	return bytes.Clone(d.fragment.Bytes()), nil
}

// parameterSetID reads the id at the start of a VPS, SPS or PPS payload.
func parameterSetID(typ h266.NALUnitType, nalu []byte) (uint8, bool) {
	if len(nalu) <= h266.HeaderSize {
		return 0, false
	}
	first := nalu[h266.HeaderSize]
	switch typ {
	case h266.NalUnitVps, h266.NalUnitSps:
		return first >> 4, true // u(4)
	case h266.NalUnitPps:
		return first >> 2, true // u(6)
	default:
		return 0, false
	}
}

func (d *VVCDepacketizer) observe(nalu []byte) {
	typ := h266.TypeOf(nalu)
	id, ok := parameterSetID(typ, nalu)
	if !ok {
		return
	}

	key := psKey{typ: typ, id: id}
	old, seen := d.parameterSets[key]
	if seen && bytes.Equal(old, nalu) {
		return
	}
	d.parameterSets[key] = bytes.Clone(nalu)

	if err := d.rebuild(); err != nil {
		logger.Warningf(d, "Dropping %v id=%d: %v", typ, id, err)
		if seen {
			d.parameterSets[key] = old
		} else {
			delete(d.parameterSets, key)
		}
		if err = d.rebuild(); err != nil {
			logger.Errorf(d, "Could not restore parameter sets: %v", err)
		}
	}
}

func (d *VVCDepacketizer) rebuild() error {
	rec := h266.NewConfigRecord()
	keys := slices.SortedFunc(maps.Keys(d.parameterSets), func(a, b psKey) int {
		if a.typ != b.typ {
			return int(a.typ) - int(b.typ)
		}
		return int(a.id) - int(b.id)
	})
	for _, key := range keys {
		if err := rec.AddNALUnit(d.parameterSets[key], d.psArrayCompleteness); err != nil {
			return err
		}
	}

	d.record = rec
	d.codecPar = nil
	logger.Debugf(d, "Parameter sets changed: %d VPS, %d SPS, %d PPS",
		rec.Count(h266.NalUnitVps), rec.Count(h266.NalUnitSps), rec.Count(h266.NalUnitPps))
	return nil
}

// Record returns the configuration record built from the current parameter sets. The
// record is replaced, not modified, when a parameter set changes.
func (d *VVCDepacketizer) Record() *h266.ConfigRecord {
	return d.record
}

// CodecParameters returns codec parameters for the current parameter sets. It fails until
// at least one VPS and one SPS have been received.
func (d *VVCDepacketizer) CodecParameters() (*h266.CodecParameters, error) {
	if d.codecPar != nil {
		return d.codecPar, nil
	}
	par, err := h266.NewCodecParametersFromConfigRecord(d.record)
	if err != nil {
		return nil, err
	}
	par.SetStreamIndex(d.index)
	d.codecPar = &par
	return d.codecPar, nil
}
