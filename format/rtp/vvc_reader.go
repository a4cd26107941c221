package rtp

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pion/rtp"
	"github.com/ugparu/vvcmedia/codec/h266"
	"github.com/ugparu/vvcmedia/utils/logger"
	"github.com/ugparu/vvcmedia/utils/nal"
)

// AccessUnit is the set of NAL units that share one RTP timestamp.
type AccessUnit struct {
	Timestamp uint32
	Key       bool
	NALUs     [][]byte
}

// VVCReader reads H.266 access units from an RTSP interleaved stream.
type VVCReader struct {
	*VVCDepacketizer
	packets *InterleavedReader
	pending *rtp.Packet

	firstTimestamp uint32
	started        bool
}

// NewVVCReader reads the RTP packets of channel from rdr.
func NewVVCReader(rdr io.Reader, channel uint8, psArrayCompleteness bool) *VVCReader {
	return &VVCReader{
		VVCDepacketizer: NewVVCDepacketizer(channel, psArrayCompleteness),
		packets:         NewInterleavedReader(rdr, channel),
	}
}

func (r *VVCReader) String() string {
	return fmt.Sprintf("RTP_VVC_READER ch=%d", r.index)
}

// ReadAccessUnit returns the next access unit. An access unit ends at a packet with the
// marker bit or when the RTP timestamp changes. Packets that break the payload format are
// logged and skipped. io.EOF is returned once the stream is exhausted and nothing is left.
func (r *VVCReader) ReadAccessUnit() (au AccessUnit, err error) {
	started := false
	for {
		pkt := r.pending
		r.pending = nil
		if pkt == nil {
			if pkt, err = r.packets.ReadPacket(); err != nil {
				if errors.Is(err, io.EOF) && started {
					return au, nil
				}
				return AccessUnit{}, err
			}
		}

		if started && pkt.Timestamp != au.Timestamp {
			r.pending = pkt
			return au, nil
		}

		var nalus [][]byte
		if nalus, err = r.Depacketize(pkt); err != nil {
			logger.Warningf(r, "Skipping packet %d: %v", pkt.SequenceNumber, err)
			err = nil
			continue
		}

		if !started {
			au.Timestamp = pkt.Timestamp
			started = true
		}
		for _, nalu := range nalus {
			au.Key = au.Key || h266.TypeOf(nalu).IsKey()
			au.NALUs = append(au.NALUs, nalu)
		}

		if pkt.Marker {
			return au, nil
		}
	}
}

// ReadPacket returns the next access unit as a length-prefixed packet timed from the first
// access unit of the stream. Access units received before the first VPS and SPS are
// dropped.
func (r *VVCReader) ReadPacket() (*h266.Packet, error) {
	for {
		au, err := r.ReadAccessUnit()
		if err != nil {
			return nil, err
		}

		par, err := r.CodecParameters()
		if err != nil {
			logger.Debugf(r, "Dropping access unit %d before parameter sets: %v", au.Timestamp, err)
			continue
		}

		if !r.started {
			r.firstTimestamp = au.Timestamp
			r.started = true
		}
		ts := time.Duration(au.Timestamp-r.firstTimestamp) * time.Second / defaultClockRate
		return h266.NewPacket(au.Key, ts, nal.AVCCMarshal(au.NALUs), par), nil
	}
}
