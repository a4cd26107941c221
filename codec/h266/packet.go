package h266

import (
	"time"

	"github.com/ugparu/vvcmedia"
	"github.com/ugparu/vvcmedia/codec"
	"github.com/ugparu/vvcmedia/utils/nal"
)

var _ gomedia.VideoPacket = (*Packet)(nil)

// Packet is one access unit stored as 4-byte length-prefixed NAL units.
type Packet struct {
	codec.VideoPacket[*CodecParameters]
}

func NewPacket(
	key bool,
	timestamp time.Duration,
	data []byte,
	param *CodecParameters,
) *Packet {
	return &Packet{
		VideoPacket: codec.VideoPacket[*CodecParameters]{
			BasePacket: codec.NewBasePacket(
				param.StreamIndex(),
				timestamp,
				0,
				data,
				param,
			),
			IsKeyFrm: key,
		},
	}
}

func (pkt *Packet) Clone(copyData bool) *Packet {
	return &Packet{
		VideoPacket: pkt.VideoPacket.Clone(copyData),
	}
}

// NALUs splits the payload into NAL units. The units alias the payload.
func (pkt *Packet) NALUs() [][]byte {
	return nal.SplitAVCC(pkt.Buf)
}
