package codec

import (
	"fmt"
	"time"

	"github.com/ugparu/vvcmedia"
)

type BasePacket[T gomedia.CodecParameters] struct {
	Idx          uint8
	RelativeTime time.Duration
	Dur          time.Duration
	Buf          []byte
	CodecPar     T
}

func NewBasePacket[T gomedia.CodecParameters](
	idx uint8,
	relativeTime time.Duration,
	dur time.Duration,
	buf []byte,
	codecPar T,
) BasePacket[T] {
	return BasePacket[T]{
		Idx:          idx,
		RelativeTime: relativeTime,
		Dur:          dur,
		Buf:          buf,
		CodecPar:     codecPar,
	}
}

// Clone returns a packet sharing the codec parameters. With copyData the payload is
// copied, otherwise both packets share it.
func (pkt *BasePacket[T]) Clone(copyData bool) BasePacket[T] {
	newPkt := *pkt
	if copyData {
		newPkt.Buf = append([]byte(nil), pkt.Buf...)
	}
	return newPkt
}

func (pkt *BasePacket[T]) Data() []byte {
	return pkt.Buf
}

func (pkt *BasePacket[T]) Len() int {
	return len(pkt.Buf)
}

func (pkt *BasePacket[T]) StreamIndex() uint8 {
	return pkt.Idx
}

func (pkt *BasePacket[T]) SetStreamIndex(idx uint8) {
	pkt.Idx = idx
}

func (pkt *BasePacket[T]) Timestamp() time.Duration {
	return pkt.RelativeTime
}

func (pkt *BasePacket[T]) SetTimestamp(ts time.Duration) {
	pkt.RelativeTime = ts
}

func (pkt *BasePacket[T]) Duration() time.Duration {
	return pkt.Dur
}

func (pkt *BasePacket[T]) SetDuration(dur time.Duration) {
	pkt.Dur = dur
}

func (pkt *BasePacket[T]) String() string {
	if pkt == nil {
		return "EMPTY_PACKET"
	}
	return fmt.Sprintf("PACKET sz=%d", len(pkt.Buf))
}

type VideoPacket[T gomedia.VideoCodecParameters] struct {
	BasePacket[T]
	IsKeyFrm bool
}

func (pkt *VideoPacket[T]) Clone(copyData bool) VideoPacket[T] {
	return VideoPacket[T]{
		BasePacket: pkt.BasePacket.Clone(copyData),
		IsKeyFrm:   pkt.IsKeyFrm,
	}
}

func (pkt *VideoPacket[T]) CodecParameters() gomedia.VideoCodecParameters {
	return pkt.CodecPar
}

func (pkt *VideoPacket[T]) IsKeyFrame() bool {
	return pkt.IsKeyFrm
}
