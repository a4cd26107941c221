package rtp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pion/rtp"
)

const (
	interleavedMagic      = 0x24 // '$'
	interleavedHeaderSize = 4
	rtpHeaderSize         = 12
	rtcpSenderReport      = 200
	rtcpReceiverReport    = 201
	maxInterleavedSize    = 0xffff
)

// ErrInvalidFraming is returned when a stream does not follow RTSP interleaved framing.
var ErrInvalidFraming = errors.New("rtp: invalid interleaved framing")

// InterleavedWriter frames RTP packets the way RTSP over TCP carries them: '$', channel,
// 16-bit length, packet.
type InterleavedWriter struct {
	w       io.Writer
	channel uint8
}

// NewInterleavedWriter returns a writer that tags every frame with channel.
func NewInterleavedWriter(w io.Writer, channel uint8) *InterleavedWriter {
	return &InterleavedWriter{w: w, channel: channel}
}

func (w *InterleavedWriter) String() string {
	return fmt.Sprintf("RTP_INTERLEAVED_WRITER ch=%d", w.channel)
}

// WritePacket marshals pkt behind an interleaved frame header.
func (w *InterleavedWriter) WritePacket(pkt *rtp.Packet) (err error) {
	size := pkt.MarshalSize()
	if size > maxInterleavedSize {
		return fmt.Errorf("%w: packet of %d bytes", ErrInvalidFraming, size)
	}

	buf := make([]byte, interleavedHeaderSize+size)
	buf[0] = interleavedMagic
	buf[1] = w.channel
	binary.BigEndian.PutUint16(buf[2:], uint16(size)) //nolint:gosec // checked above
	if _, err = pkt.MarshalTo(buf[interleavedHeaderSize:]); err != nil {
		return
	}

	if _, err = w.w.Write(buf); err != nil {
		return fmt.Errorf("rtp: write failed for channel %d: %w", w.channel, err)
	}
	return
}

// InterleavedReader reads RTP packets of one channel from an RTSP interleaved stream.
// Frames of other channels and RTCP sender and receiver reports are skipped.
type InterleavedReader struct {
	rdr     io.Reader
	channel uint8
	header  [interleavedHeaderSize]byte
}

// NewInterleavedReader returns a reader for channel.
func NewInterleavedReader(rdr io.Reader, channel uint8) *InterleavedReader {
	return &InterleavedReader{rdr: rdr, channel: channel}
}

func (r *InterleavedReader) String() string {
	return fmt.Sprintf("RTP_INTERLEAVED_READER ch=%d", r.channel)
}

// ReadPacket returns the next RTP packet of the reader's channel. It returns io.EOF at a
// clean end of stream and io.ErrUnexpectedEOF inside a truncated frame.
func (r *InterleavedReader) ReadPacket() (*rtp.Packet, error) {
	for {
		if _, err := io.ReadFull(r.rdr, r.header[:]); err != nil {
			return nil, err
		}
		if r.header[0] != interleavedMagic {
			return nil, fmt.Errorf("%w: magic 0x%02x", ErrInvalidFraming, r.header[0])
		}

		length := int(binary.BigEndian.Uint16(r.header[2:]))
		body := make([]byte, length)
		if _, err := io.ReadFull(r.rdr, body); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}

		if r.header[1] != r.channel || isRTCPPacket(body) {
			continue
		}
		if length < rtpHeaderSize {
			return nil, fmt.Errorf("%w: RTP packet of %d bytes", ErrInvalidFraming, length)
		}

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(body); err != nil {
			return nil, fmt.Errorf("rtp: unmarshal: %w", err)
		}
		return pkt, nil
	}
}

func isRTCPPacket(b []byte) bool {
	return len(b) > 1 && (b[1] == rtcpSenderReport || b[1] == rtcpReceiverReport)
}
