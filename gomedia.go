package gomedia

import "time"

// CodecParameters defines the interface for multimedia codec configuration.
type CodecParameters interface {
	Type() CodecType      // Returns the codec type (audio/video).
	Tag() string          // Returns the codec identifier string.
	StreamIndex() uint8   // Returns the index of the stream in a container.
	SetStreamIndex(uint8) // Sets the stream index value.
	Bitrate() uint        // Returns the codec's bitrate in bits per second.
	SetBitrate(uint)      // Sets the codec's target bitrate.
}

// VideoCodecParameters extends CodecParameters with video-specific properties.
type VideoCodecParameters interface {
	CodecParameters // Inherits all CodecParameters methods.
	Width() uint    // Returns the video frame width in pixels.
	Height() uint   // Returns the video frame height in pixels.
	FPS() uint      // Returns the video frame rate (frames per second).
}

// ConfigRecord is a decoder configuration record that can be carried in a container.
type ConfigRecord interface {
	Len() int                      // Returns the marshalled size.
	Marshal([]byte) int            // Writes the record into a buffer of Len() bytes.
	Unmarshal([]byte) (int, error) // Reads a marshalled record.
}

// Packet is one coded unit of a stream.
type Packet interface {
	StreamIndex() uint8       // Returns the index of the stream the packet belongs to.
	Timestamp() time.Duration // Returns the presentation time relative to the stream start.
	Duration() time.Duration  // Returns the packet duration, zero when unknown.
	Data() []byte             // Returns the payload.
	Len() int                 // Returns the payload size.
}

// VideoPacket is a Packet of a video stream.
type VideoPacket interface {
	Packet
	IsKeyFrame() bool                      // Reports whether decoding can start at this packet.
	CodecParameters() VideoCodecParameters // Returns the parameters the packet was coded with.
}
