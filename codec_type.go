package gomedia

// CodecType represents the type of a codec.
type CodecType uint32

// avCodecTypeMagic is a magic number used to create unique codec types.
const avCodecTypeMagic = 233333

// makeVideoCodecType creates a video CodecType based on the provided base.
func makeVideoCodecType(base uint32) (c CodecType) {
	c = CodecType(base) << codecTypeOtherBits
	return
}

// variables representing specific codec types.
var (
	H264 = makeVideoCodecType(avCodecTypeMagic + 1) //nolint:mnd
	H265 = makeVideoCodecType(avCodecTypeMagic + 2) //nolint:mnd
	H266 = makeVideoCodecType(avCodecTypeMagic + 8) //nolint:mnd
)

// Bitwise flags for codec types.
const (
	codecTypeAudioBit  = 0x1
	codecTypeOtherBits = 1
)

// String returns the human-readable string representation of a CodecType.
func (ct CodecType) String() string {
	switch ct {
	case H264:
		return "H264"
	case H265:
		return "H265"
	case H266:
		return "H266"
	}
	return "UNKNOWN"
}

// IsVideo returns true if the CodecType represents a video codec.
func (ct CodecType) IsVideo() bool {
	return ct&codecTypeAudioBit == 0
}
