package h266

import (
	"fmt"
)

// NALUnitType is the 5-bit nal_unit_type of an H.266 NAL unit header.
type NALUnitType uint8

const (
	NalUnitTrail     NALUnitType = 0
	NalUnitStsa      NALUnitType = 1
	NalUnitRadl      NALUnitType = 2
	NalUnitRasl      NALUnitType = 3
	NalUnitIdrWRadl  NALUnitType = 7
	NalUnitIdrNLp    NALUnitType = 8
	NalUnitCra       NALUnitType = 9
	NalUnitGdr       NALUnitType = 10
	NalUnitOpi       NALUnitType = 12
	NalUnitDci       NALUnitType = 13
	NalUnitVps       NALUnitType = 14
	NalUnitSps       NALUnitType = 15
	NalUnitPps       NALUnitType = 16
	NalUnitPrefixAps NALUnitType = 17
	NalUnitSuffixAps NALUnitType = 18
	NalUnitPh        NALUnitType = 19
	NalUnitAud       NALUnitType = 20
	NalUnitEos       NALUnitType = 21
	NalUnitEob       NALUnitType = 22
	NalUnitPrefixSei NALUnitType = 23
	NalUnitSuffixSei NALUnitType = 24
	NalUnitFd        NALUnitType = 25
	NalUnitAP        NALUnitType = 28 // RTP aggregation packet
	NalUnitFU        NALUnitType = 29 // RTP fragmentation unit
)

const (
	MaxVPSCount  = 16
	MaxSPSCount  = 16
	MaxPPSCount  = 64
	MaxSubLayers = 7

	// HeaderSize is the size of the nal_unit_header().
	HeaderSize = 2
)

func (t NALUnitType) String() string {
	switch t {
	case NalUnitTrail:
		return "TRAIL"
	case NalUnitStsa:
		return "STSA"
	case NalUnitRadl:
		return "RADL"
	case NalUnitRasl:
		return "RASL"
	case NalUnitIdrWRadl:
		return "IDR_W_RADL"
	case NalUnitIdrNLp:
		return "IDR_N_LP"
	case NalUnitCra:
		return "CRA"
	case NalUnitGdr:
		return "GDR"
	case NalUnitOpi:
		return "OPI"
	case NalUnitDci:
		return "DCI"
	case NalUnitVps:
		return "VPS"
	case NalUnitSps:
		return "SPS"
	case NalUnitPps:
		return "PPS"
	case NalUnitPrefixAps:
		return "PREFIX_APS"
	case NalUnitSuffixAps:
		return "SUFFIX_APS"
	case NalUnitPh:
		return "PH"
	case NalUnitAud:
		return "AUD"
	case NalUnitEos:
		return "EOS"
	case NalUnitEob:
		return "EOB"
	case NalUnitPrefixSei:
		return "PREFIX_SEI"
	case NalUnitSuffixSei:
		return "SUFFIX_SEI"
	case NalUnitFd:
		return "FD"
	}
	return fmt.Sprintf("NAL(%d)", uint8(t))
}

// IsParameterSet reports VPS, SPS and PPS.
func (t NALUnitType) IsParameterSet() bool {
	return t == NalUnitVps || t == NalUnitSps || t == NalUnitPps
}

// IsVCL reports coded slice NAL unit types.
func (t NALUnitType) IsVCL() bool {
	return t <= 11 //nolint:mnd // 0..11 are VCL types
}

// IsKey reports IRAP and GDR pictures.
func (t NALUnitType) IsKey() bool {
	return t >= NalUnitIdrWRadl && t <= NalUnitGdr
}

// Header is the two-byte nal_unit_header().
type Header struct {
	ForbiddenZeroBit uint8
	Reserved         uint8
	LayerID          uint8
	Type             NALUnitType
	TemporalIDPlus1  uint8
}

// ParseHeader decodes the first two bytes of nalu.
func ParseHeader(nalu []byte) (h Header, err error) {
	if len(nalu) < HeaderSize {
		err = fmt.Errorf("%w: NAL unit of %d bytes has no header", ErrInvalidData, len(nalu))
		return
	}
	h.ForbiddenZeroBit = nalu[0] >> 7
	h.Reserved = nalu[0] >> 6 & 0x01 //nolint:mnd
	h.LayerID = nalu[0] & 0x3f       //nolint:mnd
	h.Type = NALUnitType(nalu[1] >> 3)
	h.TemporalIDPlus1 = nalu[1] & 0x07 //nolint:mnd
	return
}

// TypeOf returns the nal_unit_type of nalu, which must hold at least two bytes.
func TypeOf(nalu []byte) NALUnitType {
	return NALUnitType(nalu[1] >> 3)
}
