package h266

import (
	"bytes"
	"fmt"

	"github.com/ugparu/vvcmedia/utils/bits"
	"github.com/ugparu/vvcmedia/utils/logger"
	"github.com/ugparu/vvcmedia/utils/nal"
)

const (
	defaultLengthSizeMinusOne = 3 // 4-byte length prefixes
	maxOLSIdx                 = 0x1ff
)

// PTLRecord is the aggregated VvcPTLRecord of a configuration record.
type PTLRecord struct {
	NumBytesConstraintInfo   uint8
	GeneralProfileIdc        uint8
	GeneralTierFlag          uint8
	GeneralLevelIdc          uint8
	FrameOnlyConstraintFlag  bool
	MultilayerEnabledFlag    bool
	GeneralConstraintInfo    []byte // packed general_constraints_info(), NumBytesConstraintInfo bytes
	SublayerLevelPresentFlag [MaxSubLayers - 1]bool
	SublayerLevelIdc         [MaxSubLayers - 1]uint8
	NumSubProfiles           uint8
	GeneralSubProfileIdc     []uint32
}

// NALUnitArray groups the NAL units of one type.
type NALUnitArray struct {
	ArrayCompleteness bool
	NALUnitType       NALUnitType
	NALUnits          [][]byte
}

// ConfigRecord is the VVCDecoderConfigurationRecord (vvcC) of ISO/IEC 14496-15.
//
// NAL units handed to AddNALUnit and Unmarshal are copied, so callers may reuse their
// buffers as soon as the call returns.
type ConfigRecord struct {
	LengthSizeMinusOne uint8
	PTLPresentFlag     bool
	OLSIdx             uint16
	NumSublayers       uint8
	ConstantFrameRate  uint8
	ChromaFormatIdc    uint8
	BitDepthMinus8     uint8
	PTL                PTLRecord
	MaxPictureWidth    uint16
	MaxPictureHeight   uint16
	AvgFrameRate       uint16
	Arrays             []NALUnitArray

	ptlSeen bool
}

// NewConfigRecord returns an empty record with 4-byte length prefixes and a PTL block.
func NewConfigRecord() *ConfigRecord {
	return &ConfigRecord{
		LengthSizeMinusOne: defaultLengthSizeMinusOne,
		PTLPresentFlag:     true,
		PTL: PTLRecord{
			NumBytesConstraintInfo: 1,
			GeneralConstraintInfo:  []byte{0x00},
		},
	}
}

func (rec *ConfigRecord) String() string {
	return "VVCC_RECORD"
}

// Close releases the arrays and the aggregated PTL storage. The record can be reused
// afterwards as if freshly created.
func (rec *ConfigRecord) Close() {
	*rec = *NewConfigRecord()
}

// Array returns the array holding NAL units of type typ, or nil.
func (rec *ConfigRecord) Array(typ NALUnitType) *NALUnitArray {
	for i := range rec.Arrays {
		if rec.Arrays[i].NALUnitType == typ {
			return &rec.Arrays[i]
		}
	}
	return nil
}

// Count returns the number of stored NAL units of type typ.
func (rec *ConfigRecord) Count(typ NALUnitType) int {
	if arr := rec.Array(typ); arr != nil {
		return len(arr.NALUnits)
	}
	return 0
}

// Contains reports whether a NAL unit identical to nalu is already stored.
func (rec *ConfigRecord) Contains(nalu []byte) bool {
	if len(nalu) < HeaderSize {
		return false
	}
	if arr := rec.Array(TypeOf(nalu)); arr != nil {
		for _, stored := range arr.NALUnits {
			if bytes.Equal(stored, nalu) {
				return true
			}
		}
	}
	return false
}

// AddNALUnit parses nalu (header included, emulation prevention intact) and appends a
// copy of it to the array of its type. Parameter-set arrays take psArrayCompleteness.
// On failure the record is left exactly as it was before the call.
func (rec *ConfigRecord) AddNALUnit(nalu []byte, psArrayCompleteness bool) (err error) {
	var hdr Header
	if hdr, err = ParseHeader(nalu); err != nil {
		return
	}
	if hdr.ForbiddenZeroBit != 0 {
		return fmt.Errorf("%w: forbidden_zero_bit set in %v", ErrInvalidData, hdr.Type)
	}

	var parse func(*bits.Reader, *ConfigRecord) error
	switch hdr.Type {
	case NalUnitOpi:
		parse = parseOPI
	case NalUnitVps:
		parse = parseVPS
	case NalUnitSps:
		parse = parseSPS
	case NalUnitPps:
		parse = parsePPS
	case NalUnitDci, NalUnitPrefixSei, NalUnitSuffixSei:
		// Only stored. Non-declarative SEI messages are not filtered out.
	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, hdr.Type)
	}

	if parse != nil {
		saved := *rec
		rbsp := nal.ExtractRBSP(nalu, HeaderSize)
		if err = parse(bits.NewReader(rbsp[HeaderSize:]), rec); err != nil {
			*rec = saved
			return fmt.Errorf("h266: parse %v: %w", hdr.Type, err)
		}
	}

	rec.appendNALUnit(nalu, hdr.Type, psArrayCompleteness)
	logger.Tracef(rec, "added %v of %d bytes, %d arrays", hdr.Type, len(nalu), len(rec.Arrays))
	return
}

func (rec *ConfigRecord) appendNALUnit(nalu []byte, typ NALUnitType, psArrayCompleteness bool) {
	arr := rec.Array(typ)
	if arr == nil {
		rec.Arrays = append(rec.Arrays, NALUnitArray{NALUnitType: typ})
		arr = &rec.Arrays[len(rec.Arrays)-1]
	}
	arr.NALUnits = append(arr.NALUnits, append([]byte(nil), nalu...))
	// array_completeness defaults to 1 for parameter sets of 'vvc1' and 0 otherwise.
	if typ.IsParameterSet() {
		arr.ArrayCompleteness = psArrayCompleteness
	}
}
