//nolint:mnd // Field widths come from the VVCDecoderConfigurationRecord syntax.
package h266

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/ugparu/vvcmedia/utils/bits"
	"github.com/ugparu/vvcmedia/utils/bits/pio"
	"github.com/ugparu/vvcmedia/utils/logger"
)

const maxConstraintInfoBytes = 0x3f

// Validate checks the invariants Marshal relies on.
//
//nolint:gocyclo,cyclop // One check per constraint of the record.
func (rec *ConfigRecord) Validate() error {
	vpsCount, spsCount, ppsCount := rec.Count(NalUnitVps), rec.Count(NalUnitSps), rec.Count(NalUnitPps)
	if vpsCount == 0 || vpsCount > MaxVPSCount {
		return fmt.Errorf("%w: vps_count=%d", ErrInvalidData, vpsCount)
	}
	if spsCount == 0 || spsCount > MaxSPSCount {
		return fmt.Errorf("%w: sps_count=%d", ErrInvalidData, spsCount)
	}
	if ppsCount > MaxPPSCount {
		return fmt.Errorf("%w: pps_count=%d", ErrInvalidData, ppsCount)
	}
	if rec.LengthSizeMinusOne > 3 {
		return fmt.Errorf("%w: length_size_minus_one=%d", ErrInvalidData, rec.LengthSizeMinusOne)
	}
	if rec.PTLPresentFlag {
		p := &rec.PTL
		if p.NumBytesConstraintInfo == 0 || p.NumBytesConstraintInfo > maxConstraintInfoBytes {
			return fmt.Errorf("%w: num_bytes_constraint_info=%d", ErrInvalidData, p.NumBytesConstraintInfo)
		}
		if len(p.GeneralSubProfileIdc) < int(p.NumSubProfiles) {
			return fmt.Errorf("%w: %d sub-profiles stored, %d signalled",
				ErrInvalidData, len(p.GeneralSubProfileIdc), p.NumSubProfiles)
		}
		if rec.NumSublayers > MaxSubLayers {
			return fmt.Errorf("%w: num_sublayers=%d", ErrInvalidData, rec.NumSublayers)
		}
	}
	if len(rec.Arrays) > math.MaxUint8 {
		return fmt.Errorf("%w: %d arrays", ErrInvalidData, len(rec.Arrays))
	}
	for _, arr := range rec.Arrays {
		if !hasNumNalus(arr.NALUnitType) && len(arr.NALUnits) != 1 {
			return fmt.Errorf("%w: %v array holds %d NAL units", ErrInvalidData, arr.NALUnitType, len(arr.NALUnits))
		}
		if len(arr.NALUnits) > math.MaxUint16 {
			return fmt.Errorf("%w: %v array holds %d NAL units", ErrInvalidData, arr.NALUnitType, len(arr.NALUnits))
		}
		for _, nalu := range arr.NALUnits {
			if len(nalu) > math.MaxUint16 {
				return fmt.Errorf("%w: %v of %d bytes", ErrInvalidData, arr.NALUnitType, len(nalu))
			}
		}
	}
	return nil
}

// hasNumNalus reports whether the array carries a num_nalus field. DCI and OPI arrays hold
// exactly one NAL unit and omit it.
func hasNumNalus(typ NALUnitType) bool {
	return typ != NalUnitDci && typ != NalUnitOpi
}

func (rec *ConfigRecord) sublayerLevelsPresent() (n int) {
	for i := int(rec.NumSublayers) - 2; i >= 0; i-- {
		if rec.PTL.SublayerLevelPresentFlag[i] {
			n++
		}
	}
	return
}

// Len returns the size of the marshalled record.
func (rec *ConfigRecord) Len() (n int) {
	n = 1
	if rec.PTLPresentFlag {
		n += 3
		n += 3 + int(rec.PTL.NumBytesConstraintInfo)
		if rec.NumSublayers > 1 {
			n++
		}
		n += rec.sublayerLevelsPresent()
		n += 1 + 4*int(rec.PTL.NumSubProfiles)
		n += 6
	}
	n++
	for _, arr := range rec.Arrays {
		n++
		if hasNumNalus(arr.NALUnitType) {
			n += 2
		}
		for _, nalu := range arr.NALUnits {
			n += 2 + len(nalu)
		}
	}
	return
}

// constraintBytes packs ptl_frame_only_constraint_flag, ptl_multilayer_enabled_flag and the
// high 8*num_bytes_constraint_info-2 bits of the packed general_constraints_info().
func (p *PTLRecord) constraintBytes() []byte {
	size := int(p.NumBytesConstraintInfo)
	packed := make([]byte, size)
	copy(packed, p.GeneralConstraintInfo)

	w := &bits.Writer{}
	w.WriteBit(p.FrameOnlyConstraintFlag)
	w.WriteBit(p.MultilayerEnabledFlag)
	br := bits.NewReader(packed)
	for left := size*8 - 2; left > 0; {
		k := min(left, 32)
		v, _ := br.ReadBits(k)
		w.WriteBits(uint64(v), k)
		left -= k
	}
	return w.Bytes()
}

// Marshal writes the record into b, which must hold Len() bytes. avg_frame_rate and
// constant_frame_rate are always written as 0 (unspecified) and 1.
func (rec *ConfigRecord) Marshal(b []byte) (n int) {
	rec.AvgFrameRate = 0
	rec.ConstantFrameRate = 1

	b[n] = rec.LengthSizeMinusOne&0x03<<1 | boolBit(rec.PTLPresentFlag) | 0xf8
	n++

	if rec.PTLPresentFlag {
		p := &rec.PTL
		pio.PutU16BE(b[n:], rec.OLSIdx&maxOLSIdx<<7|
			uint16(rec.NumSublayers&0x07)<<4|
			uint16(rec.ConstantFrameRate&0x03)<<2|
			uint16(rec.ChromaFormatIdc&0x03))
		n += 2
		b[n] = rec.BitDepthMinus8&0x07<<5 | 0x1f
		n++

		b[n] = p.NumBytesConstraintInfo & maxConstraintInfoBytes
		n++
		b[n] = p.GeneralProfileIdc<<1 | p.GeneralTierFlag&0x01
		n++
		b[n] = p.GeneralLevelIdc
		n++
		n += copy(b[n:], p.constraintBytes())

		if rec.NumSublayers > 1 {
			w := &bits.Writer{}
			for i := int(rec.NumSublayers) - 2; i >= 0; i-- {
				w.WriteBit(p.SublayerLevelPresentFlag[i])
			}
			w.AlignZero()
			b[n] = w.Bytes()[0]
			n++
		}
		for i := int(rec.NumSublayers) - 2; i >= 0; i-- {
			if p.SublayerLevelPresentFlag[i] {
				b[n] = p.SublayerLevelIdc[i]
				n++
			}
		}

		b[n] = p.NumSubProfiles
		n++
		for j := range int(p.NumSubProfiles) {
			pio.PutU32BE(b[n:], p.GeneralSubProfileIdc[j])
			n += 4
		}

		pio.PutU16BE(b[n:], rec.MaxPictureWidth)
		n += 2
		pio.PutU16BE(b[n:], rec.MaxPictureHeight)
		n += 2
		pio.PutU16BE(b[n:], rec.AvgFrameRate)
		n += 2
	}

	b[n] = uint8(len(rec.Arrays)) //nolint:gosec // checked by Validate
	n++
	for _, arr := range rec.Arrays {
		b[n] = boolBit(arr.ArrayCompleteness)<<7 | uint8(arr.NALUnitType)&0x1f
		n++
		if hasNumNalus(arr.NALUnitType) {
			pio.PutU16BE(b[n:], uint16(len(arr.NALUnits))) //nolint:gosec // checked by Validate
			n += 2
		}
		for _, nalu := range arr.NALUnits {
			pio.PutU16BE(b[n:], uint16(len(nalu))) //nolint:gosec // checked by Validate
			n += 2
			n += copy(b[n:], nalu)
		}
	}
	return
}

// Bytes validates and marshals the record.
func (rec *ConfigRecord) Bytes() (b []byte, err error) {
	if err = rec.Validate(); err != nil {
		return
	}
	b = make([]byte, rec.Len())
	rec.Marshal(b)
	logger.Debugf(rec, "profile=%d tier=%d level=%d sublayers=%d %dx%d arrays=%d size=%d",
		rec.PTL.GeneralProfileIdc, rec.PTL.GeneralTierFlag, rec.PTL.GeneralLevelIdc, rec.NumSublayers,
		rec.MaxPictureWidth, rec.MaxPictureHeight, len(rec.Arrays), len(b))
	return
}

// WriteTo validates the record and writes it to w.
func (rec *ConfigRecord) WriteTo(w io.Writer) (n int64, err error) {
	var b []byte
	if b, err = rec.Bytes(); err != nil {
		return
	}
	var written int
	written, err = w.Write(b)
	n = int64(written)
	return
}

type recordReader struct {
	b []byte
	n int
}

func (r *recordReader) take(size int, field string) (b []byte, err error) {
	if len(r.b) < r.n+size {
		err = fmt.Errorf("%w: vvcC truncated at %s (offset %d)", ErrInvalidData, field, r.n)
		return
	}
	b = r.b[r.n : r.n+size]
	r.n += size
	return
}

func (r *recordReader) u8(field string) (uint8, error) {
	b, err := r.take(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *recordReader) u16(field string) (uint16, error) {
	b, err := r.take(2, field)
	if err != nil {
		return 0, err
	}
	return pio.U16BE(b), nil
}

// Unmarshal decodes a marshalled record from b, replacing the contents of rec. It returns
// the number of bytes consumed. NAL units are copied out of b.
//
//nolint:gocyclo,cyclop,funlen // Mirrors the record syntax.
func (rec *ConfigRecord) Unmarshal(b []byte) (n int, err error) {
	r := &recordReader{b: b}
	out := NewConfigRecord()

	var v uint8
	if v, err = r.u8("header"); err != nil {
		return
	}
	out.LengthSizeMinusOne = v >> 1 & 0x03
	out.PTLPresentFlag = v&0x01 == 1

	if out.PTLPresentFlag {
		var word uint16
		if word, err = r.u16("ols_idx"); err != nil {
			return
		}
		out.OLSIdx = word >> 7
		out.NumSublayers = uint8(word >> 4 & 0x07)      //nolint:gosec
		out.ConstantFrameRate = uint8(word >> 2 & 0x03) //nolint:gosec
		out.ChromaFormatIdc = uint8(word & 0x03)        //nolint:gosec
		if v, err = r.u8("bit_depth_minus8"); err != nil {
			return
		}
		out.BitDepthMinus8 = v >> 5

		p := &out.PTL
		if v, err = r.u8("num_bytes_constraint_info"); err != nil {
			return
		}
		p.NumBytesConstraintInfo = v & maxConstraintInfoBytes
		if p.NumBytesConstraintInfo == 0 {
			err = fmt.Errorf("%w: num_bytes_constraint_info=0", ErrInvalidData)
			return
		}
		if v, err = r.u8("general_profile_idc"); err != nil {
			return
		}
		p.GeneralProfileIdc = v >> 1
		p.GeneralTierFlag = v & 0x01
		if p.GeneralLevelIdc, err = r.u8("general_level_idc"); err != nil {
			return
		}
		var constraints []byte
		if constraints, err = r.take(int(p.NumBytesConstraintInfo), "general_constraint_info"); err != nil {
			return
		}
		p.setConstraintBytes(constraints)

		if out.NumSublayers > 1 {
			if v, err = r.u8("ptl_sublayer_level_present_flag"); err != nil {
				return
			}
			br := bits.NewReader([]byte{v})
			for i := int(out.NumSublayers) - 2; i >= 0; i-- {
				p.SublayerLevelPresentFlag[i], _ = br.ReadFlag()
			}
		}
		for i := int(out.NumSublayers) - 2; i >= 0; i-- {
			switch {
			case p.SublayerLevelPresentFlag[i]:
				if p.SublayerLevelIdc[i], err = r.u8("sublayer_level_idc"); err != nil {
					return
				}
			case i == int(out.NumSublayers)-2:
				p.SublayerLevelIdc[i] = p.GeneralLevelIdc
			default:
				p.SublayerLevelIdc[i] = p.SublayerLevelIdc[i+1]
			}
		}

		if p.NumSubProfiles, err = r.u8("num_sub_profiles"); err != nil {
			return
		}
		p.GeneralSubProfileIdc = make([]uint32, p.NumSubProfiles)
		for j := range p.GeneralSubProfileIdc {
			var sp []byte
			if sp, err = r.take(4, "general_sub_profile_idc"); err != nil {
				return
			}
			p.GeneralSubProfileIdc[j] = pio.U32BE(sp)
		}

		if out.MaxPictureWidth, err = r.u16("max_picture_width"); err != nil {
			return
		}
		if out.MaxPictureHeight, err = r.u16("max_picture_height"); err != nil {
			return
		}
		if out.AvgFrameRate, err = r.u16("avg_frame_rate"); err != nil {
			return
		}
		out.ptlSeen = true
	}

	var numArrays uint8
	if numArrays, err = r.u8("num_of_arrays"); err != nil {
		return
	}
	for range numArrays {
		if v, err = r.u8("NAL_unit_type"); err != nil {
			return
		}
		arr := NALUnitArray{
			ArrayCompleteness: v>>7 == 1,
			NALUnitType:       NALUnitType(v & 0x1f),
		}
		if out.Array(arr.NALUnitType) != nil {
			err = fmt.Errorf("%w: duplicate %v array", ErrInvalidData, arr.NALUnitType)
			return
		}
		numNalus := uint16(1)
		if hasNumNalus(arr.NALUnitType) {
			if numNalus, err = r.u16("num_nalus"); err != nil {
				return
			}
		}
		for range numNalus {
			var size uint16
			if size, err = r.u16("nal_unit_length"); err != nil {
				return
			}
			var nalu []byte
			if nalu, err = r.take(int(size), "nal_unit"); err != nil {
				return
			}
			arr.NALUnits = append(arr.NALUnits, bytes.Clone(nalu))
		}
		out.Arrays = append(out.Arrays, arr)
	}

	*rec = *out
	n = r.n
	return
}

// setConstraintBytes is the inverse of constraintBytes. The two low bits of the packed
// general_constraints_info() are not carried by the record and come back as zero.
func (p *PTLRecord) setConstraintBytes(c []byte) {
	br := bits.NewReader(c)
	p.FrameOnlyConstraintFlag, _ = br.ReadFlag()
	p.MultilayerEnabledFlag, _ = br.ReadFlag()
	w := &bits.Writer{}
	for br.Left() > 0 {
		k := min(br.Left(), 32)
		v, _ := br.ReadBits(k)
		w.WriteBits(uint64(v), k)
	}
	w.WriteBits(0, 2)
	p.GeneralConstraintInfo = w.Bytes()
}

func boolBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
