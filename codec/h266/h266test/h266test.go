// Package h266test synthesises H.266 parameter sets for tests.
package h266test

import (
	"github.com/ugparu/vvcmedia/utils/bits"
	"github.com/ugparu/vvcmedia/utils/nal"
)

// NAL unit types used by the builders.
const (
	TypeIDR = 8
	TypeOPI = 12
	TypeDCI = 13
	TypeVPS = 14
	TypeSPS = 15
	TypePPS = 16
	TypeSEI = 23
)

// PTL describes one profile_tier_level().
type PTL struct {
	ProfileIdc      uint8
	TierFlag        uint8
	LevelIdc        uint8
	FrameOnly       bool
	Multilayer      bool
	GCI             bool
	GCIFlags        uint64 // first 64 constraint flags
	GCITail         uint8  // last 7 constraint flags
	GCIReservedBits uint8

	SublayerLevelPresent [6]bool
	SublayerLevelIdc     [6]uint8
	SubProfiles          []uint32
}

// Write appends the PTL to w.
func (p PTL) Write(w *bits.Writer, profileTierPresent bool, maxSubLayersMinus1 int) {
	if profileTierPresent {
		w.WriteBits(uint64(p.ProfileIdc), 7)
		w.WriteBits(uint64(p.TierFlag), 1)
	}
	w.WriteBits(uint64(p.LevelIdc), 8)
	w.WriteBit(p.FrameOnly)
	w.WriteBit(p.Multilayer)
	if profileTierPresent {
		w.WriteBit(p.GCI)
		if p.GCI {
			w.WriteBits(p.GCIFlags, 64)
			w.WriteBits(uint64(p.GCITail), 7)
			w.WriteBits(uint64(p.GCIReservedBits), 8)
			w.WriteBits(0, int(p.GCIReservedBits))
		}
		w.AlignZero()
	}
	for i := maxSubLayersMinus1 - 1; i >= 0; i-- {
		w.WriteBit(p.SublayerLevelPresent[i])
	}
	w.AlignZero()
	for i := maxSubLayersMinus1 - 1; i >= 0; i-- {
		if p.SublayerLevelPresent[i] {
			w.WriteBits(uint64(p.SublayerLevelIdc[i]), 8)
		}
	}
	if profileTierPresent {
		w.WriteBits(uint64(len(p.SubProfiles)), 8)
		for _, sp := range p.SubProfiles {
			w.WriteBits(uint64(sp), 32)
		}
	}
}

// VPS describes a single-layer video_parameter_set_rbsp().
type VPS struct {
	MaxSubLayersMinus1 uint8
	PTL                PTL
}

// NALU returns the VPS as a NAL unit.
func (v VPS) NALU() []byte {
	w := &bits.Writer{}
	w.WriteBits(0, 4) // vps_video_parameter_set_id
	w.WriteBits(0, 6) // vps_max_layers_minus1
	w.WriteBits(uint64(v.MaxSubLayersMinus1), 3)
	w.WriteBits(0, 6) // vps_layer_id[0]
	w.AlignZero()
	v.PTL.Write(w, true, int(v.MaxSubLayersMinus1))
	w.WriteBits(0, 1) // vps_extension_flag
	w.TrailingBits()
	return NALU(TypeVPS, w.Bytes())
}

// SPS describes the leading part of a seq_parameter_set_rbsp().
type SPS struct {
	MaxSubLayersMinus1 uint8
	ChromaFormatIdc    uint8
	Log2CtuSizeMinus5  uint8
	PTL                *PTL
	Width              uint
	Height             uint
	ConformanceWindow  bool
	Subpics            int // 0 leaves sps_subpic_info_present_flag unset
	BitDepthMinus8     uint
}

// NALU returns the SPS as a NAL unit. Syntax after sps_bitdepth_minus8 is replaced by
// rbsp_trailing_bits.
func (s SPS) NALU() []byte {
	w := &bits.Writer{}
	w.WriteBits(0, 4) // sps_seq_parameter_set_id
	w.WriteBits(0, 4) // sps_video_parameter_set_id
	w.WriteBits(uint64(s.MaxSubLayersMinus1), 3)
	w.WriteBits(uint64(s.ChromaFormatIdc), 2)
	w.WriteBits(uint64(s.Log2CtuSizeMinus5), 2)
	w.WriteBit(s.PTL != nil)
	if s.PTL != nil {
		s.PTL.Write(w, true, int(s.MaxSubLayersMinus1))
	}
	w.WriteBits(0, 1) // sps_gdr_enabled_flag
	w.WriteBits(1, 1) // sps_ref_pic_resampling_enabled_flag
	w.WriteBits(0, 1) // sps_res_change_in_clvs_allowed_flag
	w.WriteUE(s.Width)
	w.WriteUE(s.Height)
	w.WriteBit(s.ConformanceWindow)
	if s.ConformanceWindow {
		for _, off := range []uint{0, 4, 0, 4} {
			w.WriteUE(off)
		}
	}
	w.WriteBit(s.Subpics > 0)
	if s.Subpics > 0 {
		s.writeSubpics(w)
	}
	w.WriteUE(s.BitDepthMinus8)
	w.TrailingBits()
	return NALU(TypeSPS, w.Bytes())
}

// writeSubpics writes subpictures that are neither independent nor equally sized.
func (s SPS) writeSubpics(w *bits.Writer) {
	last := s.Subpics - 1
	w.WriteUE(uint(last))
	if last > 0 {
		w.WriteBits(0, 1) // sps_independent_subpics_flag
		w.WriteBits(0, 1) // sps_subpic_same_size_flag
		size := min(int(s.Log2CtuSizeMinus5)+5, 16)
		for i := 0; i <= last; i++ {
			if i > 0 && s.Width > 128 {
				w.WriteBits(uint64(i), size)
			}
			if i > 0 && s.Height > 128 {
				w.WriteBits(uint64(i), size)
			}
			if i < last && s.Width > 128 {
				w.WriteBits(1, size)
			}
			if i < last && s.Height > 128 {
				w.WriteBits(1, size)
			}
			w.WriteBits(0b11, 2) // treated_as_pic, loop_filter_across_subpic
		}
	}
	w.WriteUE(0)      // sps_subpic_id_len_minus1
	w.WriteBits(1, 1) // sps_subpic_id_mapping_explicitly_signalled_flag
	w.WriteBits(1, 1) // sps_subpic_id_mapping_present_flag
	for i := 0; i <= last; i++ {
		w.WriteBits(uint64(i&1), 1)
	}
}

// OPI returns an operating_point_information_rbsp() selecting olsIdx.
func OPI(olsIdx uint) []byte {
	w := &bits.Writer{}
	w.WriteBits(1, 1) // opi_ols_info_present_flag
	w.WriteBits(1, 1) // opi_htid_info_present_flag
	w.WriteUE(olsIdx)
	w.WriteBits(2, 3) // opi_htid_plus1
	w.WriteBits(0, 1) // opi_extension_flag
	w.TrailingBits()
	return NALU(TypeOPI, w.Bytes())
}

// NALU prepends a nal_unit_header() with layer 0 and TemporalId 0 to rbsp and inserts
// emulation prevention bytes.
func NALU(typ uint8, rbsp []byte) []byte {
	raw := append([]byte{0x00, typ<<3 | 1}, rbsp...)
	return nal.InsertEmulationPrevention(raw, 2)
}

// Opaque returns a NAL unit of typ with size-2 payload bytes that contain no start code.
func Opaque(typ uint8, size int) []byte {
	b := make([]byte, size)
	b[0], b[1] = 0x00, typ<<3|1
	for i := 2; i < size; i++ {
		b[i] = byte(0x40 + i%0x40)
	}
	return b
}

// AnnexB joins NAL units with 4-byte start codes.
func AnnexB(nalus ...[]byte) []byte {
	return nal.AnnexBMarshal(nalus)
}

// Profile returns a Main 10 style PTL.
func Profile(profile, tier, level uint8) PTL {
	return PTL{ProfileIdc: profile, TierFlag: tier, LevelIdc: level, FrameOnly: true}
}

// Stream returns Annex-B extradata holding one VPS, one SPS and one PPS.
func Stream(sps SPS) []byte {
	vps := VPS{MaxSubLayersMinus1: sps.MaxSubLayersMinus1}
	if sps.PTL != nil {
		vps.PTL = *sps.PTL
	}
	return AnnexB(vps.NALU(), sps.NALU(), Opaque(TypePPS, 8))
}
