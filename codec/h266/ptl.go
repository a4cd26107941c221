//nolint:mnd // Field widths come from the H.266 profile_tier_level() syntax.
package h266

import (
	"github.com/ugparu/vvcmedia/utils/bits"
)

const (
	gciFlagsBits   = 71
	gciFlagsHigh   = 64
	gciHeaderBytes = 10 // gci_present_flag + 71 flag bits + gci_num_reserved_bits
	byteBits       = 8
)

// ProfileTierLevel holds one parsed profile_tier_level() structure.
type ProfileTierLevel struct {
	ProfileIdc               uint8
	TierFlag                 uint8
	GeneralLevelIdc          uint8
	FrameOnlyConstraintFlag  bool
	MultilayerEnabledFlag    bool
	GCIPresentFlag           bool
	GCIFlags                 uint64 // first 64 of the 71 general constraint flags
	GCIFlagsTail             uint8  // remaining 7 flags
	GCINumReservedBits       uint8
	SublayerLevelPresentFlag [MaxSubLayers - 1]bool
	SublayerLevelIdc         [MaxSubLayers - 1]uint8
	NumSubProfiles           uint8
	GeneralSubProfileIdc     []uint32
	MaxSubLayersMinus1       uint8
	ProfileTierPresent       bool
}

// constraintInfo packs gci_present_flag, the 71 constraint flags, gci_num_reserved_bits and
// the zero reserved bits, padded to whole bytes.
func (ptl *ProfileTierLevel) constraintInfo() []byte {
	if !ptl.GCIPresentFlag {
		return []byte{0x00}
	}
	w := &bits.Writer{}
	w.WriteBit(true)
	w.WriteBits(ptl.GCIFlags, gciFlagsHigh)
	w.WriteBits(uint64(ptl.GCIFlagsTail), gciFlagsBits-gciFlagsHigh)
	w.WriteBits(uint64(ptl.GCINumReservedBits), byteBits)
	w.WriteBits(0, reservedBytes(ptl.GCINumReservedBits)*byteBits)
	return w.Bytes()
}

func reservedBytes(numReservedBits uint8) int {
	return (int(numReservedBits) + byteBits - 1) / byteBits
}

func parsePTL(br *bits.Reader, rec *ConfigRecord, profileTierPresent bool, maxSubLayersMinus1 uint) (err error) {
	ptl := ProfileTierLevel{
		MaxSubLayersMinus1: uint8(maxSubLayersMinus1), //nolint:gosec // checked by callers
		ProfileTierPresent: profileTierPresent,
	}
	var v uint
	if profileTierPresent {
		if v, err = br.ReadBits(7); err != nil {
			return
		}
		ptl.ProfileIdc = uint8(v) //nolint:gosec
		if v, err = br.ReadBit(); err != nil {
			return
		}
		ptl.TierFlag = uint8(v) //nolint:gosec
	}
	if v, err = br.ReadBits(8); err != nil {
		return
	}
	ptl.GeneralLevelIdc = uint8(v) //nolint:gosec
	if ptl.FrameOnlyConstraintFlag, err = br.ReadFlag(); err != nil {
		return
	}
	if ptl.MultilayerEnabledFlag, err = br.ReadFlag(); err != nil {
		return
	}

	if profileTierPresent {
		if err = parseGCI(br, &ptl); err != nil {
			return
		}
	}

	for i := int(maxSubLayersMinus1) - 1; i >= 0; i-- {
		if ptl.SublayerLevelPresentFlag[i], err = br.ReadFlag(); err != nil {
			return
		}
	}
	br.SkipToByteBoundary()

	for i := int(maxSubLayersMinus1) - 1; i >= 0; i-- {
		if !ptl.SublayerLevelPresentFlag[i] {
			continue
		}
		if v, err = br.ReadBits(8); err != nil {
			return
		}
		ptl.SublayerLevelIdc[i] = uint8(v) //nolint:gosec
	}

	if profileTierPresent {
		if v, err = br.ReadBits(8); err != nil {
			return
		}
		ptl.NumSubProfiles = uint8(v) //nolint:gosec
		ptl.GeneralSubProfileIdc = make([]uint32, ptl.NumSubProfiles)
		for j := range ptl.GeneralSubProfileIdc {
			if v, err = br.ReadBits(32); err != nil {
				return
			}
			ptl.GeneralSubProfileIdc[j] = uint32(v) //nolint:gosec
		}
	}

	rec.updatePTL(&ptl)
	return
}

func parseGCI(br *bits.Reader, ptl *ProfileTierLevel) (err error) {
	if ptl.GCIPresentFlag, err = br.ReadFlag(); err != nil {
		return
	}
	if ptl.GCIPresentFlag {
		if ptl.GCIFlags, err = br.ReadBits64(gciFlagsHigh); err != nil {
			return
		}
		var v uint
		if v, err = br.ReadBits(gciFlagsBits - gciFlagsHigh); err != nil {
			return
		}
		ptl.GCIFlagsTail = uint8(v) //nolint:gosec
		if v, err = br.ReadBits(8); err != nil {
			return
		}
		ptl.GCINumReservedBits = uint8(v) //nolint:gosec
		if err = br.SkipBits(int(ptl.GCINumReservedBits)); err != nil {
			return
		}
	}
	br.SkipToByteBoundary()
	return
}

// updatePTL folds one parsed profile_tier_level() into the record.
func (rec *ConfigRecord) updatePTL(ptl *ProfileTierLevel) {
	p := &rec.PTL

	// general_level_idc indicates the highest level of the highest tier.
	switch {
	case p.GeneralTierFlag < ptl.TierFlag:
		p.GeneralLevelIdc = ptl.GeneralLevelIdc
	case p.GeneralTierFlag == ptl.TierFlag:
		p.GeneralLevelIdc = max(p.GeneralLevelIdc, ptl.GeneralLevelIdc)
	}
	p.GeneralTierFlag = max(p.GeneralTierFlag, ptl.TierFlag)

	// The stream may need examination to find a common profile; the highest one is used.
	p.GeneralProfileIdc = max(p.GeneralProfileIdc, ptl.ProfileIdc)

	// A constraint flag is kept only when every parameter set sets it.
	if rec.ptlSeen {
		p.FrameOnlyConstraintFlag = p.FrameOnlyConstraintFlag && ptl.FrameOnlyConstraintFlag
		p.MultilayerEnabledFlag = p.MultilayerEnabledFlag && ptl.MultilayerEnabledFlag
	} else {
		p.FrameOnlyConstraintFlag = ptl.FrameOnlyConstraintFlag
		p.MultilayerEnabledFlag = ptl.MultilayerEnabledFlag
	}
	rec.ptlSeen = true

	if ptl.GCIPresentFlag {
		p.NumBytesConstraintInfo = uint8(gciHeaderBytes + reservedBytes(ptl.GCINumReservedBits)) //nolint:gosec
	} else {
		p.NumBytesConstraintInfo = 1
	}
	p.GeneralConstraintInfo = ptl.constraintInfo()

	// A sub-layer level may be signalled when any parameter set signals it.
	for i := int(rec.NumSublayers) - 2; i >= 0; i-- {
		p.SublayerLevelPresentFlag[i] = p.SublayerLevelPresentFlag[i] || ptl.SublayerLevelPresentFlag[i]
		switch {
		case p.SublayerLevelPresentFlag[i]:
			p.SublayerLevelIdc[i] = max(p.SublayerLevelIdc[i], ptl.SublayerLevelIdc[i])
		case i == int(rec.NumSublayers)-2:
			p.SublayerLevelIdc[i] = p.GeneralLevelIdc
		default:
			p.SublayerLevelIdc[i] = p.SublayerLevelIdc[i+1]
		}
	}

	p.NumSubProfiles = max(p.NumSubProfiles, ptl.NumSubProfiles)
	subProfiles := make([]uint32, p.NumSubProfiles)
	copy(subProfiles, p.GeneralSubProfileIdc)
	copy(subProfiles, ptl.GeneralSubProfileIdc)
	p.GeneralSubProfileIdc = subProfiles
}
