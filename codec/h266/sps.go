//nolint:mnd // Field widths come from the H.266 seq_parameter_set_rbsp() syntax.
package h266

import (
	"math"

	"github.com/ugparu/vvcmedia/utils/bits"
)

const (
	ctbSizeY      = 128
	maxSubpicBits = 16
)

//nolint:gocyclo,cyclop // Mirrors the branching of the SPS syntax.
func parseSPS(br *bits.Reader, rec *ConfigRecord) (err error) {
	// sps_seq_parameter_set_id and sps_video_parameter_set_id
	if err = br.SkipBits(8); err != nil {
		return
	}
	var maxSubLayersMinus1 uint
	if maxSubLayersMinus1, err = br.ReadBits(3); err != nil {
		return
	}
	if err = rec.updateSublayers(maxSubLayersMinus1); err != nil {
		return
	}

	var v uint
	if v, err = br.ReadBits(2); err != nil {
		return
	}
	rec.ChromaFormatIdc = uint8(v) //nolint:gosec
	var log2CtuSizeMinus5 uint
	if log2CtuSizeMinus5, err = br.ReadBits(2); err != nil {
		return
	}

	var ptlPresent bool
	if ptlPresent, err = br.ReadFlag(); err != nil {
		return
	}
	if ptlPresent {
		if err = parsePTL(br, rec, true, maxSubLayersMinus1); err != nil {
			return
		}
	}

	// sps_gdr_enabled_flag
	if err = br.SkipBits(1); err != nil {
		return
	}
	var refPicResampling bool
	if refPicResampling, err = br.ReadFlag(); err != nil {
		return
	}
	if refPicResampling {
		// sps_res_change_in_clvs_allowed_flag
		if err = br.SkipBits(1); err != nil {
			return
		}
	}

	var width, height uint
	if width, err = br.ReadUE(); err != nil {
		return
	}
	rec.MaxPictureWidth = max(rec.MaxPictureWidth, clampU16(width))
	if height, err = br.ReadUE(); err != nil {
		return
	}
	rec.MaxPictureHeight = max(rec.MaxPictureHeight, clampU16(height))

	var conformanceWindow bool
	if conformanceWindow, err = br.ReadFlag(); err != nil {
		return
	}
	if conformanceWindow {
		for range 4 {
			if _, err = br.ReadUE(); err != nil {
				return
			}
		}
	}

	var subpicInfoPresent bool
	if subpicInfoPresent, err = br.ReadFlag(); err != nil {
		return
	}
	if subpicInfoPresent {
		if err = skipSubpicInfo(br, log2CtuSizeMinus5, width, height); err != nil {
			return
		}
	}

	if v, err = br.ReadUE(); err != nil {
		return
	}
	rec.BitDepthMinus8 = uint8(min(v, math.MaxUint8)) //nolint:gosec
	// Nothing past the bit depth contributes to the record.
	return
}

func skipSubpicInfo(br *bits.Reader, log2CtuSizeMinus5, width, height uint) (err error) {
	var numSubpicsMinus1 uint
	if numSubpicsMinus1, err = br.ReadUE(); err != nil {
		return
	}
	independent, sameSize := true, false
	if numSubpicsMinus1 > 0 {
		if independent, err = br.ReadFlag(); err != nil {
			return
		}
		if sameSize, err = br.ReadFlag(); err != nil {
			return
		}
	}

	size := int(min(log2CtuSizeMinus5+5, maxSubpicBits)) //nolint:gosec
	for i := uint(0); numSubpicsMinus1 > 0 && i <= numSubpicsMinus1; i++ {
		if !sameSize || i == 0 {
			fields := 0
			if i > 0 && width > ctbSizeY {
				fields++ // sps_subpic_ctu_top_left_x
			}
			if i > 0 && height > ctbSizeY {
				fields++ // sps_subpic_ctu_top_left_y
			}
			if i < numSubpicsMinus1 && width > ctbSizeY {
				fields++ // sps_subpic_width_minus1
			}
			if i < numSubpicsMinus1 && height > ctbSizeY {
				fields++ // sps_subpic_height_minus1
			}
			if err = br.SkipBits(fields * size); err != nil {
				return
			}
		}
		if !independent {
			// sps_subpic_treated_as_pic_flag, sps_loop_filter_across_subpic_enabled_flag
			if err = br.SkipBits(2); err != nil {
				return
			}
		}
	}

	// sps_subpic_id_len_minus1
	if _, err = br.ReadUE(); err != nil {
		return
	}
	var explicit bool
	if explicit, err = br.ReadFlag(); err != nil {
		return
	}
	if explicit {
		var mappingPresent bool
		if mappingPresent, err = br.ReadFlag(); err != nil {
			return
		}
		if mappingPresent {
			// sps_subpic_id[i]
			if err = br.SkipBits(int(numSubpicsMinus1 + 1)); err != nil { //nolint:gosec
				return
			}
		}
	}
	return
}

func clampU16(v uint) uint16 {
	return uint16(min(v, math.MaxUint16)) //nolint:gosec
}

// parsePPS is a no-op: a PPS only contributes its bytes to the arrays.
func parsePPS(_ *bits.Reader, _ *ConfigRecord) error {
	return nil
}

// parseOPI reads operating_point_information_rbsp(). A signalled opi_ols_idx selects the
// record's output layer set.
func parseOPI(br *bits.Reader, rec *ConfigRecord) (err error) {
	var olsInfoPresent, htidInfoPresent bool
	if olsInfoPresent, err = br.ReadFlag(); err != nil {
		return
	}
	if htidInfoPresent, err = br.ReadFlag(); err != nil {
		return
	}
	if olsInfoPresent {
		var olsIdx uint
		if olsIdx, err = br.ReadUE(); err != nil {
			return
		}
		rec.OLSIdx = uint16(min(olsIdx, maxOLSIdx)) //nolint:gosec
	}
	if htidInfoPresent {
		// opi_htid_plus1
		if err = br.SkipBits(3); err != nil {
			return
		}
	}
	return
}
