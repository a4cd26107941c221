//nolint:mnd // Field widths come from the H.266 video_parameter_set_rbsp() syntax.
package h266

import (
	"fmt"

	"github.com/ugparu/vvcmedia/utils/bits"
)

func (rec *ConfigRecord) updateSublayers(maxSubLayersMinus1 uint) error {
	if maxSubLayersMinus1 >= MaxSubLayers {
		return fmt.Errorf("%w: max_sublayers_minus1=%d", ErrInvalidData, maxSubLayersMinus1)
	}
	rec.NumSublayers = max(rec.NumSublayers, uint8(maxSubLayersMinus1)+1) //nolint:gosec // < MaxSubLayers
	return nil
}

//nolint:gocyclo,cyclop // Mirrors the branching of the VPS syntax.
func parseVPS(br *bits.Reader, rec *ConfigRecord) (err error) {
	// vps_video_parameter_set_id
	if err = br.SkipBits(4); err != nil {
		return
	}
	var maxLayersMinus1, maxSubLayersMinus1 uint
	if maxLayersMinus1, err = br.ReadBits(6); err != nil {
		return
	}
	if maxSubLayersMinus1, err = br.ReadBits(3); err != nil {
		return
	}
	if err = rec.updateSublayers(maxSubLayersMinus1); err != nil {
		return
	}

	defaultPTLMaxTid := true
	allIndependent := true
	if maxLayersMinus1 > 0 && maxSubLayersMinus1 > 0 {
		if defaultPTLMaxTid, err = br.ReadFlag(); err != nil {
			return
		}
	}
	if maxLayersMinus1 > 0 {
		if allIndependent, err = br.ReadFlag(); err != nil {
			return
		}
	}

	for i := uint(0); i <= maxLayersMinus1; i++ {
		// vps_layer_id[i]
		if err = br.SkipBits(6); err != nil {
			return
		}
		if i == 0 || allIndependent {
			continue
		}
		var independent bool
		if independent, err = br.ReadFlag(); err != nil {
			return
		}
		if independent {
			continue
		}
		var maxTidRefPresent bool
		if maxTidRefPresent, err = br.ReadFlag(); err != nil {
			return
		}
		for j := uint(0); j < i; j++ {
			var directRef bool
			if directRef, err = br.ReadFlag(); err != nil {
				return
			}
			if directRef && maxTidRefPresent {
				// vps_max_tid_il_ref_pics_plus1[i][j]
				if err = br.SkipBits(3); err != nil {
					return
				}
			}
		}
	}

	var numPTLsMinus1 uint
	if maxLayersMinus1 > 0 {
		eachLayerIsAnOLS := false
		if allIndependent {
			if eachLayerIsAnOLS, err = br.ReadFlag(); err != nil {
				return
			}
		}
		if !eachLayerIsAnOLS {
			olsModeIdc := uint(2)
			if !allIndependent {
				if olsModeIdc, err = br.ReadBits(2); err != nil {
					return
				}
			}
			if olsModeIdc == 2 {
				var numOutputLayerSetsMinus2 uint
				if numOutputLayerSetsMinus2, err = br.ReadBits(8); err != nil {
					return
				}
				// vps_ols_output_layer_flag[i][j]
				if err = br.SkipBits(int((numOutputLayerSetsMinus2 + 1) * (maxLayersMinus1 + 1))); err != nil { //nolint:gosec
					return
				}
			}
		}
		if numPTLsMinus1, err = br.ReadBits(8); err != nil {
			return
		}
	}

	ptPresent := make([]bool, numPTLsMinus1+1)
	ptlMaxTid := make([]uint, numPTLsMinus1+1)
	for i := range ptPresent {
		ptPresent[i] = true
		if i > 0 {
			if ptPresent[i], err = br.ReadFlag(); err != nil {
				return
			}
		}
		ptlMaxTid[i] = maxSubLayersMinus1
		if !defaultPTLMaxTid {
			if ptlMaxTid[i], err = br.ReadBits(3); err != nil {
				return
			}
			if ptlMaxTid[i] > maxSubLayersMinus1 {
				return fmt.Errorf("%w: vps_ptl_max_tid[%d]=%d", ErrInvalidData, i, ptlMaxTid[i])
			}
		}
	}
	br.SkipToByteBoundary()

	for i := range ptPresent {
		if err = parsePTL(br, rec, ptPresent[i], ptlMaxTid[i]); err != nil {
			return
		}
	}
	// Nothing past the PTLs contributes to the record.
	return
}
