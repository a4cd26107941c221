package h266

import (
	"errors"
	"fmt"

	"github.com/ugparu/vvcmedia"
	"github.com/ugparu/vvcmedia/codec"
)

const avgFrameRateUnit = 256 // avg_frame_rate is in frames per 256 seconds

var (
	_ gomedia.VideoCodecParameters = (*CodecParameters)(nil)
	_ gomedia.ConfigRecord         = (*ConfigRecord)(nil)
)

var errNoParameterSets = errors.New("h266: record has no VPS or SPS")

type CodecParameters struct {
	codec.BaseParameters
	Record     []byte
	RecordInfo ConfigRecord
}

// NewCodecParametersFromRecord wraps a marshalled vvcC record.
func NewCodecParametersFromRecord(record []byte) (codecPar CodecParameters, err error) {
	if _, err = codecPar.RecordInfo.Unmarshal(record); err != nil {
		return
	}
	if codecPar.RecordInfo.Count(NalUnitVps) == 0 || codecPar.RecordInfo.Count(NalUnitSps) == 0 {
		err = errNoParameterSets
		return
	}
	codecPar.Record = append([]byte(nil), record...)
	codecPar.CodecType = gomedia.H266
	return
}

// NewCodecParametersFromAnnexB builds the record from the parameter sets of an Annex-B stream.
func NewCodecParametersFromAnnexB(data []byte, psArrayCompleteness bool) (codecPar CodecParameters, err error) {
	var rec *ConfigRecord
	if rec, err = RecordFromAnnexB(data, psArrayCompleteness); err != nil {
		return
	}
	return NewCodecParametersFromConfigRecord(rec)
}

// NewCodecParametersFromConfigRecord snapshots rec. Later changes to rec are not seen by
// the returned parameters.
func NewCodecParametersFromConfigRecord(rec *ConfigRecord) (codecPar CodecParameters, err error) {
	var record []byte
	if record, err = rec.Bytes(); err != nil {
		err = fmt.Errorf("h266: build record: %w", err)
		return
	}
	return NewCodecParametersFromRecord(record)
}

func (par *CodecParameters) VVCDecoderConfRecordBytes() []byte {
	return par.Record
}

func (par *CodecParameters) first(typ NALUnitType) []byte {
	if arr := par.RecordInfo.Array(typ); arr != nil && len(arr.NALUnits) > 0 {
		return arr.NALUnits[0]
	}
	return []byte{}
}

func (par *CodecParameters) VPS() []byte {
	return par.first(NalUnitVps)
}

func (par *CodecParameters) SPS() []byte {
	return par.first(NalUnitSps)
}

func (par *CodecParameters) PPS() []byte {
	return par.first(NalUnitPps)
}

func (par *CodecParameters) Width() uint {
	return uint(par.RecordInfo.MaxPictureWidth)
}

func (par *CodecParameters) Height() uint {
	return uint(par.RecordInfo.MaxPictureHeight)
}

// FPS is derived from avg_frame_rate and is 0 when the record leaves it unspecified.
func (par *CodecParameters) FPS() uint {
	return uint(par.RecordInfo.AvgFrameRate) / avgFrameRateUnit
}

// Tag returns the codecs parameter string, e.g. vvc1.1.L51.
func (par *CodecParameters) Tag() string {
	tier := "L"
	if par.RecordInfo.PTL.GeneralTierFlag == 1 {
		tier = "H"
	}
	return fmt.Sprintf("vvc1.%d.%s%d",
		par.RecordInfo.PTL.GeneralProfileIdc, tier, par.RecordInfo.PTL.GeneralLevelIdc)
}
