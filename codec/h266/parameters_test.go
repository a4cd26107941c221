package h266

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/vvcmedia"
	"github.com/ugparu/vvcmedia/codec/h266/h266test"
)

func TestCodecParameters(t *testing.T) {
	t.Parallel()

	par, err := NewCodecParametersFromAnnexB(s1Stream(), true)
	require.NoError(t, err)
	require.Equal(t, gomedia.H266, par.Type())
	require.Equal(t, uint(1920), par.Width())
	require.Equal(t, uint(1080), par.Height())
	require.Zero(t, par.FPS())
	require.Equal(t, "vvc1.1.L51", par.Tag())
	require.NotEmpty(t, par.VPS())
	require.NotEmpty(t, par.SPS())
	require.NotEmpty(t, par.PPS())

	fromRecord, err := NewCodecParametersFromRecord(par.VVCDecoderConfRecordBytes())
	require.NoError(t, err)
	require.Equal(t, par.Record, fromRecord.Record)
	require.Equal(t, par.RecordInfo, fromRecord.RecordInfo)
	require.Equal(t, par.Tag(), fromRecord.Tag())
}

func TestCodecParametersHighTier(t *testing.T) {
	t.Parallel()

	ptl := h266test.Profile(17, 1, 83)
	par, err := NewCodecParametersFromAnnexB(h266test.Stream(h266test.SPS{PTL: &ptl, Width: 64, Height: 64}), true)
	require.NoError(t, err)
	require.Equal(t, "vvc1.17.H83", par.Tag())
}

func TestCodecParametersErrors(t *testing.T) {
	t.Parallel()

	_, err := NewCodecParametersFromRecord([]byte{0xfa, 0x00})
	require.ErrorIs(t, err, errNoParameterSets)

	_, err = NewCodecParametersFromRecord([]byte{0xfb})
	require.ErrorIs(t, err, ErrInvalidData)

	ptl := h266test.Profile(1, 0, 51)
	_, err = NewCodecParametersFromAnnexB(h266test.AnnexB(h266test.SPS{PTL: &ptl, Width: 64, Height: 64}.NALU()), true)
	require.ErrorIs(t, err, ErrInvalidData)

	var par CodecParameters
	require.Empty(t, par.SPS())
}

func TestCodecParametersFromConfigRecordIsSnapshot(t *testing.T) {
	t.Parallel()

	rec, err := RecordFromAnnexB(s1Stream(), true)
	require.NoError(t, err)

	par, err := NewCodecParametersFromConfigRecord(rec)
	require.NoError(t, err)
	before := append([]byte(nil), par.Record...)

	require.NoError(t, rec.AddNALUnit(h266test.Opaque(h266test.TypePPS, 12), true))
	require.Equal(t, 2, rec.Count(NalUnitPps))
	require.Equal(t, 1, par.RecordInfo.Count(NalUnitPps))
	require.Equal(t, before, par.Record)

	rec.Close()
	_, err = NewCodecParametersFromConfigRecord(rec)
	require.ErrorIs(t, err, ErrInvalidData)
}
