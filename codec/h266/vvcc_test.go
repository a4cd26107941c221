package h266

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/vvcmedia/codec/h266/h266test"
)

func TestWriteVVCC(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, WriteVVCC(&out, s1Stream(), true))

	rec, err := RecordFromAnnexB(s1Stream(), true)
	require.NoError(t, err)
	want, err := rec.Bytes()
	require.NoError(t, err)
	require.Equal(t, want, out.Bytes())
}

func TestWriteVVCCPassesFormedRecordThrough(t *testing.T) {
	t.Parallel()

	in := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	var out bytes.Buffer
	require.NoError(t, WriteVVCC(&out, in, true))
	require.Equal(t, in, out.Bytes())
}

func TestWriteVVCCErrors(t *testing.T) {
	t.Parallel()

	ptl := h266test.Profile(1, 0, 51)
	tests := []struct {
		name string
		in   []byte
	}{
		{"too short", []byte{0x00, 0x00, 0x01, 0x70}},
		{"no start code", []byte{0x02, 0x00, 0x00, 0x01, 0x70, 0x01, 0x00}},
		{"missing vps", h266test.AnnexB(h266test.SPS{PTL: &ptl, Width: 64, Height: 64}.NALU())},
		{"broken sps", h266test.AnnexB(
			h266test.VPS{PTL: ptl}.NALU(),
			h266test.NALU(h266test.TypeSPS, []byte{0x00}),
		)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			require.ErrorIs(t, WriteVVCC(&out, tt.in, true), ErrInvalidData)
			require.Zero(t, out.Len())
		})
	}
}

func TestRecordFromAnnexBSkipsSlices(t *testing.T) {
	t.Parallel()

	stream := append(s1Stream(), h266test.AnnexB(
		h266test.Opaque(h266test.TypeIDR, 64),
		h266test.Opaque(20, 3),
	)...)
	rec, err := RecordFromAnnexB(stream, true)
	require.NoError(t, err)
	require.Len(t, rec.Arrays, 3)
}
