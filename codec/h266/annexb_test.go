package h266

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/vvcmedia/codec/h266/h266test"
)

func TestParseUnits(t *testing.T) {
	t.Parallel()

	vps := h266test.Opaque(h266test.TypeVPS, 10)
	slice := h266test.Opaque(h266test.TypeIDR, 30)
	in := append([]byte{0xaa, 0x00, 0x00, 0x01, 0x00}, h266test.AnnexB(vps, slice)...)
	in = append(in, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00)

	units := ParseUnits(in)
	require.Len(t, units, 2)
	require.Equal(t, NalUnitVps, units[0].Type)
	require.Equal(t, vps, units[0].NALU)
	require.Equal(t, vps[2:], units[0].Payload())
	require.Equal(t, NalUnitIdrNLp, units[1].Type)
	require.Equal(t, slice, units[1].NALU)
}

func TestAnnexBToMP4FiltersParameterSets(t *testing.T) {
	t.Parallel()

	slice := h266test.Opaque(h266test.TypeIDR, 100)
	in := h266test.AnnexB(
		h266test.Opaque(h266test.TypeVPS, 10),
		h266test.Opaque(h266test.TypeSPS, 20),
		slice,
	)

	var out bytes.Buffer
	written, psCount, err := AnnexBToMP4(&out, in, true)
	require.NoError(t, err)
	require.Equal(t, 104, written)
	require.Equal(t, 2, psCount)
	require.Equal(t, append([]byte{0x00, 0x00, 0x00, 0x64}, slice...), out.Bytes())
}

func TestAnnexBToMP4KeepsEverythingWithoutFilter(t *testing.T) {
	t.Parallel()

	nalus := [][]byte{
		h266test.Opaque(h266test.TypeVPS, 10),
		h266test.Opaque(h266test.TypeSPS, 20),
		h266test.Opaque(h266test.TypePPS, 5),
		h266test.Opaque(h266test.TypeIDR, 50),
	}
	out, psCount, err := AnnexBToMP4Buf(h266test.AnnexB(nalus...), false)
	require.NoError(t, err)
	require.Zero(t, psCount)

	var want []byte
	for _, nalu := range nalus {
		want = append(want, 0x00, 0x00, 0x00, byte(len(nalu)))
		want = append(want, nalu...)
	}
	require.Equal(t, want, out)
}

func TestAnnexBToMP4ClipsCorruptedLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{
			"first length",
			[]byte{0x00, 0x00, 0x00, 0x10, 0x00, 0x41, 0xaa, 0xbb, 0xcc},
			[]byte{0x00, 0x00, 0x00, 0x05, 0x00, 0x41, 0xaa, 0xbb, 0xcc},
		},
		{
			"second length",
			[]byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x41, 0x00, 0x00, 0xff, 0xff, 0x00, 0x41, 0xaa},
			[]byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x41, 0x00, 0x00, 0x00, 0x03, 0x00, 0x41, 0xaa},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, _, err := AnnexBToMP4Buf(tt.in, true)
			require.NoError(t, err)
			require.Equal(t, tt.want, out)
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("sink closed")
}

func TestAnnexBToMP4WriteError(t *testing.T) {
	t.Parallel()

	in := h266test.AnnexB(h266test.Opaque(h266test.TypeIDR, 10))
	_, _, err := AnnexBToMP4(failingWriter{}, in, false)
	require.EqualError(t, err, "sink closed")
}
