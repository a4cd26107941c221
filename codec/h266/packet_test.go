package h266

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/vvcmedia/codec/h266/h266test"
	"github.com/ugparu/vvcmedia/utils/nal"
)

func TestPacket(t *testing.T) {
	t.Parallel()

	par, err := NewCodecParametersFromAnnexB(s1Stream(), true)
	require.NoError(t, err)
	par.SetStreamIndex(4)

	idr := h266test.Opaque(h266test.TypeIDR, 16)
	pkt := NewPacket(true, time.Second, nal.AVCCMarshal([][]byte{idr}), &par)
	require.Equal(t, uint8(4), pkt.StreamIndex())
	require.Equal(t, time.Second, pkt.Timestamp())
	require.Equal(t, 20, pkt.Len())
	require.True(t, pkt.IsKeyFrame())
	require.Equal(t, [][]byte{idr}, pkt.NALUs())
	require.Equal(t, "PACKET sz=20", pkt.String())

	shared := pkt.Clone(false)
	deep := pkt.Clone(true)
	pkt.Data()[4] = 0xff
	require.Equal(t, byte(0xff), shared.Data()[4])
	require.Equal(t, idr[0], deep.Data()[4])
	require.Same(t, pkt.CodecPar, deep.CodecPar)
}
