package bits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadBits(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0b10110010, 0xff, 0x01})

	v, err := r.ReadBits(3)
	require.NoError(t, err)
	require.Equal(t, uint(0b101), v)

	v, err = r.ReadBits(7)
	require.NoError(t, err)
	require.Equal(t, uint(0b1001011), v)
	require.Equal(t, 10, r.BitPos())

	v, err = r.ReadBits(14)
	require.NoError(t, err)
	require.Equal(t, uint(0b11111100000001), v)
	require.Equal(t, 0, r.Left())

	_, err = r.ReadBit()
	require.ErrorIs(t, err, ErrTruncated)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestReadBitsWidth(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0xde, 0xad, 0xbe, 0xef, 0x55})
	v, err := r.ReadBits(32)
	require.NoError(t, err)
	require.Equal(t, uint(0xdeadbeef), v)

	_, err = r.ReadBits(33)
	require.ErrorIs(t, err, ErrBitCount)
}

func TestReadBitsTruncatedKeepsPosition(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0xf0})
	require.NoError(t, r.SkipBits(5))
	_, err := r.ReadBits(4)
	require.ErrorIs(t, err, ErrTruncated)
	require.Equal(t, 5, r.BitPos())
	require.ErrorIs(t, r.SkipBits(4), ErrTruncated)
	require.Equal(t, 5, r.BitPos())
}

func TestReadBits64(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0x80, 0, 0, 0, 0, 0, 0, 0, 0x01})
	v, err := r.ReadBits64(40)
	require.NoError(t, err)
	require.Equal(t, uint64(1)<<39, v)

	v, err = r.ReadBits64(31)
	require.NoError(t, err)
	require.Equal(t, uint64(0), v)
	require.Equal(t, 71, r.BitPos())

	v, err = r.ReadBits64(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}

func TestReadUE(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bits  string
		value uint
	}{
		{name: "one", bits: "1", value: 0},
		{name: "010", bits: "010", value: 1},
		{name: "011", bits: "011", value: 2},
		{name: "00100", bits: "00100", value: 3},
		{name: "0001000", bits: "0001000", value: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewReader(fromBitString(tt.bits))
			v, err := r.ReadUE()
			require.NoError(t, err)
			require.Equal(t, tt.value, v)
			require.Equal(t, len(tt.bits), r.BitPos())
		})
	}
}

func TestReadUEOverflow(t *testing.T) {
	t.Parallel()

	// 32 zero bits followed by a one.
	r := NewReader([]byte{0, 0, 0, 0, 0x80})
	_, err := r.ReadUE()
	require.ErrorIs(t, err, ErrGolombOverflow)
	require.ErrorIs(t, err, ErrInvalidData)
	require.Equal(t, 0, r.BitPos())
}

func TestReadUELongestCode(t *testing.T) {
	t.Parallel()

	w := &Writer{}
	w.WriteUE(1<<32 - 2)
	r := NewReader(w.Bytes())
	v, err := r.ReadUE()
	require.NoError(t, err)
	require.Equal(t, uint(1<<32-2), v)
}

func TestReadUETruncated(t *testing.T) {
	t.Parallel()

	r := NewReader(fromBitString("0001"))
	_, err := r.ReadUE()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestReadSE(t *testing.T) {
	t.Parallel()

	w := &Writer{}
	values := []int{0, 1, -1, 2, -2, 17, -300}
	for _, v := range values {
		w.WriteSE(v)
	}
	r := NewReader(w.Bytes())
	for _, want := range values {
		v, err := r.ReadSE()
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
}

func TestSkipToByteBoundary(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0xff, 0x0f})
	r.SkipToByteBoundary()
	require.Equal(t, 0, r.BitPos())
	require.NoError(t, r.SkipBits(3))
	require.False(t, r.IsByteAligned())
	r.SkipToByteBoundary()
	require.Equal(t, 8, r.BitPos())
	v, err := r.ReadBits(8)
	require.NoError(t, err)
	require.Equal(t, uint(0x0f), v)
}

func TestWriter(t *testing.T) {
	t.Parallel()

	w := &Writer{}
	w.WriteBits(0b101, 3)
	w.WriteBit(true)
	w.WriteUE(3)
	w.AlignZero()
	w.WriteBytes([]byte{0xab})
	w.TrailingBits()
	require.Equal(t, []byte{0b10110010, 0x00, 0xab, 0x80}, w.Bytes())
	require.Equal(t, 32, w.Len())
}

func fromBitString(s string) []byte {
	w := &Writer{}
	for _, c := range s {
		w.WriteBit(c == '1')
	}
	return w.Bytes()
}
