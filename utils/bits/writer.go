package bits

// Writer packs bits MSB-first into a growing buffer.
type Writer struct {
	buf   []byte
	nbits int
}

// Len returns the number of bits written.
func (w *Writer) Len() int {
	return w.nbits
}

// WriteBits appends the low n bits of v, 0 <= n <= 64.
func (w *Writer) WriteBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.nbits%byteSize == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 == 1 {
			w.buf[len(w.buf)-1] |= 1 << (byteSize - 1 - w.nbits%byteSize)
		}
		w.nbits++
	}
}

func (w *Writer) WriteBit(b bool) {
	if b {
		w.WriteBits(1, 1)
	} else {
		w.WriteBits(0, 1)
	}
}

// WriteUE appends an unsigned Exp-Golomb code.
func (w *Writer) WriteUE(v uint) {
	code := uint64(v) + 1
	n := 0
	for c := code; c > 1; c >>= 1 {
		n++
	}
	w.WriteBits(0, n)
	w.WriteBits(code, n+1)
}

// WriteSE appends a signed Exp-Golomb code.
func (w *Writer) WriteSE(v int) {
	if v > 0 {
		w.WriteUE(uint(2*v - 1)) //nolint:gosec // v > 0
	} else {
		w.WriteUE(uint(-2 * v)) //nolint:gosec // v <= 0
	}
}

// WriteBytes appends whole bytes at the current bit position.
func (w *Writer) WriteBytes(b []byte) {
	for _, c := range b {
		w.WriteBits(uint64(c), byteSize)
	}
}

// AlignZero pads with zero bits up to the next byte boundary.
func (w *Writer) AlignZero() {
	if rem := w.nbits % byteSize; rem != 0 {
		w.WriteBits(0, byteSize-rem)
	}
}

// TrailingBits appends rbsp_trailing_bits: a stop bit and zero alignment.
func (w *Writer) TrailingBits() {
	w.WriteBits(1, 1)
	w.AlignZero()
}

// Bytes returns the packed buffer. A partial last byte is zero-padded.
func (w *Writer) Bytes() []byte {
	return w.buf
}
