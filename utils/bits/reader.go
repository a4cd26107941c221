// Package bits reads and writes MSB-first bit strings such as H.266 RBSPs.
package bits

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidData is the root of every decoding failure reported by this package.
	ErrInvalidData = errors.New("invalid data")
	// ErrTruncated is returned when a read runs past the end of the buffer.
	ErrTruncated = fmt.Errorf("%w: truncated bitstream", ErrInvalidData)
	// ErrGolombOverflow is returned for Exp-Golomb codes with more than 31 leading zeros.
	ErrGolombOverflow = fmt.Errorf("%w: exp-golomb code overflow", ErrInvalidData)
	// ErrBitCount is returned when a caller asks for an unsupported read width.
	ErrBitCount = errors.New("bits: unsupported bit count")
)

const (
	byteSize         = 8
	maxReadBits      = 32
	maxLeadingZeroes = 31
)

// Reader is a bit reader over an in-memory buffer. It never copies the buffer.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// BitPos returns the number of bits consumed so far.
func (r *Reader) BitPos() int {
	return r.pos
}

// Left returns the number of unread bits.
func (r *Reader) Left() int {
	return len(r.buf)*byteSize - r.pos
}

func (r *Reader) IsByteAligned() bool {
	return r.pos%byteSize == 0
}

// ReadBits reads n bits, 0 <= n <= 32. The position is left untouched on failure.
func (r *Reader) ReadBits(n int) (v uint, err error) {
	if n < 0 || n > maxReadBits {
		err = fmt.Errorf("%w: %d", ErrBitCount, n)
		return
	}
	if n > r.Left() {
		err = ErrTruncated
		return
	}
	for n > 0 {
		off := r.pos % byteSize
		avail := byteSize - off
		take := min(avail, n)
		chunk := uint(r.buf[r.pos/byteSize]>>(avail-take)) & (1<<take - 1)
		v = v<<take | chunk
		r.pos += take
		n -= take
	}
	return
}

func (r *Reader) ReadBit() (uint, error) {
	return r.ReadBits(1)
}

// ReadFlag reads one bit as a boolean.
func (r *Reader) ReadFlag() (bool, error) {
	v, err := r.ReadBits(1)
	return v == 1, err
}

// ReadBits64 reads up to 64 bits as two 32-bit halves.
func (r *Reader) ReadBits64(n int) (v uint64, err error) {
	if n < 0 || n > 2*maxReadBits {
		err = fmt.Errorf("%w: %d", ErrBitCount, n)
		return
	}
	if n > r.Left() {
		err = ErrTruncated
		return
	}
	if n > maxReadBits {
		var hi uint
		if hi, err = r.ReadBits(n - maxReadBits); err != nil {
			return
		}
		v = uint64(hi) << maxReadBits
		n = maxReadBits
	}
	var lo uint
	if lo, err = r.ReadBits(n); err != nil {
		return
	}
	v |= uint64(lo)
	return
}

// ReadUE reads an unsigned Exp-Golomb code.
func (r *Reader) ReadUE() (v uint, err error) {
	start := r.pos
	zeroes := 0
	for {
		var b uint
		if b, err = r.ReadBit(); err != nil {
			r.pos = start
			return
		}
		if b == 1 {
			break
		}
		zeroes++
		if zeroes > maxLeadingZeroes {
			r.pos = start
			err = ErrGolombOverflow
			return
		}
	}
	var suffix uint
	if suffix, err = r.ReadBits(zeroes); err != nil {
		r.pos = start
		return
	}
	v = (1<<zeroes - 1) + suffix
	return
}

// ReadSE reads a signed Exp-Golomb code.
func (r *Reader) ReadSE() (v int, err error) {
	var u uint
	if u, err = r.ReadUE(); err != nil {
		return
	}
	if u%2 == 1 {
		v = int((u + 1) / 2) //nolint:gosec // u < 2^32
	} else {
		v = -int(u / 2) //nolint:gosec // u < 2^32
	}
	return
}

// SkipBits advances n bits. The position is left untouched on failure.
func (r *Reader) SkipBits(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrBitCount, n)
	}
	if n > r.Left() {
		return ErrTruncated
	}
	r.pos += n
	return nil
}

// SkipToByteBoundary advances to the next multiple of 8 bits.
func (r *Reader) SkipToByteBoundary() {
	if rem := r.pos % byteSize; rem != 0 {
		r.pos += byteSize - rem
	}
}
