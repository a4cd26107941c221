package h266

import (
	"errors"

	"github.com/ugparu/vvcmedia/utils/bits"
)

var (
	// ErrInvalidData reports malformed input. Truncation and Exp-Golomb overflow from the
	// bit reader match it as well.
	ErrInvalidData = bits.ErrInvalidData
	// ErrUnsupported reports a NAL unit type that has no place in a configuration record.
	ErrUnsupported = errors.New("h266: unsupported NAL unit type")
)
