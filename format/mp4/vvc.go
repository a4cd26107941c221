package mp4

import (
	"errors"
	"fmt"
	"io"

	gomp4 "github.com/abema/go-mp4"
	"github.com/ugparu/vvcmedia/codec/h266"
	"github.com/ugparu/vvcmedia/utils/logger"
)

const (
	resolution72DPI = 0x00480000 // 72 dpi as 16.16 fixed point
	depthColor      = 0x0018
)

var ErrNoVvcC = errors.New("mp4: no vvcC box found")

var compressorName = [32]byte{10, 'V', 'V', 'C', ' ', 'C', 'o', 'd', 'i', 'n', 'g'}

// MarshalVvcC returns the vvcC box for rec.
func MarshalVvcC(rec *h266.ConfigRecord) ([]byte, error) {
	box, err := NewVvcC(rec)
	if err != nil {
		return nil, err
	}
	w := NewWriter()
	if _, err = w.WriteBox(box); err != nil {
		return nil, err
	}
	return w.Bytes()
}

// WriteSampleEntry writes a vvc1 sample entry when complete is set, vvi1 otherwise, holding
// the vvcC box of par.
func WriteSampleEntry(w *Writer, par *h266.CodecParameters, complete bool) error {
	typ := BoxTypeVvi1()
	if complete {
		typ = BoxTypeVvc1()
	}
	box, err := NewVvcC(&par.RecordInfo)
	if err != nil {
		return err
	}

	entry := &gomp4.VisualSampleEntry{
		SampleEntry: gomp4.SampleEntry{
			AnyTypeBox:         gomp4.AnyTypeBox{Type: typ},
			DataReferenceIndex: 1,
		},
		Width:           uint16(par.Width()),  //nolint:gosec // from a 16-bit field
		Height:          uint16(par.Height()), //nolint:gosec // from a 16-bit field
		Horizresolution: resolution72DPI,
		Vertresolution:  resolution72DPI,
		FrameCount:      1,
		Compressorname:  compressorName,
		Depth:           depthColor,
		PreDefined3:     -1,
	}
	if _, err = w.WriteBoxStart(entry); err != nil {
		return err
	}
	if _, err = w.WriteBox(box); err != nil {
		return err
	}
	if err = w.WriteBoxEnd(); err != nil {
		return err
	}
	logger.Debugf(par, "wrote %v sample entry %dx%d", typ, par.Width(), par.Height())
	return nil
}

// SampleEntry is WriteSampleEntry into a new buffer.
func SampleEntry(par *h266.CodecParameters, complete bool) ([]byte, error) {
	w := NewWriter()
	if err := WriteSampleEntry(w, par, complete); err != nil {
		return nil, err
	}
	return w.Bytes()
}

// ReadVvcC returns the record of the first vvcC box in r, searching the whole box tree.
func ReadVvcC(r io.ReadSeeker) (*h266.ConfigRecord, error) {
	vals, err := gomp4.ReadBoxStructure(r, findVvcC)
	if err != nil {
		return nil, fmt.Errorf("mp4: %w", err)
	}
	for _, v := range vals {
		if box, ok := v.(*VvcC); ok {
			return box.ConfigRecord()
		}
	}
	return nil, ErrNoVvcC
}

func findVvcC(h *gomp4.ReadHandle) (any, error) {
	switch {
	case h.BoxInfo.Type == BoxTypeVvcC():
		box, _, err := h.ReadPayload()
		if err != nil {
			return nil, err
		}
		return box, nil
	case h.BoxInfo.Type == gomp4.BoxTypeMdat(), !h.BoxInfo.IsSupportedType():
		return nil, nil
	}
	vals, err := h.Expand()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}
