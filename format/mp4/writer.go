package mp4

import (
	"io"

	gomp4 "github.com/abema/go-mp4"
	"github.com/orcaman/writerseeker"
)

// Writer builds a box tree in memory.
type Writer struct {
	buf *writerseeker.WriterSeeker
	w   *gomp4.Writer
}

// NewWriter allocates a Writer.
func NewWriter() *Writer {
	w := &Writer{
		buf: &writerseeker.WriterSeeker{},
	}
	w.w = gomp4.NewWriter(w.buf)
	return w
}

// WriteBoxStart writes a box header and payload, leaving the box open for children.
func (w *Writer) WriteBoxStart(box gomp4.IImmutableBox) (int, error) {
	bi, err := w.w.StartBox(&gomp4.BoxInfo{Type: box.GetType()})
	if err != nil {
		return 0, err
	}
	if _, err = gomp4.Marshal(w.w, box, gomp4.Context{}); err != nil {
		return 0, err
	}
	return int(bi.Offset), nil //nolint:gosec
}

// WriteBoxEnd closes the innermost open box and fixes its size.
func (w *Writer) WriteBoxEnd() error {
	_, err := w.w.EndBox()
	return err
}

// WriteBox writes a box without children.
func (w *Writer) WriteBox(box gomp4.IImmutableBox) (int, error) {
	off, err := w.WriteBoxStart(box)
	if err != nil {
		return 0, err
	}
	if err = w.WriteBoxEnd(); err != nil {
		return 0, err
	}
	return off, nil
}

// Bytes returns the written boxes.
func (w *Writer) Bytes() ([]byte, error) {
	return io.ReadAll(w.buf.Reader())
}
