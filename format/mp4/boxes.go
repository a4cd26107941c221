package mp4

import (
	"fmt"

	gomp4 "github.com/abema/go-mp4"
	"github.com/ugparu/vvcmedia/codec/h266"
)

// BoxTypeVvcC returns the box type of the VVC configuration box.
func BoxTypeVvcC() gomp4.BoxType { return gomp4.StrToBoxType("vvcC") }

// BoxTypeVvc1 returns the sample entry type whose parameter sets are all in the vvcC box.
func BoxTypeVvc1() gomp4.BoxType { return gomp4.StrToBoxType("vvc1") }

// BoxTypeVvi1 returns the sample entry type whose parameter sets may also be in-band.
func BoxTypeVvi1() gomp4.BoxType { return gomp4.StrToBoxType("vvi1") }

func init() { //nolint:gochecknoinits
	gomp4.AddBoxDef(&VvcC{}, 0)
	gomp4.AddAnyTypeBoxDef(&gomp4.VisualSampleEntry{}, BoxTypeVvc1())
	gomp4.AddAnyTypeBoxDef(&gomp4.VisualSampleEntry{}, BoxTypeVvi1())
}

// VvcC is the VvcConfigurationBox, a full box carrying a marshalled VVCDecoderConfigurationRecord.
type VvcC struct {
	gomp4.FullBox `mp4:"0,extend"`
	Record        []byte `mp4:"1,size=8"`
}

// GetType returns the box type.
func (*VvcC) GetType() gomp4.BoxType {
	return BoxTypeVvcC()
}

// NewVvcC validates and marshals rec into a box.
func NewVvcC(rec *h266.ConfigRecord) (*VvcC, error) {
	b, err := rec.Bytes()
	if err != nil {
		return nil, fmt.Errorf("mp4: vvcC: %w", err)
	}
	return &VvcC{Record: b}, nil
}

// ConfigRecord decodes the carried record.
func (box *VvcC) ConfigRecord() (*h266.ConfigRecord, error) {
	rec := h266.NewConfigRecord()
	n, err := rec.Unmarshal(box.Record)
	if err != nil {
		return nil, fmt.Errorf("mp4: vvcC: %w", err)
	}
	if n != len(box.Record) {
		return nil, fmt.Errorf("mp4: vvcC: %d trailing bytes", len(box.Record)-n)
	}
	return rec, nil
}
