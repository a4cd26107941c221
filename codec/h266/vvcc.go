package h266

import (
	"fmt"
	"io"

	"github.com/ugparu/vvcmedia/utils/logger"
	"github.com/ugparu/vvcmedia/utils/nal"
)

const (
	minExtradataSize = 6
	vvccVersionByte  = 1
)

// RecordFromAnnexB builds a configuration record from the OPI, DCI, VPS, SPS, PPS and SEI
// units of an Annex-B stream. Other NAL units are ignored.
func RecordFromAnnexB(data []byte, psArrayCompleteness bool) (rec *ConfigRecord, err error) {
	rec = NewConfigRecord()
	for _, unit := range ParseUnits(data) {
		switch unit.Type {
		case NalUnitOpi, NalUnitDci, NalUnitVps, NalUnitSps, NalUnitPps, NalUnitPrefixSei, NalUnitSuffixSei:
			if err = rec.AddNALUnit(unit.NALU, psArrayCompleteness); err != nil {
				return
			}
		default:
			logger.Tracef(rec, "skipping %v", unit.Type)
		}
	}
	return
}

// WriteVVCC writes the vvcC record for extradata to w. Extradata that already starts with
// 0x01 is treated as a formed record and written unchanged; otherwise it must be an Annex-B
// stream.
func WriteVVCC(w io.Writer, data []byte, psArrayCompleteness bool) (err error) {
	switch {
	case len(data) < minExtradataSize:
		return fmt.Errorf("%w: extradata of %d bytes", ErrInvalidData, len(data))
	case data[0] == vvccVersionByte:
		_, err = w.Write(data)
		return
	case nal.StartCodeLen(data) == 0:
		return fmt.Errorf("%w: extradata has no Annex-B start code", ErrInvalidData)
	}

	var rec *ConfigRecord
	if rec, err = RecordFromAnnexB(data, psArrayCompleteness); err != nil {
		return
	}
	defer rec.Close()
	_, err = rec.WriteTo(w)
	return
}
