// Package mpegts extracts and muxes H.266 elementary streams in MPEG-TS.
package mpegts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astits"
	"github.com/ugparu/vvcmedia/codec/h266"
	"github.com/ugparu/vvcmedia/utils/logger"
)

// StreamTypeVVCVideo is the PMT stream_type of an H.266 elementary stream.
const StreamTypeVVCVideo astits.StreamType = 0x33

// ErrNoVVCStream is returned when no PMT announces an H.266 elementary stream.
var ErrNoVVCStream = errors.New("no H.266 elementary stream found")

// AccessUnit is the Annex-B payload of one PES packet. Timestamps are in 90 kHz units;
// DTS equals PTS when the packet carries only a PTS.
type AccessUnit struct {
	PTS  int64
	DTS  int64
	Data []byte
}

// Units splits the access unit into NAL units.
func (au AccessUnit) Units() []h266.Unit {
	return h266.ParseUnits(au.Data)
}

type reader struct {
	pid   uint16
	found bool
}

func (r *reader) String() string {
	if !r.found {
		return "MPEGTS_VVC_READER"
	}
	return fmt.Sprintf("MPEGTS_VVC_READER pid=%d", r.pid)
}

// ReadVVC demuxes r and returns the access units of the first elementary stream whose
// stream_type is 0x33. PES packets of other PIDs are ignored.
func ReadVVC(ctx context.Context, r io.Reader) (aus []AccessUnit, err error) {
	rd := &reader{}
	dem := astits.NewDemuxer(ctx, r)

	for {
		var data *astits.DemuxerData
		if data, err = dem.NextData(); err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				break
			}
			return nil, err
		}

		if data.PMT != nil && !rd.found {
			for _, es := range data.PMT.ElementaryStreams {
				if es.StreamType == StreamTypeVVCVideo {
					rd.pid = es.ElementaryPID
					rd.found = true
					logger.Debugf(rd, "Found H.266 stream in program %d", data.PMT.ProgramNumber)
					break
				}
			}
			continue
		}

		if data.PES == nil || !rd.found || data.PID != rd.pid {
			continue
		}

		au := AccessUnit{Data: data.PES.Data}
		if oh := data.PES.Header.OptionalHeader; oh != nil {
			switch oh.PTSDTSIndicator {
			case astits.PTSDTSIndicatorBothPresent:
				au.PTS = oh.PTS.Base
				au.DTS = oh.DTS.Base
			case astits.PTSDTSIndicatorOnlyPTS:
				au.PTS = oh.PTS.Base
				au.DTS = oh.PTS.Base
			}
		}
		aus = append(aus, au)
	}

	if !rd.found {
		return nil, ErrNoVVCStream
	}
	logger.Debugf(rd, "Read %d access units", len(aus))
	return aus, nil
}

// RecordFromTS builds a decoder configuration record from the distinct parameter sets
// carried by the first H.266 stream in r. Repeated VPS, SPS and PPS units are stored once.
func RecordFromTS(ctx context.Context, r io.Reader, psArrayCompleteness bool) (*h266.ConfigRecord, error) {
	aus, err := ReadVVC(ctx, r)
	if err != nil {
		return nil, err
	}

	rec := h266.NewConfigRecord()
	for _, au := range aus {
		for _, unit := range au.Units() {
			if !unit.Type.IsParameterSet() || rec.Contains(unit.NALU) {
				continue
			}
			if err = rec.AddNALUnit(unit.NALU, psArrayCompleteness); err != nil {
				return nil, err
			}
		}
	}
	return rec, nil
}
