package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/ugparu/vvcmedia/codec/h266"
	"github.com/ugparu/vvcmedia/format/mp4"
	"github.com/ugparu/vvcmedia/format/mpegts"
	"github.com/ugparu/vvcmedia/format/rtp"
	"github.com/ugparu/vvcmedia/utils/logger"
)

const (
	tsSyncByte       = 0x47
	interleavedMagic = '$'
	stdio            = "-"
)

var errUnknownFormat = errors.New("unknown input format")

type recordCmd struct {
	Input      string `arg:"" help:"input stream" type:"existingfile" env:"VVCC_INPUT"`
	Output     string `short:"o" default:"-" help:"output file, - for stdout" env:"VVCC_OUTPUT"`
	Format     string `default:"auto" enum:"auto,annexb,ts,rtp" help:"input format (${enum})"`
	Channel    uint8  `default:"0" help:"interleaved channel of the RTP input"`
	Wrap       string `default:"none" enum:"none,box,sample-entry" help:"wrap the record (${enum})"`
	Incomplete bool   `help:"clear array_completeness on parameter set arrays"`
}

type annexB2MP4Cmd struct {
	Input    string `arg:"" help:"Annex-B stream" type:"existingfile" env:"VVCC_INPUT"`
	Output   string `short:"o" default:"-" help:"output file, - for stdout" env:"VVCC_OUTPUT"`
	FilterPS bool   `name:"filter-ps" help:"drop VPS, SPS and PPS units"`
}

type dumpCmd struct {
	Input string `arg:"" help:"raw vvcC record or MP4 file" type:"existingfile" env:"VVCC_INPUT"`
}

func (c *recordCmd) String() string {
	return "VVCC_RECORD_CMD"
}

func detectFormat(name string, head []byte) string {
	switch ext := strings.ToLower(filepath.Ext(name)); {
	case ext == ".ts" || ext == ".m2ts":
		return "ts"
	case ext == ".rtp":
		return "rtp"
	case len(head) > 0 && head[0] == tsSyncByte:
		return "ts"
	case len(head) > 0 && head[0] == interleavedMagic:
		return "rtp"
	default:
		return "annexb"
	}
}

func readRecord(format string, data []byte, channel uint8, complete bool) (*h266.ConfigRecord, error) {
	switch format {
	case "annexb":
		return h266.RecordFromAnnexB(data, complete)
	case "ts":
		return mpegts.RecordFromTS(context.Background(), bytes.NewReader(data), complete)
	case "rtp":
		r := rtp.NewVVCReader(bytes.NewReader(data), channel, complete)
		for {
			if _, err := r.ReadAccessUnit(); err != nil {
				if errors.Is(err, io.EOF) {
					return r.Record(), nil
				}
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownFormat, format)
	}
}

func wrapRecord(rec *h266.ConfigRecord, wrap string, complete bool) ([]byte, error) {
	switch wrap {
	case "box":
		return mp4.MarshalVvcC(rec)
	case "sample-entry":
		par, err := h266.NewCodecParametersFromConfigRecord(rec)
		if err != nil {
			return nil, err
		}
		return mp4.SampleEntry(&par, complete)
	default:
		return rec.Bytes()
	}
}

func (c *recordCmd) Run(_ *Globals) error {
	data, err := os.ReadFile(c.Input)
	if err != nil {
		return err
	}

	format := c.Format
	if format == "auto" {
		format = detectFormat(c.Input, data)
		logger.Debugf(c, "Detected %s input", format)
	}

	rec, err := readRecord(format, data, c.Channel, !c.Incomplete)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Input, err)
	}

	out, err := wrapRecord(rec, c.Wrap, !c.Incomplete)
	if err != nil {
		return err
	}
	if err = writeOutput(c.Output, out); err != nil {
		return err
	}

	logger.Infof(c, "Record of %s from %s of %s input", humanize.Bytes(uint64(len(out))),
		format, humanize.Bytes(uint64(len(data))))
	return nil
}

func (c *annexB2MP4Cmd) Run(_ *Globals) error {
	data, err := os.ReadFile(c.Input)
	if err != nil {
		return err
	}

	out, psCount, err := h266.AnnexBToMP4Buf(data, c.FilterPS)
	if err != nil {
		return err
	}
	if err = writeOutput(c.Output, out); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "wrote %s, dropped %d parameter sets\n", humanize.Bytes(uint64(len(out))), psCount)
	return nil
}

// loadRecord reads a raw vvcC record, or the first vvcC box of an MP4 file.
func loadRecord(data []byte) (*h266.ConfigRecord, error) {
	if len(data) > 0 && data[0]&0xf8 == 0xf8 { // reserved '11111'b
		rec := h266.NewConfigRecord()
		if _, err := rec.Unmarshal(data); err != nil {
			return nil, err
		}
		return rec, nil
	}
	return mp4.ReadVvcC(bytes.NewReader(data))
}

func (c *dumpCmd) Run(_ *Globals) error {
	data, err := os.ReadFile(c.Input)
	if err != nil {
		return err
	}
	return dump(os.Stdout, data)
}

func dump(w io.Writer, data []byte) error {
	rec, err := loadRecord(data)
	if err != nil {
		return err
	}

	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
	cfg.Fdump(w, rec)

	if par, err := h266.NewCodecParametersFromConfigRecord(rec); err == nil {
		fmt.Fprintf(w, "codec %s, %dx%d, record %s\n", par.Tag(), par.Width(), par.Height(),
			humanize.Bytes(uint64(len(par.Record))))
	}
	return nil
}

func writeOutput(name string, data []byte) error {
	if name == stdio {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(name, data, 0o644) //nolint:gosec,mnd
}
