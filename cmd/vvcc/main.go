// Command vvcc builds, converts and inspects H.266 decoder configuration records.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
	"github.com/ugparu/vvcmedia/utils/logger"
)

var version = "v0.0.0"

type Globals struct {
	LogLevel string `help:"log level (trace, debug, info, warning, error)" default:"warning" env:"VVCC_LOG_LEVEL"`
}

var cli struct {
	Globals

	Version    kong.VersionFlag `help:"print version"`
	Record     recordCmd        `cmd:"" help:"build a vvcC record from an Annex-B, MPEG-TS or RTP stream"`
	AnnexB2MP4 annexB2MP4Cmd    `cmd:"" name:"annexb2mp4" help:"rewrite an Annex-B stream with 4-byte length prefixes"`
	Dump       dumpCmd          `cmd:"" help:"print a vvcC record or the vvcC of an MP4 file"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("vvcc"),
		kong.Description("H.266 decoder configuration record tool"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	lvl, err := logrus.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2) //nolint:mnd
	}
	logger.Init(lvl)

	err = ctx.Run(&cli.Globals)
	logger.Flush()
	ctx.FatalIfErrorf(err)
}
