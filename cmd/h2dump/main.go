package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"github.com/vearne/h2wire/config"
	"github.com/vearne/h2wire/dump"
	"github.com/vearne/h2wire/util"
	slog "github.com/vearne/simplelog"
)

const banner string = `
    __   ___       __
   / /_ |__ \ ____/ /_  ______ ___  ____
  / __ \__/ // __  / / / / __ '__ \/ __ \
 / / / / __// /_/ / /_/ / / / / / / /_/ /
/_/ /_/____/\__,_/\__,_/_/ /_/ /_/ .___/
                                /_/
`

var settings config.AppSettings
var version bool

func init() {
	flag.BoolVar(&version, "version", false, "print version")

	flag.Var(&config.MultiStringOption{Params: &settings.InputFiles}, "input-file",
		`Read captured traffic from a pcap file (may repeat):
                h2dump --input-file="capture.pcap" --port=50051`)

	flag.IntVar(&settings.Port, "port", 443,
		"the server port of the inspected HTTP/2 traffic")

	flag.Var(&config.MultiStringOption{Params: &settings.IPs}, "ip",
		`only look at traffic from/to this host (may repeat)`)

	flag.StringVar(&settings.LogLevel, "loglevel", "info",
		"debug|info|warn|error")
}

func main() {
	flag.Parse()
	fmt.Print(banner)
	if version {
		fmt.Println("h2dump", "v0.1.0")
		return
	}

	switch settings.LogLevel {
	case "debug":
		slog.SetLevel(slog.DebugLevel)
	case "warn":
		slog.SetLevel(slog.WarnLevel)
	case "error":
		slog.SetLevel(slog.ErrorLevel)
	default:
		slog.SetLevel(slog.InfoLevel)
	}

	if len(settings.InputFiles) == 0 {
		fmt.Fprintln(os.Stderr, "at least one --input-file is required")
		os.Exit(1)
	}

	d := dump.NewDumper(settings.Port, settings.IPs, os.Stdout)
	ipSet := util.NewStringSet()
	ipSet.AddAll(settings.IPs)

	for _, path := range settings.InputFiles {
		if err := replayFile(path, d, ipSet); err != nil {
			slog.Error("replay %v, error:%v", path, err)
			os.Exit(1)
		}
	}
}

func replayFile(path string, d *dump.Dumper, ipSet *util.StringSet) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return err
	}

	var count int
	for {
		data, _, err := r.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		packet := gopacket.NewPacket(data, r.LinkType(), gopacket.Default)
		pkg, err := dump.ProcessPacket(packet, ipSet, d.Port)
		if err != nil {
			slog.Debug("skip packet:%v", err)
			continue
		}
		d.Feed(pkg)
		count++
	}
	slog.Info("replayed %v packets from %v", count, path)
	return nil
}
