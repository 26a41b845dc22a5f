package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ksnyder9801/modplug/export"
	"github.com/ksnyder9801/modplug/internal/settings"
	"github.com/ksnyder9801/modplug/loaders"
	"github.com/ksnyder9801/modplug/song"
)

// This CLI tool renders a module file to WAV, raw float samples or a MIDI score.

func main() {
	output := flag.String("o", "", "output file (default: input name with the format extension)")
	format := flag.String("format", "", "output format: wav, raw or mid (default: from the config)")
	configPath := flag.String("config", "", "render config YAML file")
	writeConfig := flag.String("write-config", "", "write the effective render config to this file and exit")
	loops := flag.Int("loops", -2, "extra passes over the song (default: from the config)")
	start := flag.Int("start", 0, "first order to render")
	end := flag.Int("end", -1, "last order to render, -1 for the song end")
	maxSeconds := flag.Float64("max", 0, "length limit in seconds (default: from the config)")
	normalize := flag.Bool("normalize", false, "normalize the output level")
	verbose := flag.Bool("v", false, "log details")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: modrender [flags] path/to/song.xm\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	rc := settings.DefaultRenderConfig()
	if *configPath != "" {
		var err error
		if rc, err = settings.LoadFile(*configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if *format != "" {
		rc.Format = *format
	}
	if *loops != -2 {
		rc.Loops = *loops
	}
	if *maxSeconds > 0 {
		rc.MaxLength = *maxSeconds
	}
	rc.Normalize = rc.Normalize || *normalize

	if *writeConfig != "" {
		f, err := os.Create(*writeConfig)
		if err != nil {
			log.Fatal(err)
		}
		if err := rc.Write(f); err != nil {
			log.Fatal(err)
		}
		if err := f.Close(); err != nil {
			log.Fatal(err)
		}
		return
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	data, err := os.ReadFile(input)
	if err != nil {
		log.Fatal(err)
	}
	sng, err := loaders.Load(data, loaders.Options{Logger: logger})
	if err != nil {
		log.Fatalf("load %s: %v", input, err)
	}
	mutes, err := rc.ChannelMutes()
	if err != nil {
		log.Fatal(err)
	}
	for ch, m := range mutes {
		if ch < sng.NumChannels() {
			sng.Channels[ch].Muted = m
		}
	}

	ext := rc.Format
	if ext == "midi" {
		ext = "mid"
	}
	if *output == "" {
		*output = strings.TrimSuffix(input, filepath.Ext(input)) + "." + ext
	}
	f, err := os.Create(*output)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if ext == "mid" {
		if err := export.WriteMIDI(f, sng, export.MIDIOptions{}); err != nil {
			log.Fatal(err)
		}
		return
	}

	config, err := rc.StreamConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.Logger = logger
	mode, err := export.ParseMode(rc.Mode)
	if err != nil {
		log.Fatal(err)
	}
	enc, err := export.NewEncoder(rc.Format, f, export.EncoderSettings{
		Mode:       mode,
		Bitrate:    rc.Bitrate,
		Quality:    rc.Quality,
		SampleRate: config.SampleRate,
		Channels:   config.Mixer.Channels,
	}, songTags(sng))
	if err != nil {
		log.Fatal(err)
	}
	stats, err := export.Render(sng, config, enc, export.RenderOptions{
		Loops:      rc.Loops,
		StartOrder: *start,
		EndOrder:   *end,
		MaxLength:  time.Duration(rc.MaxLength * float64(time.Second)),
		Normalize:  rc.Normalize,
		Logger:     logger,
	})
	if err != nil {
		log.Fatal(err)
	}
	seconds := float64(stats.Frames) / float64(config.SampleRate)
	fmt.Printf("%s: %.2fs, peak %.3f\n", *output, seconds, stats.Peak)
}

func songTags(s *song.Song) export.Tags {
	tags := export.Tags{
		Title:   s.Title,
		Artist:  s.Artist,
		Comment: s.TrackerName,
	}
	if s.DefaultTempo > 0 {
		tags.BPM = fmt.Sprint(s.DefaultTempo)
	}
	return tags
}
