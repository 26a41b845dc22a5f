package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/ksnyder9801/modplug"
	"github.com/ksnyder9801/modplug/internal/audio"
	"github.com/ksnyder9801/modplug/internal/settings"
	"github.com/ksnyder9801/modplug/song"
)

// This CLI tool plays a module file through the Ebitengine or oto audio output.
//
// With the ebiten backend a window is opened:
// SPACE pauses, the digit keys preview instruments 1-9 at C-5.

func main() {
	backendName := flag.String("backend", "ebiten", "audio backend: "+strings.Join(audio.Names, ", "))
	configPath := flag.String("config", "", "render config YAML file")
	loops := flag.Int("loops", 0, "extra passes over the song, -1 loops forever")
	order := flag.Int("order", 0, "order to start from")
	verbose := flag.Bool("v", false, "log playback details")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: modplay [flags] path/to/song.it\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	filename := flag.Arg(0)

	rc := settings.DefaultRenderConfig()
	if *configPath != "" {
		var err error
		if rc, err = settings.LoadFile(*configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	rc.Loops = *loops
	config, err := rc.StreamConfig()
	if err != nil {
		log.Fatal(err)
	}
	if *verbose {
		config.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	f, err := os.Open(filename)
	if err != nil {
		log.Fatal(err)
	}
	stream, err := modplug.Load(f, config)
	f.Close()
	if err != nil {
		log.Fatalf("load %s: %v", filename, err)
	}
	mutes, err := rc.ChannelMutes()
	if err != nil {
		log.Fatal(err)
	}
	for ch, m := range mutes {
		if m {
			stream.SetMute(ch, true)
		}
	}
	for _, w := range stream.Song().Warnings {
		log.Printf("warning: %s", w)
	}

	backend, err := audio.New(*backendName, config.SampleRate, config.Mixer.Channels)
	if err != nil {
		log.Fatal(err)
	}
	player, err := backend.NewPlayer(stream)
	if err != nil {
		log.Fatal(err)
	}
	if err := stream.Play(*order, 0); err != nil {
		log.Fatal(err)
	}

	if *backendName != "ebiten" {
		playHeadless(stream, player)
		return
	}

	g := &game{
		backend:  backend,
		stream:   stream,
		player:   player,
		filename: filename,
		paused:   true,
	}
	g.synth = modplug.NewSynthesizer(modplug.SynthesizerConfig{
		NumChannels: 2,
		Stream:      config,
	})
	if err := g.synth.LoadInstruments(stream.Song()); err != nil {
		log.Fatal(err)
	}
	ebiten.SetWindowTitle("modplay: " + filename)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}

// playHeadless plays until the song ends or the process is interrupted.
func playHeadless(stream *modplug.Stream, player audio.Player) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	player.Play()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-interrupt:
			stream.Stop()
			player.Close()
			return
		case <-ticker.C:
			if stream.State() == modplug.Stopped && !player.IsPlaying() {
				player.Close()
				return
			}
		}
	}
}

var digitKeys = []ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5,
	ebiten.Key6, ebiten.Key7, ebiten.Key8, ebiten.Key9,
}

type game struct {
	backend audio.Backend
	stream  *modplug.Stream
	player  audio.Player

	synth       *modplug.Synthesizer
	synthPlayer audio.Player

	filename string
	paused   bool
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
		if g.player.IsPlaying() {
			g.player.Pause()
		} else {
			g.player.Play()
		}
	}

	for i, key := range digitKeys {
		if !inpututil.IsKeyJustPressed(key) {
			continue
		}
		if err := g.previewNote(uint8(i + 1)); err != nil {
			log.Printf("preview %d: %v", i+1, err)
		}
	}

	return nil
}

func (g *game) previewNote(instr uint8) error {
	if g.synthPlayer != nil {
		g.synthPlayer.Close()
		g.synthPlayer = nil
	}
	err := g.synth.PlayNote(0, song.Command{
		Note:  song.NoteMiddleC,
		Instr: instr,
	})
	if err != nil {
		return err
	}
	p, err := g.backend.NewPlayer(g.synth)
	if err != nil {
		return err
	}
	p.Play()
	g.synthPlayer = p
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	if g.paused {
		ebitenutil.DebugPrint(screen, "Paused... press SPACE")
		return
	}
	info := g.stream.Info()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Playing %s...\n", g.filename)
	fmt.Fprintf(&sb, "order %03d row %03d  speed %d tempo %d  %.1fs\n",
		info.Order, info.Row, info.Speed, info.Tempo, info.Seconds)
	for ch, vu := range g.stream.VU(nil) {
		fmt.Fprintf(&sb, "%02d %s\n", ch+1, strings.Repeat("#", int(vu*40)))
	}
	ebitenutil.DebugPrint(screen, sb.String())
}

func (g *game) Layout(_, _ int) (int, int) {
	return 640, 480
}
