// Package audio plays PCM streams on the sound device.
//
// Both backends take 16-bit little endian interleaved PCM, which is
// what modplug.Stream.Read produces.
package audio

import (
	"fmt"
	"io"
)

// Player is a single playing stream.
type Player interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// Backend creates players on one audio device context.
// A process should create a single backend.
type Backend interface {
	NewPlayer(r io.Reader) (Player, error)
	SampleRate() int
	Channels() int
}

// Names lists the supported backends.
var Names = []string{"ebiten", "oto"}

// New creates a backend by name.
func New(name string, sampleRate, channels int) (Backend, error) {
	switch name {
	case "ebiten":
		return NewEbiten(sampleRate, channels)
	case "oto":
		return NewOto(sampleRate, channels)
	}
	return nil, fmt.Errorf("unknown audio backend %q (want one of %v)", name, Names)
}
