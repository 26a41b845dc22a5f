package modplug

import (
	"github.com/ksnyder9801/modplug/song"
)

// StreamInfo describes the playback position of a Stream.
type StreamInfo struct {
	State State

	Order   int
	Row     int
	Pattern song.PatternIndex
	Tick    int

	// Speed is the number of ticks per row; Tempo is in BPM.
	Speed int
	Tempo int

	GlobalVolume int // 0..256
	ActiveVoices int

	// Seconds is the time rendered since the last Play from a stopped state.
	Seconds float64

	// Passes counts how many times the song has wrapped around.
	Passes int

	// MemoryUsage is an estimate of the memory held by the song, in bytes.
	MemoryUsage uint
}

// Info returns the current playback information.
func (s *Stream) Info() StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := 0
	for i := range s.channels {
		if s.mixer.Voice(i).Active() {
			active++
		}
	}
	return StreamInfo{
		State:        s.state,
		Order:        s.seq.order,
		Row:          s.seq.row,
		Pattern:      s.seq.patternIndex,
		Tick:         s.seq.tick,
		Speed:        s.seq.speed,
		Tempo:        s.seq.tempo,
		GlobalVolume: s.globalVolume,
		ActiveVoices: active,
		Seconds:      s.seconds(),
		Passes:       s.seq.passes,
		MemoryUsage:  songSize(s.song),
	}
}

// ChannelVU returns the peak level of a channel during the last render
// call, in 0..1 of full scale before the master gain.
func (s *Stream) ChannelVU(channel int) float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channel < 0 || channel >= len(s.channels) {
		return 0
	}
	return s.channels[channel].vu
}

// VU appends the peak level of every channel to dst.
func (s *Stream) VU(dst []float32) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.channels {
		dst = append(dst, s.channels[i].vu)
	}
	return dst
}
