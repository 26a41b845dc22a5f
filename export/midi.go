package export

import (
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ksnyder9801/modplug/song"
)

// MIDIOptions control the score export.
type MIDIOptions struct {
	// Velocity is used for notes without a volume; zero means 100.
	Velocity uint8
}

const (
	midiTicksPerQuarter = 960
	// A quarter note lasts 24 sequencer ticks at any tempo.
	midiTicksPerTick = midiTicksPerQuarter / 24
)

type midiEvent struct {
	at  uint32
	msg []byte
}

type midiTrack struct {
	events []midiEvent
	note   int // sounding MIDI key, -1 if none
}

func (t *midiTrack) add(at uint32, msg []byte) {
	t.events = append(t.events, midiEvent{at: at, msg: msg})
}

func (t *midiTrack) smfTrack(name string, end uint32) smf.Track {
	// Events at the same time keep their insertion order.
	sort.SliceStable(t.events, func(i, j int) bool {
		return t.events[i].at < t.events[j].at
	})
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(name))
	last := uint32(0)
	for _, e := range t.events {
		tr.Add(e.at-last, e.msg)
		last = e.at
	}
	tr.Close(end - last)
	return tr
}

// WriteMIDI writes the pattern notes of sng as a type 1 SMF file with
// one track per channel after a tempo track.
//
// The order list is followed with pattern breaks and forward jumps;
// a backward jump ends the score. Effects other than speed and tempo
// changes are not rendered.
func WriteMIDI(w io.Writer, sng *song.Song, opts MIDIOptions) error {
	velocity := opts.Velocity
	if velocity == 0 {
		velocity = 100
	}
	tempoTrack := &midiTrack{}
	tracks := make([]*midiTrack, sng.NumChannels())
	for i := range tracks {
		tracks[i] = &midiTrack{note: -1}
	}

	speed := max(sng.DefaultSpeed, 1)
	tempo := sng.DefaultTempo
	if tempo <= 0 {
		tempo = 125
	}
	tempoTrack.add(0, smf.MetaTempo(float64(tempo)))

	noteOff := func(ch int, at uint32) {
		t := tracks[ch]
		if t.note >= 0 {
			t.add(at, midi.NoteOff(uint8(ch%16), uint8(t.note)))
			t.note = -1
		}
	}

	seq := sng.Order()
	var now uint32
	visited := make([]bool, len(seq.Orders))
	startRow := 0
	for order := 0; order < len(seq.Orders); {
		p := seq.At(order)
		if p == song.OrderEnd || visited[order] {
			break
		}
		visited[order] = true
		if p == song.OrderSkip {
			order++
			startRow = 0
			continue
		}
		pat := sng.Patterns.Get(p)
		if pat == nil {
			order++
			startRow = 0
			continue
		}

		next, nextRow := order+1, 0
	rows:
		for row := startRow; row < pat.Rows(); row++ {
			jump := false
			for ch := 0; ch < min(pat.Channels(), len(tracks)); ch++ {
				c := pat.Cell(row, ch)
				switch c.Effect {
				case song.EffectSpeed:
					if c.Param > 0 {
						speed = int(c.Param)
					}
				case song.EffectTempo:
					if c.Param >= 0x20 && int(c.Param) != tempo {
						tempo = int(c.Param)
						tempoTrack.add(now, smf.MetaTempo(float64(tempo)))
					}
				case song.EffectPositionJump:
					next, jump = int(c.Param), true
				case song.EffectPatternBreak:
					nextRow, jump = int(c.Param), true
				}

				switch {
				case song.IsNote(c.Note):
					noteOff(ch, now)
					key := clampKey(int(c.Note) - 1)
					vel := velocity
					if c.VolCmd == song.VolVolume {
						vel = uint8(min(int(c.Vol)*2, 127))
					}
					tracks[ch].add(now, midi.NoteOn(uint8(ch%16), uint8(key), vel))
					tracks[ch].note = key
				case song.IsSpecialNote(c.Note):
					noteOff(ch, now)
				}
			}
			now += uint32(speed * midiTicksPerTick)
			if jump {
				break rows
			}
		}
		if next <= order {
			break
		}
		order, startRow = next, nextRow
	}

	for ch := range tracks {
		noteOff(ch, now)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(midiTicksPerQuarter)
	title := sng.Title
	if title == "" {
		title = "untitled"
	}
	if err := s.Add(tempoTrack.smfTrack(title, now)); err != nil {
		return fmt.Errorf("tempo track: %w", err)
	}
	for ch, t := range tracks {
		name := sng.Channels[ch].Name
		if name == "" {
			name = fmt.Sprintf("Channel %d", ch+1)
		}
		if err := s.Add(t.smfTrack(name, now)); err != nil {
			return fmt.Errorf("track %d: %w", ch, err)
		}
	}
	_, err := s.WriteTo(w)
	return err
}

func clampKey(k int) int {
	return min(max(k, 0), 127)
}
