package modplug

import (
	"math"

	"github.com/ksnyder9801/modplug/song"
)

type numeric interface {
	~uint8 | ~int | ~float64
}

func clampMin[T numeric](v, min T) T {
	if v < min {
		return min
	}
	return v
}

func clampMax[T numeric](v, max T) T {
	if v > max {
		return max
	}
	return v
}

func clamp[T numeric](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func slideTowards(v, goal, delta float64) float64 {
	if v > goal {
		return math.Max(v-delta, goal)
	}
	return math.Min(v+delta, goal)
}

// amigaClock is the Paula clock scaled by the 4x period resolution.
const amigaClock = 14317456

const (
	// ProTracker period range, in 4x units.
	amigaPeriodMin = 113 * 4
	amigaPeriodMax = 856 * 4
)

// amigaPeriod returns the period of a note for a sample with the given
// C-5 rate. 8363 Hz at C-5 gives the ProTracker period 428 (times 4).
func amigaPeriod(note float64, c5 uint32) float64 {
	return amigaClock / (float64(c5) * math.Pow(2, (note-float64(song.NoteMiddleC))/12))
}

func amigaFrequency(period float64) float64 {
	if period <= 0 {
		return 0
	}
	return amigaClock / period
}

// linearPeriod has 64 units per semitone, 0 at C-5.
func linearPeriod(note float64) float64 {
	return (float64(song.NoteMiddleC) - note) * 64
}

func linearFrequency(c5 uint32, period float64) float64 {
	return float64(c5) * math.Pow(2, -period/768)
}

func calcSamplesPerTick(sampleRate, tempo int) float64 {
	return float64(sampleRate) * 2.5 / float64(tempo)
}

// waveform selects the modulation shape of vibrato, tremolo
// and panbrello.
type waveform uint8

const (
	waveSine waveform = iota
	waveRampDown
	waveSquare
	waveRandom
	waveRampUp
)

// effectWaveform decodes the E4x/S3x waveform nibble.
// Bit 2 disables the position reset on new notes.
func effectWaveform(x uint8) (w waveform, keepPhase bool) {
	return waveform(x & 3), x&4 != 0
}

func autoVibratoWaveform(t song.VibratoType) waveform {
	switch t {
	case song.VibratoSquare:
		return waveSquare
	case song.VibratoRampUp:
		return waveRampUp
	case song.VibratoRampDown:
		return waveRampDown
	case song.VibratoRandom:
		return waveRandom
	}
	return waveSine
}

var sineTable [64]int

func init() {
	for i := range sineTable {
		sineTable[i] = int(math.Round(255 * math.Sin(2*math.Pi*float64(i)/64)))
	}
}

// waveValue returns the waveform at a 64-step position, in -255..255.
func waveValue(w waveform, pos uint8, rnd *uint32) int {
	pos &= 63
	switch w {
	case waveRampDown:
		return 255 - int(pos)*8
	case waveRampUp:
		return int(pos)*8 - 255
	case waveSquare:
		if pos < 32 {
			return 255
		}
		return -255
	case waveRandom:
		*rnd = *rnd*1103515245 + 12345
		return int(*rnd>>16)%511 - 255
	}
	return sineTable[pos]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
