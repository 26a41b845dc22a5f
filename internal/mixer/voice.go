package mixer

import (
	"github.com/ksnyder9801/modplug/song"
)

const (
	fracBits = 32
	fracOne  = int64(1) << fracBits
	fracMask = fracOne - 1
)

// loopView caches the loop that is currently in effect.
type loopView struct {
	enabled  bool
	pingPong bool
	start    int
	end      int
	endWin   []int16
	startWin []int16
}

// Voice plays one sample.
//
// The sequencer drives a voice through the Mixer methods; the fields
// here only change inside the mixer.
type Voice struct {
	smp    *song.Sample
	padded []int16
	loop   loopView

	// Position and step are 32.32 fixed point frames.
	pos  int64
	step int64

	active   bool
	stopping bool
	reverse  bool
	// looped is set once the playback wrapped around the loop.
	looped  bool
	sustain bool

	// Ramped volume, per output side.
	target [2]float64
	cur    [2]float64
	inc    [2]float64
	ramp   int

	surround bool
	bus      int

	filter resonantFilter

	peak float32
}

// Active reports whether the voice produces sound.
func (v *Voice) Active() bool { return v.active }

// Sample returns the sample being played.
func (v *Voice) Sample() *song.Sample { return v.smp }

// Position returns the current integer frame.
func (v *Voice) Position() int { return int(v.pos >> fracBits) }

// Reverse reports the playback direction.
func (v *Voice) Reverse() bool { return v.reverse }

func (v *Voice) refreshLoop() {
	smp := v.smp
	v.loop = loopView{}
	if smp == nil || !smp.HasData() {
		return
	}
	switch {
	case v.sustain && smp.Flags.Has(song.SampleSustain):
		v.loop = loopView{
			enabled:  true,
			pingPong: smp.Flags.Has(song.SamplePingPongSustain),
			start:    smp.SustainStart,
			end:      smp.SustainEnd,
			endWin:   smp.LoopWindow(true, false),
			startWin: smp.LoopWindow(true, true),
		}
	case smp.Flags.Has(song.SampleLoop):
		v.loop = loopView{
			enabled:  true,
			pingPong: smp.Flags.Has(song.SamplePingPong),
			start:    smp.LoopStart,
			end:      smp.LoopEnd,
			endWin:   smp.LoopWindow(false, false),
			startWin: smp.LoopWindow(false, true),
		}
	}
	if v.loop.enabled && v.loop.end <= v.loop.start {
		v.loop = loopView{}
	}
}

// at returns the frame x as seen by the playback, including the
// virtual frames around the loop points and the zero padding.
func (v *Voice) at(x int) int16 {
	const la = song.Lookahead
	if lp := &v.loop; lp.enabled {
		switch {
		case v.looped && x < lp.start && x >= lp.start-la:
			return lp.startWin[x-(lp.start-la)]
		case x >= lp.end-la && x < lp.end+la:
			return lp.endWin[x-(lp.end-la)]
		case v.looped && x >= lp.start-la && x < lp.start+la:
			return lp.startWin[x-(lp.start-la)]
		}
	}
	i := x + la
	if i < 0 || i >= len(v.padded) {
		return 0
	}
	return v.padded[i]
}

// interior reports whether the taps around x can be read straight
// from the padded buffer.
func (v *Voice) interior(x int) bool {
	const la = song.Lookahead
	lo, hi := x-firLeft, x+firTaps-firLeft
	if lo < -la || hi >= v.smp.Length+la {
		return false
	}
	if lp := &v.loop; lp.enabled {
		if hi >= lp.end-la {
			return false
		}
		if v.looped && lo < lp.start+la {
			return false
		}
	}
	return true
}

const sampleScale = 1.0 / 32768

// fetch interpolates the sample at the current position.
func (v *Voice) fetch(mode Interpolation) float64 {
	x := int(v.pos >> fracBits)
	frac := v.pos & fracMask
	phase := int(frac >> (fracBits - phaseBits))

	var taps [firTaps]int16
	if v.interior(x) {
		i := x - firLeft + song.Lookahead
		copy(taps[:], v.padded[i:i+firTaps])
	} else {
		for k := range taps {
			taps[k] = v.at(x - firLeft + k)
		}
	}
	// taps[firLeft] is the frame at x.
	switch mode {
	case InterpolationNone:
		return float64(taps[firLeft]) * sampleScale
	case InterpolationLinear:
		f := float64(frac) / float64(fracOne)
		a, b := float64(taps[firLeft]), float64(taps[firLeft+1])
		return (a + (b-a)*f) * sampleScale
	case InterpolationCubic:
		w := &cubicTable[phase]
		s := float32(taps[firLeft-1])*w[0] + float32(taps[firLeft])*w[1] +
			float32(taps[firLeft+1])*w[2] + float32(taps[firLeft+2])*w[3]
		return float64(s) * sampleScale
	}
	table := &firTable
	if mode == InterpolationPolyphase {
		table = polyTable(v.step)
	}
	w := &table[phase]
	var s float32
	for k := range taps {
		s += float32(taps[k]) * w[k]
	}
	return float64(s) * sampleScale
}

// advance moves the position by one output frame and applies the loop.
func (v *Voice) advance() {
	if v.reverse {
		v.pos -= v.step
	} else {
		v.pos += v.step
	}

	lp := &v.loop
	if !lp.enabled {
		if v.pos < 0 || v.pos >= int64(v.smp.Length)<<fracBits {
			v.active = false
		}
		return
	}

	start, end := int64(lp.start)<<fracBits, int64(lp.end)<<fracBits
	length := end - start
	switch {
	case !v.reverse && v.pos >= end:
		v.looped = true
		if !lp.pingPong {
			v.pos = start + (v.pos-end)%length
			return
		}
		v.reverse = true
		v.pos = 2*end - v.pos - fracOne
		for i := 0; i < 4 && (v.pos < start || v.pos >= end); i++ {
			v.pos = v.reflect(start, end)
		}
		v.pos = min(max(v.pos, start), end-1)

	case v.reverse && v.pos < start && (v.looped || v.pos >= 0):
		if !v.looped && v.pos >= 0 {
			// Reversed before the loop was reached: play towards 0.
			return
		}
		if !lp.pingPong {
			v.pos = end - (start-v.pos)%length
			if v.pos >= end {
				v.pos -= length
			}
			return
		}
		v.reverse = false
		v.pos = 2*start - v.pos
		for i := 0; i < 4 && (v.pos < start || v.pos >= end); i++ {
			v.pos = v.reflect(start, end)
		}
		v.pos = min(max(v.pos, start), end-1)

	case v.pos < 0:
		v.active = false
	}
}

// reflect folds a position that overshot by more than one loop length.
func (v *Voice) reflect(start, end int64) int64 {
	if v.pos >= end {
		v.reverse = true
		return 2*end - v.pos - fracOne
	}
	v.reverse = false
	return 2*start - v.pos
}
