package mixer

import (
	"math"
)

// CutoffToFrequency maps an IT filter cutoff (0..127) with an envelope
// modifier (-256..256) to Hz.
func CutoffToFrequency(cutoff, mod int, sampleRate int) float64 {
	hz := 110 * math.Pow(2, 0.25+float64(cutoff*(mod+256))/(24*512))
	hz = min(max(hz, 120), 20000)
	return min(hz, float64(sampleRate)/2-1)
}

// resonantFilter is the 2-pole low-pass of Impulse Tracker.
type resonantFilter struct {
	enabled bool

	a0, b0, b1 float64
	y1, y2     float64
}

func (f *resonantFilter) setup(cutoff, resonance, mod, sampleRate int) {
	// The filter is transparent at the top cutoff without resonance.
	if cutoff >= 127 && resonance <= 0 && mod >= 0 {
		f.enabled = false
		return
	}
	wasEnabled := f.enabled
	fc := CutoffToFrequency(cutoff, mod, sampleRate) * 2 * math.Pi / float64(sampleRate)
	damping := math.Pow(10, -(24.0/128*float64(resonance))/20)

	d := (1 - 2*damping) * fc
	d = min(d, 2)
	d = (2*damping - d) / fc
	e := 1 / (fc * fc)

	f.a0 = 1 / (1 + d + e)
	f.b0 = (d + e + e) / (1 + d + e)
	f.b1 = -e / (1 + d + e)
	f.enabled = true
	if !wasEnabled {
		f.y1, f.y2 = 0, 0
	}
}

func (f *resonantFilter) process(x float64) float64 {
	y := f.a0*x + f.b0*f.y1 + f.b1*f.y2
	// Keep the state bounded on pathological input.
	y = min(max(y, -4), 4)
	f.y2 = f.y1
	f.y1 = y
	return y
}

func (f *resonantFilter) reset() {
	f.y1, f.y2 = 0, 0
}
