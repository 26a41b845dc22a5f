// Package mixer renders sample voices into an interleaved float stream.
//
// The mixer knows nothing about patterns or effects: the sequencer
// sets per-voice frequencies, volumes and filters between two Mix calls.
// Once the voices are allocated, Mix does not allocate.
package mixer

import (
	"math"

	"github.com/ksnyder9801/modplug/song"
	"github.com/viterin/vek/vek32"
)

// blockFrames is the internal mixing granularity.
const blockFrames = 512

// BusHandler processes the voices routed to a bus other than 0.
// The buffers hold one mixing block; the handler overwrites them
// with its output. Returning false silences the bus.
type BusHandler func(bus int, left, right []float32) bool

// Mixer owns a fixed set of voices.
type Mixer struct {
	settings   Settings
	sampleRate int
	rampUp     int
	rampDown   int
	gain       float32

	voices []Voice

	// front and rear accumulators, left then right.
	front [2][]float64
	rear  [2][]float64

	buses      [][2][]float32
	busUsed    []bool
	busHandler BusHandler

	preAmp float64
}

// New creates a mixer; the settings must be valid.
func New(sampleRate int, settings Settings) *Mixer {
	m := &Mixer{
		sampleRate: sampleRate,
		preAmp:     1,
	}
	for i := range m.front {
		m.front[i] = make([]float64, blockFrames)
		m.rear[i] = make([]float64, blockFrames)
	}
	m.SetSettings(settings)
	return m
}

// SetSettings applies new settings; active voices keep playing.
func (m *Mixer) SetSettings(s Settings) {
	m.settings = s
	m.rampUp = microsToFrames(s.RampUpMicros, m.sampleRate)
	m.rampDown = microsToFrames(s.RampDownMicros, m.sampleRate)
	m.gain = s.Gain()
}

func (m *Mixer) Settings() Settings { return m.settings }

func (m *Mixer) SampleRate() int { return m.sampleRate }

// SetPreAmp sets the amplification applied to every voice.
func (m *Mixer) SetPreAmp(v float64) { m.preAmp = v }

// SetBusHandler installs the plugin bus processing.
func (m *Mixer) SetBusHandler(h BusHandler) { m.busHandler = h }

// SetVoices resizes the voice set. Existing voices keep their state.
func (m *Mixer) SetVoices(n int) {
	if n <= cap(m.voices) {
		old := len(m.voices)
		m.voices = m.voices[:n]
		for i := old; i < n; i++ {
			m.voices[i] = Voice{}
		}
		return
	}
	voices := make([]Voice, n)
	copy(voices, m.voices)
	m.voices = voices
}

// PermuteVoices reorders the voices: voice i takes the state of
// old voice order[i], or a silent state when order[i] is negative.
func (m *Mixer) PermuteVoices(order []int) {
	voices := make([]Voice, len(order))
	for i, old := range order {
		if old >= 0 && old < len(m.voices) {
			voices[i] = m.voices[old]
		}
	}
	m.voices = voices
}

func (m *Mixer) NumVoices() int { return len(m.voices) }

// Voice returns a voice for inspection.
func (m *Mixer) Voice(i int) *Voice { return &m.voices[i] }

// Start plays a sample from a frame offset on the voice.
// The volume ramps up from zero to the next SetVolume target.
func (m *Mixer) Start(i int, smp *song.Sample, offset int) {
	v := &m.voices[i]
	if smp == nil || !smp.HasData() {
		m.Cut(i)
		return
	}
	v.smp = smp
	v.padded = smp.Padded()
	v.sustain = true
	v.refreshLoop()
	v.active = true
	v.stopping = false
	v.reverse = false
	v.looped = false
	v.filter.reset()
	v.cur = [2]float64{}
	v.target = [2]float64{}
	v.ramp = 0
	m.SetPosition(i, offset)
}

// SetPosition jumps to a frame; positions past the end stop the voice
// unless the sample loops.
func (m *Mixer) SetPosition(i int, frame int) {
	v := &m.voices[i]
	if v.smp == nil {
		return
	}
	if frame >= v.smp.Length {
		if !v.loop.enabled {
			v.active = false
			return
		}
		frame = v.loop.start
	}
	v.pos = int64(max(frame, 0)) << fracBits
}

// SetReverse changes the playback direction. A voice reversed at the
// very start plays from the end of the sample.
func (m *Mixer) SetReverse(i int, reverse bool) {
	v := &m.voices[i]
	if reverse && !v.reverse && v.smp != nil && v.pos == 0 {
		v.pos = int64(v.smp.Length-1) << fracBits
	}
	v.reverse = reverse
}

// SetSustain selects whether the sample's sustain loop applies.
func (m *Mixer) SetSustain(i int, on bool) {
	v := &m.voices[i]
	if v.sustain == on {
		return
	}
	v.sustain = on
	v.refreshLoop()
	v.looped = false
}

// SetFrequency sets the playback rate in Hz.
func (m *Mixer) SetFrequency(i int, hz float64) {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		m.voices[i].step = 0
		return
	}
	step := hz / float64(m.sampleRate) * float64(fracOne)
	// Keep the step below the lookahead so a single frame never
	// skips a whole wrap window.
	m.voices[i].step = int64(min(step, float64(song.Lookahead-1)*float64(fracOne)))
}

// SetVolume sets the left and right amplitudes. The change is ramped.
func (m *Mixer) SetVolume(i int, left, right float64) {
	v := &m.voices[i]
	target := [2]float64{left, right}
	if target == v.target && v.ramp == 0 {
		return
	}
	n := m.rampDown
	if left+right > v.cur[0]+v.cur[1] {
		n = m.rampUp
	}
	v.target = target
	v.ramp = n
	for k := range v.inc {
		v.inc[k] = (target[k] - v.cur[k]) / float64(n)
	}
}

// Pan computes the side amplitudes for a volume and a pan in 0..1.
func (m *Mixer) Pan(volume, pan float64) (left, right float64) {
	pan = min(max(pan, 0), 1)
	if m.settings.SoftPanning {
		return volume * math.Cos(pan*math.Pi/2) * math.Sqrt2, volume * math.Sin(pan*math.Pi/2) * math.Sqrt2
	}
	return volume * min(1, 2*(1-pan)), volume * min(1, 2*pan)
}

// SetSurround routes the voice to the rear speakers (or phase-inverts
// its right side in stereo).
func (m *Mixer) SetSurround(i int, on bool) { m.voices[i].surround = on }

// SetBus routes the voice; bus 0 is the master output.
func (m *Mixer) SetBus(i int, bus int) {
	m.voices[i].bus = bus
	for len(m.buses) <= bus {
		m.buses = append(m.buses, [2][]float32{make([]float32, blockFrames), make([]float32, blockFrames)})
		m.busUsed = append(m.busUsed, false)
	}
}

// SetFilter configures the resonant filter. A cutoff of 127 without
// resonance disables it.
func (m *Mixer) SetFilter(i int, cutoff, resonance, mod int) {
	m.voices[i].filter.setup(cutoff, resonance, mod, m.sampleRate)
}

// Stop ramps the voice down and then frees it.
func (m *Mixer) Stop(i int) {
	v := &m.voices[i]
	if !v.active {
		return
	}
	m.SetVolume(i, 0, 0)
	if v.ramp == 0 {
		m.Cut(i)
		return
	}
	v.stopping = true
}

// Cut silences the voice immediately.
func (m *Mixer) Cut(i int) {
	v := &m.voices[i]
	v.active = false
	v.stopping = false
	v.cur = [2]float64{}
	v.target = [2]float64{}
	v.ramp = 0
}

// Peak returns the highest absolute output level of the voice during
// the last Mix call.
func (m *Mixer) Peak(i int) float32 { return m.voices[i].peak }

// Mix renders frames into dst, interleaved with Settings.Channels
// values per frame.
func (m *Mixer) Mix(dst []float32, frames int) {
	for i := range m.voices {
		m.voices[i].peak = 0
	}
	nch := m.settings.Channels
	for done := 0; done < frames; {
		n := min(blockFrames, frames-done)
		m.mixBlock(n)
		m.output(dst[done*nch:(done+n)*nch], n)
		done += n
	}
	if m.gain != 1 {
		vek32.MulNumber_Inplace(dst[:frames*nch], m.gain)
	}
}

func (m *Mixer) mixBlock(n int) {
	for k := 0; k < 2; k++ {
		clear(m.front[k][:n])
		clear(m.rear[k][:n])
	}
	for b := range m.buses {
		clear(m.buses[b][0][:n])
		clear(m.buses[b][1][:n])
		m.busUsed[b] = false
	}

	for i := range m.voices {
		v := &m.voices[i]
		if !v.active {
			continue
		}
		if v.bus > 0 && v.bus < len(m.buses) {
			m.busUsed[v.bus] = true
			m.mixVoiceBus(v, m.buses[v.bus][0][:n], m.buses[v.bus][1][:n])
			continue
		}
		if v.surround && m.settings.Channels == 4 {
			m.mixVoice(v, m.rear[0][:n], m.rear[1][:n], false)
			continue
		}
		m.mixVoice(v, m.front[0][:n], m.front[1][:n], v.surround && m.settings.Channels == 2)
	}

	for b := 1; b < len(m.buses); b++ {
		if !m.busUsed[b] {
			continue
		}
		left, right := m.buses[b][0][:n], m.buses[b][1][:n]
		if m.busHandler == nil || !m.busHandler(b, left, right) {
			continue
		}
		for f := 0; f < n; f++ {
			m.front[0][f] += float64(left[f])
			m.front[1][f] += float64(right[f])
		}
	}
}

// voiceFrame renders one frame of a voice and advances it.
// It reports false once the voice has ended.
func (m *Mixer) voiceFrame(v *Voice) (l, r float64, ok bool) {
	if !v.active {
		return 0, 0, false
	}
	s := v.fetch(m.settings.Interpolation)
	if v.filter.enabled {
		s = v.filter.process(s)
	}
	if v.ramp > 0 {
		v.cur[0] += v.inc[0]
		v.cur[1] += v.inc[1]
		v.ramp--
		if v.ramp == 0 {
			v.cur = v.target
			if v.stopping {
				v.active = false
			}
		}
	}
	s *= m.preAmp
	l, r = s*v.cur[0], s*v.cur[1]
	if a := float32(math.Abs(l)); a > v.peak {
		v.peak = a
	}
	if a := float32(math.Abs(r)); a > v.peak {
		v.peak = a
	}
	if v.step != 0 {
		v.advance()
	}
	return l, r, true
}

func (m *Mixer) mixVoice(v *Voice, left, right []float64, invertRight bool) {
	for f := range left {
		l, r, ok := m.voiceFrame(v)
		if !ok {
			return
		}
		if invertRight {
			r = -r
		}
		left[f] += l
		right[f] += r
	}
}

func (m *Mixer) mixVoiceBus(v *Voice, left, right []float32) {
	for f := range left {
		l, r, ok := m.voiceFrame(v)
		if !ok {
			return
		}
		left[f] += float32(l)
		right[f] += float32(r)
	}
}

// output converts the accumulators into the interleaved layout.
func (m *Mixer) output(dst []float32, n int) {
	sep := float64(m.settings.StereoSeparation) / 100
	width := func(l, r float64) (float64, float64) {
		mid, side := (l+r)/2, (l-r)/2*sep
		return mid + side, mid - side
	}
	fl, fr := m.front[0], m.front[1]
	rl, rr := m.rear[0], m.rear[1]

	switch m.settings.Channels {
	case 1:
		for f := 0; f < n; f++ {
			dst[f] = float32((fl[f] + fr[f] + rl[f] + rr[f]) / 2)
		}
	case 4:
		for f := 0; f < n; f++ {
			l, r := width(fl[f], fr[f])
			bl, br := width(rl[f], rr[f])
			dst[f*4], dst[f*4+1], dst[f*4+2], dst[f*4+3] = float32(l), float32(r), float32(bl), float32(br)
		}
	default:
		for f := 0; f < n; f++ {
			l, r := width(fl[f], fr[f])
			dst[f*2], dst[f*2+1] = float32(l), float32(r)
		}
	}
}

// ToInt16 converts float frames with clipping.
func ToInt16(dst []int16, src []float32) {
	for i, v := range src {
		x := math.Round(float64(v) * 32767)
		dst[i] = int16(min(max(x, -32768), 32767))
	}
}
