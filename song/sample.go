package song

// Lookahead is the number of padding samples kept around sample data
// and loop points. It must cover the widest interpolation kernel
// on either side of the playback position.
const Lookahead = 16

// Wrap windows hold 2*Lookahead virtual samples centered on a loop point.
const wrapWindowSize = 2 * Lookahead

// lookaheadBufferSize is the extra space allocated along with the
// sample data: leading and trailing zero padding plus two wrap windows
// (loop end, loop start) for both the normal and the sustain loop.
const lookaheadBufferSize = 2*Lookahead + 4*wrapWindowSize

// MaxSampleLength bounds a single sample allocation.
const MaxSampleLength = 0x10000000

type SampleFlags uint16

const (
	SampleLoop SampleFlags = 1 << iota
	SamplePingPong
	SampleSustain
	SamplePingPongSustain
	// SamplePanning is set when Pan overrides the channel panning.
	SamplePanning
	// Sample16Bit tells the original bit depth; data is stored as int16 either way.
	Sample16Bit
)

func (f SampleFlags) Has(v SampleFlags) bool { return f&v != 0 }

type VibratoType uint8

const (
	VibratoSine VibratoType = iota
	VibratoSquare
	VibratoRampUp
	VibratoRampDown
	VibratoRandom
)

// Sample is a mono PCM sample with its playback metadata.
//
// The PCM data lives inside a larger buffer that has Lookahead
// zero samples before and after it, followed by precomputed loop
// wrap windows (see PrecomputeLoops).
type Sample struct {
	Name     string
	Filename string

	// Length is the number of sample frames.
	Length int

	// Loop boundaries; the end is exclusive.
	LoopStart    int
	LoopEnd      int
	SustainStart int
	SustainEnd   int

	Flags SampleFlags

	// C5Speed is the playback rate (Hz) of the C-5 note.
	// Formats with UsesTranspose keep RelativeTone and FineTune instead.
	C5Speed      uint32
	RelativeTone int8
	FineTune     int8 // 1/128 semitones

	Volume       uint16 // 0..256
	GlobalVolume uint8  // 0..64
	Pan          uint16 // 0..256

	VibratoType  VibratoType
	VibratoSweep uint8
	VibratoDepth uint8
	VibratoRate  uint8

	buf []int16
}

// NewSample returns a sample initialized with the format defaults.
func NewSample(f Format) *Sample {
	s := &Sample{}
	s.Initialize(f)
	return s
}

// Initialize resets the metadata to the defaults; the data is freed.
func (s *Sample) Initialize(f Format) {
	*s = Sample{
		C5Speed:      8363,
		Volume:       256,
		GlobalVolume: 64,
		Pan:          128,
	}
	if spec := f.Spec(); spec != nil && spec.UsesTranspose {
		s.C5Speed = 0
	}
}

// Allocate prepares a zero-filled buffer for length frames.
// Any previous data is dropped.
func (s *Sample) Allocate(length int) error {
	if length < 0 || length > MaxSampleLength {
		return ErrAllocation
	}
	s.Length = length
	if length == 0 {
		s.buf = nil
		return nil
	}
	s.buf = make([]int16, length+lookaheadBufferSize)
	return nil
}

// Free releases the sample data.
func (s *Sample) Free() {
	s.buf = nil
	s.Length = 0
}

// HasData reports whether the sample has any PCM frames.
func (s *Sample) HasData() bool {
	return s.buf != nil && s.Length > 0
}

// Data returns the PCM frames. Writes go straight into the sample;
// call PrecomputeLoops afterwards.
func (s *Sample) Data() []int16 {
	if s.buf == nil {
		return nil
	}
	return s.buf[Lookahead : Lookahead+s.Length]
}

// Padded returns the data with Lookahead zero samples on both sides.
// Frame i of the sample is at index Lookahead+i.
func (s *Sample) Padded() []int16 {
	if s.buf == nil {
		return nil
	}
	return s.buf[:s.Length+2*Lookahead]
}

// LoopWindow returns a precomputed wrap window.
//
// The window holds the samples the playback sees around a loop point,
// virtual index i of the window maps to sample position point-Lookahead+i,
// where point is the loop end (atStart=false) or the loop start (atStart=true).
func (s *Sample) LoopWindow(sustain, atStart bool) []int16 {
	if s.buf == nil {
		return nil
	}
	k := 0
	if sustain {
		k = 2
	}
	if atStart {
		k++
	}
	base := s.Length + 2*Lookahead + k*wrapWindowSize
	return s.buf[base : base+wrapWindowSize]
}

// SetLoop updates the normal loop and recomputes the wrap windows.
func (s *Sample) SetLoop(start, end int, enabled, pingPong bool) {
	s.LoopStart, s.LoopEnd = start, end
	s.Flags &^= SampleLoop | SamplePingPong
	if enabled {
		s.Flags |= SampleLoop
		if pingPong {
			s.Flags |= SamplePingPong
		}
	}
	s.SanitizeLoops()
	s.PrecomputeLoops()
}

// SetSustainLoop updates the sustain loop and recomputes the wrap windows.
func (s *Sample) SetSustainLoop(start, end int, enabled, pingPong bool) {
	s.SustainStart, s.SustainEnd = start, end
	s.Flags &^= SampleSustain | SamplePingPongSustain
	if enabled {
		s.Flags |= SampleSustain
		if pingPong {
			s.Flags |= SamplePingPongSustain
		}
	}
	s.SanitizeLoops()
	s.PrecomputeLoops()
}

// SanitizeLoops clamps loop points into the sample bounds and disables
// loops that became empty. It reports whether anything was changed.
//
// After sanitizing, an enabled loop always satisfies
// start < end <= Length. Calling it twice is the same as calling it once.
func (s *Sample) SanitizeLoops() bool {
	changed := false
	fix := func(start, end *int, enable, pingPong SampleFlags) {
		if *end > s.Length {
			*end = s.Length
			changed = true
		}
		if *start < 0 {
			*start = 0
			changed = true
		}
		if *start > *end {
			*start = *end
			changed = true
		}
		if *start >= *end && (*start != 0 || *end != 0 || s.Flags.Has(enable)) {
			*start, *end = 0, 0
			changed = true
		}
		if *end == 0 && s.Flags&(enable|pingPong) != 0 {
			s.Flags &^= enable | pingPong
			changed = true
		}
	}
	fix(&s.LoopStart, &s.LoopEnd, SampleLoop, SamplePingPong)
	fix(&s.SustainStart, &s.SustainEnd, SampleSustain, SamplePingPongSustain)
	return changed
}

// PrecomputeLoops refreshes the wrap windows of both loops.
// It must be called whenever the data or the loop points change.
func (s *Sample) PrecomputeLoops() {
	if !s.HasData() {
		return
	}
	s.buildWindows(false, s.LoopStart, s.LoopEnd, s.Flags.Has(SampleLoop), s.Flags.Has(SamplePingPong))
	s.buildWindows(true, s.SustainStart, s.SustainEnd, s.Flags.Has(SampleSustain), s.Flags.Has(SamplePingPongSustain))
}

func (s *Sample) buildWindows(sustain bool, start, end int, enabled, pingPong bool) {
	endWin := s.LoopWindow(sustain, false)
	startWin := s.LoopWindow(sustain, true)
	if !enabled || end <= start {
		clear(endWin)
		clear(startWin)
		return
	}
	data := s.Data()
	loopLen := end - start
	raw := func(x int) int16 {
		if x < 0 || x >= s.Length {
			return 0
		}
		return data[x]
	}
	periodic := func(x int) int16 {
		if pingPong {
			m := (x - start) % (2 * loopLen)
			if m < 0 {
				m += 2 * loopLen
			}
			if m < loopLen {
				return data[start+m]
			}
			return data[end-1-(m-loopLen)]
		}
		m := (x - start) % loopLen
		if m < 0 {
			m += loopLen
		}
		return data[start+m]
	}

	// Around the loop end, everything before the loop start is
	// the straight sample data (first pass through the sample).
	for i := range endWin {
		x := end - Lookahead + i
		if x < start {
			endWin[i] = raw(x)
		} else {
			endWin[i] = periodic(x)
		}
	}
	// Around the loop start, the window is only used after the
	// loop was taken at least once, so it is fully periodic.
	for i := range startWin {
		startWin[i] = periodic(start - Lookahead + i)
	}
}

// Clone returns a deep copy that owns its own buffer.
func (s *Sample) Clone() *Sample {
	c := *s
	if s.buf != nil {
		c.buf = make([]int16, len(s.buf))
		copy(c.buf, s.buf)
		c.PrecomputeLoops()
	}
	return &c
}

// SampleRate returns the C-5 frequency, converting transpose+finetune
// for formats that store pitch that way.
func (s *Sample) SampleRate(f Format) uint32 {
	if spec := f.Spec(); spec != nil && spec.UsesTranspose {
		return TransposeToFrequency(int(s.RelativeTone), int(s.FineTune))
	}
	if s.C5Speed == 0 {
		return 8363
	}
	return s.C5Speed
}

// Bytes reports the size of the original PCM data.
func (s *Sample) Bytes() int {
	if s.Flags.Has(Sample16Bit) {
		return s.Length * 2
	}
	return s.Length
}
