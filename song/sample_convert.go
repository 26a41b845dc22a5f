package song

import (
	"math"
)

// TransposeToFrequency converts a relative tone (semitones) and
// finetune (1/128 semitones) pair into a C-5 frequency.
func TransposeToFrequency(transpose, fineTune int) uint32 {
	return uint32(math.Round(math.Pow(2, float64(transpose*128+fineTune)/(12*128)) * 8363))
}

// FrequencyToTranspose is the inverse of TransposeToFrequency.
func FrequencyToTranspose(freq uint32) (transpose, fineTune int8) {
	if freq == 0 {
		return 0, 0
	}
	f2t := int(math.Round(math.Log(float64(freq)/8363) * (12 * 128) / math.Ln2))
	t := f2t >> 7
	ft := f2t & 0x7F
	if ft > 80 {
		t++
		ft -= 128
	}
	t = max(-127, min(127, t))
	return int8(t), int8(ft)
}

// FrequencyToTranspose stores the C-5 frequency as transpose and finetune.
func (s *Sample) FrequencyToTranspose() {
	s.RelativeTone, s.FineTune = FrequencyToTranspose(s.C5Speed)
}

// Convert translates the sample properties from one format family to another.
func (s *Sample) Convert(from, to Format) {
	src, dst := from.Spec(), to.Spec()
	if src == nil || dst == nil {
		return
	}

	// Frequency and transpose representations.
	if !dst.UsesTranspose && src.UsesTranspose {
		s.C5Speed = TransposeToFrequency(int(s.RelativeTone), int(s.FineTune))
		s.RelativeTone = 0
		s.FineTune = 0
	} else if dst.UsesTranspose && !src.UsesTranspose {
		s.FrequencyToTranspose()
		if to == FormatMOD {
			s.RelativeTone = 0
		}
	}

	if !dst.PingPongLoops {
		s.Flags &^= SamplePingPong
	}
	if !dst.SamplePanning {
		s.Flags &^= SamplePanning
	}
	if !dst.AutoVibrato {
		s.VibratoType = VibratoSine
		s.VibratoDepth = 0
		s.VibratoRate = 0
		s.VibratoSweep = 0
	}

	if !dst.SustainLoops {
		// Sustain loops are evaluated before normal loops,
		// so replacing the normal loop keeps the audible result.
		if s.Flags.Has(SampleSustain) {
			s.LoopStart = s.SustainStart
			s.LoopEnd = s.SustainEnd
			s.Flags |= SampleLoop
			if s.Flags.Has(SamplePingPongSustain) && dst.PingPongLoops {
				s.Flags |= SamplePingPong
			} else {
				s.Flags &^= SamplePingPong
			}
		}
		s.SustainStart, s.SustainEnd = 0, 0
		s.Flags &^= SampleSustain | SamplePingPongSustain
	}

	if to == FormatXM {
		// Every XM sample has a default panning.
		if !s.Flags.Has(SamplePanning) {
			s.Flags |= SamplePanning
			s.Pan = 128
		}
		s.VibratoDepth = min(s.VibratoDepth, 15)
		s.VibratoRate = min(s.VibratoRate, 63)
	}

	if src.XMVibratoSweep != dst.XMVibratoSweep && src.AutoVibrato && dst.AutoVibrato {
		if s.VibratoRate != 0 && s.VibratoDepth != 0 {
			s.VibratoSweep = 255 - s.VibratoSweep
		}
	}

	s.SanitizeLoops()
	s.PrecomputeLoops()
}
