package song

import (
	"testing"
)

func newTestSample(t *testing.T, data ...int16) *Sample {
	t.Helper()
	smp := NewSample(FormatIT)
	if err := smp.Allocate(len(data)); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	copy(smp.Data(), data)
	return smp
}

func TestSampleAllocateIsPadded(t *testing.T) {
	smp := newTestSample(t, 1, 2, 3)
	padded := smp.Padded()
	if len(padded) != 3+2*Lookahead {
		t.Fatalf("padded len=%d", len(padded))
	}
	for i := 0; i < Lookahead; i++ {
		if padded[i] != 0 || padded[Lookahead+3+i] != 0 {
			t.Fatalf("padding is not zero at %d", i)
		}
	}
	if padded[Lookahead] != 1 || padded[Lookahead+2] != 3 {
		t.Fatalf("data misplaced: %v", padded[Lookahead:Lookahead+3])
	}
	if err := smp.Allocate(MaxSampleLength + 1); err != ErrAllocation {
		t.Fatalf("oversized allocation: %v", err)
	}
}

func TestSanitizeLoops(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		start, end int
		flags      SampleFlags
	}{
		{"valid", 100, 10, 50, SampleLoop},
		{"end past length", 100, 10, 500, SampleLoop | SamplePingPong},
		{"inverted", 100, 80, 20, SampleLoop},
		{"empty", 100, 30, 30, SampleLoop},
		{"negative start", 100, -5, 10, SampleLoop},
		{"disabled garbage", 10, 70, 90, 0},
		{"zero length", 0, 0, 10, SampleLoop},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			smp := &Sample{Length: test.length, LoopStart: test.start, LoopEnd: test.end, Flags: test.flags}
			smp.SanitizeLoops()
			if smp.Flags.Has(SampleLoop) {
				if !(smp.LoopStart < smp.LoopEnd && smp.LoopEnd <= smp.Length) {
					t.Errorf("invalid enabled loop %d..%d (len %d)", smp.LoopStart, smp.LoopEnd, smp.Length)
				}
			}
			if smp.LoopEnd > smp.Length || smp.LoopStart > smp.LoopEnd {
				t.Errorf("loop %d..%d out of bounds", smp.LoopStart, smp.LoopEnd)
			}
			once := *smp
			if smp.SanitizeLoops() {
				t.Errorf("second sanitize changed the sample")
			}
			if once.LoopStart != smp.LoopStart || once.LoopEnd != smp.LoopEnd || once.Flags != smp.Flags {
				t.Errorf("sanitize is not idempotent: %+v vs %+v", once, *smp)
			}
		})
	}
}

func TestLoopWindowForward(t *testing.T) {
	smp := newTestSample(t, 10, 11, 12, 13, 14, 15, 16, 17)
	smp.SetLoop(2, 6, true, false)

	end := smp.LoopWindow(false, false)
	// Virtual index i maps to position 6-Lookahead+i.
	at := func(win []int16, point, pos int) int16 { return win[pos-point+Lookahead] }
	if got := at(end, 6, 5); got != 15 {
		t.Errorf("before loop end: %d", got)
	}
	// Past the loop end the data continues from the loop start.
	if got := at(end, 6, 6); got != 12 {
		t.Errorf("loop end+0: %d, want 12", got)
	}
	if got := at(end, 6, 9); got != 15 {
		t.Errorf("loop end+3: %d, want 15", got)
	}
	if got := at(end, 6, 10); got != 12 {
		t.Errorf("loop end+4: %d, want 12", got)
	}
	// Before the loop start on the first pass: raw data.
	if got := at(end, 6, 0); got != 10 {
		t.Errorf("pre-loop data: %d, want 10", got)
	}

	start := smp.LoopWindow(false, true)
	// After looping, the samples before the loop start come from the loop end.
	if got := at(start, 2, 1); got != 15 {
		t.Errorf("loop start-1: %d, want 15", got)
	}
	if got := at(start, 2, 2); got != 12 {
		t.Errorf("loop start: %d, want 12", got)
	}
}

func TestLoopWindowPingPong(t *testing.T) {
	smp := newTestSample(t, 10, 11, 12, 13, 14, 15, 16, 17)
	smp.SetLoop(2, 6, true, true)
	end := smp.LoopWindow(false, false)
	at := func(win []int16, point, pos int) int16 { return win[pos-point+Lookahead] }
	// Mirrored around the loop end, the turning points repeat.
	for i, want := range []int16{15, 14, 13, 12, 12, 13} {
		if got := at(end, 6, 6+i); got != want {
			t.Errorf("end+%d: %d, want %d", i, got, want)
		}
	}
	start := smp.LoopWindow(false, true)
	for i, want := range []int16{12, 13, 14} {
		if got := at(start, 2, 1-i); got != want {
			t.Errorf("start-%d: %d, want %d", i+1, got, want)
		}
	}
}

func TestSampleCloneIsIndependent(t *testing.T) {
	smp := newTestSample(t, 1, 2, 3, 4)
	smp.SetLoop(0, 4, true, false)
	c := smp.Clone()
	c.Data()[0] = 100
	c.PrecomputeLoops()
	if smp.Data()[0] != 1 {
		t.Fatalf("clone shares the buffer")
	}
	if c.LoopWindow(false, false)[Lookahead] != 100 {
		t.Fatalf("clone wrap window is stale")
	}
	if smp.LoopWindow(false, false)[Lookahead] != 1 {
		t.Fatalf("clone shares the wrap windows")
	}
}

func TestTransposeRoundTrip(t *testing.T) {
	for _, freq := range []uint32{8363, 16726, 4181, 22050, 44100, 8000, 12345} {
		tr, ft := FrequencyToTranspose(freq)
		got := TransposeToFrequency(int(tr), int(ft))
		diff := int(got) - int(freq)
		if diff < 0 {
			diff = -diff
		}
		// One finetune step is ~0.045%.
		if float64(diff) > float64(freq)*0.001 {
			t.Errorf("%d Hz -> (%d, %d) -> %d Hz", freq, tr, ft, got)
		}
	}
	if got := TransposeToFrequency(12, 0); got != 16726 {
		t.Errorf("one octave up: %d", got)
	}
}

func TestSampleConvert(t *testing.T) {
	t.Run("transpose to frequency", func(t *testing.T) {
		smp := NewSample(FormatXM)
		smp.RelativeTone = 12
		smp.Convert(FormatXM, FormatIT)
		if smp.C5Speed != 16726 || smp.RelativeTone != 0 {
			t.Errorf("c5=%d tone=%d", smp.C5Speed, smp.RelativeTone)
		}
	})

	t.Run("sustain loop to normal loop", func(t *testing.T) {
		smp := newTestSample(t, make([]int16, 100)...)
		smp.Flags |= SampleSustain | SamplePingPongSustain
		smp.SustainStart, smp.SustainEnd = 10, 20
		smp.Convert(FormatIT, FormatXM)
		if !smp.Flags.Has(SampleLoop) || smp.LoopStart != 10 || smp.LoopEnd != 20 {
			t.Errorf("loop %d..%d flags %b", smp.LoopStart, smp.LoopEnd, smp.Flags)
		}
		if !smp.Flags.Has(SamplePingPong) || smp.Flags.Has(SampleSustain) {
			t.Errorf("flags %b", smp.Flags)
		}
		if !smp.Flags.Has(SamplePanning) {
			t.Errorf("XM samples always have panning")
		}
	})

	t.Run("vibrato sweep inversion", func(t *testing.T) {
		smp := NewSample(FormatXM)
		smp.VibratoDepth, smp.VibratoRate, smp.VibratoSweep = 4, 8, 10
		smp.Convert(FormatXM, FormatIT)
		if smp.VibratoSweep != 245 {
			t.Errorf("sweep %d", smp.VibratoSweep)
		}
	})

	t.Run("no ping-pong in MOD", func(t *testing.T) {
		smp := newTestSample(t, make([]int16, 10)...)
		smp.SetLoop(0, 10, true, true)
		smp.Convert(FormatIT, FormatMOD)
		if smp.Flags.Has(SamplePingPong) || smp.Flags.Has(SamplePanning) {
			t.Errorf("flags %b", smp.Flags)
		}
	})
}
