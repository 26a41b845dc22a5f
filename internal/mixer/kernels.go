package mixer

import (
	"math"
)

const (
	phaseBits = 10
	numPhases = 1 << phaseBits

	firTaps = 8
	// firLeft is the number of taps before the playback position.
	firLeft = firTaps/2 - 1
)

type (
	cubicKernel [numPhases][4]float32
	sincKernel  [numPhases][firTaps]float32
)

var (
	cubicTable cubicKernel
	firTable   sincKernel

	// polyTables are sinc kernels with decreasing cutoffs
	// for increasing resampling ratios.
	polyTables [3]sincKernel
	polyCutoff = [3]float64{1.0, 0.75, 0.5}
)

func init() {
	buildCubic(&cubicTable)
	buildSinc(&firTable, 1.0)
	for i := range polyTables {
		buildSinc(&polyTables[i], polyCutoff[i])
	}
}

// buildCubic fills a Catmull-Rom spline over the taps -1, 0, 1, 2.
func buildCubic(t *cubicKernel) {
	for p := range t {
		x := float64(p) / numPhases
		x2 := x * x
		x3 := x2 * x
		t[p] = [4]float32{
			float32(-0.5*x3 + x2 - 0.5*x),
			float32(1.5*x3 - 2.5*x2 + 1),
			float32(-1.5*x3 + 2*x2 + 0.5*x),
			float32(0.5*x3 - 0.5*x2),
		}
	}
}

// buildSinc fills a Blackman-windowed sinc over the taps -3..4.
// Every phase is normalized to unity gain.
func buildSinc(t *sincKernel, cutoff float64) {
	const halfWidth = firTaps / 2
	for p := range t {
		frac := float64(p) / numPhases
		sum := 0.0
		var row [firTaps]float64
		for i := range row {
			x := float64(i-firLeft) - frac
			w := 0.42 + 0.5*math.Cos(math.Pi*x/halfWidth) + 0.08*math.Cos(2*math.Pi*x/halfWidth)
			if math.Abs(x) >= halfWidth {
				w = 0
			}
			row[i] = cutoff * sinc(cutoff*x) * w
			sum += row[i]
		}
		for i := range row {
			t[p][i] = float32(row[i] / sum)
		}
	}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// polyTable picks the kernel for a step in 32.32 fixed point.
func polyTable(step int64) *sincKernel {
	switch {
	case step <= 1<<32:
		return &polyTables[0]
	case step <= 3<<31:
		return &polyTables[1]
	default:
		return &polyTables[2]
	}
}
