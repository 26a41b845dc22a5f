package modplug

import (
	"unsafe"

	"github.com/ksnyder9801/modplug/song"
)

// songSize estimates the memory held by a song.
func songSize(s *song.Song) uint {
	memoryUsage := 0
	for _, smp := range s.Samples {
		if smp == nil {
			continue
		}
		memoryUsage += int(unsafe.Sizeof(song.Sample{}))
		memoryUsage += len(smp.Padded()) * 2
	}
	for _, ins := range s.Instruments {
		if ins == nil {
			continue
		}
		memoryUsage += int(unsafe.Sizeof(song.Instrument{}))
		nodes := len(ins.VolumeEnvelope.Nodes) + len(ins.PanningEnvelope.Nodes) + len(ins.PitchEnvelope.Nodes)
		memoryUsage += nodes * int(unsafe.Sizeof(song.EnvelopeNode{}))
	}
	for _, p := range s.Patterns.All() {
		if p == nil {
			continue
		}
		memoryUsage += int(unsafe.Sizeof(song.Pattern{}))
		memoryUsage += p.Rows() * p.Channels() * int(unsafe.Sizeof(song.Command{}))
	}
	for _, seq := range s.Sequences {
		memoryUsage += len(seq.Orders) * int(unsafe.Sizeof(song.PatternIndex(0)))
	}

	return uint(memoryUsage)
}
