package modplug

import (
	"fmt"
)

// Plugin is an effect processor channels can be routed through with
// song.ChannelSettings.Plugin.
//
// Process is called from the rendering goroutine with the stream lock
// held. in and out hold the left and right buffers; they are at most
// a few hundred frames long and must not be retained.
type Plugin interface {
	Process(in, out [][]float32, frames int)
	Parameter(index int) float32
	SetParameter(index int, value float32)
}

// maxPluginFrames is the largest block a plugin is asked to process.
const maxPluginFrames = 512

// SetPlugin installs p into a 1-based plugin slot.
// A nil plugin empties the slot; the channels routed to an empty
// slot are silent.
func (s *Stream) SetPlugin(slot int, p Plugin) error {
	if slot < 1 {
		return fmt.Errorf("plugin slot %d is out of the valid range [1, ...)", slot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.plugins) <= slot {
		s.plugins = append(s.plugins, nil)
	}
	s.plugins[slot] = p
	if s.pluginIn == nil {
		for i := range s.pluginBuf {
			s.pluginBuf[i] = make([]float32, maxPluginFrames)
		}
		s.pluginIn = make([][]float32, 2)
		s.pluginOut = make([][]float32, 2)
	}
	return nil
}

// Plugin returns the plugin installed into a slot, if any.
func (s *Stream) Plugin(slot int) Plugin {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot < 1 || slot >= len(s.plugins) {
		return nil
	}
	return s.plugins[slot]
}

// processBus runs the mixer bus of a plugin slot through the plugin.
func (s *Stream) processBus(bus int, left, right []float32) bool {
	if bus >= len(s.plugins) || s.plugins[bus] == nil {
		return false
	}
	p := s.plugins[bus]
	for done := 0; done < len(left); {
		n := min(len(left)-done, maxPluginFrames)
		in, out := s.pluginIn, s.pluginOut
		for c := range 2 {
			in[c] = s.pluginBuf[c][:n]
			out[c] = s.pluginBuf[2+c][:n]
			clear(out[c])
		}
		copy(in[0], left[done:done+n])
		copy(in[1], right[done:done+n])
		p.Process(in, out, n)
		copy(left[done:done+n], out[0])
		copy(right[done:done+n], out[1])
		done += n
	}
	return true
}
