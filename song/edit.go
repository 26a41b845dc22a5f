package song

// RearrangeChannels rebuilds the channel layout.
//
// newOrder[c] is the old channel that becomes channel c, or NewChannel
// for an empty one. Old channels that are not listed are deleted.
// Every pattern is reallocated; on failure nothing is modified.
func (s *Song) RearrangeChannels(newOrder []ChannelIndex) error {
	spec := s.Spec()
	n := len(newOrder)
	if !spec.ValidChannels(n) {
		return &LimitError{What: "channels", Min: spec.ChannelsMin, Max: spec.ChannelsMax, Got: n}
	}
	oldChannels := s.NumChannels()
	for _, c := range newOrder {
		if c != NewChannel && (c < 0 || int(c) >= oldChannels) {
			return ErrInvalidIndex
		}
	}

	// Allocate everything first, so a failure leaves all patterns
	// with a consistent channel count.
	patterns := s.Patterns.All()
	grids := make([][]Command, len(patterns))
	for i, p := range patterns {
		if p == nil {
			continue
		}
		data, err := allocCells(p.rows, n)
		if err != nil {
			return err
		}
		grids[i] = data
	}

	for i, p := range patterns {
		if p == nil {
			continue
		}
		data := grids[i]
		for row := 0; row < p.rows; row++ {
			dst := data[row*n : (row+1)*n]
			src := p.Row(row)
			for c, old := range newOrder {
				if old != NewChannel {
					dst[c] = src[old]
				}
			}
		}
		p.data = data
		p.channels = n
	}

	settings := make([]ChannelSettings, n)
	for c, old := range newOrder {
		if old == NewChannel {
			settings[c] = DefaultChannelSettings()
		} else {
			settings[c] = s.Channels[old]
		}
	}
	s.Channels = settings
	s.Patterns.channels = n
	return nil
}

// RemoveChannels keeps the channels whose keep mask entry is true.
func (s *Song) RemoveChannels(keep []bool) error {
	if len(keep) != s.NumChannels() {
		return ErrInvalidIndex
	}
	newOrder := ChannelOrderFromKeep(keep)
	if len(newOrder) == len(keep) {
		return ErrNoChange
	}
	return s.RearrangeChannels(newOrder)
}

// ChangeNumChannels adds empty channels at the end or drops the last ones.
func (s *Song) ChangeNumChannels(n int) error {
	if n == s.NumChannels() {
		return ErrNoChange
	}
	newOrder := make([]ChannelIndex, n)
	for c := range newOrder {
		if c < s.NumChannels() {
			newOrder[c] = ChannelIndex(c)
		} else {
			newOrder[c] = NewChannel
		}
	}
	return s.RearrangeChannels(newOrder)
}

// ChannelOrderFromKeep converts a keep mask into a rearrangement vector.
func ChannelOrderFromKeep(keep []bool) []ChannelIndex {
	var newOrder []ChannelIndex
	for c, k := range keep {
		if k {
			newOrder = append(newOrder, ChannelIndex(c))
		}
	}
	return newOrder
}

// RearrangeSamples rebuilds the sample list.
//
// newOrder[i] is the old sample that becomes sample i+1, or 0 for an
// empty slot. A sample listed more than once is physically copied;
// the last listed slot keeps the original and the old references.
// A sample that is not listed is freed. Instrument keyboards (or the
// pattern instrument column when there are no instruments) are
// rewritten to the new numbers.
func (s *Song) RearrangeSamples(newOrder []SampleIndex) error {
	spec := s.Spec()
	if len(newOrder) > spec.SamplesMax {
		return &LimitError{What: "samples", Min: 0, Max: spec.SamplesMax, Got: len(newOrder)}
	}
	oldNum := s.NumSamples()
	for _, k := range newOrder {
		if int(k) > oldNum {
			return ErrInvalidIndex
		}
	}

	count := make([]int, oldNum+1)
	newIndex := make([]SampleIndex, oldNum+1)
	for i, k := range newOrder {
		if k > 0 {
			count[k]++
			newIndex[k] = SampleIndex(i + 1)
		}
	}

	// Build the new list before touching the song.
	samples := make([]*Sample, len(newOrder)+1)
	remaining := append([]int(nil), count...)
	for i, k := range newOrder {
		if k == 0 || s.Samples[k] == nil {
			samples[i+1] = NewSample(s.Format)
			continue
		}
		remaining[k]--
		if remaining[k] > 0 {
			// Referenced again later: the later slot keeps the original.
			samples[i+1] = s.Samples[k].Clone()
		} else {
			samples[i+1] = s.Samples[k]
		}
	}

	for k := 1; k <= oldNum; k++ {
		if count[k] == 0 && s.Samples[k] != nil {
			s.Samples[k].Free()
		}
	}
	s.Samples = samples

	if s.InstrumentMode() {
		for _, ins := range s.Instruments {
			if ins == nil {
				continue
			}
			for note, k := range ins.Keyboard {
				if k > 0 && int(k) <= oldNum {
					ins.Keyboard[note] = newIndex[k]
				} else {
					ins.Keyboard[note] = 0
				}
			}
		}
	} else {
		s.rewriteInstrumentColumn(indexTable(newIndex))
	}
	return nil
}

// RearrangeInstruments rebuilds the instrument list the same way
// RearrangeSamples does for samples: a duplicated instrument keeps the
// original object and the old references in its last listed slot,
// the earlier slots get copies.
func (s *Song) RearrangeInstruments(newOrder []InstrumentIndex) error {
	spec := s.Spec()
	if len(newOrder) > spec.InstrumentsMax {
		return &LimitError{What: "instruments", Min: 0, Max: spec.InstrumentsMax, Got: len(newOrder)}
	}
	if !s.InstrumentMode() {
		return ErrNoChange
	}
	oldNum := s.NumInstruments()
	for _, k := range newOrder {
		if int(k) > oldNum {
			return ErrInvalidIndex
		}
	}

	remaining := make([]int, oldNum+1)
	newIndex := make([]InstrumentIndex, oldNum+1)
	for i, k := range newOrder {
		if k > 0 {
			remaining[k]++
			newIndex[k] = InstrumentIndex(i + 1)
		}
	}
	instruments := make([]*Instrument, len(newOrder)+1)
	for i, k := range newOrder {
		if k == 0 || s.Instruments[k] == nil {
			instruments[i+1] = NewInstrument()
			continue
		}
		remaining[k]--
		if remaining[k] > 0 {
			instruments[i+1] = s.Instruments[k].Clone()
		} else {
			instruments[i+1] = s.Instruments[k]
		}
	}
	s.Instruments = instruments
	s.rewriteInstrumentColumn(indexTable(newIndex))
	return nil
}

// RemoveInstrument deletes one instrument. With removeSamples set,
// samples no other instrument refers to are freed as well.
func (s *Song) RemoveInstrument(i InstrumentIndex, removeSamples bool) error {
	ins := s.Instrument(i)
	if ins == nil {
		return ErrInvalidIndex
	}
	if removeSamples {
		for _, k := range uniqueSamples(ins) {
			shared := false
			for j, other := range s.Instruments {
				if other != nil && InstrumentIndex(j) != i && other.References(k) {
					shared = true
					break
				}
			}
			if smp := s.Sample(k); smp != nil && !shared {
				name := smp.Name
				smp.Initialize(s.Format)
				smp.Name = name
			}
		}
	}
	newOrder := make([]InstrumentIndex, 0, s.NumInstruments())
	for j := 1; j <= s.NumInstruments(); j++ {
		if InstrumentIndex(j) != i {
			newOrder = append(newOrder, InstrumentIndex(j))
		}
	}
	if len(newOrder) == 0 {
		// The song stays in instrument mode with one empty instrument.
		s.Instruments = []*Instrument{nil, NewInstrument()}
		s.rewriteInstrumentColumn([]uint8{0})
		return nil
	}
	return s.RearrangeInstruments(newOrder)
}

// ConvertInstrumentsToSamples rewrites every pattern to refer to
// samples directly and drops the instruments.
func (s *Song) ConvertInstrumentsToSamples() {
	if !s.InstrumentMode() {
		return
	}
	s.Patterns.ForEachCommand(func(c *Command) {
		if c.Instr == 0 {
			return
		}
		note := c.Note
		if !IsNote(note) {
			note = NoteMiddleC
		}
		var smp SampleIndex
		mapped := c.Note
		if ins := s.Instrument(InstrumentIndex(c.Instr)); ins != nil {
			smp, mapped = ins.SampleFor(note)
			if int(smp) > s.NumSamples() || smp > 0xFF {
				smp = 0
			}
		}
		c.Instr = uint8(smp)
		if IsNote(c.Note) {
			c.Note = mapped
		}
	})
	s.Instruments = []*Instrument{nil}
}

// indexTable converts an old→new table into the byte form used by
// the pattern instrument column. Indices that do not fit become 0.
func indexTable[T SampleIndex | InstrumentIndex](newIndex []T) []uint8 {
	table := make([]uint8, len(newIndex))
	for i, v := range newIndex {
		if v <= 0xFF {
			table[i] = uint8(v)
		}
	}
	return table
}

// rewriteInstrumentColumn maps every instrument column value through
// the table in a single pass. Values outside the table become 0.
func (s *Song) rewriteInstrumentColumn(table []uint8) {
	s.Patterns.ForEachCommand(func(c *Command) {
		if int(c.Instr) < len(table) {
			c.Instr = table[c.Instr]
		} else {
			c.Instr = 0
		}
	})
}

func uniqueSamples(ins *Instrument) []SampleIndex {
	var out []SampleIndex
	seen := map[SampleIndex]bool{}
	for _, k := range ins.Keyboard {
		if k != 0 && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
