package modplug

import (
	"math"

	"github.com/ksnyder9801/modplug/song"
)

// nextTick runs the sequencer for one tick and updates the voices.
// It reports false at the end of the song.
func (s *Stream) nextTick() bool {
	q := &s.seq
	firstTick := q.tick == 0 && q.rowRepeat == 0
	if firstTick {
		if !s.nextRow() {
			return false
		}
	}

	for i := range s.channels {
		ch := &s.channels[i]
		ch.arpeggio = 0
		ch.vibOffset = 0
		ch.tremOffset = 0
		ch.panbOffset = 0
		if firstTick {
			continue
		}
		if ch.delayTick >= 0 {
			if q.tick == ch.delayTick && q.rowRepeat == 0 {
				ch.delayTick = -1
				s.triggerRow(ch, ch.cell)
			}
			continue
		}
		s.applyTickEffect(ch, q.tick)
	}

	for i := range s.channels {
		s.updateChannel(&s.channels[i])
	}

	q.tick++
	if q.tick >= q.speed+q.extraTicks {
		q.tick = 0
		if q.rowRepeat < q.patternDelay {
			q.rowRepeat++
		} else {
			q.rowRepeat = 0
			q.patternDelay = 0
			q.extraTicks = 0
			q.advance()
		}
	}
	return true
}

// nextRow settles the row position and applies the row to every channel.
func (s *Stream) nextRow() bool {
	q := &s.seq
	for attempt := 0; ; attempt++ {
		reason := q.resolve(s.song)
		if reason == endNone {
			break
		}
		if attempt > 0 || !q.restart(s.song, reason) {
			return false
		}
		s.log.Debug("song restarts", "pass", q.passes, "order", q.order)
		s.emit(StreamEvent{
			Kind:  EventSync,
			Time:  s.seconds(),
			value: math.Float64bits(0),
		})
	}

	pat := s.song.Patterns.Get(q.patternIndex)
	for i := range s.channels {
		ch := &s.channels[i]
		if q.newOrder {
			ch.patternLoopRow = 0
		}
		var cell song.Command
		if pat != nil && i < pat.Channels() {
			cell = *pat.Cell(q.row, i)
		}
		s.advanceChannelRow(ch, cell)
	}
	q.newOrder = false

	s.emit(StreamEvent{
		Kind:  EventRow,
		Time:  s.seconds(),
		value: uint64(q.order)<<32 | uint64(q.row),
	})
	return true
}

func (s *Stream) advanceChannelRow(ch *streamChannel, cell song.Command) {
	ch.cell = cell
	ch.cutTick = -1
	ch.delayTick = -1
	if d := noteDelay(cell); d > 0 {
		// The whole cell waits for the delay tick.
		ch.delayTick = d
		ch.effect, ch.param = song.EffectNone, 0
		return
	}
	s.triggerRow(ch, cell)
}

// noteDelay returns the delay of an SDx/EDx cell.
func noteDelay(cell song.Command) int {
	switch cell.Effect {
	case song.EffectModCmdEx, song.EffectS3MCmdEx:
		if cell.Param>>4 == 0xD {
			return int(cell.Param & 0x0F)
		}
	}
	return 0
}

// triggerRow applies the note, the volume column and the effect of a
// cell on its first tick.
func (s *Stream) triggerRow(ch *streamChannel, cell song.Command) {
	s.processNote(ch, cell)
	s.applyVolumeColumn(ch, cell, true)
	s.applyRowEffect(ch, cell)

	if s.eventFunc != nil && song.IsNote(cell.Note) {
		value := uint64(cell.Note) | uint64(cell.Instr)<<8 | uint64(math.Float32bits(float32(ch.volume)/64))<<16
		s.emit(StreamEvent{
			Kind:    EventNote,
			Channel: ch.id,
			Time:    s.seconds(),
			value:   value,
		})
	}
}
