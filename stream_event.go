package modplug

import (
	"math"
)

// StreamEventKind is an event tag that should be used to differentiate between different event types.
// See StreamEvent docs for more info.
type StreamEventKind int

const (
	// EventUnknown is a sentinel value.
	// You should never receive an event of this kind.
	EventUnknown StreamEventKind = iota

	// EventNote is emitted every time a channel triggers a note.
	// Notes that fail to start a voice (no sample data) are reported too,
	// it's up to the application to decide whether to handle them.
	//
	// Use StreamEvent.NoteEventData to get the event data.
	EventNote

	// EventSync tells the application to update their time counter to the specified value.
	//
	// It is emitted when the song wraps around and starts another pass.
	// A sync event with Time=2.0 and data argument of 0 should
	// reset the application time counter to 0 once it reaches 2.0.
	//
	// Use StreamEvent.SyncEventData to get the event data.
	EventSync

	// EventRow is emitted when the stream starts a new row.
	//
	// Use StreamEvent.RowEventData to get the event data.
	EventRow

	// EventEnd is emitted once when the song is over and the stream stops.
	EventEnd
)

func (k StreamEventKind) String() string {
	switch k {
	case EventNote:
		return "note"
	case EventSync:
		return "sync"
	case EventRow:
		return "row"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// StreamEvent holds a single Stream event data.
// This object is an argument to the Stream.SetEventHandler function.
//
// To handle the event correctly, you must first check its kind.
// For an event of kind EventNote there is a NoteEventData method that
// will return the associated data. For EventSync there is a SyncEventData.
//
// Every event has a Time value. This is a moment when this event happened in
// relation to the song start (in seconds). The user application needs
// to calculate the time deltas on its own and handle these events in the right moment.
type StreamEvent struct {
	Kind StreamEventKind

	// Channel is the song channel the event belongs to.
	// Channel-independent events have it set to 0.
	Channel int

	// Time represents the playback offset in seconds.
	// Time=2.5 means that this event happened somewhere around 2.5 seconds.
	Time float64

	value uint64
}

// NoteEventData returns the event data if e.Kind=EventNote.
// The return values are: note, instrument (or sample) number, volume.
// If the cell had no instrument, -1 is returned.
func (e StreamEvent) NoteEventData() (note, instrument int, vol float32) {
	noteBits := e.value & 0xff
	instrumentBits := (e.value >> 8) & 0xff
	volBits := e.value >> 16
	instrumentID := int(instrumentBits)
	if instrumentID == 0 {
		instrumentID = -1
	}
	return int(noteBits), instrumentID, math.Float32frombits(uint32(volBits))
}

// SyncEventData returns the event data if e.Kind=EventSync.
// The return values are: a time to synchronize to.
func (e StreamEvent) SyncEventData() (t float64) {
	return math.Float64frombits(e.value)
}

// RowEventData returns the event data if e.Kind=EventRow.
func (e StreamEvent) RowEventData() (order, row int) {
	return int(e.value >> 32), int(uint32(e.value))
}
