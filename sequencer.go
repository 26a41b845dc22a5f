package modplug

import (
	"github.com/ksnyder9801/modplug/song"
)

// emptyPatternRows is the length of an order that refers to a
// missing pattern.
const emptyPatternRows = 64

// sequencer is the order/row/tick position of a stream.
type sequencer struct {
	order        int
	row          int
	patternIndex song.PatternIndex
	rows         int
	tick         int

	speed int // ticks per row
	tempo int

	rowRepeat    int
	patternDelay int
	extraTicks   int

	// Position changes requested by the current row.
	jumpOrder int
	breakRow  int
	loopJump  bool
	loopRow   int

	// newOrder is set when the current row is the first one of an order.
	newOrder bool

	// visited has a row bitmap per order of the current pass.
	visited [][]uint64
	passes  int
	repeat  int
}

type songEnd uint8

const (
	endNone songEnd = iota
	endOrderList
	endVisited
)

func (q *sequencer) reset(sng *song.Song, repeat int) {
	visited := q.visited
	*q = sequencer{
		speed:     clampMin(sng.DefaultSpeed, 1),
		tempo:     sng.DefaultTempo,
		jumpOrder: -1,
		breakRow:  -1,
		newOrder:  true,
		visited:   visited,
		repeat:    repeat,
	}
	q.clearVisited()
}

func (q *sequencer) clearVisited() {
	for _, rows := range q.visited {
		clear(rows)
	}
}

// jumpTo makes the next tick start at the given row.
func (q *sequencer) jumpTo(order, row int) {
	q.order, q.row = order, row
	q.tick, q.rowRepeat, q.patternDelay, q.extraTicks = 0, 0, 0, 0
	q.jumpOrder, q.breakRow, q.loopJump = -1, -1, false
	q.newOrder = true
	q.clearVisited()
}

func (q *sequencer) patternRows(sng *song.Song, p song.PatternIndex) int {
	if p == song.OrderEnd || p == song.OrderSkip {
		return 0
	}
	if pat := sng.Patterns.Get(p); pat != nil {
		return pat.Rows()
	}
	return emptyPatternRows
}

// resolve settles the current position on a playable row and marks it
// visited. It reports why the song ended, if it did.
func (q *sequencer) resolve(sng *song.Song) songEnd {
	seq := sng.Order()
	for skipped := 0; ; skipped++ {
		p := seq.At(q.order)
		if p == song.OrderEnd || skipped > len(seq.Orders) {
			return endOrderList
		}
		if p == song.OrderSkip {
			q.order++
			q.row = 0
			q.newOrder = true
			continue
		}
		q.patternIndex = p
		q.rows = q.patternRows(sng, p)
		break
	}
	if q.row >= q.rows {
		q.row = 0
	}
	if q.isVisited(q.order, q.row) {
		return endVisited
	}
	q.markVisited(q.order, q.row)
	return endNone
}

func (q *sequencer) isVisited(order, row int) bool {
	if order >= len(q.visited) || q.visited[order] == nil {
		return false
	}
	bits := q.visited[order]
	return row/64 < len(bits) && bits[row/64]&(1<<(row%64)) != 0
}

func (q *sequencer) markVisited(order, row int) {
	for len(q.visited) <= order {
		q.visited = append(q.visited, nil)
	}
	words := (q.rows + 63) / 64
	if len(q.visited[order]) < words {
		bits := make([]uint64, words)
		copy(bits, q.visited[order])
		q.visited[order] = bits
	}
	q.visited[order][row/64] |= 1 << (row % 64)
}

// restart handles the song end: it reports false when no more passes
// are left, otherwise the position wraps to the restart order.
func (q *sequencer) restart(sng *song.Song, reason songEnd) bool {
	if q.repeat >= 0 && q.passes >= q.repeat {
		return false
	}
	seq := sng.Order()
	if seq.Length() == 0 {
		return false
	}
	q.passes++
	q.clearVisited()
	if reason == endOrderList {
		q.order = seq.Restart
		if q.order < 0 || q.order >= seq.Length() {
			q.order = 0
		}
		q.row = 0
		q.newOrder = true
	}
	return true
}

// advance moves on to the next row once the current one is over.
func (q *sequencer) advance() {
	prevOrder := q.order
	switch {
	case q.loopJump:
		q.row = q.loopRow
		if q.order < len(q.visited) {
			clear(q.visited[q.order])
		}
	case q.jumpOrder >= 0 || q.breakRow >= 0:
		if q.jumpOrder >= 0 {
			q.order = q.jumpOrder
		} else {
			q.order++
		}
		q.row = max(q.breakRow, 0)
	default:
		q.row++
		if q.row >= q.rows {
			q.order++
			q.row = 0
		}
	}
	q.newOrder = q.order != prevOrder
	q.jumpOrder, q.breakRow, q.loopJump = -1, -1, false
}

// clampPosition keeps the position valid after a structural edit.
func (q *sequencer) clampPosition(sng *song.Song) {
	seq := sng.Order()
	if q.order >= max(seq.Length(), 1) {
		q.order, q.row = 0, 0
	}
	q.rows = q.patternRows(sng, seq.At(q.order))
	if q.row >= q.rows {
		q.row = max(q.rows-1, 0)
	}
	q.visited = q.visited[:0]
}
