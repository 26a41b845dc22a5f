package song

// Sequence is a named order list.
type Sequence struct {
	Name    string
	Orders  []PatternIndex
	Restart int
}

// At returns the order entry, or OrderEnd past the end of the list.
func (q *Sequence) At(i int) PatternIndex {
	if i < 0 || i >= len(q.Orders) {
		return OrderEnd
	}
	return q.Orders[i]
}

// Length returns the number of orders up to the first end marker.
func (q *Sequence) Length() int {
	for i, p := range q.Orders {
		if p == OrderEnd {
			return i
		}
	}
	return len(q.Orders)
}

// SetFromBytes fills the list from a file order table using the
// common 0xFE (skip) and 0xFF (end) byte markers.
func (q *Sequence) SetFromBytes(b []byte) {
	q.Orders = q.Orders[:0]
	for _, v := range b {
		switch v {
		case 0xFE:
			q.Orders = append(q.Orders, OrderSkip)
		case 0xFF:
			q.Orders = append(q.Orders, OrderEnd)
		default:
			q.Orders = append(q.Orders, PatternIndex(v))
		}
	}
}

// Clone returns a copy that does not share the order slice.
func (q *Sequence) Clone() Sequence {
	c := *q
	c.Orders = append([]PatternIndex(nil), q.Orders...)
	return c
}
