package song

// PatternIndex refers to a pattern slot. In order lists the two
// largest values are used as markers.
type PatternIndex uint16

const (
	// OrderSkip ("+++") orders are skipped during playback.
	OrderSkip PatternIndex = 0xFFFE
	// OrderEnd ("---") terminates the order list.
	OrderEnd PatternIndex = 0xFFFF
)

// MaxPatternCells bounds the size of a single pattern allocation.
const MaxPatternCells = 1024 * 256

// Pattern is a rows×channels grid of commands stored row by row.
type Pattern struct {
	Name string

	rows     int
	channels int
	data     []Command
}

func newPattern(rows, channels int) (*Pattern, error) {
	data, err := allocCells(rows, channels)
	if err != nil {
		return nil, err
	}
	return &Pattern{rows: rows, channels: channels, data: data}, nil
}

func allocCells(rows, channels int) ([]Command, error) {
	if rows <= 0 || channels <= 0 || rows*channels > MaxPatternCells {
		return nil, ErrAllocation
	}
	return make([]Command, rows*channels), nil
}

func (p *Pattern) Rows() int     { return p.rows }
func (p *Pattern) Channels() int { return p.channels }

// Cell returns the command at (row, channel).
func (p *Pattern) Cell(row, channel int) *Command {
	return &p.data[row*p.channels+channel]
}

// Row returns all commands of a row.
func (p *Pattern) Row(row int) []Command {
	i := row * p.channels
	return p.data[i : i+p.channels]
}

// Clone returns a deep copy of the pattern.
func (p *Pattern) Clone() *Pattern {
	c := *p
	c.data = append([]Command(nil), p.data...)
	return &c
}

// PatternStore owns the pattern slots of a song.
//
// A slot can be empty (nil pattern); order lists may still refer
// to such slots, they play as a 64-row empty pattern.
type PatternStore struct {
	patterns []*Pattern
	channels int
	spec     *Specification
}

// Len reports the number of slots, including empty ones.
func (s *PatternStore) Len() int { return len(s.patterns) }

// Count reports the number of non-empty slots.
func (s *PatternStore) Count() int {
	n := 0
	for _, p := range s.patterns {
		if p != nil {
			n++
		}
	}
	return n
}

// Get returns the pattern in the slot or nil.
func (s *PatternStore) Get(i PatternIndex) *Pattern {
	if int(i) < len(s.patterns) {
		return s.patterns[i]
	}
	return nil
}

// IsValid reports whether the slot holds a pattern.
func (s *PatternStore) IsValid(i PatternIndex) bool {
	return s.Get(i) != nil
}

// Insert allocates an empty pattern into slot i, growing the slot list
// if needed. An existing pattern in that slot is replaced.
func (s *PatternStore) Insert(i PatternIndex, rows int) error {
	if int(i) >= s.spec.PatternsMax {
		return &LimitError{What: "patterns", Min: 0, Max: s.spec.PatternsMax, Got: int(i) + 1}
	}
	if !s.spec.ValidRows(rows) {
		return &LimitError{What: "rows", Min: s.spec.RowsMin, Max: s.spec.RowsMax, Got: rows}
	}
	p, err := newPattern(rows, s.channels)
	if err != nil {
		return err
	}
	for int(i) >= len(s.patterns) {
		s.patterns = append(s.patterns, nil)
	}
	s.patterns[i] = p
	return nil
}

// Append inserts an empty pattern into the lowest free slot.
func (s *PatternStore) Append(rows int) (PatternIndex, error) {
	i := 0
	for i < len(s.patterns) && s.patterns[i] != nil {
		i++
	}
	if err := s.Insert(PatternIndex(i), rows); err != nil {
		return 0, err
	}
	return PatternIndex(i), nil
}

// Duplicate copies the pattern in slot i into the lowest free slot.
func (s *PatternStore) Duplicate(i PatternIndex) (PatternIndex, error) {
	src := s.Get(i)
	if src == nil {
		return 0, ErrInvalidIndex
	}
	j, err := s.Append(src.rows)
	if err != nil {
		return 0, err
	}
	s.patterns[j] = src.Clone()
	return j, nil
}

// Remove frees the slot. Trailing empty slots are dropped.
func (s *PatternStore) Remove(i PatternIndex) {
	if int(i) >= len(s.patterns) {
		return
	}
	s.patterns[i] = nil
	for len(s.patterns) > 0 && s.patterns[len(s.patterns)-1] == nil {
		s.patterns = s.patterns[:len(s.patterns)-1]
	}
}

// Resize changes the row count of a pattern, keeping the rows that fit.
func (s *PatternStore) Resize(i PatternIndex, rows int) error {
	p := s.Get(i)
	if p == nil {
		return ErrInvalidIndex
	}
	if !s.spec.ValidRows(rows) {
		return &LimitError{What: "rows", Min: s.spec.RowsMin, Max: s.spec.RowsMax, Got: rows}
	}
	data, err := allocCells(rows, p.channels)
	if err != nil {
		return err
	}
	copy(data, p.data)
	p.data = data
	p.rows = rows
	return nil
}

// ForEachCommand calls fn for every cell of every valid pattern exactly once.
func (s *PatternStore) ForEachCommand(fn func(c *Command)) {
	for _, p := range s.patterns {
		if p == nil {
			continue
		}
		for i := range p.data {
			fn(&p.data[i])
		}
	}
}

// All returns the slot list; nil entries are empty slots.
func (s *PatternStore) All() []*Pattern { return s.patterns }
