package loaders

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ksnyder9801/modplug/fileread"
	"github.com/ksnyder9801/modplug/song"
)

var leOrder = binary.LittleEndian

// parser is the state shared by all format loaders.
//
// Reads that run out of data panic with a *ParseError that carries
// the current stage tag; run recovers it. This keeps the loaders
// free of per-field error plumbing.
type parser struct {
	r *fileread.Reader

	opts Options
	log  *slog.Logger

	// Song holds the results of the parsing.
	song *song.Song

	// These fields below are needed for better error reporting.
	stage         string
	stageIndex    int
	subStage      string
	subStageIndex int
}

func newParser(data []byte, opts Options) *parser {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &parser{
		r:    fileread.New(data),
		opts: opts,
		log:  log,
	}
}

// run calls fn and converts a parse panic into an error.
func (p *parser) run(fn func()) (err error) {
	defer func() {
		rv := recover()
		if rv != nil {
			if panicErr, ok := rv.(*ParseError); ok {
				err = panicErr
			} else {
				panic(rv)
			}
		}
	}()

	fn()

	return err // See the deferred call above
}

func (p *parser) startStage(name string) {
	p.stage = name
	p.stageIndex = -1
	p.subStage = ""
	p.subStageIndex = -1
}

func (p *parser) startSubStage(name string) {
	p.subStage = name
	p.subStageIndex = -1
}

func (p *parser) formatStage() string {
	var b strings.Builder
	b.Grow(len(p.stage) + len(p.subStage) + 16)
	b.WriteString(p.stage)
	if p.stageIndex >= 0 {
		fmt.Fprintf(&b, "[%d]", p.stageIndex)
	}
	if p.subStage != "" {
		b.WriteByte('.')
		b.WriteString(p.subStage)
		if p.subStageIndex >= 0 {
			fmt.Fprintf(&b, "[%d]", p.subStageIndex)
		}
	}
	return b.String()
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	text := fmt.Sprintf(format, args...)
	tag := p.formatStage()
	if tag != "" {
		text = tag + ": " + text
	}
	return &ParseError{
		Message: text,
		Offset:  p.r.Pos(),
	}
}

func (p *parser) fail(format string, args ...any) {
	panic(p.errorf(format, args...))
}

// failErr aborts the parsing with a cause that errors.Is can match.
func (p *parser) failErr(err error, what string) {
	e := p.errorf("%s: %v", what, err)
	e.Err = err
	panic(e)
}

// warn records a non-fatal problem in the song and the log.
func (p *parser) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if tag := p.formatStage(); tag != "" {
		p.log.Debug(msg, "stage", tag)
	} else {
		p.log.Debug(msg)
	}
	if p.song != nil {
		p.song.Warn("%s", msg)
	}
}

// truncated handles data that ends early. Strict loading fails,
// lenient loading records a warning and keeps what was read.
func (p *parser) truncated(what string, have, want int) {
	if p.opts.Strict {
		p.fail("unexpected EOF while reading %s (%d of %d bytes)", what, have, want)
	}
	p.warn("%s: truncated, %d of %d bytes present", what, have, want)
}

// cellReader reads packed pattern cells. A short read goes through
// truncated once; after it every read fails, so the cell being
// decoded is dropped and the rest of the pattern stays empty.
type cellReader struct {
	p    *parser
	r    *fileread.Reader
	want int

	reported bool
	dead     bool
}

// newCellReader wraps the pattern data of r; want is the declared
// length, -1 when the format has none.
func (p *parser) newCellReader(r *fileread.Reader, want int) *cellReader {
	c := &cellReader{p: p, r: r, want: want}
	if want >= 0 && r.Len() < want {
		c.report()
	}
	return c
}

func (c *cellReader) report() {
	if c.reported {
		return
	}
	c.reported = true
	if c.want < 0 {
		c.p.truncatedAt("pattern data", c.r.Pos())
		return
	}
	c.p.truncated("pattern data", c.r.Len(), c.want)
}

// byte reads one byte of a cell.
func (c *cellReader) byte() (uint8, bool) {
	if c.dead {
		return 0, false
	}
	b, ok := c.r.ReadUint8()
	if !ok {
		c.dead = true
		c.report()
	}
	return b, ok
}

// pair reads two bytes of a cell.
func (c *cellReader) pair() (uint8, uint8, bool) {
	a, ok := c.byte()
	if !ok {
		return 0, 0, false
	}
	b, ok := c.byte()
	return a, b, ok
}

// control reads the byte that starts a cell. Where the format allows
// the data to end there, a missing byte is not an error.
func (c *cellReader) control(mayEnd bool) (uint8, bool) {
	if mayEnd {
		if c.dead {
			return 0, false
		}
		return c.r.ReadUint8()
	}
	return c.byte()
}

// truncatedAt is truncated for data without a declared length.
func (p *parser) truncatedAt(what string, offset int) {
	if p.opts.Strict {
		p.fail("unexpected EOF while reading %s at offset %d", what, offset)
	}
	p.warn("%s: truncated at offset %d", what, offset)
}

func (p *parser) eof(what string) {
	p.fail("unexpected EOF while reading %s", what)
}

func (p *parser) seek(offset int, what string) {
	if !p.r.Seek(offset) {
		p.fail("%s offset %d is out of bounds", what, offset)
	}
}

func (p *parser) skip(l int, what string) {
	if !p.r.Skip(l) {
		p.eof(what)
	}
}

func (p *parser) read(l int, what string) []byte {
	b, ok := p.r.ReadBytes(l)
	if !ok {
		p.eof(what)
	}
	return b
}

// readAvailable reads up to l bytes; a short read goes through truncated.
func (p *parser) readAvailable(l int, what string) []byte {
	if l <= p.r.BytesLeft() {
		return p.read(l, what)
	}
	have := p.r.BytesLeft()
	p.truncated(what, have, l)
	return p.read(have, what)
}

func (p *parser) readString(l int, what string) string {
	s, ok := p.r.ReadString(l, fileread.MaybeNullTerminated)
	if !ok {
		p.eof(what)
	}
	return strings.TrimRight(s, " ")
}

func (p *parser) readByte(what string) uint8 {
	v, ok := p.r.ReadUint8()
	if !ok {
		p.eof(what)
	}
	return v
}

func (p *parser) readWord(what string) uint16 {
	v, ok := p.r.ReadUint16LE()
	if !ok {
		p.eof(what)
	}
	return v
}

func (p *parser) readWordBE(what string) uint16 {
	v, ok := p.r.ReadUint16BE()
	if !ok {
		p.eof(what)
	}
	return v
}

func (p *parser) readDword(what string) uint32 {
	v, ok := p.r.ReadUint32LE()
	if !ok {
		p.eof(what)
	}
	return v
}

// readStruct decodes a little-endian fixed-size header.
func (p *parser) readStruct(v any, what string) {
	if !p.r.ReadStruct(binary.LittleEndian, v) {
		p.eof(what)
	}
}

// newSong creates the result song; the channel count must already be validated.
func (p *parser) newSong(f song.Format, channels int) *song.Song {
	s, err := song.New(f, channels)
	if err != nil {
		p.failErr(err, "song")
	}
	p.song = s
	return s
}

// insertPattern allocates a pattern and returns it.
func (p *parser) insertPattern(i int, rows int) *song.Pattern {
	if err := p.song.Patterns.Insert(song.PatternIndex(i), rows); err != nil {
		p.failErr(err, "pattern")
	}
	return p.song.Patterns.Get(song.PatternIndex(i))
}

// addSample appends an initialized sample to the song.
func (p *parser) addSample() *song.Sample {
	_, smp, err := p.song.AddSample()
	if err != nil {
		p.failErr(err, "sample")
	}
	return smp
}

func (p *parser) allocSample(smp *song.Sample, length int) {
	if err := smp.Allocate(length); err != nil {
		p.failErr(err, fmt.Sprintf("sample length %d", length))
	}
}
