package main

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/charmbracelet/lipgloss"

	"github.com/ksnyder9801/modplug/song"
)

type sampleSummary struct {
	Index   int    `yaml:"index"`
	Name    string `yaml:"name"`
	Length  int    `yaml:"length"`
	C5Speed uint32 `yaml:"c5_speed,omitempty"`
	Loop    bool   `yaml:"loop,omitempty"`
	Is16Bit bool   `yaml:"16bit,omitempty"`
}

type instrumentSummary struct {
	Index   int    `yaml:"index"`
	Name    string `yaml:"name"`
	FadeOut uint32 `yaml:"fadeout"`
	Volume  bool   `yaml:"volume_envelope,omitempty"`
	Panning bool   `yaml:"panning_envelope,omitempty"`
	Pitch   bool   `yaml:"pitch_envelope,omitempty"`
}

// summary is the song description shared by the text report and the
// YAML dump.
type summary struct {
	File        string              `yaml:"file"`
	Format      string              `yaml:"format"`
	Title       string              `yaml:"title"`
	Artist      string              `yaml:"artist,omitempty"`
	Tracker     string              `yaml:"tracker,omitempty"`
	Channels    int                 `yaml:"channels"`
	Patterns    int                 `yaml:"patterns"`
	Orders      []int               `yaml:"orders"`
	Speed       int                 `yaml:"speed"`
	Tempo       int                 `yaml:"tempo"`
	Linear      bool                `yaml:"linear_slides"`
	Seconds     float64             `yaml:"seconds"`
	Message     string              `yaml:"message,omitempty"`
	Samples     []sampleSummary     `yaml:"samples,omitempty"`
	Instruments []instrumentSummary `yaml:"instruments,omitempty"`
	Warnings    []string            `yaml:"warnings,omitempty"`
}

func newSummary(file string, s *song.Song, seconds float64) summary {
	sum := summary{
		File:     file,
		Format:   s.Spec().Extension,
		Title:    s.Title,
		Artist:   s.Artist,
		Tracker:  s.TrackerName,
		Channels: s.NumChannels(),
		Patterns: s.Patterns.Count(),
		Speed:    s.DefaultSpeed,
		Tempo:    s.DefaultTempo,
		Linear:   s.LinearSlides,
		Seconds:  seconds,
		Message:  s.Message,
		Warnings: s.Warnings,
	}
	order := s.Order()
	for i := 0; i < order.Length(); i++ {
		if p := order.At(i); p != song.OrderSkip {
			sum.Orders = append(sum.Orders, int(p))
		}
	}
	for i := 1; i <= s.NumSamples(); i++ {
		smp := s.Sample(song.SampleIndex(i))
		if smp == nil {
			continue
		}
		sum.Samples = append(sum.Samples, sampleSummary{
			Index:   i,
			Name:    smp.Name,
			Length:  smp.Length,
			C5Speed: smp.C5Speed,
			Loop:    smp.Flags.Has(song.SampleLoop),
			Is16Bit: smp.Flags.Has(song.Sample16Bit),
		})
	}
	for i := 1; i <= s.NumInstruments(); i++ {
		ins := s.Instrument(song.InstrumentIndex(i))
		if ins == nil {
			continue
		}
		sum.Instruments = append(sum.Instruments, instrumentSummary{
			Index:   i,
			Name:    ins.Name,
			FadeOut: ins.FadeOut,
			Volume:  ins.VolumeEnvelope.Active(),
			Panning: ins.PanningEnvelope.Active(),
			Pitch:   ins.PitchEnvelope.Active(),
		})
	}
	return sum
}

const reportTemplate = `{{ .File }}: {{ .Format | upper }} module
  title:    {{ .Title | trim | default "(untitled)" }}
{{- with .Artist }}
  artist:   {{ . }}{{ end }}
{{- with .Tracker }}
  tracker:  {{ . }}{{ end }}
  channels: {{ .Channels }}, patterns: {{ .Patterns }}, orders: {{ len .Orders }}
  speed {{ .Speed }}, tempo {{ .Tempo }}, {{ if .Linear }}linear{{ else }}amiga{{ end }} slides
  length:   {{ printf "%.2f" .Seconds }}s
  order:    {{ .Orders | join " " }}
{{- if .Samples }}

samples:
{{- range .Samples }}
  {{ printf "%3d" .Index }} {{ .Name | trunc 28 | printf "%-28s" }} {{ printf "%8d" .Length }}{{ if .Loop }} loop{{ end }}{{ if .Is16Bit }} 16-bit{{ end }}
{{- end }}
{{- end }}
{{- if .Instruments }}

instruments:
{{- range .Instruments }}
  {{ printf "%3d" .Index }} {{ .Name | trunc 28 | printf "%-28s" }} fadeout {{ .FadeOut }}{{ if .Volume }} vol{{ end }}{{ if .Panning }} pan{{ end }}{{ if .Pitch }} pitch{{ end }}
{{- end }}
{{- end }}
{{- with .Message }}

message:
{{ . | trim | indent 2 }}
{{- end }}
{{- with .Warnings }}

warnings:
{{- range . }}
  - {{ . }}
{{- end }}
{{- end }}
`

var report = template.Must(template.New("report").Funcs(sprig.TxtFuncMap()).Parse(reportTemplate))

func writeReport(w io.Writer, sum summary) error {
	return report.Execute(w, sum)
}

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

func noteName(n uint8) string {
	switch {
	case n == song.NoteNone:
		return "..."
	case n == song.NoteKeyOff:
		return "==="
	case n == song.NoteCut:
		return "^^^"
	case n == song.NoteFade:
		return "~~~"
	case song.IsNote(n):
		i := int(n - song.NoteMin)
		return fmt.Sprintf("%s%d", noteNames[i%12], i/12)
	}
	return "???"
}

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	rowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	beatStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	instrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	volStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	fxStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

func cellText(c song.Command) string {
	var b strings.Builder
	switch {
	case c.Note == song.NoteNone:
		b.WriteString(emptyStyle.Render(noteName(c.Note)))
	case song.IsSpecialNote(c.Note):
		b.WriteString(offStyle.Render(noteName(c.Note)))
	default:
		b.WriteString(noteStyle.Render(noteName(c.Note)))
	}
	b.WriteByte(' ')
	if c.Instr == 0 {
		b.WriteString(emptyStyle.Render(".."))
	} else {
		b.WriteString(instrStyle.Render(fmt.Sprintf("%02X", c.Instr)))
	}
	b.WriteByte(' ')
	if c.VolCmd == song.VolNone {
		b.WriteString(emptyStyle.Render(".."))
	} else {
		b.WriteString(volStyle.Render(fmt.Sprintf("%02d", c.Vol)))
	}
	b.WriteByte(' ')
	if c.Effect == song.EffectNone {
		b.WriteString(emptyStyle.Render("..."))
	} else {
		b.WriteString(fxStyle.Render(fmt.Sprintf("%c%02X", effectLetter(c.Effect), c.Param)))
	}
	return b.String()
}

// effectLetter gives every unified effect a single display letter.
func effectLetter(e song.EffectCommand) byte {
	const letters = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if int(e) < len(letters) {
		return letters[e]
	}
	return '?'
}

// writePatterns prints the first n patterns of the order list as a
// tracker-style grid.
func writePatterns(w io.Writer, s *song.Song, n int) {
	order := s.Order()
	shown := 0
	seen := make(map[song.PatternIndex]bool)
	for i := 0; i < order.Length() && shown < n; i++ {
		idx := order.At(i)
		pat := s.Patterns.Get(idx)
		if pat == nil || seen[idx] {
			continue
		}
		seen[idx] = true
		shown++
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("pattern %d (order %d, %d rows)", idx, i, pat.Rows())))
		for row := 0; row < pat.Rows(); row++ {
			style := rowStyle
			if row%4 == 0 {
				style = beatStyle
			}
			cells := make([]string, 0, pat.Channels()+1)
			cells = append(cells, style.Render(fmt.Sprintf("%02X", row)))
			for _, c := range pat.Row(row) {
				cells = append(cells, cellText(c))
			}
			fmt.Fprintln(w, strings.Join(cells, " | "))
		}
		fmt.Fprintln(w)
	}
}
