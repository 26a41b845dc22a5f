package main

import (
	"strings"
	"testing"

	"github.com/ksnyder9801/modplug/song"
)

func TestNoteName(t *testing.T) {
	tests := []struct {
		note uint8
		want string
	}{
		{song.NoteNone, "..."},
		{song.NoteMin, "C-0"},
		{song.NoteMiddleC, "C-5"},
		{song.NoteMiddleC + 1, "C#5"},
		{song.NoteMax, "B-9"},
		{song.NoteKeyOff, "==="},
		{song.NoteCut, "^^^"},
		{song.NoteFade, "~~~"},
	}
	for _, test := range tests {
		if have := noteName(test.note); have != test.want {
			t.Fatalf("noteName(%d): have %q, want %q", test.note, have, test.want)
		}
	}
}

func TestReport(t *testing.T) {
	s, err := song.New(song.FormatIT, 4)
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.Patterns.Append(64)
	if err != nil {
		t.Fatal(err)
	}
	s.Order().Orders = []song.PatternIndex{p, song.OrderSkip, p}
	s.Message = "hello\nworld"

	var sb strings.Builder
	if err := writeReport(&sb, newSummary("a.it", s, 7.68)); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{
		"a.it: IT module",
		"title:    (untitled)",
		"channels: 4, patterns: 1, orders: 2",
		"length:   7.68s",
		"order:    0 0",
		"  hello\n  world",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report misses %q:\n%s", want, out)
		}
	}
}
