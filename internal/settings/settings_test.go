package settings

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeBinary(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{nil, "00"},
		{[]byte{0x01, 0xAB}, "01ABAC"},
		{[]byte{0xFF, 0x02}, "FF0201"},
		{[]byte{0x00, 0x10, 0x20}, "00102030"},
	}
	for _, test := range tests {
		if got := EncodeBinary(test.in); got != test.want {
			t.Errorf("EncodeBinary(%x) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestDecodeBinary(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
		err  bool
	}{
		{in: "01ABAC", want: []byte{0x01, 0xAB}},
		{in: "01abac", want: []byte{0x01, 0xAB}},
		{in: "00", want: []byte{}},
		{in: "01ABA", err: true},
		{in: "01ABAD", err: true},
		{in: "01AGAC", err: true},
		{in: "", err: true},
	}
	for _, test := range tests {
		got, err := DecodeBinary(test.in)
		if test.err {
			if err == nil {
				t.Errorf("DecodeBinary(%q): no error", test.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("DecodeBinary(%q): %v", test.in, err)
			continue
		}
		if !bytes.Equal(got, test.want) {
			t.Errorf("DecodeBinary(%q) = %x, want %x", test.in, got, test.want)
		}
	}

	if _, err := DecodeBinary("01ABAD"); !errors.Is(err, ErrChecksum) {
		t.Errorf("checksum error not reported: %v", err)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i * 7)
	}
	got, err := DecodeBinary(EncodeBinary(data))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch")
	}
}

func TestRenderConfigYAML(t *testing.T) {
	c := DefaultRenderConfig()
	c.Interpolation = "polyphase"
	c.Loops = 2
	c.SetChannelMutes([]bool{false, true, false})

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Fatalf("got %+v\nwant %+v", got, c)
	}
	mutes, err := got.ChannelMutes()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(mutes, []bool{false, true, false}) {
		t.Fatalf("mutes=%v", mutes)
	}
}

func TestRenderConfigDefaults(t *testing.T) {
	c, err := Load(strings.NewReader("sample_rate: 44100\n"))
	if err != nil {
		t.Fatal(err)
	}
	if c.SampleRate != 44100 || c.Channels != 2 || c.Format != "wav" {
		t.Fatalf("%+v", c)
	}
	config, err := c.StreamConfig()
	if err != nil {
		t.Fatal(err)
	}
	if config.SampleRate != 44100 || config.Mixer.Channels != 2 {
		t.Fatalf("%+v", config)
	}

	c.Interpolation = "none-such"
	if _, err := c.StreamConfig(); err == nil {
		t.Fatalf("bad interpolation accepted")
	}
	c = DefaultRenderConfig()
	c.Channels = 3
	if _, err := c.StreamConfig(); err == nil {
		t.Fatalf("3 channels accepted")
	}
}
