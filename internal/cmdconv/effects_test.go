package cmdconv

import (
	"testing"

	"github.com/ksnyder9801/modplug/song"
)

func TestConvertEffect(t *testing.T) {
	tests := []struct {
		name   string
		conv   func(effect, param uint8) Effect
		effect uint8
		param  uint8
		want   Effect
	}{
		{"mod arpeggio empty", MOD, 0x0, 0x00, Effect{}},
		{"mod arpeggio", MOD, 0x0, 0x37, Effect{song.EffectArpeggio, 0x37}},
		{"mod volume clamp", MOD, 0xC, 0x70, Effect{song.EffectVolume, 64}},
		{"mod break bcd", MOD, 0xD, 0x32, Effect{song.EffectPatternBreak, 32}},
		{"mod speed", MOD, 0xF, 0x06, Effect{song.EffectSpeed, 6}},
		{"mod tempo", MOD, 0xF, 0x7D, Effect{song.EffectTempo, 0x7D}},
		{"mod F00", MOD, 0xF, 0x00, Effect{}},
		{"xm global volume", XM, 'G' - 55, 0x40, Effect{song.EffectGlobalVolume, 128}},
		{"xm key off", XM, 'K' - 55, 0x03, Effect{song.EffectKeyOff, 3}},
		{"xm extra fine", XM, 'X' - 55, 0x13, Effect{song.EffectXFinePorta, 0x13}},
		{"xm X3x", XM, 'X' - 55, 0x33, Effect{}},
		{"s3m speed", S3M, 'A' - 64, 0x03, Effect{song.EffectSpeed, 3}},
		{"s3m A00", S3M, 'A' - 64, 0x00, Effect{}},
		{"s3m porta down", S3M, 'E' - 64, 0xF2, Effect{song.EffectPortaDown, 0xF2}},
		{"s3m break bcd", S3M, 'C' - 64, 0x10, Effect{song.EffectPatternBreak, 10}},
		{"s3m global volume", S3M, 'V' - 64, 0x20, Effect{song.EffectGlobalVolume, 0x40}},
		{"s3m panning", S3M, 'X' - 64, 0x40, Effect{song.EffectPanning8, 0x80}},
		{"s3m surround", S3M, 'X' - 64, 0xA4, Effect{song.EffectS3MCmdEx, 0x91}},
		{"s3m channel volume", S3M, 'M' - 64, 0x20, Effect{}},
		{"it break hex", IT, 'C' - 64, 0x10, Effect{song.EffectPatternBreak, 0x10}},
		{"it channel volume", IT, 'M' - 64, 0x50, Effect{song.EffectChannelVolume, 64}},
		{"it panning", IT, 'X' - 64, 0xFF, Effect{song.EffectPanning8, 0xFF}},
		{"it pan slide", IT, 'P' - 64, 0x04, Effect{song.EffectPanningSlide, 0x40}},
		{"it filter", IT, 'Z' - 64, 0x7F, Effect{song.EffectFilter, 0x7F}},
		{"it macro", IT, 'Z' - 64, 0x90, Effect{}},
		{"unknown", IT, 30, 0x11, Effect{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			have := test.conv(test.effect, test.param)
			if have.Op == song.EffectNone {
				have.Arg = 0
			}
			if have != test.want {
				t.Errorf("%02X%02X: have %v/%02X, want %v/%02X",
					test.effect, test.param, have.Op, have.Arg, test.want.Op, test.want.Arg)
			}
		})
	}
}

func TestExtendedMODtoS3M(t *testing.T) {
	tests := []struct {
		param uint8
		want  Effect
	}{
		{0x13, Effect{song.EffectPortaUp, 0xF3}},
		{0x2A, Effect{song.EffectPortaDown, 0xFA}},
		{0x61, Effect{song.EffectS3MCmdEx, 0xB1}},
		{0x93, Effect{song.EffectRetrig, 0x03}},
		{0xA4, Effect{song.EffectVolumeSlide, 0x4F}},
		{0xB4, Effect{song.EffectVolumeSlide, 0xF4}},
		{0xA0, Effect{}},
		{0xC2, Effect{song.EffectS3MCmdEx, 0xC2}},
		{0xF1, Effect{song.EffectModCmdEx, 0xF1}},
	}
	for _, test := range tests {
		have := ExtendedMODtoS3M(Effect{Op: song.EffectModCmdEx, Arg: test.param})
		if have != test.want {
			t.Errorf("E%02X: have %v/%02X, want %v/%02X", test.param, have.Op, have.Arg, test.want.Op, test.want.Arg)
		}
	}

	other := Effect{Op: song.EffectVibrato, Arg: 0x44}
	if have := ExtendedMODtoS3M(other); have != other {
		t.Errorf("non-extended effect changed: %+v", have)
	}
}

func TestConvertVolume(t *testing.T) {
	tests := []struct {
		name string
		conv func(uint8) Volume
		in   uint8
		want Volume
	}{
		{"xm empty", XMVolume, 0x00, Volume{}},
		{"xm volume", XMVolume, 0x30, Volume{song.VolVolume, 0x20}},
		{"xm max volume", XMVolume, 0x50, Volume{song.VolVolume, 64}},
		{"xm undefined", XMVolume, 0x55, Volume{}},
		{"xm slide down", XMVolume, 0x63, Volume{song.VolSlideDown, 3}},
		{"xm panning right", XMVolume, 0xCF, Volume{song.VolPanning, 64}},
		{"xm tone porta", XMVolume, 0xF2, Volume{song.VolTonePorta, 0x20}},
		{"it volume", ITVolume, 40, Volume{song.VolVolume, 40}},
		{"it fine up", ITVolume, 66, Volume{song.VolFineUp, 1}},
		{"it porta up", ITVolume, 117, Volume{song.VolPortaUp, 8}},
		{"it panning", ITVolume, 160, Volume{song.VolPanning, 32}},
		{"it tone porta", ITVolume, 196, Volume{song.VolTonePorta, 0x08}},
		{"it gap", ITVolume, 125, Volume{}},
		{"s3m volume", S3MVolume, 64, Volume{song.VolVolume, 64}},
		{"s3m empty", S3MVolume, 0xFF, Volume{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if have := test.conv(test.in); have != test.want {
				t.Errorf("%02X: have %+v, want %+v", test.in, have, test.want)
			}
		})
	}
}

func TestApplyClearsEmptyParams(t *testing.T) {
	c := song.Command{Effect: song.EffectVibrato, Param: 0x44, VolCmd: song.VolVolume, Vol: 10}
	Effect{Op: song.EffectNone, Arg: 0x12}.Apply(&c)
	Volume{Op: song.VolNone, Arg: 7}.Apply(&c)
	if !c.IsEmpty() {
		t.Fatalf("cell not cleared: %+v", c)
	}
}
