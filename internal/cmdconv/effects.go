// Package cmdconv translates the native effect encodings of the
// supported file formats into the unified song command set.
package cmdconv

import (
	"github.com/ksnyder9801/modplug/song"
)

// Effect is a translated effect column entry.
type Effect struct {
	Op  song.EffectCommand
	Arg uint8
}

// Volume is a translated volume column entry.
type Volume struct {
	Op  song.VolumeCommand
	Arg uint8
}

// MOD converts a ProTracker effect (0x0..0xF).
//
// XM reuses this encoding for its first 16 effects, see XM.
func MOD(effect, param uint8) Effect {
	e := Effect{Arg: param}

	switch effect {
	case 0x0:
		if param != 0 {
			e.Op = song.EffectArpeggio
		}
	case 0x1:
		e.Op = song.EffectPortaUp
	case 0x2:
		e.Op = song.EffectPortaDown
	case 0x3:
		e.Op = song.EffectTonePorta
	case 0x4:
		e.Op = song.EffectVibrato
	case 0x5:
		e.Op = song.EffectTonePortaVol
	case 0x6:
		e.Op = song.EffectVibratoVol
	case 0x7:
		e.Op = song.EffectTremolo
	case 0x8:
		e.Op = song.EffectPanning8
	case 0x9:
		e.Op = song.EffectOffset
	case 0xA:
		e.Op = song.EffectVolumeSlide
	case 0xB:
		e.Op = song.EffectPositionJump
	case 0xC:
		e.Op = song.EffectVolume
		e.Arg = min(param, 64)
	case 0xD:
		// Encoding: BCD row number.
		e.Op = song.EffectPatternBreak
		e.Arg = bcd(param)
	case 0xE:
		e.Op = song.EffectModCmdEx
	case 0xF:
		switch {
		case param == 0:
			// F00 stops the song in ProTracker; treated as no-op.
		case param < 0x20:
			e.Op = song.EffectSpeed
		default:
			e.Op = song.EffectTempo
		}
	}

	return e
}

// XM converts a FastTracker 2 effect (0x00..0x21).
func XM(effect, param uint8) Effect {
	if effect <= 0xF {
		e := MOD(effect, param)
		if effect == 0xF && param == 0 {
			e = Effect{}
		}
		return e
	}

	e := Effect{Arg: param}
	switch effect {
	case 'G' - 55:
		// Encoding: 0..64, stored on the 0..128 scale.
		e.Op = song.EffectGlobalVolume
		e.Arg = min(param, 64) * 2
	case 'H' - 55:
		e.Op = song.EffectGlobalVolSlide
	case 'K' - 55:
		// Arg: tick number
		e.Op = song.EffectKeyOff
	case 'L' - 55:
		e.Op = song.EffectSetEnvPosition
	case 'P' - 55:
		e.Op = song.EffectPanningSlide
	case 'R' - 55:
		e.Op = song.EffectRetrig
	case 'T' - 55:
		e.Op = song.EffectTremor
	case 'X' - 55:
		switch param >> 4 {
		case 1, 2:
			e.Op = song.EffectXFinePorta
		}
	}
	return e
}

// S3M converts a ScreamTracker 3 effect letter (1 = A .. 26 = Z).
func S3M(effect, param uint8) Effect {
	e := screamTracker(effect, param)
	switch e.Op {
	case song.EffectGlobalVolume:
		e.Arg = min(param, 64) * 2
	case song.EffectPanning8:
		switch {
		case param == 0xA4:
			e = Effect{Op: song.EffectS3MCmdEx, Arg: 0x91}
		case param <= 0x80:
			e.Arg = uint8(min(int(param)*2, 0xFF))
		default:
			e = Effect{}
		}
	case song.EffectPatternBreak:
		e.Arg = bcd(param)
	case song.EffectChannelVolume, song.EffectChannelVolSlide,
		song.EffectPanningSlide, song.EffectGlobalVolSlide, song.EffectFilter:
		// Impulse Tracker extensions that ScreamTracker ignores.
		e = Effect{}
	}
	return e
}

// IT converts an Impulse Tracker effect letter (1 = A .. 26 = Z).
func IT(effect, param uint8) Effect {
	e := screamTracker(effect, param)
	switch e.Op {
	case song.EffectPanningSlide:
		// IT slides left with the high nibble, the unified form
		// slides right with it.
		e.Arg = param<<4 | param>>4
	case song.EffectChannelVolume:
		e.Arg = min(param, 64)
	case song.EffectGlobalVolume:
		e.Arg = min(param, 128)
	}
	return e
}

func screamTracker(effect, param uint8) Effect {
	e := Effect{Arg: param}

	switch effect {
	case 'A' - 64:
		if param != 0 {
			e.Op = song.EffectSpeed
		}
	case 'B' - 64:
		e.Op = song.EffectPositionJump
	case 'C' - 64:
		e.Op = song.EffectPatternBreak
	case 'D' - 64:
		e.Op = song.EffectVolumeSlide
	case 'E' - 64:
		e.Op = song.EffectPortaDown
	case 'F' - 64:
		e.Op = song.EffectPortaUp
	case 'G' - 64:
		e.Op = song.EffectTonePorta
	case 'H' - 64:
		e.Op = song.EffectVibrato
	case 'I' - 64:
		e.Op = song.EffectTremor
	case 'J' - 64:
		e.Op = song.EffectArpeggio
	case 'K' - 64:
		e.Op = song.EffectVibratoVol
	case 'L' - 64:
		e.Op = song.EffectTonePortaVol
	case 'M' - 64:
		e.Op = song.EffectChannelVolume
	case 'N' - 64:
		e.Op = song.EffectChannelVolSlide
	case 'O' - 64:
		e.Op = song.EffectOffset
	case 'P' - 64:
		e.Op = song.EffectPanningSlide
	case 'Q' - 64:
		e.Op = song.EffectRetrig
	case 'R' - 64:
		e.Op = song.EffectTremolo
	case 'S' - 64:
		e.Op = song.EffectS3MCmdEx
	case 'T' - 64:
		e.Op = song.EffectTempo
	case 'U' - 64:
		e.Op = song.EffectFineVibrato
	case 'V' - 64:
		e.Op = song.EffectGlobalVolume
	case 'W' - 64:
		e.Op = song.EffectGlobalVolSlide
	case 'X' - 64:
		e.Op = song.EffectPanning8
	case 'Y' - 64:
		e.Op = song.EffectPanbrello
	case 'Z' - 64:
		if param <= 0x8F {
			e.Op = song.EffectFilter
		}
	}

	return e
}

// ExtendedMODtoS3M rewrites a ProTracker Exy command into the
// equivalent ScreamTracker form. Commands without an equivalent
// are returned unchanged.
func ExtendedMODtoS3M(e Effect) Effect {
	if e.Op != song.EffectModCmdEx {
		return e
	}
	x, y := e.Arg>>4, e.Arg&0x0F
	switch x {
	case 0x1:
		return Effect{Op: song.EffectPortaUp, Arg: 0xF0 | y}
	case 0x2:
		return Effect{Op: song.EffectPortaDown, Arg: 0xF0 | y}
	case 0x3:
		return Effect{Op: song.EffectS3MCmdEx, Arg: 0x10 | y}
	case 0x4:
		return Effect{Op: song.EffectS3MCmdEx, Arg: 0x30 | y}
	case 0x5:
		return Effect{Op: song.EffectS3MCmdEx, Arg: 0x20 | y}
	case 0x6:
		return Effect{Op: song.EffectS3MCmdEx, Arg: 0xB0 | y}
	case 0x7:
		return Effect{Op: song.EffectS3MCmdEx, Arg: 0x40 | y}
	case 0x8:
		return Effect{Op: song.EffectS3MCmdEx, Arg: 0x80 | y}
	case 0x9:
		return Effect{Op: song.EffectRetrig, Arg: y}
	case 0xA:
		if y == 0 {
			return Effect{}
		}
		return Effect{Op: song.EffectVolumeSlide, Arg: y<<4 | 0x0F}
	case 0xB:
		if y == 0 {
			return Effect{}
		}
		return Effect{Op: song.EffectVolumeSlide, Arg: 0xF0 | y}
	case 0xC, 0xD, 0xE:
		return Effect{Op: song.EffectS3MCmdEx, Arg: x<<4 | y}
	}
	return e
}

// bcd decodes a binary coded decimal parameter.
// ProTracker accepts invalid digits, so does this.
func bcd(v uint8) uint8 {
	return (v>>4)*10 + v&0x0F
}
