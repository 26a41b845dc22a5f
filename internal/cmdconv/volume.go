package cmdconv

import (
	"github.com/ksnyder9801/modplug/song"
)

// itTonePortaSpeeds maps the IT volume column Gx to a tone portamento speed.
var itTonePortaSpeeds = [10]uint8{0x00, 0x01, 0x04, 0x08, 0x10, 0x20, 0x40, 0x60, 0x80, 0xFF}

// XMVolume converts an XM volume column byte.
func XMVolume(v uint8) Volume {
	x := v & 0x0F

	switch {
	case v < 0x10:
		// Do nothing.
	case v <= 0x50:
		return Volume{Op: song.VolVolume, Arg: v - 0x10}
	}

	switch v >> 4 {
	case 0x6:
		return Volume{Op: song.VolSlideDown, Arg: x}
	case 0x7:
		return Volume{Op: song.VolSlideUp, Arg: x}
	case 0x8:
		return Volume{Op: song.VolFineDown, Arg: x}
	case 0x9:
		return Volume{Op: song.VolFineUp, Arg: x}
	case 0xA:
		return Volume{Op: song.VolVibratoSpeed, Arg: x}
	case 0xB:
		return Volume{Op: song.VolVibratoDepth, Arg: x}
	case 0xC:
		// Arg is 0..64 like the other panning commands.
		return Volume{Op: song.VolPanning, Arg: uint8(int(x) * 64 / 15)}
	case 0xD:
		return Volume{Op: song.VolPanSlideLeft, Arg: x}
	case 0xE:
		return Volume{Op: song.VolPanSlideRight, Arg: x}
	case 0xF:
		// Arg: tone portamento speed.
		return Volume{Op: song.VolTonePorta, Arg: x << 4}
	}
	return Volume{}
}

// ITVolume converts an IT volume column byte.
func ITVolume(v uint8) Volume {
	switch {
	case v <= 64:
		return Volume{Op: song.VolVolume, Arg: v}
	case v <= 74:
		return Volume{Op: song.VolFineUp, Arg: v - 65}
	case v <= 84:
		return Volume{Op: song.VolFineDown, Arg: v - 75}
	case v <= 94:
		return Volume{Op: song.VolSlideUp, Arg: v - 85}
	case v <= 104:
		return Volume{Op: song.VolSlideDown, Arg: v - 95}
	case v <= 114:
		// Arg: pitch slide in the same units as Exx.
		return Volume{Op: song.VolPortaDown, Arg: (v - 105) * 4}
	case v <= 124:
		return Volume{Op: song.VolPortaUp, Arg: (v - 115) * 4}
	case v >= 128 && v <= 192:
		return Volume{Op: song.VolPanning, Arg: v - 128}
	case v >= 193 && v <= 202:
		return Volume{Op: song.VolTonePorta, Arg: itTonePortaSpeeds[v-193]}
	case v >= 203 && v <= 212:
		return Volume{Op: song.VolVibratoDepth, Arg: v - 203}
	}
	return Volume{}
}

// S3MVolume converts a packed S3M volume byte. Values 128..192 are
// the ModPlug panning extension.
func S3MVolume(v uint8) Volume {
	switch {
	case v <= 64:
		return Volume{Op: song.VolVolume, Arg: v}
	case v >= 128 && v <= 192:
		return Volume{Op: song.VolPanning, Arg: v - 128}
	}
	return Volume{}
}

// Apply stores the effect in a pattern cell.
func (e Effect) Apply(c *song.Command) {
	c.Effect = e.Op
	c.Param = e.Arg
	if e.Op == song.EffectNone {
		c.Param = 0
	}
}

// Apply stores the volume command in a pattern cell.
func (v Volume) Apply(c *song.Command) {
	c.VolCmd = v.Op
	c.Vol = v.Arg
	if v.Op == song.VolNone {
		c.Vol = 0
	}
}

// AsUint16 packs the effect for use as a map key.
func (e Effect) AsUint16() uint16 {
	return (uint16(e.Op) << 8) | uint16(e.Arg)
}
