package song

// Note values used by Command.Note.
const (
	NoteNone    uint8 = 0
	NoteMin     uint8 = 1   // C-0
	NoteMiddleC uint8 = 61  // C-5
	NoteMax     uint8 = 120 // B-9
	NoteFade    uint8 = 253
	NoteCut     uint8 = 254
	NoteKeyOff  uint8 = 255

	// NoteCount is the size of instrument keyboards.
	NoteCount = int(NoteMax)
)

// IsNote reports whether n is a playable note (not a special marker).
func IsNote(n uint8) bool {
	return n >= NoteMin && n <= NoteMax
}

// IsSpecialNote reports whether n is a key-off, cut or fade marker.
func IsSpecialNote(n uint8) bool {
	return n >= NoteFade
}

// EffectCommand is the unified effect column command.
//
// Every loader translates its native encoding into this set;
// the player never sees format-specific effect numbers.
type EffectCommand uint8

const (
	EffectNone EffectCommand = iota
	EffectArpeggio
	EffectPortaUp
	EffectPortaDown
	EffectTonePorta
	EffectVibrato
	EffectTonePortaVol
	EffectVibratoVol
	EffectTremolo
	EffectPanning8
	EffectOffset
	EffectVolumeSlide
	EffectPositionJump
	EffectVolume
	EffectPatternBreak
	EffectRetrig
	EffectSpeed
	EffectTempo
	EffectTremor
	EffectModCmdEx // ProTracker Exy, x selects the sub-command
	EffectS3MCmdEx // ScreamTracker Sxy
	EffectChannelVolume
	EffectChannelVolSlide
	EffectGlobalVolume
	EffectGlobalVolSlide
	EffectKeyOff
	EffectFineVibrato
	EffectPanbrello
	EffectXFinePorta // XM X1x/X2x
	EffectPanningSlide
	EffectSetEnvPosition
	EffectFilter // Zxx: 00..7F cutoff, 80..8F resonance

	effectCount
)

var effectNames = [effectCount]string{
	EffectNone:            "none",
	EffectArpeggio:        "arpeggio",
	EffectPortaUp:         "porta up",
	EffectPortaDown:       "porta down",
	EffectTonePorta:       "tone porta",
	EffectVibrato:         "vibrato",
	EffectTonePortaVol:    "tone porta + vol slide",
	EffectVibratoVol:      "vibrato + vol slide",
	EffectTremolo:         "tremolo",
	EffectPanning8:        "set panning",
	EffectOffset:          "sample offset",
	EffectVolumeSlide:     "volume slide",
	EffectPositionJump:    "position jump",
	EffectVolume:          "set volume",
	EffectPatternBreak:    "pattern break",
	EffectRetrig:          "retrigger",
	EffectSpeed:           "set speed",
	EffectTempo:           "set tempo",
	EffectTremor:          "tremor",
	EffectModCmdEx:        "extended (MOD)",
	EffectS3MCmdEx:        "extended (S3M)",
	EffectChannelVolume:   "channel volume",
	EffectChannelVolSlide: "channel volume slide",
	EffectGlobalVolume:    "global volume",
	EffectGlobalVolSlide:  "global volume slide",
	EffectKeyOff:          "key off",
	EffectFineVibrato:     "fine vibrato",
	EffectPanbrello:       "panbrello",
	EffectXFinePorta:      "extra fine porta",
	EffectPanningSlide:    "panning slide",
	EffectSetEnvPosition:  "set envelope position",
	EffectFilter:          "filter",
}

func (c EffectCommand) String() string {
	if c < effectCount {
		return effectNames[c]
	}
	return "invalid"
}

// VolumeCommand is the unified volume column command.
type VolumeCommand uint8

const (
	VolNone VolumeCommand = iota
	VolVolume
	VolPanning
	VolSlideUp
	VolSlideDown
	VolFineUp
	VolFineDown
	VolVibratoSpeed
	VolVibratoDepth
	VolPanSlideLeft
	VolPanSlideRight
	VolTonePorta
	VolPortaUp
	VolPortaDown
	VolOffset

	volumeCount
)

// Command is a single pattern cell.
type Command struct {
	Note   uint8
	Instr  uint8
	VolCmd VolumeCommand
	Vol    uint8
	Effect EffectCommand
	Param  uint8
}

// IsEmpty reports whether the cell carries no data at all.
func (c Command) IsEmpty() bool {
	return c == Command{}
}

// EffectSet is a bitset of effect commands.
type EffectSet uint64

// Effects builds a set from a list of commands.
func Effects(cmds ...EffectCommand) EffectSet {
	var s EffectSet
	for _, c := range cmds {
		s |= 1 << c
	}
	return s
}

func (s EffectSet) Has(c EffectCommand) bool {
	return s&(1<<c) != 0
}

// VolumeSet is a bitset of volume column commands.
type VolumeSet uint32

func VolumeCommands(cmds ...VolumeCommand) VolumeSet {
	var s VolumeSet
	for _, c := range cmds {
		s |= 1 << c
	}
	return s
}

func (s VolumeSet) Has(c VolumeCommand) bool {
	return s&(1<<c) != 0
}
