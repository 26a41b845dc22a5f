package song

// Format identifies the format family of a song.
//
// The family decides structural limits, the supported commands
// and a number of playback quirks, see Specification.
type Format uint8

const (
	FormatNone Format = iota
	FormatMOD
	FormatS3M
	FormatXM
	FormatIT
	FormatPTM
	FormatWAV
)

func (f Format) String() string {
	if spec := f.Spec(); spec != nil {
		return spec.Name
	}
	return "unknown"
}

// Spec returns the format specification.
// A nil result means the format is unknown.
func (f Format) Spec() *Specification {
	if int(f) < len(specifications) {
		return specifications[f]
	}
	return nil
}

// Specification is a trait table describing a format family.
//
// Everything that differs between the formats is expressed here
// rather than by testing the format identity in the engine code.
type Specification struct {
	Format    Format
	Name      string
	Extension string

	ChannelsMin    int
	ChannelsMax    int
	PatternsMax    int
	SamplesMax     int
	InstrumentsMax int
	OrdersMax      int
	RowsMin        int
	RowsMax        int

	Effects        EffectSet
	VolumeCommands VolumeSet

	// Sample traits.

	// UsesTranspose formats store sample pitch as transpose+finetune
	// instead of a C-5 frequency.
	UsesTranspose bool
	PingPongLoops bool
	SustainLoops  bool
	SamplePanning bool
	AutoVibrato   bool
	// XMVibratoSweep formats treat autovibrato sweep 0 as "no sweep";
	// the rest treat it as "no vibrato".
	XMVibratoSweep bool

	// Playback traits.

	// FineVolumeSlides formats encode fine slides inside Dxy (DxF/DFx)
	// and the same for Exx/Fxx pitch slides (EEx/EFx).
	FineVolumeSlides bool
	// EffectMemory formats recall the last value for a zero parameter.
	EffectMemory bool
	// SharedEffectMemory formats keep a single memory slot
	// for most of the effect column commands.
	SharedEffectMemory bool
	// AmigaLimits clamps Amiga periods to the ProTracker range.
	AmigaLimits bool
	// LinearSlidesDefault is the default of Song.LinearSlides.
	LinearSlidesDefault bool
	// XMKeyOff formats silence a note on key-off unless the
	// instrument has a volume envelope.
	XMKeyOff bool
	// RowZeroSlides formats also apply volume slides on the first tick
	// when the song flags request it (ScreamTracker fast slides).
	RowZeroSlides bool
	// GlobalVolume64 formats count global volume slides in steps of
	// the 0..64 scale, twice as coarse as the stored 0..128 value.
	GlobalVolume64 bool
	// TempoSlides formats read T0x/T1x as tempo slides.
	TempoSlides bool
	// SampleSwap formats switch to the sample of an instrument number
	// without a note once the playing one-shot sample has ended
	// (ProTracker behavior).
	SampleSwap bool
}

// Channels count limits check.
func (s *Specification) ValidChannels(n int) bool {
	return n >= s.ChannelsMin && n <= s.ChannelsMax
}

func (s *Specification) ValidRows(n int) bool {
	return n >= s.RowsMin && n <= s.RowsMax
}

var (
	modEffects = Effects(EffectArpeggio, EffectPortaUp, EffectPortaDown, EffectTonePorta,
		EffectVibrato, EffectTonePortaVol, EffectVibratoVol, EffectTremolo, EffectPanning8,
		EffectOffset, EffectVolumeSlide, EffectPositionJump, EffectVolume, EffectPatternBreak,
		EffectModCmdEx, EffectSpeed, EffectTempo)

	s3mEffects = Effects(EffectArpeggio, EffectPortaUp, EffectPortaDown, EffectTonePorta,
		EffectVibrato, EffectTonePortaVol, EffectVibratoVol, EffectTremolo, EffectPanning8,
		EffectOffset, EffectVolumeSlide, EffectPositionJump, EffectVolume, EffectPatternBreak,
		EffectRetrig, EffectSpeed, EffectTempo, EffectTremor, EffectS3MCmdEx,
		EffectGlobalVolume, EffectGlobalVolSlide, EffectFineVibrato, EffectPanbrello)

	xmEffects = modEffects | Effects(EffectRetrig, EffectTremor, EffectGlobalVolume,
		EffectGlobalVolSlide, EffectKeyOff, EffectXFinePorta, EffectPanningSlide,
		EffectSetEnvPosition)

	itEffects = s3mEffects | Effects(EffectChannelVolume, EffectChannelVolSlide,
		EffectPanningSlide, EffectFilter)

	xmVolumeCommands = VolumeCommands(VolVolume, VolPanning, VolSlideUp, VolSlideDown,
		VolFineUp, VolFineDown, VolVibratoSpeed, VolVibratoDepth, VolPanSlideLeft,
		VolPanSlideRight, VolTonePorta)

	itVolumeCommands = VolumeCommands(VolVolume, VolPanning, VolSlideUp, VolSlideDown,
		VolFineUp, VolFineDown, VolVibratoDepth, VolTonePorta, VolPortaUp, VolPortaDown)
)

var specifications = [...]*Specification{
	FormatNone: nil,

	FormatMOD: {
		Format:      FormatMOD,
		Name:        "ProTracker MOD",
		Extension:   "mod",
		ChannelsMin: 1, ChannelsMax: 32,
		PatternsMax: 128, SamplesMax: 31, InstrumentsMax: 0, OrdersMax: 128,
		RowsMin: 64, RowsMax: 64,
		Effects:        modEffects,
		VolumeCommands: VolumeCommands(VolVolume),
		UsesTranspose:  true,
		AmigaLimits:    true,
		SampleSwap:     true,
	},

	FormatS3M: {
		Format:      FormatS3M,
		Name:        "ScreamTracker 3",
		Extension:   "s3m",
		ChannelsMin: 1, ChannelsMax: 32,
		PatternsMax: 100, SamplesMax: 99, InstrumentsMax: 0, OrdersMax: 255,
		RowsMin: 64, RowsMax: 64,
		Effects:            s3mEffects,
		VolumeCommands:     VolumeCommands(VolVolume, VolPanning),
		FineVolumeSlides:   true,
		EffectMemory:       true,
		SharedEffectMemory: true,
		RowZeroSlides:      true,
		GlobalVolume64:     true,
	},

	FormatXM: {
		Format:      FormatXM,
		Name:        "FastTracker 2",
		Extension:   "xm",
		ChannelsMin: 1, ChannelsMax: 32,
		PatternsMax: 256, SamplesMax: 3999, InstrumentsMax: 128, OrdersMax: 256,
		RowsMin: 1, RowsMax: 256,
		Effects:             xmEffects,
		VolumeCommands:      xmVolumeCommands,
		UsesTranspose:       true,
		PingPongLoops:       true,
		SamplePanning:       true,
		AutoVibrato:         true,
		XMVibratoSweep:      true,
		EffectMemory:        true,
		LinearSlidesDefault: true,
		XMKeyOff:            true,
		GlobalVolume64:      true,
	},

	FormatIT: {
		Format:      FormatIT,
		Name:        "Impulse Tracker",
		Extension:   "it",
		ChannelsMin: 1, ChannelsMax: 64,
		PatternsMax: 200, SamplesMax: 99, InstrumentsMax: 99, OrdersMax: 256,
		RowsMin: 1, RowsMax: 200,
		Effects:             itEffects,
		VolumeCommands:      itVolumeCommands,
		PingPongLoops:       true,
		SustainLoops:        true,
		SamplePanning:       true,
		AutoVibrato:         true,
		FineVolumeSlides:    true,
		EffectMemory:        true,
		LinearSlidesDefault: true,
		TempoSlides:         true,
	},

	FormatPTM: {
		Format:      FormatPTM,
		Name:        "PolyTracker",
		Extension:   "ptm",
		ChannelsMin: 1, ChannelsMax: 32,
		PatternsMax: 128, SamplesMax: 255, InstrumentsMax: 0, OrdersMax: 256,
		RowsMin: 64, RowsMax: 64,
		Effects: modEffects | Effects(EffectGlobalVolume, EffectRetrig,
			EffectFineVibrato, EffectS3MCmdEx),
		VolumeCommands:   VolumeCommands(VolVolume, VolOffset),
		PingPongLoops:    true,
		FineVolumeSlides: true,
		EffectMemory:     true,
		GlobalVolume64:   true,
	},

	FormatWAV: {
		Format:      FormatWAV,
		Name:        "RIFF WAVE",
		Extension:   "wav",
		ChannelsMin: 1, ChannelsMax: 32,
		PatternsMax: 240, SamplesMax: 32, InstrumentsMax: 0, OrdersMax: 256,
		RowsMin: 1, RowsMax: 1024,
		Effects:        itEffects,
		VolumeCommands: itVolumeCommands,
		PingPongLoops:  true,
		SustainLoops:   true,
		SamplePanning:  true,
		AutoVibrato:    true,
		EffectMemory:   true,
	},
}
