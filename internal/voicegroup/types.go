// Package voicegroup parses a Game Freak-style project tree (pokeemerald,
// pokefirered, and forks) into a LoadedVoiceGroup: 128 resolved voices plus
// every sample, programmable-wave table, sub-voicegroup, and key-split table
// they reference.
package voicegroup

import "github.com/retrosound/m4a-synth/internal/waveasset"

// VoiceCount is the fixed size of a voicegroup, matching the GBA's 128
// MIDI-program slots.
const VoiceCount = 128

// Kind tags which macro produced a Voice, replacing the reference's raw
// union payload with an explicit tagged sum (spec.md §9 "Raw-pointer
// payload in ToneData").
type Kind int

const (
	KindNone Kind = iota
	KindDirectSound
	KindDirectSoundAlt
	KindDirectSoundNoResample
	KindSquare1
	KindSquare1Alt
	KindSquare2
	KindSquare2Alt
	KindProgrammableWave
	KindProgrammableWaveAlt
	KindNoise
	KindNoiseAlt
	KindKeySplit
	KindDrumKit
	KindCry
	KindCryReverse
)

// Voice is one resolved entry of a voicegroup's 128-slot table. Only the
// fields relevant to Kind are meaningful; the rest are zero.
type Voice struct {
	Kind Kind

	Key      uint8
	PanSweep uint8 // raw pan/sweep byte; bit 7 set => explicit pan/sweep value in bits 0-6

	Attack, Decay, Sustain, Release uint8

	Wav   *waveasset.WaveData // DirectSound / Cry
	Fixed bool                // VOICE_DIRECTSOUND_NO_RESAMPLE

	Duty    uint8 // square: 2-bit duty selector
	Period7 bool  // noise: true selects the 7-bit LFSR mode

	WaveTable []int8 // programmable wave: 33-entry guard-padded nibble table

	SubGroup      *[VoiceCount]Voice // KeySplit / DrumKit
	KeySplitTable *[128]uint8        // KeySplit only; nil for DrumKit (identity dispatch)
}

// LoadedVoiceGroup holds a resolved voicegroup and every resource it and its
// sub-voicegroups reference. Go's garbage collector supplies the "free only
// once every channel referencing it has deactivated" guarantee the reference
// implementation manages by hand (spec.md §9 "Loader I/O boundaries"); there
// is no corresponding Free method.
type LoadedVoiceGroup struct {
	Voices [VoiceCount]Voice
}

// KeySplitDef is one parsed entry from a keysplit_tables file: a 128-byte
// MIDI-key -> sub-voice-index table.
type KeySplitDef struct {
	Name    string
	Table   [128]uint8
	MaxNote int
}
