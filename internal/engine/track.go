package engine

import "github.com/retrosound/m4a-synth/internal/voicegroup"

// ModType selects which track parameter the LFO modulates, matching the
// reference's modT field.
type ModType uint8

const (
	ModVibrato ModType = 0
	ModTremolo ModType = 1
	ModAutoPan ModType = 2
)

// Track is one of the engine's sixteen MIDI-channel-like voices: volume,
// pan, pitch, and LFO state shared by every channel currently sounding on
// it. Matches M4ATrack.
type Track struct {
	Volume    uint8 // scaled by songMasterVolume
	RawVolume uint8 // raw CC 7 value
	VolX      uint8 // external volume multiplier, 0-64
	Pan       int8
	PanX      int8
	Bend      int8
	BendRange uint8

	LFOSpeed  uint8
	lfoSpeedC uint8
	LFODelay  uint8
	lfoDelayC uint8

	Mod  uint8
	ModT ModType
	modM int8

	KeyShift  int8
	KeyShiftX int8
	Tune      int8
	PitX      uint8

	keyM int8
	pitM uint8

	volMR uint8
	volML uint8

	PseudoEchoVolume uint8
	PseudoEchoLength uint8
	Priority         uint8
	CurrentProgram   uint8
	currentVoice     voicegroup.Voice
}

func newTrack() Track {
	return Track{
		BendRange: 2,
		VolX:      64,
		RawVolume: 127,
		Volume:    127,
		LFOSpeed:  22,
	}
}

// KeyM and PitM expose the last computed pitch split (integer semitone
// shift and fractional fine-tune byte), for tests and diagnostics.
func (t *Track) KeyM() int8  { return t.keyM }
func (t *Track) PitM() uint8 { return t.pitM }

// VolMR and VolML expose the last computed per-track right/left volumes.
func (t *Track) VolMR() uint8 { return t.volMR }
func (t *Track) VolML() uint8 { return t.volML }

// computeVolPitch recomputes volMR/volML/keyM/pitM from the track's
// current volume, pan, pitch, and modulation state. Matches
// m4a_track_vol_pit_set exactly, including its 8-bit truncating
// assignments into volMR/volML.
func (t *Track) computeVolPitch() {
	x := int32(t.Volume) * int32(t.VolX) >> 5
	if t.ModT == ModTremolo {
		x = (x * (int32(t.modM) + 128)) >> 7
	}

	y := 2*int32(t.Pan) + int32(t.PanX)
	if t.ModT == ModAutoPan {
		y += int32(t.modM)
	}
	if y < -128 {
		y = -128
	} else if y > 127 {
		y = 127
	}

	t.volMR = uint8((y + 128) * x >> 8)
	t.volML = uint8((127 - y) * x >> 8)

	bend := int32(t.Bend) * int32(t.BendRange)
	pitch := (int32(t.Tune)+bend)*4 + int32(t.KeyShift)<<8 + int32(t.KeyShiftX)<<8 + int32(t.PitX)
	if t.ModT == ModVibrato {
		pitch += 16 * int32(t.modM)
	}
	t.keyM = int8(pitch >> 8)
	t.pitM = uint8(pitch)
}
