package engine

import "github.com/retrosound/m4a-synth/internal/voicegroup"

// resolveVoice dispatches a key-split or drum-kit voice to its sub-voice
// for key, matching resolve_voice. Nested key-split/drum-kit entries are
// rejected (the loader already enforces this at load time; this is a
// second line of defense against a hand-edited voicegroup).
func resolveVoice(voice *voicegroup.Voice, key uint8) *voicegroup.Voice {
	if voice == nil || voice.Kind == voicegroup.KindNone {
		return nil
	}

	switch voice.Kind {
	case voicegroup.KindDrumKit:
		if voice.SubGroup == nil {
			return nil
		}
		resolved := &voice.SubGroup[key]
		if resolved.Kind == voicegroup.KindKeySplit || resolved.Kind == voicegroup.KindDrumKit {
			return nil
		}
		return resolved
	case voicegroup.KindKeySplit:
		if voice.SubGroup == nil || voice.KeySplitTable == nil {
			return nil
		}
		idx := voice.KeySplitTable[key]
		resolved := &voice.SubGroup[idx]
		if resolved.Kind == voicegroup.KindKeySplit || resolved.Kind == voicegroup.KindDrumKit {
			return nil
		}
		return resolved
	default:
		return voice
	}
}

// cgbChannelIndex maps a resolved voice's Kind to its fixed CGB channel
// slot (square1/square2/wave/noise), matching VOICE_TYPE_CGB_MASK.
func cgbChannelIndex(kind voicegroup.Kind) (int, bool) {
	switch kind {
	case voicegroup.KindSquare1, voicegroup.KindSquare1Alt:
		return 0, true
	case voicegroup.KindSquare2, voicegroup.KindSquare2Alt:
		return 1, true
	case voicegroup.KindProgrammableWave, voicegroup.KindProgrammableWaveAlt:
		return 2, true
	case voicegroup.KindNoise, voicegroup.KindNoiseAlt:
		return 3, true
	}
	return 0, false
}

// isPCMVoice reports whether kind plays back through a DirectSound (PCM)
// channel rather than a CGB one.
func isPCMVoice(kind voicegroup.Kind) bool {
	switch kind {
	case voicegroup.KindDirectSound, voicegroup.KindDirectSoundAlt, voicegroup.KindDirectSoundNoResample,
		voicegroup.KindCry, voicegroup.KindCryReverse:
		return true
	}
	return false
}
