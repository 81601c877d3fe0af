package engine

import (
	"github.com/retrosound/m4a-synth/internal/cgbchan"
	"github.com/retrosound/m4a-synth/internal/pcmchan"
	"github.com/retrosound/m4a-synth/internal/voicegroup"
)

// pcmChnVolSet derives ch's per-side 8-bit volumes from the track's
// computed volMR/volML and the channel's velocity/rhythm pan, matching
// ChnVolSetAsm.
func pcmChnVolSet(ch *pcmchan.Channel, t *Track) {
	velocity := uint32(ch.Velocity)
	rhythmPan := int32(ch.RhythmPan)

	panR := uint32(0x80 + rhythmPan)
	result := (panR * velocity * uint32(t.VolMR())) >> 14
	if result > 0xFF {
		result = 0xFF
	}
	ch.RightVolume = uint8(result)

	panL := uint32(0x7F - rhythmPan)
	result = (panL * velocity * uint32(t.VolML())) >> 14
	if result > 0xFF {
		result = 0xFF
	}
	ch.LeftVolume = uint8(result)
}

// cgbChnVolSet is the CGB-channel analogue of pcmChnVolSet.
func cgbChnVolSet(ch *cgbchan.Channel, t *Track) {
	velocity := uint32(ch.Velocity)
	rhythmPan := int32(ch.RhythmPan)

	panR := uint32(0x80 + rhythmPan)
	result := (panR * velocity * uint32(t.VolMR())) >> 14
	if result > 0xFF {
		result = 0xFF
	}
	ch.RightVolume = uint8(result)

	panL := uint32(0x7F - rhythmPan)
	result = (panL * velocity * uint32(t.VolML())) >> 14
	if result > 0xFF {
		result = 0xFF
	}
	ch.LeftVolume = uint8(result)
}

// NoteOn resolves trackIndex's current voice against key, allocates or
// steals a PCM or CGB channel, and starts it. Matches m4a_engine_note_on.
func (e *Engine) NoteOn(trackIndex int, key, velocity uint8) {
	if trackIndex < 0 || trackIndex >= MaxTracks {
		return
	}
	t := &e.tracks[trackIndex]
	voice := resolveVoice(&t.currentVoice, key)
	if voice == nil {
		return
	}

	var rhythmPan int8
	useKey := key
	if t.currentVoice.Kind == voicegroup.KindDrumKit {
		useKey = voice.Key
		if voice.PanSweep&0x80 != 0 {
			rhythmPan = int8((int32(voice.PanSweep) - 0xC0) * 2)
		}
	}

	combinedPriority := t.Priority
	t.computeVolPitch()

	finalKey := int32(useKey) + int32(t.keyM)
	if finalKey < 0 {
		finalKey = 0
	} else if finalKey > 127 {
		finalKey = 127
	}

	if idx, ok := cgbChannelIndex(voice.Kind); ok {
		ch := &e.cgb[idx]

		if ch.Active() && !ch.Releasing() {
			if ch.Priority > combinedPriority {
				return
			}
			if ch.Priority == combinedPriority && ch.TrackIndex < trackIndex {
				return
			}
		}

		ch.MidiKey = key
		ch.Key = useKey
		ch.Velocity = velocity
		ch.Priority = combinedPriority
		ch.TrackIndex = trackIndex
		ch.RhythmPan = rhythmPan
		ch.PseudoEchoVolume = t.PseudoEchoVolume
		ch.PseudoEchoLength = t.PseudoEchoLength
		ch.GateTime = 0

		switch ch.Type {
		case cgbchan.Square1, cgbchan.Square2:
			ch.DutyCycle = voice.Duty & 0x03
		case cgbchan.Wave:
			ch.WaveTable = voice.WaveTable
		case cgbchan.Noise:
			ch.Period7 = voice.Period7
		}

		ch.Frequency = midiKeyToCGBFrequency(ch.Type, uint8(finalKey), t.pitM)

		cgbChnVolSet(ch, t)
		ch.ModVol()
		ch.Start(voice.Attack, voice.Decay, voice.Sustain, voice.Release)
		return
	}

	if !isPCMVoice(voice.Kind) || voice.Wav == nil {
		return
	}

	ch := e.allocatePCMChannel(combinedPriority, trackIndex)
	if ch == nil {
		return
	}

	ch.MidiKey = key
	ch.Key = useKey
	ch.Velocity = velocity
	ch.Priority = combinedPriority
	ch.TrackIndex = trackIndex
	ch.RhythmPan = rhythmPan
	ch.PseudoEchoVolume = t.PseudoEchoVolume
	ch.PseudoEchoLength = t.PseudoEchoLength
	ch.GateTime = 0

	pcmChnVolSet(ch, t)

	if voice.Fixed {
		_, scale := e.pcmScale()
		ch.Frequency = uint32(0x800000 * scale)
	} else {
		ch.Frequency = e.midiKeyToPCMFrequency(voice.Wav.Freq, uint8(finalKey), t.pitM)
	}

	ch.Start(voice.Wav, voice.Attack, voice.Decay, voice.Sustain, voice.Release, voice.Fixed)

	// Seed envelope-scaled volumes so the channel is audible before the
	// first ~60Hz tick, since process() renders at host sample rate
	// rather than the GBA's per-frame SoundMainRAM cadence.
	vol := (uint32(e.masterVolume) + 1) * uint32(ch.EnvelopeVolume) >> 4
	ch.EnvelopeVolumeRight = uint8(uint32(ch.RightVolume) * vol >> 8)
	ch.EnvelopeVolumeLeft = uint8(uint32(ch.LeftVolume) * vol >> 8)
}

// NoteOff transitions every active, non-releasing channel on trackIndex
// matching key into release.
func (e *Engine) NoteOff(trackIndex int, key uint8) {
	if trackIndex < 0 || trackIndex >= MaxTracks {
		return
	}
	for i := range e.pcm {
		ch := &e.pcm[i]
		if ch.Active() && ch.Status&pcmchan.Stop == 0 && ch.TrackIndex == trackIndex && ch.MidiKey == key {
			ch.Status |= pcmchan.Stop
		}
	}
	for i := range e.cgb {
		ch := &e.cgb[i]
		if ch.Active() && !ch.Releasing() && ch.TrackIndex == trackIndex && ch.MidiKey == key {
			ch.Stop()
		}
	}
}

// refreshChannelPitches recomputes and pushes the track's pitch into every
// channel it currently owns. Matches refresh_channel_pitches.
func (e *Engine) refreshChannelPitches(t *Track, trackIndex int) {
	for i := range e.pcm {
		ch := &e.pcm[i]
		if ch.Active() && ch.TrackIndex == trackIndex && ch.Wav != nil {
			finalKey := int32(ch.Key) + int32(t.keyM)
			if finalKey < 0 {
				finalKey = 0
			}
			ch.Frequency = e.midiKeyToPCMFrequency(ch.Wav.Freq, uint8(finalKey), t.pitM)
		}
	}
	for i := range e.cgb {
		ch := &e.cgb[i]
		if ch.Active() && ch.TrackIndex == trackIndex {
			finalKey := int32(ch.Key) + int32(t.keyM)
			if finalKey < 0 {
				finalKey = 0
			}
			ch.Frequency = midiKeyToCGBFrequency(ch.Type, uint8(finalKey), t.pitM)
		}
	}
}

// refreshVolumes recomputes the track's vol/pitch and pushes the new
// per-channel volumes to every channel it owns. Matches refresh_volumes.
func (e *Engine) refreshVolumes(t *Track, trackIndex int) {
	t.computeVolPitch()
	for i := range e.pcm {
		ch := &e.pcm[i]
		if ch.Active() && ch.TrackIndex == trackIndex {
			pcmChnVolSet(ch, t)
		}
	}
	for i := range e.cgb {
		ch := &e.cgb[i]
		if ch.Active() && ch.TrackIndex == trackIndex {
			cgbChnVolSet(ch, t)
			ch.ModVol()
		}
	}
}

// CC handles a MIDI control-change message. Only the subset the reference
// engine actually consumes is implemented; the rest are accepted and
// ignored, matching m4a_engine_cc's no-op cases.
func (e *Engine) CC(trackIndex int, cc, value uint8) {
	if trackIndex < 0 || trackIndex >= MaxTracks {
		return
	}
	t := &e.tracks[trackIndex]

	switch cc {
	case 0x01: // mod wheel -> LFO depth
		t.Mod = value
		if value == 0 {
			t.lfoSpeedC = 0
			t.modM = 0
		}
	case 0x07: // volume
		t.RawVolume = value
		t.Volume = uint8(uint32(value) * uint32(e.songMasterVolume) / MaxSongVolume)
		e.refreshVolumes(t, trackIndex)
	case 0x0A: // pan
		t.Pan = int8(int32(value) - 64)
		e.refreshVolumes(t, trackIndex)
	case 0x14: // bend range
		t.BendRange = value
		t.computeVolPitch()
		e.refreshChannelPitches(t, trackIndex)
	case 0x15: // LFO speed
		t.LFOSpeed = value
	case 0x7B: // all notes off
		e.AllNotesOff(trackIndex)
	case 0x78: // all sound off
		e.AllSoundOff()
	}
}

// PitchBend applies a 14-bit signed MIDI pitch bend (-8192..8191), scaled
// to the engine's -64..63 range, and pushes the new pitch to every active
// channel on the track.
func (e *Engine) PitchBend(trackIndex int, bend int16) {
	if trackIndex < 0 || trackIndex >= MaxTracks {
		return
	}
	t := &e.tracks[trackIndex]
	t.Bend = int8(bend >> 7)
	t.computeVolPitch()
	e.refreshChannelPitches(t, trackIndex)
}

// AllNotesOff releases every active, non-releasing channel on trackIndex.
func (e *Engine) AllNotesOff(trackIndex int) {
	for i := range e.pcm {
		ch := &e.pcm[i]
		if ch.Active() && ch.TrackIndex == trackIndex {
			ch.Status |= pcmchan.Stop
		}
	}
	for i := range e.cgb {
		ch := &e.cgb[i]
		if ch.Active() && ch.TrackIndex == trackIndex {
			ch.Stop()
		}
	}
}

// AllSoundOff immediately silences every channel, idempotently.
func (e *Engine) AllSoundOff() {
	for i := range e.pcm {
		e.pcm[i].Status = 0
	}
	for i := range e.cgb {
		e.cgb[i].Status = 0
	}
}
