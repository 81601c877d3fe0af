package engine

// lfoTick advances each track's LFO by one tempo-rate step and, when the
// resulting modulation output changes, recomputes and pushes updated
// vol/pitch to every channel the track owns. Matches m4a_lfo_tick; fires
// at the tempo rate (tempoI/150 per VBlank), not at a fixed 60Hz.
func (e *Engine) lfoTick() {
	for i := range e.tracks {
		t := &e.tracks[i]
		if t.LFOSpeed == 0 || t.Mod == 0 {
			continue
		}
		if t.lfoDelayC > 0 {
			t.lfoDelayC--
			continue
		}

		t.lfoSpeedC += t.LFOSpeed
		lfoPos := t.lfoSpeedC
		var lfoVal int8
		if int8(lfoPos-0x40) < 0 {
			lfoVal = int8(lfoPos)
		} else {
			lfoVal = int8(0x80 - lfoPos)
		}

		newModM := int8((int32(t.Mod) * int32(lfoVal)) >> 6)
		if newModM == t.modM {
			continue
		}
		t.modM = newModM
		t.computeVolPitch()

		for j := range e.pcm {
			ch := &e.pcm[j]
			if !ch.Active() || ch.TrackIndex != i {
				continue
			}
			pcmChnVolSet(ch, t)
			if t.ModT == ModVibrato && ch.Wav != nil {
				finalKey := int32(ch.Key) + int32(t.keyM)
				if finalKey < 0 {
					finalKey = 0
				}
				ch.Frequency = e.midiKeyToPCMFrequency(ch.Wav.Freq, uint8(finalKey), t.pitM)
			}
		}
		for j := range e.cgb {
			ch := &e.cgb[j]
			if !ch.Active() || ch.TrackIndex != i {
				continue
			}
			cgbChnVolSet(ch, t)
			ch.ModVol()
			if t.ModT == ModVibrato {
				finalKey := int32(ch.Key) + int32(t.keyM)
				if finalKey < 0 {
					finalKey = 0
				}
				ch.Frequency = midiKeyToCGBFrequency(ch.Type, uint8(finalKey), t.pitM)
			}
		}
	}
}
