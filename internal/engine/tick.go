package engine

import "github.com/retrosound/m4a-synth/internal/pcmchan"

// tick advances every channel's gate timer and envelope by one ~60Hz
// VBlank step, then advances the tempo accumulator, firing an LFO tick
// each time it crosses 150. Matches m4a_engine_tick.
func (e *Engine) tick() {
	if e.c15 > 0 {
		e.c15--
	} else {
		e.c15 = 14
	}

	for i := range e.pcm {
		ch := &e.pcm[i]
		if !ch.Active() {
			continue
		}
		if ch.GateTime > 0 {
			ch.GateTime--
			if ch.GateTime == 0 {
				ch.Status |= pcmchan.Stop
			}
		}
		ch.Tick(e.masterVolume)
	}

	for i := range e.cgb {
		ch := &e.cgb[i]
		if !ch.Active() {
			continue
		}
		if ch.GateTime > 0 {
			ch.GateTime--
			if ch.GateTime == 0 {
				ch.Stop()
			}
		}
		ch.Tick(e.c15)
	}

	e.tempoC += e.tempoI
	for e.tempoC >= 150 {
		e.tempoC -= 150
		e.lfoTick()
	}
}
