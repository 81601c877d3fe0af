package engine

// Process renders min(len(outL), len(outR)) stereo samples, advancing the
// tick accumulator, mixing every active PCM channel, applying reverb,
// mixing every CGB channel (always, so the wave channel's declick tail
// keeps rendering after deactivation), and optionally passing the result
// through the GBA's analog-output low-pass filter. Allocation-free;
// callable at any block size. Matches m4a_engine_process.
func (e *Engine) Process(outL, outR []float32) {
	n := len(outL)
	if len(outR) < n {
		n = len(outR)
	}
	for i := 0; i < n; i++ {
		e.tickAccumulator++
		if e.tickAccumulator >= e.samplesPerTick {
			e.tickAccumulator -= e.samplesPerTick
			e.tick()
		}

		var mixL, mixR int32
		for j := range e.pcm {
			if e.pcm[j].Active() {
				e.pcm[j].Render(&mixL, &mixR)
			}
		}

		e.rv.Process(&mixL, &mixR)

		for j := range e.cgb {
			e.cgb[j].Render(&mixL, &mixR, e.sampleRate)
		}

		l := float32(mixL) / 256
		r := float32(mixR) / 256

		if e.analogFilter {
			e.lowPassLeft = e.lowPassLeft*0.6 + float64(l)*0.4
			e.lowPassRight = e.lowPassRight*0.6 + float64(r)*0.4
			l = float32(e.lowPassLeft)
			r = float32(e.lowPassRight)
		}

		outL[i] = l
		outR[i] = r
	}
}
