// Package cgbchan implements the four CGB-style PSG channels (two square,
// one 4-bit programmable wave, one LFSR noise): software synthesis, the
// double-stepped 1/64s envelope state machine, and NR51-style pan-mask
// routing.
package cgbchan

const (
	Status0 uint8 = 0 // inactive

	statusStart  uint8 = 0x80
	statusStop   uint8 = 0x40
	statusIec    uint8 = 0x04
	statusEnvM   uint8 = 0x03
	statusAttack uint8 = 0x03
	statusDecay  uint8 = 0x02
	statusSust   uint8 = 0x01
	statusRel    uint8 = 0x00
)

// Channel kinds, matching the four fixed GBA PSG instances.
const (
	Square1 uint8 = 1
	Square2 uint8 = 2
	Wave    uint8 = 3
	Noise   uint8 = 4
)

// PanMask returns the fixed NR51 pan mask for each channel type, per the
// engine's four static CGB instances.
func PanMask(chanType uint8) uint8 {
	switch chanType {
	case Square1:
		return 0x11
	case Square2:
		return 0x22
	case Wave:
		return 0x44
	case Noise:
		return 0x88
	}
	return 0xFF
}

const declickSamples = 16

// Channel is one of the four fixed CGB-style instances.
type Channel struct {
	Status  uint8
	Type    uint8
	PanMask uint8

	Attack, Decay, Sustain, Release uint8

	EnvelopeVolume, EnvelopeGoal, EnvelopeCounter uint8
	SustainGoal                                   uint8
	PseudoEchoVolume, PseudoEchoLength            uint8

	// RightVolume/LeftVolume are the engine-computed per-channel 8-bit
	// volumes (same derivation as the PCM channel's), consumed only by
	// ModVol to produce Pan/EnvelopeGoal; they do not directly scale the
	// rendered sample (see Render).
	RightVolume, LeftVolume uint8
	Pan                     uint8
	Modify                  uint8

	DutyCycle uint8 // squares: 2-bit duty selector
	Period7   bool  // noise: true selects the 7-bit LFSR mode

	Frequency uint32 // 11-bit NR13/NR23/NR33-style register value; for Noise, the packed NR43-style byte
	Phase     uint32
	WaveTable []int8 // 33-byte guard-padded prog-wave nibble table (type 3)
	lfsr      uint16

	MidiKey, Velocity, Priority uint8
	Key                         uint8 // resolved playback key (differs from MidiKey for rhythm/drum voices)
	RhythmPan                   int8
	GateTime                    uint8
	TrackIndex                  int

	declickSample    int32
	declickRemaining int
}

func (c *Channel) Active() bool { return c.Status != 0 }

// Releasing reports whether the channel is in its STOP (release) phase,
// for the engine's note-on steal-guard (only non-releasing, active
// channels resist being overwritten).
func (c *Channel) Releasing() bool { return c.Status&statusStop != 0 }

// Start configures the channel from a resolved voice's ADSR, skipping
// instantaneous attack/decay/sustain stages exactly as the reference does.
func (c *Channel) Start(attack, decay, sustain, release uint8) {
	c.Attack, c.Decay, c.Sustain, c.Release = attack, decay, sustain, release
	c.Status = statusAttack
	c.Modify = 0x03
	c.Phase = 0
	c.EnvelopeCounter = attack
	if attack == 0 {
		c.EnvelopeVolume = c.EnvelopeGoal
		c.Status = statusDecay
		c.EnvelopeCounter = decay
		if decay == 0 {
			if sustain == 0 {
				c.Status = statusRel
			} else {
				c.EnvelopeVolume = c.SustainGoal
				c.Status = statusSust
			}
		}
	} else {
		c.EnvelopeVolume = 0
	}
	if c.Type == Noise {
		c.lfsr = 0x7FFF
	}
	c.declickRemaining = 0
}

// Stop requests release; the engine sets the STOP bit directly on the
// status field (channels share the PCM-style bit layout for STOP/IEC).
func (c *Channel) Stop() {
	c.Status |= statusStop
}

// ModVol recomputes Pan and the envelope goal/sustain-goal from the
// engine-supplied left/right volumes, matching CgbModVol: centered volumes
// go to both speakers at full level, unbalanced volumes route to one side
// only at a level clamped to 4 bits.
func (c *Channel) ModVol() {
	l, r := uint32(c.LeftVolume), uint32(c.RightVolume)
	sum := l + r
	max := l
	if r > max {
		max = r
	}
	diff := l - r
	if r > l {
		diff = r - l
	}

	switch {
	case diff <= max/2:
		c.Pan = 0xFF
		c.EnvelopeGoal = uint8(sum / 16)
	case l > r:
		c.Pan = 0xF0
		c.EnvelopeGoal = clamp4(sum / 16)
	default:
		c.Pan = 0x0F
		c.EnvelopeGoal = clamp4(sum / 16)
	}

	c.SustainGoal = uint8((uint32(c.EnvelopeGoal)*uint32(c.Sustain) + 15) >> 4)
	c.Pan &= c.PanMask
}

func clamp4(v uint32) uint8 {
	if v > 15 {
		return 15
	}
	return uint8(v)
}

// Tick advances the envelope by one ~60Hz step, double-stepping when
// c15 == 0 to correct for the hardware's 1/64s envelope grid.
func (c *Channel) Tick(c15 uint8) {
	if c.Status == 0 {
		return
	}
	if c.Status&statusStart != 0 {
		if c.Status&statusStop != 0 {
			c.Status = 0
			return
		}
		c.Status = statusAttack
		c.Modify = 0x03
		c.ModVol()
		c.EnvelopeCounter = c.Attack
		if c.Attack != 0 {
			c.EnvelopeVolume = 0
		} else {
			c.EnvelopeVolume = c.EnvelopeGoal
			c.Status = statusDecay
			c.EnvelopeCounter = c.Decay
			if c.Decay == 0 {
				if c.Sustain == 0 {
					c.enterPseudoEcho()
					return
				}
				c.Status = statusSust
				c.EnvelopeVolume = c.SustainGoal
			}
		}
		return
	}

	if c.Status&statusIec != 0 {
		if c.PseudoEchoLength > 0 {
			c.PseudoEchoLength--
		}
		if int8(c.PseudoEchoLength) <= 0 {
			c.Status = 0
		}
		return
	}

	if c.Status&statusStop != 0 && c.Status&statusEnvM != 0 {
		c.Status &^= statusEnvM
		c.EnvelopeCounter = c.Release
		if c.Release != 0 {
			c.Modify |= 0x01
			return
		}
		c.enterPseudoEcho()
		return
	}

	doubleStep := c15 == 0
	c.stepEnvelope()
	if doubleStep && c.Status != 0 {
		c.stepEnvelope()
	}
}

// stepEnvelope runs one counted-down envelope step, matching the
// reference's step_repeat/step_complete block: when the counter is
// already running it is simply decremented; when it reaches zero the
// current stage advances and a fresh counter value is loaded, which is
// then itself decremented once before returning (both paths funnel
// through the single trailing decrement below), except when the stage
// transition lands in the pseudo-echo tail or deactivates the channel,
// which return immediately without a further decrement.
func (c *Channel) stepEnvelope() {
	if c.Status == 0 {
		return
	}
	if c.EnvelopeCounter == 0 {
		c.ModVol()
		switch c.Status & statusEnvM {
		case statusRel:
			c.EnvelopeVolume--
			if int8(c.EnvelopeVolume) <= 0 {
				c.enterPseudoEcho()
				return
			}
			c.EnvelopeCounter = c.Release
		case statusSust:
			c.EnvelopeVolume = c.SustainGoal
			c.EnvelopeCounter = 7
		case statusDecay:
			c.EnvelopeVolume--
			if int8(c.EnvelopeVolume) <= int8(c.SustainGoal) {
				if c.Sustain == 0 {
					c.Status &^= statusEnvM
					c.enterPseudoEcho()
					return
				}
				c.Status--
				c.Modify |= 0x01
				c.EnvelopeVolume = c.SustainGoal
				c.EnvelopeCounter = 7
			} else {
				c.EnvelopeCounter = c.Decay
			}
		default: // Attack
			c.EnvelopeVolume++
			if c.EnvelopeVolume >= c.EnvelopeGoal {
				c.Status--
				c.EnvelopeCounter = c.Decay
				if c.Decay != 0 {
					c.Modify |= 0x01
					c.EnvelopeVolume = c.EnvelopeGoal
				} else {
					if c.Sustain == 0 {
						c.Status &^= statusEnvM
						c.enterPseudoEcho()
						return
					}
					c.Status--
					c.EnvelopeVolume = c.SustainGoal
					c.EnvelopeCounter = 7
				}
			} else {
				c.EnvelopeCounter = c.Attack
			}
		}
	}
	c.EnvelopeCounter--
}

func (c *Channel) enterPseudoEcho() {
	c.EnvelopeVolume = uint8((uint32(c.EnvelopeGoal)*uint32(c.PseudoEchoVolume) + 0xFF) >> 8)
	if c.EnvelopeVolume != 0 {
		c.Status |= statusIec
		c.Modify |= 0x01
		return
	}
	c.Status = 0
}

var dutyPatterns = [4]uint8{0x01, 0x81, 0xE1, 0x7E}

// Render synthesizes one sample and routes it per §4.6.2: scale by the
// envelope (wave channel's scaling is baked into its wave-volume lookup),
// then add a half-attenuated copy to each side whose pan-mask bit is set.
func (c *Channel) Render(mixL, mixR *int32, sampleRate float64) {
	if c.Status == 0 {
		if c.Type == Wave {
			c.renderWaveDeclickTail(mixL, mixR)
		}
		return
	}
	if c.Status&statusStart != 0 {
		return
	}

	var sample int32
	switch c.Type {
	case Square1, Square2:
		sample = c.renderSquare()
	case Wave:
		sample = c.renderWave()
		c.declickSample = sample
	case Noise:
		sample = c.renderNoise()
	}

	if c.Type != Wave {
		sample = (sample * int32(c.EnvelopeVolume)) >> 4
	}

	c.route(sample, mixL, mixR)
	c.advancePhase(sampleRate)
}

// renderWaveDeclickTail runs once the wave channel has deactivated: it
// fades the last rendered sample to zero over declickSamples frames
// instead of cutting to silence outright (SPEC_FULL.md §4.8).
func (c *Channel) renderWaveDeclickTail(mixL, mixR *int32) {
	if c.declickRemaining == 0 {
		if c.declickSample == 0 {
			return
		}
		c.declickRemaining = declickSamples
	}
	out := c.declickSample * int32(c.declickRemaining) / declickSamples
	c.declickRemaining--
	if c.declickRemaining == 0 {
		c.declickSample = 0
	}
	c.route(out, mixL, mixR)
}

func (c *Channel) route(sample int32, mixL, mixR *int32) {
	scaled := sample >> 1
	if c.Pan&0xF0 != 0 {
		*mixL += scaled
	}
	if c.Pan&0x0F != 0 {
		*mixR += scaled
	}
}

func (c *Channel) renderSquare() int32 {
	pattern := dutyPatterns[c.DutyCycle&3]
	bit := (c.Phase >> 29) & 7
	if pattern&(1<<bit) != 0 {
		return 64
	}
	return -64
}

func (c *Channel) renderWave() int32 {
	if len(c.WaveTable) == 0 {
		return 0
	}
	pos := (c.Phase >> 27) & 0x1F
	nibble := int32(c.WaveTable[pos])
	sample := (nibble - 8) * 8
	volShift := int32(cgb3Vol(c.EnvelopeVolume))
	if volShift == 0 {
		return 0
	}
	return (sample * volShift) >> 7
}

func (c *Channel) renderNoise() int32 {
	if c.lfsr&1 != 0 {
		return 64
	}
	return -64
}

func (c *Channel) advancePhase(sampleRate float64) {
	freqReg := c.Frequency
	if freqReg >= 2048 {
		freqReg = 2047
	}
	switch c.Type {
	case Square1, Square2:
		freqHz := 131072.0 / float64(2048-freqReg)
		c.Phase += uint32(freqHz / sampleRate * 4294967296.0)
	case Wave:
		freqHz := 2097152.0 / float64(2048-freqReg) / 32.0
		c.Phase += uint32(freqHz / sampleRate * 4294967296.0)
	case Noise:
		noiseParams := c.Frequency & 0xFF
		divRatio := noiseParams & 0x07
		shiftFreq := (noiseParams >> 4) & 0x0F
		divisor := float64(divRatio)
		if divRatio == 0 {
			divisor = 0.5
		}
		noiseFreq := 524288.0 / divisor / float64(uint32(1)<<(shiftFreq+1))
		// The LFSR steps once per phase wrap, several times per sample
		// when noiseFreq exceeds sampleRate.
		phase := uint64(c.Phase) + uint64(noiseFreq/sampleRate*4294967296.0)
		c.Phase = uint32(phase)
		for wraps := phase >> 32; wraps > 0; wraps-- {
			bit := (c.lfsr >> 1) ^ c.lfsr
			bit &= 1
			if c.Period7 {
				c.lfsr = ((c.lfsr >> 1) | (bit << 6)) & 0x7F
			} else {
				c.lfsr = (c.lfsr >> 1) | (bit << 14)
			}
		}
	}
}

var cgb3VolTable [16]uint8

// SetCgb3Vol installs the 4-bit wave-volume-to-Q7 table (internal/tables'
// Cgb3Vol); kept as a package-level setter so cgbchan has no import-time
// dependency on the tables package, matching its "pure synthesis, no
// lookup-table ownership" role.
func SetCgb3Vol(table [16]uint8) { cgb3VolTable = table }

func cgb3Vol(level uint8) uint8 {
	if int(level) >= len(cgb3VolTable) {
		return cgb3VolTable[len(cgb3VolTable)-1]
	}
	return cgb3VolTable[level]
}
