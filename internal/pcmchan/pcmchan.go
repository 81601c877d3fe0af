// Package pcmchan implements one DirectSound (PCM) playback channel: the
// ADSR/pseudo-echo envelope state machine and the 23-bit fractional
// resampler with linear interpolation and loop wrap.
package pcmchan

import "github.com/retrosound/m4a-synth/internal/waveasset"

// Status bits, packed into a single byte per §4.5.
const (
	Start      uint8 = 0x80
	Stop       uint8 = 0x40
	Loop       uint8 = 0x10
	Iec        uint8 = 0x04
	EnvMask    uint8 = 0x03
	EnvAttack  uint8 = 0x03
	EnvDecay   uint8 = 0x02
	EnvSustain uint8 = 0x01
	EnvRelease uint8 = 0x00
)

// Channel is one of up to 12 active PCM voices.
type Channel struct {
	Status uint8
	Fixed  bool // VOICE_TYPE_FIX: ignore MIDI key, play at fixed rate

	Attack, Decay, Sustain, Release uint8

	EnvelopeVolume                          uint8
	EnvelopeVolumeRight, EnvelopeVolumeLeft  uint8
	PseudoEchoVolume, PseudoEchoLength       uint8

	RightVolume, LeftVolume uint8

	MidiKey, Velocity, Priority uint8
	Key                         uint8 // resolved playback key (differs from MidiKey for rhythm/drum voices)
	RhythmPan                   int8
	GateTime                    uint8
	TrackIndex                  int

	Wav          *waveasset.WaveData
	pos          uint32 // index of the current sample in Wav.Data
	Count        int32
	Fw           uint32 // 23-bit fractional accumulator
	Frequency    uint32
	isLoop       bool
	loopLen      int32
	loopStartPos uint32
}

// Active reports whether the channel is producing sound.
func (c *Channel) Active() bool { return c.Status != 0 }

// Start configures the channel from a resolved voice's ADSR and the given
// sample, then immediately runs one attack step so the first rendered
// sample already has a non-zero envelope.
func (c *Channel) Start(wav *waveasset.WaveData, attack, decay, sustain, release uint8, fixed bool) {
	c.Wav = wav
	c.Fixed = fixed
	c.pos = 0
	c.Count = int32(wav.Size)
	c.Fw = 0
	c.Attack, c.Decay, c.Sustain, c.Release = attack, decay, sustain, release
	c.EnvelopeVolume = 0
	c.isLoop = wav.Looping()
	if c.isLoop {
		c.loopStartPos = wav.LoopStart
		c.loopLen = int32(wav.Size) - int32(wav.LoopStart)
	}
	c.Status = Start | EnvAttack
	if c.isLoop {
		c.Status |= Loop
	}
	// Immediately take one attack step so the first rendered sample has
	// a non-zero envelope; the START bit (and thus the externally
	// visible stage transition on saturation) is only cleared by the
	// channel's first real Tick.
	v := uint16(c.Attack)
	if v >= 0xFF {
		v = 0xFF
	}
	c.EnvelopeVolume = uint8(v)
}

// Tick advances the envelope state machine by one ~60 Hz step.
func (c *Channel) Tick(masterVolume uint8) {
	if c.Status == 0 {
		return
	}
	if c.Status&Start != 0 {
		c.Status &^= Start
	}
	if c.Status&Iec != 0 {
		if c.PseudoEchoLength > 0 {
			c.PseudoEchoLength--
		}
		if c.PseudoEchoLength == 0 {
			c.Status = 0
			return
		}
	} else if c.Status&Stop != 0 {
		c.EnvelopeVolume = uint8((uint16(c.EnvelopeVolume) * uint16(c.Release)) >> 8)
		if c.EnvelopeVolume <= c.PseudoEchoVolume {
			if c.PseudoEchoLength == 0 {
				c.Status = 0
				return
			}
			c.Status = (c.Status &^ EnvMask) | Iec
		}
	} else {
		switch c.Status & EnvMask {
		case EnvAttack:
			v := uint16(c.EnvelopeVolume) + uint16(c.Attack)
			if v >= 0xFF {
				c.EnvelopeVolume = 0xFF
				c.Status = (c.Status &^ EnvMask) | EnvDecay
			} else {
				c.EnvelopeVolume = uint8(v)
			}
		case EnvDecay:
			c.EnvelopeVolume = uint8((uint16(c.EnvelopeVolume) * uint16(c.Decay)) >> 8)
			if c.EnvelopeVolume <= c.Sustain {
				c.EnvelopeVolume = c.Sustain
				if c.Sustain == 0 {
					c.Status = (c.Status &^ EnvMask) | Iec
				} else {
					c.Status = (c.Status &^ EnvMask) | EnvSustain
				}
			}
		case EnvSustain:
			// hold
		}
	}

	vol := (uint32(masterVolume) + 1) * uint32(c.EnvelopeVolume) >> 4
	c.EnvelopeVolumeRight = uint8(uint32(c.RightVolume) * vol >> 8)
	c.EnvelopeVolumeLeft = uint8(uint32(c.LeftVolume) * vol >> 8)
}

// Render mixes one sample from this channel into mixL/mixR and advances
// the playback position, deactivating the channel at end of sample for
// non-looping voices.
func (c *Channel) Render(mixL, mixR *int32) {
	if c.Status == 0 {
		return
	}
	data := c.Wav.Data
	var sample int32
	if c.Fixed {
		sample = int32(data[c.pos])
	} else {
		s0 := int32(data[c.pos])
		s1 := int32(data[c.pos+1])
		diff := s1 - s0
		sample = s0 + int32((int64(diff)*int64(int32(c.Fw)))>>23)
	}

	*mixR += (sample * int32(c.EnvelopeVolumeRight)) >> 8
	*mixL += (sample * int32(c.EnvelopeVolumeLeft)) >> 8

	c.Fw += c.Frequency
	advance := c.Fw >> 23
	c.Fw &= 0x7FFFFF
	c.Count -= int32(advance)

	if c.Count <= 0 {
		if c.isLoop && c.loopLen > 0 {
			for c.Count <= 0 {
				c.Count += c.loopLen
			}
			c.pos = c.loopStartPos + uint32(c.loopLen-c.Count)
		} else {
			c.Status = 0
		}
	} else {
		c.pos += advance
	}
}
