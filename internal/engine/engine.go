// Package engine drives the sixteen-track MIDI-controlled sound engine: per
// track state, voice resolution, PCM/CGB channel allocation, the envelope
// and tempo-driven LFO ticker, and the per-sample render loop.
//
// Process is allocation-free and wait-free, and the whole type is meant for
// single-threaded use from one audio callback, matching the GBA reference's
// single-threaded MPlayMain/SoundMainRAM split (no internal locking; the
// owning facade is responsible for keeping events and Process serialized).
package engine

import (
	"github.com/retrosound/m4a-synth/internal/cgbchan"
	"github.com/retrosound/m4a-synth/internal/pcmchan"
	"github.com/retrosound/m4a-synth/internal/reverb"
	"github.com/retrosound/m4a-synth/internal/tables"
	"github.com/retrosound/m4a-synth/internal/voicegroup"
)

const (
	MaxPCMChannels = 12
	MaxCGBChannels = 4
	MaxTracks      = 16
	vblankRate     = 59.7275
	MaxSongVolume  = 127

	pcmSamplesPerVBlank = 224
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMaxPCMChannels bounds how many of the 12 PCM channels the allocator
// may hand out, matching the reference's per-game maxPcmChannels knob
// (Pokemon Emerald defaults to 5).
func WithMaxPCMChannels(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		if n > MaxPCMChannels {
			n = MaxPCMChannels
		}
		e.maxPCMChannels = n
	}
}

// WithAnalogFilter enables the GBA's characteristic output low-pass filter.
func WithAnalogFilter(enabled bool) Option {
	return func(e *Engine) { e.analogFilter = enabled }
}

// WithReverbAmount sets the initial reverb wetness (0-127).
func WithReverbAmount(amount int) Option {
	return func(e *Engine) { e.reverbAmount = amount }
}

// Engine owns every track, channel, and the shared reverb for one voice
// group. The zero value is not usable; construct with New.
type Engine struct {
	tracks [MaxTracks]Track
	pcm    [MaxPCMChannels]pcmchan.Channel
	cgb    [MaxCGBChannels]cgbchan.Channel
	rv     *reverb.Reverb

	sampleRate      float64
	samplesPerTick  float64
	tickAccumulator float64

	masterVolume     uint8
	songMasterVolume uint8
	maxPCMChannels   int
	c15              uint8

	analogFilter bool
	lowPassLeft  float64
	lowPassRight float64
	reverbAmount int

	tempoD, tempoU, tempoI, tempoC uint16

	voiceGroup *voicegroup.LoadedVoiceGroup
}

// New builds an Engine rendering at sampleRate Hz, matching
// m4a_engine_init's defaults (master volume 15, song volume 127, five PCM
// channels, CGB channel types/pan masks wired to their fixed slots).
func New(sampleRate float64, opts ...Option) *Engine {
	e := &Engine{
		sampleRate:       sampleRate,
		samplesPerTick:   sampleRate / vblankRate,
		masterVolume:     15,
		songMasterVolume: MaxSongVolume,
		maxPCMChannels:   5,
		c15:              14,
		tempoD:           150,
		tempoU:           0x100,
		tempoI:           150,
	}
	for i := range e.tracks {
		e.tracks[i] = newTrack()
	}
	e.cgb[0].Type, e.cgb[0].PanMask = cgbchan.Square1, cgbchan.PanMask(cgbchan.Square1)
	e.cgb[1].Type, e.cgb[1].PanMask = cgbchan.Square2, cgbchan.PanMask(cgbchan.Square2)
	e.cgb[2].Type, e.cgb[2].PanMask = cgbchan.Wave, cgbchan.PanMask(cgbchan.Wave)
	e.cgb[3].Type, e.cgb[3].PanMask = cgbchan.Noise, cgbchan.PanMask(cgbchan.Noise)
	cgbchan.SetCgb3Vol(tables.Cgb3Vol)

	for _, opt := range opts {
		opt(e)
	}
	e.rv = reverb.New(int(sampleRate))
	e.rv.SetAmount(e.reverbAmount)
	return e
}

// SetVoiceGroup installs a voice table. Pre-existing notes keep sounding
// from their already-latched wave/table pointers (spec.md §3 "Go
// representation notes"); no channel is touched here.
func (e *Engine) SetVoiceGroup(vg *voicegroup.LoadedVoiceGroup) {
	e.voiceGroup = vg
}

// RefreshVoices re-reads each track's current voice from
// voiceGroup[currentProgram], for use after editing a live voicegroup.
func (e *Engine) RefreshVoices() {
	if e.voiceGroup == nil {
		return
	}
	for i := range e.tracks {
		t := &e.tracks[i]
		t.currentVoice = e.voiceGroup.Voices[t.CurrentProgram]
	}
}

// SetTrackVoice directly installs voice as trackIndex's current
// instrument, bypassing ProgramChange and the installed voice group —
// used by tests and by hosts that resolve voices through their own
// program-map.
func (e *Engine) SetTrackVoice(trackIndex int, voice voicegroup.Voice) {
	e.tracks[trackIndex].currentVoice = voice
}

// ProgramChange selects track's instrument from the installed voice group.
func (e *Engine) ProgramChange(trackIndex int, program uint8) {
	if trackIndex < 0 || trackIndex >= MaxTracks || e.voiceGroup == nil {
		return
	}
	t := &e.tracks[trackIndex]
	t.CurrentProgram = program
	t.currentVoice = e.voiceGroup.Voices[program]
}

// SetTempoBPM sets the effective tempo increment, clamped to at least 1.
func (e *Engine) SetTempoBPM(bpm float64) {
	if bpm < 1 {
		bpm = 1
	}
	e.tempoI = uint16(bpm + 0.5)
}

// SetSongVolume rescales every track's effective volume from its raw CC 7
// value and pushes the new volumes into active channels.
func (e *Engine) SetSongVolume(volume uint8) {
	e.songMasterVolume = volume
	for i := range e.tracks {
		t := &e.tracks[i]
		t.Volume = uint8(uint32(t.RawVolume) * uint32(volume) / MaxSongVolume)
		e.refreshVolumes(t, i)
	}
}

// pcmScale converts the GBA PCM tick rate into this engine's
// fixed-point "samples of source audio per output sample" scale factor,
// matching m4a_engine_note_on's local pcmFreq/divFreq/scale block.
func (e *Engine) pcmScale() (divFreq int64, scale float64) {
	pcmFreq := (597275*pcmSamplesPerVBlank + 5000) / 10000
	divFreq = int64((16777216/pcmFreq + 1) >> 1)
	scale = float64(pcmFreq) / e.sampleRate
	return
}

// midiKeyToPCMFrequency reproduces m4a_midi_key_to_freq's baseFreq lookup
// via tables.MidiKeyToFreq, then rescales into this engine's host sample
// rate. tables.MidiKeyToFreq's word is 32 times the reference's (baseFreq/32
// rather than baseFreq/1024 at key 60), hence the division by 32.
func (e *Engine) midiKeyToPCMFrequency(baseFreq uint32, key uint8, fine uint8) uint32 {
	divFreq, scale := e.pcmScale()
	freq := tables.MidiKeyToFreq(baseFreq, int(key), fine)
	return uint32(float64(uint64(freq)*uint64(divFreq)) * scale / 32)
}

// midiKeyToCGBFrequency dispatches to the square/wave table for chanType
// 1-3, or the dedicated noise table for chanType 4 (internal/tables exposes
// noise as a separate array rather than folding it into
// MidiKeyToCgbFreq, unlike the reference's single combined function).
func midiKeyToCGBFrequency(chanType uint8, key uint8, fine uint8) uint32 {
	if chanType == cgbchan.Noise {
		k := int(key)
		if k <= 20 {
			k = 0
		} else {
			k -= 21
			if k > 59 {
				k = 59
			}
		}
		return uint32(tables.Noise[k])
	}
	return tables.MidiKeyToCgbFreq(int(key), fine)
}

// Track exposes track i's state for diagnostics and tests.
func (e *Engine) Track(i int) *Track { return &e.tracks[i] }

// PCMChannel exposes PCM channel i's state for diagnostics and tests.
func (e *Engine) PCMChannel(i int) *pcmchan.Channel { return &e.pcm[i] }

// CGBChannel exposes CGB channel i's state for diagnostics and tests.
func (e *Engine) CGBChannel(i int) *cgbchan.Channel { return &e.cgb[i] }

// ReverbAmount reports the current reverb wetness (0-127).
func (e *Engine) ReverbAmount() int { return e.rv.Amount() }

// SetReverbAmount sets the reverb wetness (0-127).
func (e *Engine) SetReverbAmount(amount int) { e.rv.SetAmount(amount) }

// MasterVolume reports the hardware-style master volume (0-15).
func (e *Engine) MasterVolume() uint8 { return e.masterVolume }

// SetMasterVolume sets the hardware-style master volume (0-15).
func (e *Engine) SetMasterVolume(v uint8) { e.masterVolume = v }

// SongMasterVolume reports the current song-level master volume (0-127).
func (e *Engine) SongMasterVolume() uint8 { return e.songMasterVolume }

// MaxPCMChannels reports how many of the 12 PCM channels the allocator may
// currently hand out.
func (e *Engine) MaxPCMChannels() int { return e.maxPCMChannels }

// SetMaxPCMChannels bounds how many of the 12 PCM channels the allocator
// may hand out, clamped to [1, MaxPCMChannels].
func (e *Engine) SetMaxPCMChannels(n int) {
	if n < 1 {
		n = 1
	}
	if n > MaxPCMChannels {
		n = MaxPCMChannels
	}
	e.maxPCMChannels = n
}

// AnalogFilter reports whether the GBA output low-pass filter is enabled.
func (e *Engine) AnalogFilter() bool { return e.analogFilter }

// SetAnalogFilter enables or disables the GBA output low-pass filter.
func (e *Engine) SetAnalogFilter(enabled bool) { e.analogFilter = enabled }
