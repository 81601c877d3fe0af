// Package m4a is the public facade over internal/engine and
// internal/voicegroup: a mutex-guarded Engine wrapping the single-threaded
// render core, safe to drive from a MIDI-handling goroutine while a
// separate audio callback calls Process.
package m4a

import (
	"errors"
	"sync"

	intengine "github.com/retrosound/m4a-synth/internal/engine"
	"github.com/retrosound/m4a-synth/internal/voicegroup"
)

// EngineOption configures an Engine at construction time, forwarding to
// the matching internal/engine.Option.
type EngineOption func(*engineConfig)

type engineConfig struct {
	opts []intengine.Option
}

// WithMaxPCMChannels bounds how many of the 12 PCM channels the allocator
// may hand out.
func WithMaxPCMChannels(n int) EngineOption {
	return func(c *engineConfig) { c.opts = append(c.opts, intengine.WithMaxPCMChannels(n)) }
}

// WithAnalogFilter enables the GBA's characteristic output low-pass filter.
func WithAnalogFilter(enabled bool) EngineOption {
	return func(c *engineConfig) { c.opts = append(c.opts, intengine.WithAnalogFilter(enabled)) }
}

// WithReverbAmount sets the initial reverb wetness (0-127).
func WithReverbAmount(amount int) EngineOption {
	return func(c *engineConfig) { c.opts = append(c.opts, intengine.WithReverbAmount(amount)) }
}

// Engine is the mutex-guarded, host-facing wrapper around a single
// internal/engine.Engine and the voicegroup it currently plays. Every
// exported method except SampleRate takes the lock, Process included;
// LoadVoiceGroup parses the voicegroup before taking it and holds it only
// to install the result.
type Engine struct {
	mu sync.Mutex

	core       *intengine.Engine
	sampleRate int

	projectRoot    string
	voicegroupName string
	loaderConfig   *voicegroup.LoaderConfig
}

// NewEngine constructs an Engine rendering at sampleRate Hz. No voicegroup
// is installed yet; every track plays silence until LoadVoiceGroup
// succeeds.
func NewEngine(sampleRate int, opts ...EngineOption) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("m4a: sampleRate must be positive")
	}
	cfg := &engineConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Engine{
		core:       intengine.New(float64(sampleRate), cfg.opts...),
		sampleRate: sampleRate,
	}, nil
}

// LoadVoiceGroup resolves voicegroupName under projectRoot (cfg may be nil
// for pure auto-discovery) and installs it as the engine's active voice
// table. Per spec.md §7, a loader failure leaves the engine's previous
// voice table untouched; notes render as silence until a later call
// succeeds.
func (e *Engine) LoadVoiceGroup(projectRoot, voicegroupName string, cfg *voicegroup.LoaderConfig) error {
	vg, err := voicegroup.Load(projectRoot, voicegroupName, cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.SetVoiceGroup(vg)
	e.core.RefreshVoices()
	e.projectRoot = projectRoot
	e.voicegroupName = voicegroupName
	e.loaderConfig = cfg
	return nil
}

// NoteOn dispatches a MIDI note-on to track trackIndex.
func (e *Engine) NoteOn(trackIndex int, key, velocity uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.NoteOn(trackIndex, key, velocity)
}

// NoteOff dispatches a MIDI note-off to track trackIndex.
func (e *Engine) NoteOff(trackIndex int, key uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.NoteOff(trackIndex, key)
}

// ProgramChange selects trackIndex's instrument from the installed voice
// group.
func (e *Engine) ProgramChange(trackIndex int, program uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.ProgramChange(trackIndex, program)
}

// CC dispatches a MIDI control-change message to trackIndex.
func (e *Engine) CC(trackIndex int, cc, value uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.CC(trackIndex, cc, value)
}

// PitchBend applies a 14-bit signed pitch bend to trackIndex.
func (e *Engine) PitchBend(trackIndex int, bend int16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.PitchBend(trackIndex, bend)
}

// AllNotesOff releases every active channel on trackIndex.
func (e *Engine) AllNotesOff(trackIndex int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.AllNotesOff(trackIndex)
}

// AllSoundOff immediately silences every channel on every track.
func (e *Engine) AllSoundOff() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.AllSoundOff()
}

// SetTempoBPM sets the engine's effective tempo.
func (e *Engine) SetTempoBPM(bpm float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.SetTempoBPM(bpm)
}

// SetSongVolume rescales every track from the song-level master volume
// (0-127).
func (e *Engine) SetSongVolume(volume uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.SetSongVolume(volume)
}

// ReverbAmount reports the current reverb wetness (0-127).
func (e *Engine) ReverbAmount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.ReverbAmount()
}

// SetReverbAmount sets the reverb wetness (0-127).
func (e *Engine) SetReverbAmount(amount int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.SetReverbAmount(amount)
}

// MasterVolume reports the hardware-style master volume (0-15).
func (e *Engine) MasterVolume() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.MasterVolume()
}

// SetMasterVolume sets the hardware-style master volume (0-15).
func (e *Engine) SetMasterVolume(v uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.SetMasterVolume(v)
}

// MaxPCMChannels reports how many of the 12 PCM channels the allocator may
// currently hand out.
func (e *Engine) MaxPCMChannels() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.MaxPCMChannels()
}

// SetMaxPCMChannels bounds how many of the 12 PCM channels the allocator
// may hand out.
func (e *Engine) SetMaxPCMChannels(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.SetMaxPCMChannels(n)
}

// AnalogFilter reports whether the GBA output low-pass filter is enabled.
func (e *Engine) AnalogFilter() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.AnalogFilter()
}

// SetAnalogFilter enables or disables the GBA output low-pass filter.
func (e *Engine) SetAnalogFilter(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.SetAnalogFilter(enabled)
}

// Process renders min(len(outL), len(outR)) stereo samples. Safe to call
// from a dedicated audio callback goroutine while other goroutines send
// MIDI events through the methods above; Process and every event method
// share the same lock, matching spec.md §5's "process then poll changes"
// cooperative model pushed behind a mutex instead of left to the host.
func (e *Engine) Process(outL, outR []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.core.Process(outL, outR)
}

// SampleRate reports the engine's configured output sample rate.
func (e *Engine) SampleRate() int { return e.sampleRate }
