// Package device drives an M4A engine's rendered audio out through the
// default system audio backend. It exists only for cmd/m4a-play's live
// auditioning and plugin-host-free standalone use; the render core itself
// never touches a device (spec.md §1's "audio device output... external
// collaborator").
package device

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Engine is the subset of *m4a.Engine a Device needs: the deinterleaved
// stereo render call. Kept as an interface (rather than importing the
// m4a package directly) so this package stays testable with a fake and
// has no import-cycle exposure to the root facade.
type Engine interface {
	Process(outL, outR []float32)
}

// Finished is implemented by an Engine wrapper that knows when a bounded
// script has played out, so the device can report io.EOF and let the
// backend stop the stream on its own instead of the caller polling a
// timer. Engines that loop forever (most live-audition sessions) don't
// need to implement it.
type Finished interface {
	Finished() bool
}

// reader adapts Engine.Process's deinterleaved float32 buffers to the
// interleaved little-endian float32 byte stream the ebiten audio context
// expects, pulling exactly as many frames as the backend asks for per Read
// instead of pre-rendering a fixed-size buffer up front.
type reader struct {
	mu       sync.Mutex
	engine   Engine
	scratchL []float32
	scratchR []float32
}

func newReader(e Engine) *reader {
	return &reader{engine: e}
}

func (r *reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	if cap(r.scratchL) < frames {
		r.scratchL = make([]float32, frames)
		r.scratchR = make([]float32, frames)
	}
	outL := r.scratchL[:frames]
	outR := r.scratchR[:frames]
	r.engine.Process(outL, outR)

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(outL[i]))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(outR[i]))
	}
	n := frames * 8
	if fin, ok := r.engine.(Finished); ok && fin.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *reader) Close() error { return nil }

// Device plays an Engine's rendered audio through the host's default
// output, one shared ebiten audio context per process (the backend only
// supports a single sample rate per context, matching how the GBA itself
// only ever runs one output rate).
type Device struct {
	player *ebitaudio.Player
	reader *reader
}

var (
	contextOnce sync.Once
	context     *ebitaudio.Context
	contextErr  error
	contextRate int
)

func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
	if contextErr != nil {
		return nil, contextErr
	}
	if contextRate != sampleRate {
		return nil, fmt.Errorf("device: audio context already opened at %d Hz (requested %d Hz)", contextRate, sampleRate)
	}
	return context, nil
}

// Open prepares e for playback at sampleRate through the default audio
// device. Call Play to start the stream.
func Open(sampleRate int, e Engine) (*Device, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	rd := newReader(e)
	pl, err := ctx.NewPlayerF32(rd)
	if err != nil {
		return nil, err
	}
	return &Device{player: pl, reader: rd}, nil
}

func (d *Device) Play()  { d.player.Play() }
func (d *Device) Pause() { d.player.Pause() }

func (d *Device) IsPlaying() bool { return d.player.IsPlaying() }

// Position reports how much audio the device has actually played back,
// i.e. what the listener hears right now rather than what's been queued.
func (d *Device) Position() time.Duration {
	return d.player.Position()
}

func (d *Device) Close() error {
	d.player.Pause()
	d.player.Close()
	return d.reader.Close()
}
