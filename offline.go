package m4a

import (
	"encoding/binary"
	"math"
)

// RenderWAV renders frames stereo samples from e starting from its current
// state and returns a 32-bit float WAV file, for cmd/m4a-render and any
// other headless offline-bounce caller. The engine's own mutex serializes
// this against any concurrently arriving MIDI events (spec.md §5).
func RenderWAV(e *Engine, frames int) []byte {
	outL := make([]float32, frames)
	outR := make([]float32, frames)
	e.Process(outL, outR)

	interleaved := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		interleaved[i*2] = outL[i]
		interleaved[i*2+1] = outR[i]
	}
	return EncodeWAVFloat32LE(interleaved, e.SampleRate(), 2)
}

// EncodeWAVFloat32LE packs already-interleaved stereo float32 samples into
// a minimal IEEE-float WAVE file (fmt tag 3): RIFF/WAVE header, one fmt
// chunk, one data chunk, no padding or extension chunks.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
