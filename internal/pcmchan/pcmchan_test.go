package pcmchan

import (
	"testing"

	"github.com/retrosound/m4a-synth/internal/waveasset"
)

func sampleWave(loop bool) *waveasset.WaveData {
	data := make([]int8, 0, 9)
	for i := 0; i < 8; i++ {
		data = append(data, int8(i*10-35))
	}
	data = append(data, data[len(data)-1]) // guard sample
	w := &waveasset.WaveData{Size: 8, Data: data}
	if loop {
		w.Status = 0xC000
		w.LoopStart = 2
	}
	return w
}

func TestAttackSaturation(t *testing.T) {
	c := &Channel{RightVolume: 200, LeftVolume: 200}
	c.Start(sampleWave(false), 0xFF, 0x80, 0x40, 0x20, false)
	if c.EnvelopeVolume != 0xFF {
		t.Fatalf("envelope volume after start = %#x want 0xFF", c.EnvelopeVolume)
	}
	c.Tick(15)
	if c.Status&EnvMask != EnvDecay {
		t.Fatalf("stage after first tick = %#x want Decay", c.Status&EnvMask)
	}
}

func TestLoopContinuityNoSilenceGap(t *testing.T) {
	c := &Channel{RightVolume: 255, LeftVolume: 255}
	c.Start(sampleWave(true), 0xFF, 0x80, 0xFF, 0x80, false)
	c.Frequency = 1 << 23 // one sample per render call
	nonZeroSeen := false
	var mixL, mixR int32
	for i := 0; i < 64; i++ {
		mixL, mixR = 0, 0
		c.Render(&mixL, &mixR)
		if mixL != 0 || mixR != 0 {
			nonZeroSeen = true
		}
		if i%4 == 0 {
			c.Tick(15)
		}
	}
	if !nonZeroSeen {
		t.Fatal("expected non-zero output across loop wraps")
	}
	if c.Status == 0 {
		t.Fatal("looping channel deactivated unexpectedly")
	}
}

func TestNonLoopingChannelDeactivatesAtEnd(t *testing.T) {
	c := &Channel{RightVolume: 255, LeftVolume: 255}
	c.Start(sampleWave(false), 0xFF, 0x80, 0xFF, 0x80, false)
	c.Frequency = 1 << 23
	var mixL, mixR int32
	for i := 0; i < 16; i++ {
		c.Render(&mixL, &mixR)
	}
	if c.Active() {
		t.Fatal("expected channel to deactivate after exhausting non-looping sample")
	}
}

func TestFixedVoiceIgnoresInterpolation(t *testing.T) {
	c := &Channel{RightVolume: 255, LeftVolume: 255}
	c.Start(sampleWave(false), 0, 0, 0xFF, 0, true)
	c.EnvelopeVolumeRight, c.EnvelopeVolumeLeft = 255, 255
	c.Frequency = 1 << 20
	var mixL, mixR int32
	c.Render(&mixL, &mixR)
	want := int32(sampleWave(false).Data[0])
	if mixL != (want*255)>>8 {
		t.Fatalf("fixed-voice sample should be raw, got mixL=%d", mixL)
	}
}
