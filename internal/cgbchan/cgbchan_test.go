package cgbchan

import "testing"

func TestEnvelopeAttackDecaySustainRelease(t *testing.T) {
	c := &Channel{Type: Square1, PanMask: PanMask(Square1)}
	c.LeftVolume, c.RightVolume = 120, 120
	c.ModVol()
	c.Start(4, 3, 8, 2)

	if c.Status&statusEnvM != statusAttack {
		t.Fatalf("expected attack stage after start, got %#x", c.Status)
	}

	// Drive through attack: each Tick with c15!=0 single-steps.
	for i := 0; i < 64 && c.Status&statusEnvM == statusAttack; i++ {
		c.Tick(1)
	}
	if c.Status&statusEnvM != statusDecay {
		t.Fatalf("expected decay stage after attack completes, got %#x", c.Status)
	}

	for i := 0; i < 64 && c.Status&statusEnvM == statusDecay; i++ {
		c.Tick(1)
	}
	if c.Status&statusEnvM != statusSust {
		t.Fatalf("expected sustain stage after decay completes, got %#x", c.Status)
	}
	sustained := c.EnvelopeVolume
	for i := 0; i < 8; i++ {
		c.Tick(1)
	}
	if c.EnvelopeVolume != sustained {
		t.Fatalf("sustain stage should hold volume, got %d want %d", c.EnvelopeVolume, sustained)
	}

	c.Stop()
	for i := 0; i < 64 && c.Status != 0; i++ {
		c.Tick(1)
	}
	if c.Status != 0 {
		t.Fatal("expected channel to fully deactivate after release/pseudo-echo tail")
	}
}

func TestDoubleStepAtC15Zero(t *testing.T) {
	withDouble := &Channel{Type: Square1, PanMask: PanMask(Square1)}
	withDouble.ModVol()
	withDouble.Start(0xFF, 0, 0xFF, 0)
	withDouble.Tick(0)

	withoutDouble := &Channel{Type: Square1, PanMask: PanMask(Square1)}
	withoutDouble.ModVol()
	withoutDouble.Start(0xFF, 0, 0xFF, 0)
	withoutDouble.Tick(1)

	if withDouble.EnvelopeCounter == withoutDouble.EnvelopeCounter &&
		withDouble.EnvelopeVolume == withoutDouble.EnvelopeVolume {
		t.Fatal("expected c15==0 to apply an extra envelope step relative to c15!=0")
	}
}

func TestSquareDutyCycleOutput(t *testing.T) {
	c := &Channel{Type: Square1, PanMask: PanMask(Square1), DutyCycle: 1, EnvelopeVolume: 0xF}
	c.Pan = 0xFF
	c.Frequency = 1024
	var l, r int32
	sawHigh, sawLow := false, false
	for i := 0; i < 256; i++ {
		l, r = 0, 0
		c.Status = statusSust // keep active without running Tick
		c.Render(&l, &r, 32000)
		if l > 0 {
			sawHigh = true
		}
		if l < 0 {
			sawLow = true
		}
	}
	if !sawHigh || !sawLow {
		t.Fatal("expected square wave to alternate between high and low samples across a period")
	}
}

func TestProgrammableWaveScalesByVolume(t *testing.T) {
	SetCgb3Vol([16]uint8{0, 17, 34, 51, 68, 85, 102, 119, 128, 119, 102, 85, 68, 51, 34, 17})
	wave := make([]int8, 33)
	for i := range wave {
		wave[i] = int8((i % 16))
	}
	c := &Channel{Type: Wave, PanMask: PanMask(Wave), WaveTable: wave}
	c.Pan = 0xFF
	c.Status = statusSust
	c.Frequency = 1024
	c.EnvelopeVolume = 8 // cgb3Vol -> 128, full scale
	var lFull, rFull int32
	c.Render(&lFull, &rFull, 32000)

	c.Phase = 0
	c.EnvelopeVolume = 0 // cgb3Vol -> 0, silence
	var lMute, rMute int32
	c.Render(&lMute, &rMute, 32000)

	if lMute != 0 {
		t.Fatalf("expected zero output at wave-volume level 0, got %d", lMute)
	}
}

func TestNoisePeriodModeAffectsLFSRCycleLength(t *testing.T) {
	run := func(period7 bool) int {
		c := &Channel{Type: Noise, PanMask: PanMask(Noise), Period7: period7}
		c.lfsr = 0x7FFF
		c.Frequency = 0x08 // divRatio=0 -> divisor 0.5, shiftFreq=0
		c.Status = statusSust
		c.EnvelopeVolume = 0xF
		c.Pan = 0xFF
		seen := map[uint16]bool{}
		var l, r int32
		steps := 0
		for steps = 0; steps < 4000; steps++ {
			l, r = 0, 0
			c.Render(&l, &r, 1000)
			if seen[c.lfsr] {
				break
			}
			seen[c.lfsr] = true
		}
		return len(seen)
	}

	period7Cycle := run(true)
	period15Cycle := run(false)

	if period7Cycle == 0 || period15Cycle == 0 {
		t.Fatal("expected LFSR to cycle")
	}
	if period7Cycle > 127 == (period15Cycle > 127) {
		t.Fatalf("expected distinct period-length regimes: period7=%d period15=%d", period7Cycle, period15Cycle)
	}
}

func TestWaveDeclickFadesInsteadOfCuttingToSilence(t *testing.T) {
	c := &Channel{Type: Wave, PanMask: PanMask(Wave)}
	c.Pan = 0xFF
	c.declickSample = 64
	c.Status = 0

	var l, r int32
	nonZero := 0
	for i := 0; i < declickSamples+2; i++ {
		l, r = 0, 0
		c.Render(&l, &r, 32000)
		if l != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		t.Fatal("expected declick tail to emit fading non-zero samples after deactivation")
	}
	if c.declickRemaining != 0 {
		t.Fatalf("expected declick tail to fully drain, remaining=%d", c.declickRemaining)
	}

	l, r = 0, 0
	c.Render(&l, &r, 32000)
	if l != 0 {
		t.Fatal("expected silence once the declick tail has drained")
	}
}
