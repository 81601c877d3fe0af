package tables

import "testing"

func withinPercent(a, b, pct float64) bool {
	if b == 0 {
		return a == 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff/b <= pct/100
}

func TestOctaveDoubling(t *testing.T) {
	const base = 1 << 20
	for k := 0; k <= 166; k += 7 {
		low := MidiKeyToFreq(base, k, 0)
		high := MidiKeyToFreq(base, k+12, 0)
		if !withinPercent(float64(high), 2*float64(low), 1) {
			t.Fatalf("key %d: freq(k+12)=%d want ~2x freq(k)=%d", k, high, low)
		}
	}
}

func TestSemitoneRatio(t *testing.T) {
	const base = 1 << 20
	const want = 1.05946
	for k := 0; k <= 166; k += 11 {
		low := MidiKeyToFreq(base, k, 0)
		high := MidiKeyToFreq(base, k+1, 0)
		got := float64(high) / float64(low)
		if !withinPercent(got, want, 1) {
			t.Fatalf("key %d: ratio=%v want ~%v", k, got, want)
		}
	}
}

func TestKeyClamp(t *testing.T) {
	const base = 1 << 20
	for _, k := range []int{179, 200, 255} {
		got := MidiKeyToFreq(base, k, 0x10)
		want := MidiKeyToFreq(base, 178, 0xFF)
		if got != want {
			t.Fatalf("key %d: freq=%d want clamp to key178/fine0xFF=%d", k, got, want)
		}
	}
}

func TestNoiseTableNotDegenerate(t *testing.T) {
	// Sanity: the synthesized noise table's 60 entries don't collapse to
	// a handful of packed bytes.
	seen := map[uint8]bool{}
	for _, b := range Noise {
		seen[b] = true
	}
	if len(seen) < 10 {
		t.Fatalf("noise table too degenerate: only %d distinct entries", len(seen))
	}
}

func TestUmul3232High32(t *testing.T) {
	if got := Umul3232High32(1<<32-1, 2); got != 1 {
		t.Fatalf("got %d want 1", got)
	}
	if got := Umul3232High32(0, 12345); got != 0 {
		t.Fatalf("got %d want 0", got)
	}
}
