package reverb

import "testing"

func TestZeroAmountIsNoOp(t *testing.T) {
	r := New(48000)
	l, rr := int32(123), int32(-45)
	wantL, wantR := l, rr
	r.Process(&l, &rr)
	if l != wantL || rr != wantR {
		t.Fatalf("amount=0 should be identity, got (%d,%d) want (%d,%d)", l, rr, wantL, wantR)
	}
}

func TestBufferSizeScalesWithHostRate(t *testing.T) {
	r1 := New(13379)
	r2 := New(13379 * 2)
	if len(r2.bufL) < len(r1.bufL)*2-2 || len(r2.bufL) > len(r1.bufL)*2+2 {
		t.Fatalf("buffer size should roughly double: %d vs %d", len(r1.bufL), len(r2.bufL))
	}
}

func TestProcessStaysBounded(t *testing.T) {
	r := New(48000)
	r.SetAmount(127)
	for i := 0; i < 10000; i++ {
		l, rr := int32(127), int32(-128)
		r.Process(&l, &rr)
		if l > 1<<20 || l < -(1<<20) {
			t.Fatalf("unbounded growth at iter %d: l=%d", i, l)
		}
	}
}
