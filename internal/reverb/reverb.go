// Package reverb implements the GBA M4A engine's 4-tap delay-line reverb,
// sized from the hardware's 1584-byte PCM DMA double-buffer and scaled to
// whatever host sample rate the engine renders at.
package reverb

const (
	gbaPCMBufSize   = 1584
	gbaSampleRate   = 13379.0
	gbaPCMDMAPeriod = 7
)

// Reverb holds a circular mono-ish stereo i8 buffer and the current write
// position; four taps (L/R at pos and L/R one DMA frame ahead) are summed
// each sample and fed back into both channels identically, matching the
// hardware's single reverb accumulator feeding both outputs.
type Reverb struct {
	bufL, bufR []int8
	pos        int
	frameSize  int
	amount     int // 0-127
}

// New sizes the delay line for hostRate, matching
// bufferSize = max(1, round(1584 * hostRate / 13379)).
func New(hostRate int) *Reverb {
	bufferSize := int(float64(gbaPCMBufSize)*float64(hostRate)/gbaSampleRate + 0.5)
	if bufferSize < 1 {
		bufferSize = 1
	}
	frameSize := bufferSize / gbaPCMDMAPeriod
	if frameSize < 1 {
		frameSize = 1
	}
	return &Reverb{
		bufL:      make([]int8, bufferSize),
		bufR:      make([]int8, bufferSize),
		frameSize: frameSize,
	}
}

// SetAmount sets the reverb wetness, clamped to [0, 127].
func (r *Reverb) SetAmount(amount int) {
	if amount < 0 {
		amount = 0
	}
	if amount > 127 {
		amount = 127
	}
	r.amount = amount
}

func (r *Reverb) Amount() int { return r.amount }

// Process mixes the reverb tap into (l, r) in place. With amount == 0 this
// is the identity and performs no buffer write, per the reverb no-op
// testable property.
func (r *Reverb) Process(l, r32 *int32) {
	if r.amount == 0 {
		return
	}
	n := len(r.bufL)
	other := (r.pos + r.frameSize) % n
	sum := int32(r.bufL[r.pos]) + int32(r.bufR[r.pos]) + int32(r.bufL[other]) + int32(r.bufR[other])
	wet := (sum * int32(r.amount)) >> 9

	outL := *l + wet
	outR := *r32 + wet
	*l = outL
	*r32 = outR

	r.bufL[r.pos] = clampInt8(outL)
	r.bufR[r.pos] = clampInt8(outR)
	r.pos = (r.pos + 1) % n
}

func clampInt8(v int32) int8 {
	if v < -128 {
		return -128
	}
	if v > 127 {
		return 127
	}
	return int8(v)
}
