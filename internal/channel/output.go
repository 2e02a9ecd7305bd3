package channel

import (
	"math"
	"sync/atomic"

	"github.com/jackmix/jackmix/internal/dsp"
)

// routingSet is an immutable membership snapshot. Mutations copy-on-write
// and atomically swap the pointer, so the audio thread never takes a lock
// to read one.
type routingSet = map[int]struct{}

// OutputChannel composes Channel with the per-output routing sets and
// output-stage flags.
type OutputChannel struct {
	Channel

	// System outputs correspond to a downstream device; mixing is
	// skipped while unconnected, and global solo never routes to them.
	System bool

	// Prefader taps pre-fader for every input and applies no
	// output-stage gain.
	Prefader bool

	soloed   atomic.Pointer[routingSet]
	muted    atomic.Pointer[routingSet]
	prefader atomic.Pointer[routingSet]

	mixLeft, mixRight []float32
	preLeft, preRight []float32
}

// NewOutput allocates an output channel, including the intermediate mix
// scratch buffers used while summing inputs.
func NewOutput(index int, name string, stereo bool, system bool, sampleRate float64, period int) *OutputChannel {
	oc := &OutputChannel{
		Channel:  *New(index, name, stereo, sampleRate, period),
		System:   system,
		mixLeft:  make([]float32, dsp.MaxBlockSize),
		mixRight: make([]float32, dsp.MaxBlockSize),
		preLeft:  make([]float32, dsp.MaxBlockSize),
		preRight: make([]float32, dsp.MaxBlockSize),
	}
	empty := routingSet{}
	oc.soloed.Store(&empty)
	oc.muted.Store(&empty)
	oc.prefader.Store(&empty)
	return oc
}

// SoloedInputs returns the current solo-membership snapshot. Safe to read
// from the audio thread without locking.
func (oc *OutputChannel) SoloedInputs() routingSet { return *oc.soloed.Load() }

// MutedInputs returns the current per-output mute-membership snapshot.
func (oc *OutputChannel) MutedInputs() routingSet { return *oc.muted.Load() }

// PrefaderInputs returns the current forced-prefader-membership snapshot.
func (oc *OutputChannel) PrefaderInputs() routingSet { return *oc.prefader.Load() }

func (oc *OutputChannel) SetSoloInput(idx int, on bool)     { setMembership(&oc.soloed, idx, on) }
func (oc *OutputChannel) SetMutedInput(idx int, on bool)    { setMembership(&oc.muted, idx, on) }
func (oc *OutputChannel) SetPrefaderInput(idx int, on bool) { setMembership(&oc.prefader, idx, on) }

// SetPrefader toggles the output-level pre-fader bypass.
func (oc *OutputChannel) SetPrefader(on bool) { oc.Prefader = on }

// RemoveInputReferences drops idx from every routing set, called when the
// referenced input channel is removed from the mixer.
func (oc *OutputChannel) RemoveInputReferences(idx int) {
	setMembership(&oc.soloed, idx, false)
	setMembership(&oc.muted, idx, false)
	setMembership(&oc.prefader, idx, false)
}

// setMembership copies the current snapshot, applies one membership
// change, and atomically publishes the copy - never mutating the
// snapshot a concurrent audio-thread read may be holding.
func setMembership(set *atomic.Pointer[routingSet], idx int, on bool) {
	cur := *set.Load()
	next := make(routingSet, len(cur)+1)
	for k := range cur {
		next[k] = struct{}{}
	}
	if on {
		next[idx] = struct{}{}
	} else {
		delete(next, idx)
	}
	set.Store(&next)
}

// MixBuffers returns the zeroed intermediate summation buffers for the
// mixer to accumulate inputs into, truncated to nframes.
func (oc *OutputChannel) MixBuffers(nframes int) (left, right []float32) {
	left, right = oc.mixLeft[:nframes], oc.mixRight[:nframes]
	for i := range left {
		left[i] = 0
		right[i] = 0
	}
	return left, right
}

// ApplyOutputStage applies the output's own volume/balance ramp to the
// summed buffer (unless the output is globally pre-fader, in which case
// the raw sum passes through unchanged), updates its peaks/abspeak, and
// advances its ramps.
func (oc *OutputChannel) ApplyOutputStage(left, right []float32, kmetering bool) {
	nframes := len(left)
	preL := oc.preLeft[:nframes]
	preR := oc.preRight[:nframes]
	copy(preL, left)
	copy(preR, right)

	for i := 0; i < nframes; i++ {
		l, r := left[i], right[i]

		if !oc.Prefader {
			vol := dsp.Interpolate(oc.Volume, oc.VolumeNew, oc.VolumeIdx, oc.VolumeSteps)
			bal := dsp.InterpolateLinear(oc.Balance, oc.BalanceNew, oc.BalanceIdx, oc.BalanceSteps)
			volL, volR := dsp.BalanceGains(oc.Stereo, vol, bal)
			l *= float32(volL)
			r *= float32(volR)
			left[i], right[i] = l, r
		}

		oc.updatePeaks(float32(math.Abs(float64(left[i]))), float32(math.Abs(float64(right[i]))), ModePost)
		oc.updatePeaks(float32(math.Abs(float64(preL[i]))), float32(math.Abs(float64(preR[i]))), ModePre)
		oc.publishMeterChunk()
		oc.advanceRamps()
	}

	if kmetering {
		oc.KPost.Left.Process(left)
		oc.KPre.Left.Process(preL)
		if oc.Stereo {
			oc.KPost.Right.Process(right)
			oc.KPre.Right.Process(preR)
		}
	}
}
