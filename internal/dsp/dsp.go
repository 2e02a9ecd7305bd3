// Package dsp holds the small set of pure numeric helpers shared by the
// channel ramp logic, the output mixing stage, and the MIDI CC value maps.
package dsp

import "math"

// MaxBlockSize bounds the largest host period this engine will ever be
// asked to process in one callback; scratch buffers are sized to it once,
// at channel-creation time, so the audio callback never allocates.
const MaxBlockSize = 4 * 4096

// VolumeTransitionSeconds is how long a volume or balance ramp takes to
// settle once a new target is set.
const VolumeTransitionSeconds = 0.01

// LinearToDB converts a linear amplitude to dBFS. Values at or below zero
// have no finite representation.
func LinearToDB(value float64) float64 {
	if value <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(value)
}

// DBToLinear is the inverse of LinearToDB.
func DBToLinear(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// Interpolate walks a ramp from start to end (both linear gains) over
// [0, steps], evaluated at step. The walk is done in dB space except near
// a zero endpoint, where it tapers linearly over the first/last 1% of the
// ramp to avoid a -Inf dB discontinuity.
func Interpolate(start, end float64, step, steps uint32) float64 {
	const frac = 0.01
	fstep, fsteps := float64(step), float64(steps)

	switch {
	case start <= 0:
		if fstep <= frac*fsteps {
			return frac * end * fstep / fsteps
		}
		return DBToLinear(LinearToDB(frac*end) + (LinearToDB(end)-LinearToDB(frac*end))*fstep/fsteps)
	case end <= 0:
		if fstep >= (1-frac)*fsteps {
			return frac * start * (1 - fstep/fsteps)
		}
		return DBToLinear(LinearToDB(start) + (LinearToDB(frac*start)-LinearToDB(start))*fstep/fsteps)
	default:
		return DBToLinear(LinearToDB(start) + (LinearToDB(end)-LinearToDB(start))*fstep/fsteps)
	}
}

// InterpolateLinear is the plain linear-space counterpart used for balance
// ramps, which have no zero-amplitude singularity to guard against.
func InterpolateLinear(start, end float64, step, steps uint32) float64 {
	return start + (end-start)*float64(step)/float64(steps)
}

// NumSteps returns the number of ramp steps for a transition lasting
// seconds at sampleRate.
func NumSteps(seconds, sampleRate float64) uint32 {
	return uint32(seconds*sampleRate) + 1
}

// BalanceGains derives the per-side gain multipliers for a volume/balance
// pair, following the stereo/mono balance rule.
func BalanceGains(stereo bool, vol, bal float64) (left, right float64) {
	if stereo {
		if bal > 0 {
			return vol * (1 - bal), vol
		}
		return vol, vol * (1 + bal)
	}
	return vol * (1 - bal), vol * (1 + bal)
}

func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
