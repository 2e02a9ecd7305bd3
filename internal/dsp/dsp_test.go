package dsp

import (
	"math"
	"testing"
)

func TestLinearDBRoundTrip(t *testing.T) {
	for _, v := range []float64{0.001, 0.1, 0.5, 1.0, 2.0} {
		db := LinearToDB(v)
		back := DBToLinear(db)
		if math.Abs(back-v) > 1e-9 {
			t.Fatalf("round trip for %v: got %v back (db=%v)", v, back, db)
		}
	}
}

func TestLinearToDBNonPositiveIsNegInf(t *testing.T) {
	if got := LinearToDB(0); !math.IsInf(got, -1) {
		t.Fatalf("LinearToDB(0) = %v, want -Inf", got)
	}
	if got := LinearToDB(-1); !math.IsInf(got, -1) {
		t.Fatalf("LinearToDB(-1) = %v, want -Inf", got)
	}
}

func TestInterpolateEndpoints(t *testing.T) {
	const steps = 100
	if got := Interpolate(0.5, 1.0, 0, steps); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("Interpolate at step 0 = %v, want start 0.5", got)
	}
	if got := Interpolate(0.5, 1.0, steps, steps); math.Abs(got-1.0) > 1e-6 {
		t.Fatalf("Interpolate at step == steps = %v, want end 1.0", got)
	}
}

func TestInterpolateMonotonicTowardTarget(t *testing.T) {
	const steps = 50
	prev := Interpolate(0.1, 0.9, 0, steps)
	for step := uint32(1); step <= steps; step++ {
		cur := Interpolate(0.1, 0.9, step, steps)
		if cur < prev {
			t.Fatalf("Interpolate not monotonic at step %d: prev=%v cur=%v", step, prev, cur)
		}
		prev = cur
	}
}

func TestInterpolateTapersNearZeroStart(t *testing.T) {
	const steps = 1000
	got := Interpolate(0, 1.0, 1, steps)
	if got <= 0 {
		t.Fatalf("Interpolate from a zero start should taper linearly above zero, got %v", got)
	}
	if got > 0.01 {
		t.Fatalf("Interpolate one step into a zero-start ramp should still be small, got %v", got)
	}
}

func TestInterpolateTapersNearZeroEnd(t *testing.T) {
	const steps = 1000
	got := Interpolate(1.0, 0, steps-1, steps)
	if got <= 0 {
		t.Fatalf("Interpolate approaching a zero end should stay positive until the last step, got %v", got)
	}
}

func TestInterpolateLinearIsExactMidpoint(t *testing.T) {
	got := InterpolateLinear(-1.0, 1.0, 5, 10)
	if math.Abs(got-0.0) > 1e-9 {
		t.Fatalf("InterpolateLinear midpoint = %v, want 0", got)
	}
}

func TestNumSteps(t *testing.T) {
	got := NumSteps(VolumeTransitionSeconds, 48000)
	want := uint32(VolumeTransitionSeconds*48000) + 1
	if got != want {
		t.Fatalf("NumSteps(%v, 48000) = %d, want %d", VolumeTransitionSeconds, got, want)
	}
}

func TestBalanceGainsStereoHardLeft(t *testing.T) {
	left, right := BalanceGains(true, 1.0, -1.0)
	if left != 1.0 || right != 0.0 {
		t.Fatalf("BalanceGains(stereo, 1.0, -1.0) = (%v, %v), want (1.0, 0.0)", left, right)
	}
}

func TestBalanceGainsStereoHardRight(t *testing.T) {
	left, right := BalanceGains(true, 1.0, 1.0)
	if left != 0.0 || right != 1.0 {
		t.Fatalf("BalanceGains(stereo, 1.0, 1.0) = (%v, %v), want (0.0, 1.0)", left, right)
	}
}

func TestBalanceGainsStereoCenter(t *testing.T) {
	left, right := BalanceGains(true, 0.5, 0.0)
	if left != 0.5 || right != 0.5 {
		t.Fatalf("BalanceGains(stereo, 0.5, 0.0) = (%v, %v), want (0.5, 0.5)", left, right)
	}
}

func TestBalanceGainsMonoSpread(t *testing.T) {
	left, right := BalanceGains(false, 1.0, -1.0)
	if left != 2.0 || right != 0.0 {
		t.Fatalf("BalanceGains(mono, 1.0, -1.0) = (%v, %v), want (2.0, 0.0)", left, right)
	}
}

func TestClamp01(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0: 0, 0.5: 0.5, 1: 1, 2: 1}
	for in, want := range cases {
		if got := Clamp01(in); got != want {
			t.Fatalf("Clamp01(%v) = %v, want %v", in, got, want)
		}
	}
}
