// Package scale implements a piecewise-linear dBFS <-> normalized-fader
// map, ported from the thresholds/segment coefficients of jack_mixer's
// scale.c.
package scale

import (
	"errors"
	"math"
)

// ErrNotFinalized describes a scale that has not been finalized since the
// last AddThreshold. DBToNorm and NormToDB do not return it: on such a
// scale they return 0 and -Inf respectively.
var ErrNotFinalized = errors.New("scale: Finalize not called since last AddThreshold")

// Threshold is one (dB, norm) anchor point plus the per-segment
// coefficients computed by Finalize for the segment ending at it.
type Threshold struct {
	DB, Norm float64
	a, b     float64 // norm = a*db + b, valid for the segment ending at this threshold
}

// Scale is an ordered list of thresholds with derived per-segment linear
// coefficients. Thresholds must be added in order of increasing DB.
type Scale struct {
	thresholds []Threshold
	finalized  bool
}

// New returns an empty Scale; add at least two thresholds before Finalize.
func New() *Scale {
	return &Scale{}
}

// Standard returns the scale used for MIDI volume mapping:
// {(-70 dB -> 0.0), (0 dB -> 1.0)}, already finalized.
func Standard() *Scale {
	s := New()
	s.AddThreshold(-70, 0.0)
	s.AddThreshold(0, 1.0)
	_ = s.Finalize()
	return s
}

// AddThreshold appends a threshold. Calling this after Finalize
// invalidates the scale until Finalize is called again.
func (s *Scale) AddThreshold(db, norm float64) {
	s.thresholds = append(s.thresholds, Threshold{DB: db, Norm: norm})
	s.finalized = false
}

// Finalize computes the per-segment (a, b) coefficients from consecutive
// threshold pairs. It requires at least two thresholds with strictly
// increasing DB values.
func (s *Scale) Finalize() error {
	if len(s.thresholds) < 2 {
		return errors.New("scale: need at least two thresholds")
	}
	for i := 1; i < len(s.thresholds); i++ {
		prev, cur := s.thresholds[i-1], s.thresholds[i]
		if cur.DB <= prev.DB {
			return errors.New("scale: thresholds must have strictly increasing dB")
		}
		a := (prev.Norm - cur.Norm) / (prev.DB - cur.DB)
		b := cur.Norm - a*cur.DB
		s.thresholds[i].a = a
		s.thresholds[i].b = b
	}
	s.finalized = true
	return nil
}

// DBToNorm walks the thresholds in insertion order and returns the
// normalized fader position for db. Below the first threshold yields 0;
// at or above the last yields 1.
func (s *Scale) DBToNorm(db float64) float64 {
	if !s.finalized {
		return 0
	}
	for i, t := range s.thresholds {
		if db < t.DB {
			if i == 0 {
				return 0
			}
			return clamp01(t.a*db + t.b)
		}
	}
	return 1
}

// NormToDB is the inverse walk by norm. Values at or below the first
// threshold's norm map to -Inf dB.
func (s *Scale) NormToDB(norm float64) float64 {
	if !s.finalized {
		return math.Inf(-1)
	}
	for i, t := range s.thresholds {
		if norm <= t.Norm {
			if i == 0 {
				return math.Inf(-1)
			}
			return (norm - t.b) / t.a
		}
	}
	// Above the last threshold's norm: extrapolate using the last segment,
	// matching jack_mixer.c's scale_scale_to_db fallthrough.
	last := s.thresholds[len(s.thresholds)-1]
	return (norm - last.b) / last.a
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
