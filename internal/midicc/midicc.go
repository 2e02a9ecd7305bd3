// Package midicc implements the 128-slot MIDI CC registry and the CC
// value mappings for volume/balance/mute/solo. It is deliberately
// decoupled from the channel/mixer packages: bindings are keyed by a
// caller-assigned stable index (the channel's slab index) rather than a
// pointer, so the registry cannot outlive or dangle-reference a removed
// channel.
package midicc

import (
	"math"

	"github.com/jackmix/jackmix/internal/mixererr"
	"github.com/jackmix/jackmix/internal/scale"
)

// ParamKind is which control on a channel a CC slot drives.
type ParamKind uint8

const (
	ParamVolume ParamKind = iota
	ParamBalance
	ParamMute
	ParamSolo
)

func (p ParamKind) String() string {
	switch p {
	case ParamVolume:
		return "volume"
	case ParamBalance:
		return "balance"
	case ParamMute:
		return "mute"
	case ParamSolo:
		return "solo"
	default:
		return "unknown"
	}
}

// Behavior selects how an incoming CC updates a target.
type Behavior uint8

const (
	JumpToValue Behavior = iota
	PickUp
)

// Binding identifies which channel (by stable index) and parameter a CC
// number is bound to.
type Binding struct {
	ChannelIndex int
	Param        ParamKind
}

// autoAssignFirst is the first CC number autoset scans from.
const autoAssignFirst = 11

// Registry is the mixer's 128-slot midi_cc_map.
type Registry struct {
	slots  [128]*Binding
	lastCC int
}

func NewRegistry() *Registry {
	return &Registry{lastCC: -1}
}

// Lookup returns the binding at cc, or nil if unbound. Malformed CC
// numbers (outside [0,127]) return nil rather than panicking, matching
// the "silently skipped" policy for malformed MIDI input.
func (r *Registry) Lookup(cc int) *Binding {
	if cc < 0 || cc > 127 {
		return nil
	}
	return r.slots[cc]
}

// Bind places (channelIndex, param) at cc, first clearing whatever was
// previously bound at cc. It is the caller's responsibility to also
// clear any previous CC this same (channelIndex, param) pair held, since
// the registry has no reverse index back to per-channel state.
func (r *Registry) Bind(cc int, channelIndex int, param ParamKind) error {
	if cc < 0 || cc > 127 {
		return mixererr.New(mixererr.InvalidCC, "Bind", nil)
	}
	r.slots[cc] = &Binding{ChannelIndex: channelIndex, Param: param}
	return nil
}

// Unbind clears cc, if bound.
func (r *Registry) Unbind(cc int) {
	if cc < 0 || cc > 127 {
		return
	}
	r.slots[cc] = nil
}

// UnbindChannel clears every slot bound to channelIndex, used when a
// channel is removed from the mixer.
func (r *Registry) UnbindChannel(channelIndex int) {
	for cc, b := range r.slots {
		if b != nil && b.ChannelIndex == channelIndex {
			r.slots[cc] = nil
		}
	}
}

// Autoassign scans CC slots in [11, 127] for the first free one and binds
// it, failing with NoFreeCC if the range is exhausted.
func (r *Registry) Autoassign(channelIndex int, param ParamKind) (int, error) {
	for cc := autoAssignFirst; cc <= 127; cc++ {
		if r.slots[cc] == nil {
			r.slots[cc] = &Binding{ChannelIndex: channelIndex, Param: param}
			return cc, nil
		}
	}
	return -1, mixererr.New(mixererr.NoFreeCC, "Autoassign", nil)
}

func (r *Registry) LastCC() int    { return r.lastCC }
func (r *Registry) SetLastCC(c int) { r.lastCC = c }

// VolumeTargetDB converts a 7-bit CC value to a target dB using s.
func VolumeTargetDB(cc int, s *scale.Scale) float64 {
	return s.NormToDB(float64(cc) / 127.0)
}

// VolumeCC is the inverse: the CC value (0-127, rounded) a given dB
// target would echo as MIDI-out feedback.
func VolumeCC(db float64, s *scale.Scale) int {
	return int(math.Round(127 * s.DBToNorm(db)))
}

// BalanceDeadZone is the +/-1/64 window around center used both for the
// pick-up match test and as the explicit dead zone around CC 64.
const BalanceDeadZone = 1.0 / 64.0

// BalanceValue maps a CC (0-127) to a balance in [-1, 1] with a dead zone
// at center.
func BalanceValue(cc int) float64 {
	switch {
	case cc == 64:
		return 0.0
	case cc < 64:
		// [0,63] -> [-1.0, -1/64]
		return -1.0 + float64(cc)*(1.0-BalanceDeadZone)/63.0
	default:
		// [64,127] -> [0.0, +1.0]
		return float64(cc-64) / 63.0
	}
}

// BalanceCC is the inverse mapping used to render MIDI-out feedback for a
// committed balance value.
func BalanceCC(bal float64) int {
	switch {
	case bal == 0:
		return 64
	case bal < 0:
		cc := (bal + 1.0) * 63.0 / (1.0 - BalanceDeadZone)
		return int(math.Round(cc))
	default:
		return int(math.Round(bal*63.0)) + 64
	}
}

// MuteFromCC maps a CC's high bit meaning for mute/solo toggles: >= 64 is
// the "on" state.
func MuteFromCC(cc int) bool { return cc >= 64 }

// VolumeCCMatchesCurrent reports whether cc, interpreted as a volume
// value, quantizes to the same CC as the channel's current volume - the
// pick-up latch condition for volume.
func VolumeCCMatchesCurrent(cc int, currentVolumeDB float64, s *scale.Scale) bool {
	return VolumeCC(currentVolumeDB, s) == cc
}

// BalanceCCMatchesCurrent reports whether cc, interpreted as a balance
// value, is within the dead zone of the channel's current balance - the
// pick-up latch condition for balance.
func BalanceCCMatchesCurrent(cc int, currentBalance float64) bool {
	return math.Abs(currentBalance-BalanceValue(cc)) < BalanceDeadZone
}
