// Package channel implements the input and output channel data model:
// gains, ramps, meters, scratch buffers and MIDI CC bindings.
// OutputChannel composes Channel by embedding rather than by any unsafe
// downcast; the mixer dispatches on an explicit Kind.
package channel

import (
	"math"

	"github.com/jackmix/jackmix/internal/dsp"
	"github.com/jackmix/jackmix/internal/host"
	"github.com/jackmix/jackmix/internal/kmeter"
	"github.com/jackmix/jackmix/internal/midicc"
	"github.com/jackmix/jackmix/internal/scale"
)

// PeakFramesChunk is how often (in samples) the slow "meter" mirror is
// republished from the continuously-accumulating peak.
const PeakFramesChunk = 4800

// MIDI-out pending bits, one per parameter that can change and must be
// echoed as CC feedback.
const (
	MIDIOutVolume uint8 = 1 << iota
	MIDIOutBalance
	MIDIOutMute
	MIDIOutSolo
)

// Kind distinguishes input from output channels for the mixer's
// processing dispatch.
type Kind uint8

const (
	KindInput Kind = iota
	KindOutput
)

// MeterMode selects the pre- or post-fader meter/abspeak surface.
type MeterMode uint8

const (
	ModePre MeterMode = iota
	ModePost
)

// MIDIBindings holds the four CC indices a channel's parameters may be
// bound to (-1 = unbound) and the pick-up latches for volume/balance.
type MIDIBindings struct {
	Volume  int
	Balance int
	Mute    int
	Solo    int

	VolumePickedUp  bool
	BalancePickedUp bool
}

func newMIDIBindings() MIDIBindings {
	return MIDIBindings{Volume: -1, Balance: -1, Mute: -1, Solo: -1}
}

// meterPair is the peak/meter/abspeak state kept for one fader stage
// (pre- or post-) of one side (mono, or one of stereo left/right).
type meterPair struct {
	peakLeft, peakRight   float32
	meterLeft, meterRight float32
	absPeak               float32
}

// Channel is the shared input-channel state. OutputChannel embeds it and
// adds routing-set and output-stage fields.
type Channel struct {
	Index  int
	Name   string
	Stereo bool
	Muted  bool

	sampleRate float64

	Volume    float64 // linear gain, current
	VolumeNew float64 // linear gain, target
	VolumeIdx uint32
	VolumeSteps uint32

	Balance    float64 // [-1, 1], current
	BalanceNew float64
	BalanceIdx uint32
	BalanceSteps uint32

	pre, post meterPair
	PeakFrames uint32

	KPre, KPost kmeter.Stereo

	MIDI      MIDIBindings
	MIDIScale *scale.Scale

	MIDIOutPending  uint8
	MIDIInGotEvents bool
	NaNDetected     bool

	// OnChange is invoked after any MIDI-driven update. It runs on the
	// audio thread and must return immediately.
	OnChange func()

	PortLeft, PortRight host.Port

	prefaderLeft, prefaderRight   []float32
	postfaderLeft, postfaderRight []float32
}

// New allocates a Channel with scratch buffers sized to dsp.MaxBlockSize
// and ramp step counts derived from sampleRate, ready to be wired to host
// ports by the mixer.
func New(index int, name string, stereo bool, sampleRate float64, period int) *Channel {
	steps := dsp.NumSteps(dsp.VolumeTransitionSeconds, sampleRate)
	c := &Channel{
		Index:        index,
		Name:         name,
		Stereo:       stereo,
		sampleRate:   sampleRate,
		Volume:       1.0,
		VolumeNew:    1.0,
		VolumeSteps:  steps,
		Balance:      0.0,
		BalanceNew:   0.0,
		BalanceSteps: steps,
		MIDI:         newMIDIBindings(),
		KPre:         kmeter.NewStereo(period, sampleRate),
		KPost:        kmeter.NewStereo(period, sampleRate),

		prefaderLeft:   make([]float32, dsp.MaxBlockSize),
		prefaderRight:  make([]float32, dsp.MaxBlockSize),
		postfaderLeft:  make([]float32, dsp.MaxBlockSize),
		postfaderRight: make([]float32, dsp.MaxBlockSize),
	}
	return c
}

// Rename changes the channel's name. Port renaming is the mixer's
// responsibility since it owns the host client.
func (c *Channel) Rename(name string) { c.Name = name }

// RecomputeSteps re-derives the ramp step counts after a sample-rate
// change.
func (c *Channel) RecomputeSteps(sampleRate float64, period int) {
	c.sampleRate = sampleRate
	steps := dsp.NumSteps(dsp.VolumeTransitionSeconds, sampleRate)
	c.VolumeSteps = steps
	c.BalanceSteps = steps
	c.KPre.Init(period, sampleRate)
	c.KPost.Init(period, sampleRate)
}

// SetVolumeDB retargets the volume ramp from a non-MIDI writer. If a ramp
// is already in progress, current is first snapped to the interpolated
// point so the transition stays sample-accurate. Clears the MIDI pick-up
// latch, so a motorized surface is expected to catch up again.
func (c *Channel) SetVolumeDB(db float64) {
	target := dsp.DBToLinear(db)
	c.setVolumeLinear(target, false)
}

// SetVolumeDBFromMIDI is the MIDI-applied counterpart to SetVolumeDB. It
// is used for the post-latch write a recognized CC issues once picked up,
// and leaves the pick-up latch alone - only a non-MIDI writer should drop
// it back to unlatched.
func (c *Channel) SetVolumeDBFromMIDI(db float64) {
	target := dsp.DBToLinear(db)
	c.setVolumeLinear(target, true)
}

func (c *Channel) setVolumeLinear(target float64, fromMIDI bool) {
	if target == c.VolumeNew {
		return
	}
	if c.VolumeIdx != 0 {
		c.Volume = dsp.Interpolate(c.Volume, c.VolumeNew, c.VolumeIdx, c.VolumeSteps)
	}
	c.VolumeNew = target
	c.VolumeIdx = 0
	c.MIDIOutPending |= MIDIOutVolume
	if !fromMIDI {
		c.MIDI.VolumePickedUp = false
	}
}

// VolumeDB returns the channel's current target volume in dB.
func (c *Channel) VolumeDB() float64 { return dsp.LinearToDB(c.VolumeNew) }

// SetBalance retargets the balance ramp from a non-MIDI writer, isomorphic
// to SetVolumeDB but in linear space throughout. Clears the MIDI pick-up
// latch.
func (c *Channel) SetBalance(bal float64) {
	c.setBalance(bal, false)
}

// SetBalanceFromMIDI is the MIDI-applied counterpart to SetBalance, used
// for the post-latch write applyCC issues; it leaves the pick-up latch
// alone.
func (c *Channel) SetBalanceFromMIDI(bal float64) {
	c.setBalance(bal, true)
}

func (c *Channel) setBalance(bal float64, fromMIDI bool) {
	if bal == c.BalanceNew {
		return
	}
	if c.BalanceIdx != 0 {
		c.Balance = dsp.InterpolateLinear(c.Balance, c.BalanceNew, c.BalanceIdx, c.BalanceSteps)
	}
	c.BalanceNew = bal
	c.BalanceIdx = 0
	c.MIDIOutPending |= MIDIOutBalance
	if !fromMIDI {
		c.MIDI.BalancePickedUp = false
	}
}

func (c *Channel) Mute() {
	if !c.Muted {
		c.Muted = true
		c.MIDIOutPending |= MIDIOutMute
	}
}

func (c *Channel) Unmute() {
	if c.Muted {
		c.Muted = false
		c.MIDIOutPending |= MIDIOutMute
	}
}

func (c *Channel) IsMuted() bool { return c.Muted }

func (c *Channel) SetMIDIScale(s *scale.Scale) { c.MIDIScale = s }

// MIDICCIndex returns the CC number bound to param, or -1.
func (c *Channel) MIDICCIndex(param midicc.ParamKind) int {
	switch param {
	case midicc.ParamVolume:
		return c.MIDI.Volume
	case midicc.ParamBalance:
		return c.MIDI.Balance
	case midicc.ParamMute:
		return c.MIDI.Mute
	default:
		return c.MIDI.Solo
	}
}

// SetMIDICCIndex records which CC number is bound to param. The mixer is
// responsible for keeping the registry's forward mapping consistent with
// this reverse pointer.
func (c *Channel) SetMIDICCIndex(param midicc.ParamKind, cc int) {
	switch param {
	case midicc.ParamVolume:
		c.MIDI.Volume = cc
	case midicc.ParamBalance:
		c.MIDI.Balance = cc
	case midicc.ParamMute:
		c.MIDI.Mute = cc
	case midicc.ParamSolo:
		c.MIDI.Solo = cc
	}
}

// MIDIOutPendingBit returns the feedback bit associated with param.
func MIDIOutPendingBit(param midicc.ParamKind) uint8 {
	switch param {
	case midicc.ParamVolume:
		return MIDIOutVolume
	case midicc.ParamBalance:
		return MIDIOutBalance
	case midicc.ParamMute:
		return MIDIOutMute
	default:
		return MIDIOutSolo
	}
}

// Meter returns the slow-updated peak mirror in dBFS for the requested
// fader stage.
func (c *Channel) Meter(mode MeterMode) (left, right float64) {
	mp := c.pairFor(mode)
	if c.Stereo {
		return dsp.LinearToDB(float64(mp.meterLeft)), dsp.LinearToDB(float64(mp.meterRight))
	}
	v := dsp.LinearToDB(float64(mp.meterLeft))
	return v, v
}

// AbsPeak returns the absolute peak since the last reset, in dBFS.
func (c *Channel) AbsPeak(mode MeterMode) float64 {
	if c.NaNDetected {
		return math.NaN()
	}
	return dsp.LinearToDB(float64(c.pairFor(mode).absPeak))
}

// ResetAbsPeak clears the absolute-peak-since-reset for one fader stage,
// mirroring the mode-scoped reset in the original jack_mixer sources. It
// also clears the NaN-detected latch: the original unconditionally resets
// NaN_detected on every abspeak reset call, regardless of mode, since
// there is otherwise no way to recover a usable abspeak reading once a
// single bad sample has been seen.
func (c *Channel) ResetAbsPeak(mode MeterMode) {
	c.pairFor(mode).absPeak = 0
	c.NaNDetected = false
}

// KMeter returns the peak/RMS pair (in dBFS) for the given stage, reading
// through the K-meter ballistics.
func (c *Channel) KMeter(mode MeterMode) (leftPeak, leftRMS, rightPeak, rightRMS float64) {
	stereo := c.KPre
	if mode == ModePost {
		stereo = c.KPost
	}
	leftPeak, leftRMS = stereo.Left.ReadDB()
	if c.Stereo {
		rightPeak, rightRMS = stereo.Right.ReadDB()
	} else {
		rightPeak, rightRMS = leftPeak, leftRMS
	}
	return
}

func (c *Channel) pairFor(mode MeterMode) *meterPair {
	if mode == ModePre {
		return &c.pre
	}
	return &c.post
}

// ConsumeMIDIInGotEvents is the one-shot read-and-clear accessor for
// whether an incoming CC updated this channel since the last check.
func (c *Channel) ConsumeMIDIInGotEvents() bool {
	v := c.MIDIInGotEvents
	c.MIDIInGotEvents = false
	return v
}

// NotifyMIDIIn marks that an incoming CC produced an effective update and
// fires the change callback, if any, from the calling (audio) thread.
// Callers must only invoke this after an update actually changed state.
func (c *Channel) NotifyMIDIIn() {
	c.MIDIInGotEvents = true
	if c.OnChange != nil {
		c.OnChange()
	}
}

// PrefaderBuffers returns the pre-fader scratch slices, truncated to
// nframes, for the mixer to read after ComputeFrames.
func (c *Channel) PrefaderBuffers(nframes int) (left, right []float32) {
	return c.prefaderLeft[:nframes], c.prefaderRight[:nframes]
}

// PostfaderBuffers returns the post-fader scratch slices, truncated to
// nframes.
func (c *Channel) PostfaderBuffers(nframes int) (left, right []float32) {
	return c.postfaderLeft[:nframes], c.postfaderRight[:nframes]
}

// ComputeFrames copies raw input into the pre-fader scratch buffer,
// advances the volume/balance ramps sample by sample, and writes
// post-fader samples. inLeft must be non-nil; inRight is nil for a mono
// channel.
func (c *Channel) ComputeFrames(inLeft, inRight []float32, kmetering bool) {
	nframes := len(inLeft)
	preL, preR := c.prefaderLeft[:nframes], c.prefaderRight[:nframes]
	postL, postR := c.postfaderLeft[:nframes], c.postfaderRight[:nframes]

	for i := 0; i < nframes; i++ {
		l := inLeft[i]
		r := l
		if c.Stereo && inRight != nil {
			r = inRight[i]
		}
		preL[i] = l
		preR[i] = r

		if !isFiniteFloat32(l) || (c.Stereo && !isFiniteFloat32(r)) {
			c.NaNDetected = true
			postL[i] = float32(math.NaN())
			postR[i] = float32(math.NaN())
			break
		}

		vol := dsp.Interpolate(c.Volume, c.VolumeNew, c.VolumeIdx, c.VolumeSteps)
		bal := dsp.InterpolateLinear(c.Balance, c.BalanceNew, c.BalanceIdx, c.BalanceSteps)
		volL, volR := dsp.BalanceGains(c.Stereo, vol, bal)

		postL[i] = l * float32(volL)
		postR[i] = r * float32(volR)

		c.updatePeaks(float32(math.Abs(float64(postL[i]))), float32(math.Abs(float64(postR[i]))), ModePost)
		c.updatePeaks(float32(math.Abs(float64(preL[i]))), float32(math.Abs(float64(preR[i]))), ModePre)
		c.publishMeterChunk()

		c.advanceRamps()
	}

	if kmetering {
		c.KPost.Left.Process(postL)
		c.KPre.Left.Process(preL)
		if c.Stereo {
			c.KPost.Right.Process(postR)
			c.KPre.Right.Process(preR)
		}
	}
}

func (c *Channel) advanceRamps() {
	c.VolumeIdx++
	if c.VolumeIdx >= c.VolumeSteps {
		c.Volume = c.VolumeNew
		c.VolumeIdx = 0
	}
	c.BalanceIdx++
	if c.BalanceIdx >= c.BalanceSteps {
		c.Balance = c.BalanceNew
		c.BalanceIdx = 0
	}
}

func (c *Channel) updatePeaks(l, r float32, mode MeterMode) {
	mp := c.pairFor(mode)
	if l > mp.peakLeft {
		mp.peakLeft = l
	}
	if r > mp.peakRight {
		mp.peakRight = r
	}
	if l > mp.absPeak {
		mp.absPeak = l
	}
	if r > mp.absPeak {
		mp.absPeak = r
	}
}

// publishMeterChunk republishes the continuously-accumulating peaks into
// the slow "meter" read mirrors every PeakFramesChunk samples, then
// resets the running peaks for the next chunk.
func (c *Channel) publishMeterChunk() {
	c.PeakFrames++
	if c.PeakFrames < PeakFramesChunk {
		return
	}
	c.pre.meterLeft, c.pre.meterRight = c.pre.peakLeft, c.pre.peakRight
	c.post.meterLeft, c.post.meterRight = c.post.peakLeft, c.post.peakRight
	c.pre.peakLeft, c.pre.peakRight = 0, 0
	c.post.peakLeft, c.post.peakRight = 0, 0
	c.PeakFrames = 0
}

func isFiniteFloat32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
