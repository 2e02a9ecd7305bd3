// Package mixer implements the realtime engine core: the audio callback,
// channel lifecycle, MIDI-in interpretation and MIDI-out feedback. It
// owns a single slab of channels shared between inputs and outputs, so a
// CC registry binding or a routing-set entry is never ambiguous between
// the two.
package mixer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jackmix/jackmix/internal/channel"
	"github.com/jackmix/jackmix/internal/host"
	"github.com/jackmix/jackmix/internal/midicc"
	"github.com/jackmix/jackmix/internal/mixererr"
	"github.com/jackmix/jackmix/internal/mixerlog"
)

// soloSet is an immutable global-solo-membership snapshot, swapped
// copy-on-write so the audio thread reads it without locking (same RCU
// pattern as the per-output routing sets in internal/channel).
type soloSet = map[int]struct{}

// entry is one slot in the mixer's channel slab. output is nil for input
// channels; ch always points at the (possibly embedded) Channel so the
// hot path never needs a type switch to read shared fields.
type entry struct {
	index  int
	kind   channel.Kind
	ch     *channel.Channel
	output *channel.OutputChannel
}

// Options holds the constructor-time knobs for a Mixer.
type Options struct {
	ClientName string
	// StereoMain is accepted and currently unused by the engine core;
	// reserved for a future stereo-main routing convenience.
	StereoMain   bool
	MIDIBehavior midicc.Behavior
	KMetering    bool
}

// Mixer is the engine's top-level handle: one per host client connection.
// All control-thread mutation methods take mu; the audio callback never
// takes mu, so a control-thread call can never block the real-time path.
type Mixer struct {
	mu sync.Mutex

	client host.Client
	logger mixerlog.Logger

	sampleRate float64
	period     int

	chans       map[int]*entry
	inputOrder  []int
	outputOrder []int
	nextIndex   int

	globalSolo atomic.Pointer[soloSet]

	registry  *midicc.Registry
	behavior  midicc.Behavior
	kmetering bool

	midiIn  host.MIDIIn
	midiOut host.MIDIOut
}

// New opens the engine against an already-constructed host client: it
// registers the process and buffer-size callbacks and activates the
// client. The caller owns client's lifetime up to this call; Close tears
// the client down along with every channel.
func New(client host.Client, opts Options, logger mixerlog.Logger) (*Mixer, error) {
	if logger == nil {
		logger = mixerlog.Nop{}
	}
	m := &Mixer{
		client:     client,
		logger:     logger,
		sampleRate: client.SampleRate(),
		period:     client.BufferSize(),
		chans:      make(map[int]*entry),
		registry:   midicc.NewRegistry(),
		behavior:   opts.MIDIBehavior,
		kmetering:  opts.KMetering,
		midiIn:     client.MIDIIn(),
		midiOut:    client.MIDIOut(),
	}
	empty := soloSet{}
	m.globalSolo.Store(&empty)

	if err := client.SetProcessCallback(m.process); err != nil {
		return nil, mixererr.New(mixererr.JackSetProcessCallback, "New", err)
	}
	if err := client.SetBufferSizeCallback(m.onBufferSizeChanged); err != nil {
		return nil, mixererr.New(mixererr.JackSetBufferSizeCallback, "New", err)
	}
	if err := client.Activate(); err != nil {
		return nil, mixererr.New(mixererr.JackActivate, "New", err)
	}

	m.logger.Log(mixerlog.ComponentMixer, mixerlog.LevelInfo, "mixer opened",
		"client", opts.ClientName, "sample_rate", m.sampleRate, "period", m.period)
	return m, nil
}

// Close stops the host client first, which guarantees the audio callback
// no longer runs, then releases every channel.
func (m *Mixer) Close() error {
	err := m.client.Close()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chans = make(map[int]*entry)
	m.inputOrder = nil
	m.outputOrder = nil
	empty := soloSet{}
	m.globalSolo.Store(&empty)
	return err
}

// SetMIDIBehavior changes JumpToValue/PickUp mode at runtime; it is not
// fixed at construction.
func (m *Mixer) SetMIDIBehavior(b midicc.Behavior) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.behavior = b
}

// LastMIDICC returns the most recently received CC number, for a UI's
// "learn" flow.
func (m *Mixer) LastMIDICC() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.LastCC()
}

// SetKMetering toggles K-meter computation in the audio callback.
func (m *Mixer) SetKMetering(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kmetering = on
}

// InputChannel looks up an input channel by its stable slab index.
func (m *Mixer) InputChannel(index int) (*channel.Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.chans[index]
	if !ok || e.kind != channel.KindInput {
		return nil, false
	}
	return e.ch, true
}

// OutputChannel looks up an output channel by its stable slab index.
func (m *Mixer) OutputChannel(index int) (*channel.OutputChannel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.chans[index]
	if !ok || e.kind != channel.KindOutput {
		return nil, false
	}
	return e.output, true
}

// SoloInput adds or removes idx from the mixer-global solo set.
func (m *Mixer) SoloInput(idx int, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishGlobalSolo(idx, on)
}

// publishGlobalSolo and clearGlobalSolo assume mu is already
// held by the caller (used by lifecycle methods that must not re-lock).
func (m *Mixer) publishGlobalSolo(idx int, on bool) {
	cur := *m.globalSolo.Load()
	next := make(soloSet, len(cur)+1)
	for k := range cur {
		next[k] = struct{}{}
	}
	if on {
		next[idx] = struct{}{}
	} else {
		delete(next, idx)
	}
	m.globalSolo.Store(&next)
}

func (m *Mixer) clearGlobalSolo(idx int) {
	m.publishGlobalSolo(idx, false)
}

func (m *Mixer) isGloballySoloed(idx int) bool {
	_, ok := (*m.globalSolo.Load())[idx]
	return ok
}

// onBufferSizeChanged re-derives every channel's ramp step counts and
// K-meter constants from the new period.
func (m *Mixer) onBufferSizeChanged(nframes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.period = nframes
	for _, e := range m.chans {
		e.ch.RecomputeSteps(m.sampleRate, nframes)
	}
	return nil
}

// process is the host's per-period callback. It never takes mu:
// control-thread mutations publish through atomic scalar writes and
// mixer methods documented as safe to call concurrently with the audio
// thread.
func (m *Mixer) process(nframes int) int {
	m.processMIDIIn()

	for _, idx := range m.inputOrder {
		e := m.chans[idx]
		left := e.ch.PortLeft.Buffer(nframes)
		var right []float32
		if e.ch.Stereo {
			right = e.ch.PortRight.Buffer(nframes)
		}
		e.ch.ComputeFrames(left, right, m.kmetering)
	}

	for _, idx := range m.outputOrder {
		m.mixOutput(m.chans[idx], nframes)
	}

	m.emitMIDIOut()
	return 0
}

func (m *Mixer) mixOutput(e *entry, nframes int) {
	oc := e.output
	if oc.System && !oc.PortLeft.Connected() {
		return
	}

	mixL, mixR := oc.MixBuffers(nframes)
	// Global solo never routes to system outputs: a system output's gate
	// is its own per-output solo set alone.
	global := *m.globalSolo.Load()
	globalActive := !oc.System && len(global) > 0
	soloed := oc.SoloedInputs()
	muted := oc.MutedInputs()
	prefaderSet := oc.PrefaderInputs()
	soloActive := globalActive || len(soloed) > 0

	for _, iidx := range m.inputOrder {
		if _, isMuted := muted[iidx]; isMuted {
			continue
		}
		if soloActive {
			_, globallySoloed := global[iidx]
			_, locallySoloed := soloed[iidx]
			if !((globalActive && globallySoloed) || locallySoloed) {
				continue
			}
		}

		ie := m.chans[iidx].ch
		_, forcedPrefader := prefaderSet[iidx]

		var srcL, srcR []float32
		if oc.Prefader || forcedPrefader {
			srcL, srcR = ie.PrefaderBuffers(nframes)
		} else {
			srcL, srcR = ie.PostfaderBuffers(nframes)
		}

		for i := 0; i < nframes; i++ {
			mixL[i] += srcL[i]
			if oc.Stereo {
				mixR[i] += srcR[i]
			}
		}
	}

	oc.ApplyOutputStage(mixL, mixR, m.kmetering)

	outL := oc.PortLeft.Buffer(nframes)
	if oc.Muted {
		for i := range outL {
			outL[i] = 0
		}
	} else {
		copy(outL, mixL)
	}
	if oc.Stereo {
		outR := oc.PortRight.Buffer(nframes)
		if oc.Muted {
			for i := range outR {
				outR[i] = 0
			}
		} else {
			copy(outR, mixR)
		}
	}
}

func (m *Mixer) allOrder() []int {
	all := make([]int, 0, len(m.inputOrder)+len(m.outputOrder))
	all = append(all, m.inputOrder...)
	all = append(all, m.outputOrder...)
	return all
}

var errNotFound = fmt.Errorf("mixer: channel not found")
