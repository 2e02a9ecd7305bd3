package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackmix/jackmix/internal/host"
	"github.com/jackmix/jackmix/internal/midicc"
	"github.com/jackmix/jackmix/internal/scale"
)

const testSampleRate = 48000.0

func newTestMixer(t *testing.T) (*Mixer, *fakeClient) {
	t.Helper()
	fc := newFakeClient(testSampleRate, 64)
	m, err := New(fc, Options{ClientName: "test", MIDIBehavior: midicc.JumpToValue, KMetering: true}, nil)
	require.NoError(t, err)
	return m, fc
}

// settle primes every channel through one period long enough to finish any
// in-flight volume/balance ramp (num_steps is ~481 at 48kHz) before a test
// asserts on settled output.
func settle(fc *fakeClient) {
	fc.process(600)
}

func sendCC(fc *fakeClient, cc, value int) {
	fc.midiIn.events = []host.MIDIEvent{{Data: []byte{0xB0, byte(cc), byte(value)}}}
}

func TestMonoPassthrough(t *testing.T) {
	m, fc := newTestMixer(t)
	_, err := m.AddInputChannel("in1", false)
	require.NoError(t, err)
	out, err := m.AddOutputChannel("MAIN", true, false)
	require.NoError(t, err)

	settle(fc)

	seq := []float32{0.5, -0.5, 0.25, 0.0}
	fc.fill("in1", seq)
	fc.process(len(seq))

	left := out.PortLeft.Buffer(len(seq))
	right := out.PortRight.Buffer(len(seq))
	for i := range seq {
		assert.InDelta(t, seq[i], left[i], 1e-5, "L[%d]", i)
		assert.InDelta(t, seq[i], right[i], 1e-5, "R[%d]", i)
	}
}

func TestBalanceHardLeft(t *testing.T) {
	m, fc := newTestMixer(t)
	_, err := m.AddInputChannel("in1", false)
	require.NoError(t, err)
	out, err := m.AddOutputChannel("MAIN", true, false)
	require.NoError(t, err)
	out.SetBalance(-1.0)

	settle(fc)

	fc.constant("in1", 1.0, 8)
	fc.process(8)

	left := out.PortLeft.Buffer(8)
	right := out.PortRight.Buffer(8)
	for i := 0; i < 8; i++ {
		assert.InDelta(t, 1.0, left[i], 1e-5)
		assert.InDelta(t, 0.0, right[i], 1e-5)
	}
}

func TestGlobalSoloExcludesNonSoloed(t *testing.T) {
	m, fc := newTestMixer(t)
	a, err := m.AddInputChannel("A", false)
	require.NoError(t, err)
	_, err = m.AddInputChannel("B", false)
	require.NoError(t, err)
	out, err := m.AddOutputChannel("MAIN", false, false)
	require.NoError(t, err)

	settle(fc)

	m.SoloInput(a.Index, true)

	fc.constant("A", 1.0, 16)
	fc.constant("B", 1.0, 16)
	fc.process(16)

	buf := out.PortLeft.Buffer(16)
	for i := 0; i < 16; i++ {
		assert.InDelta(t, 1.0, buf[i], 1e-5, "expected only A audible at %d", i)
	}
}

func TestSystemOutputBypassesGlobalSolo(t *testing.T) {
	m, fc := newTestMixer(t)
	a, err := m.AddInputChannel("A", false)
	require.NoError(t, err)
	_, err = m.AddInputChannel("B", false)
	require.NoError(t, err)
	out, err := m.AddOutputChannel("MON", false, true)
	require.NoError(t, err)

	settle(fc)

	m.SoloInput(a.Index, true)

	fc.constant("A", 1.0, 16)
	fc.constant("B", 1.0, 16)
	fc.process(16)

	buf := out.PortLeft.Buffer(16)
	for i := 0; i < 16; i++ {
		assert.InDelta(t, 2.0, buf[i], 1e-5, "system output should mix both A and B despite a global solo elsewhere")
	}
}

func TestOutputMuteSilencesHostBuffer(t *testing.T) {
	m, fc := newTestMixer(t)
	_, err := m.AddInputChannel("in1", false)
	require.NoError(t, err)
	out, err := m.AddOutputChannel("MAIN", false, false)
	require.NoError(t, err)
	out.Mute()

	settle(fc)

	fc.constant("in1", 1.0, 16)
	fc.process(16)

	buf := out.PortLeft.Buffer(16)
	for i := 0; i < 16; i++ {
		assert.Equal(t, float32(0), buf[i])
	}
}

func TestSilencePreservation(t *testing.T) {
	m, fc := newTestMixer(t)
	_, err := m.AddInputChannel("in1", false)
	require.NoError(t, err)
	out, err := m.AddOutputChannel("MAIN", true, false)
	require.NoError(t, err)

	settle(fc)

	fc.constant("in1", 0.0, 16)
	fc.process(16)

	left := out.PortLeft.Buffer(16)
	right := out.PortRight.Buffer(16)
	for i := 0; i < 16; i++ {
		assert.Equal(t, float32(0), left[i])
		assert.Equal(t, float32(0), right[i])
	}
}

func TestCCVolumeLearnAndPickup(t *testing.T) {
	m, fc := newTestMixer(t)
	m.SetMIDIBehavior(midicc.PickUp)
	in, err := m.AddInputChannel("in1", false)
	require.NoError(t, err)
	s := scale.Standard()
	in.SetMIDIScale(s)

	require.NoError(t, m.SetMIDICC(in.Index, midicc.ParamVolume, 7))

	in.SetVolumeDB(-6)
	settle(fc)

	ccEquivalent := midicc.VolumeCC(-6, s)
	decoy := (ccEquivalent + 20) % 128

	sendCC(fc, 7, decoy)
	fc.process(1)
	assert.InDelta(t, -6.0, in.VolumeDB(), 0.5)
	assert.False(t, in.MIDI.VolumePickedUp, "an unrelated CC value must not latch pick-up")

	sendCC(fc, 7, ccEquivalent)
	fc.process(1)
	assert.True(t, in.MIDI.VolumePickedUp, "the quantized-equivalent CC value must latch pick-up")

	sendCC(fc, 7, 0)
	fc.process(600)
	assert.Less(t, in.VolumeDB(), -60.0, "once latched, CC must drive the target")
}

func TestCCVolumePickupSurvivesContinuedMotion(t *testing.T) {
	m, fc := newTestMixer(t)
	m.SetMIDIBehavior(midicc.PickUp)
	in, err := m.AddInputChannel("in1", false)
	require.NoError(t, err)
	s := scale.Standard()
	in.SetMIDIScale(s)

	require.NoError(t, m.SetMIDICC(in.Index, midicc.ParamVolume, 7))

	in.SetVolumeDB(-6)
	settle(fc)

	ccEquivalent := midicc.VolumeCC(-6, s)
	sendCC(fc, 7, ccEquivalent)
	fc.process(1)
	require.True(t, in.MIDI.VolumePickedUp, "the quantized-equivalent CC value must latch pick-up")

	// A continuously-moving MIDI fader sends many distinct CC values in a
	// row after latching. None of them is the post-latch write applyCC
	// itself made, so the latch must survive every one of them.
	sendCC(fc, 7, 40)
	fc.process(1)
	assert.True(t, in.MIDI.VolumePickedUp, "latch must survive the first post-latch CC")

	sendCC(fc, 7, 80)
	fc.process(1)
	assert.True(t, in.MIDI.VolumePickedUp, "latch must survive a second, different post-latch CC")

	sendCC(fc, 7, 20)
	fc.process(1)
	assert.True(t, in.MIDI.VolumePickedUp, "latch must survive continued fader motion")
}

func TestMIDIOutEcho(t *testing.T) {
	m, fc := newTestMixer(t)
	in, err := m.AddInputChannel("in1", false)
	require.NoError(t, err)
	in.SetMIDIScale(scale.Standard())
	require.NoError(t, m.SetMIDICC(in.Index, midicc.ParamVolume, 11))

	settle(fc)

	in.SetVolumeDB(-3)
	fc.process(8)

	require.Len(t, fc.midiOut.messages, 1)
	msg := fc.midiOut.messages[0]
	assert.Equal(t, byte(0xB0), msg[0])
	assert.Equal(t, byte(11), msg[1])
	expected := midicc.VolumeCC(in.VolumeDB(), scale.Standard())
	assert.InDelta(t, expected, int(msg[2]), 1)
}

func TestCCIdempotenceNoDuplicateEcho(t *testing.T) {
	m, fc := newTestMixer(t)
	in, err := m.AddInputChannel("in1", false)
	require.NoError(t, err)
	in.SetMIDIScale(scale.Standard())
	require.NoError(t, m.SetMIDICC(in.Index, midicc.ParamVolume, 11))
	settle(fc)

	sendCC(fc, 11, 100)
	fc.process(8)
	require.Len(t, fc.midiOut.messages, 1)

	sendCC(fc, 11, 100)
	fc.process(8)
	assert.Empty(t, fc.midiOut.messages, "sending the same CC value twice must not re-echo")
}
