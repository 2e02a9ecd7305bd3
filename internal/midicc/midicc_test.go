package midicc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackmix/jackmix/internal/scale"
)

func TestRegistryBindUnbindBijection(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Bind(11, 3, ParamVolume))
	b := r.Lookup(11)
	require.NotNil(t, b)
	assert.Equal(t, 3, b.ChannelIndex)
	assert.Equal(t, ParamVolume, b.Param)

	r.Unbind(11)
	assert.Nil(t, r.Lookup(11))
}

func TestBindReplacesPriorOccupant(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Bind(20, 1, ParamMute))
	require.NoError(t, r.Bind(20, 2, ParamSolo))

	b := r.Lookup(20)
	require.NotNil(t, b)
	assert.Equal(t, 2, b.ChannelIndex)
	assert.Equal(t, ParamSolo, b.Param)
}

func TestAutoassignExhaustion(t *testing.T) {
	r := NewRegistry()
	for cc := autoAssignFirst; cc <= 127; cc++ {
		_, err := r.Autoassign(cc, ParamVolume)
		require.NoError(t, err)
	}
	_, err := r.Autoassign(0, ParamVolume)
	require.Error(t, err)
}

func TestUnbindChannelClearsAllItsSlots(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Bind(11, 5, ParamVolume))
	require.NoError(t, r.Bind(12, 5, ParamBalance))
	require.NoError(t, r.Bind(13, 6, ParamVolume))

	r.UnbindChannel(5)

	assert.Nil(t, r.Lookup(11))
	assert.Nil(t, r.Lookup(12))
	assert.NotNil(t, r.Lookup(13))
}

func TestBalanceMapping(t *testing.T) {
	assert.InDelta(t, -1.0, BalanceValue(0), 1e-9)
	assert.InDelta(t, -1.0/64.0, BalanceValue(63), 1e-9)
	assert.Equal(t, 0.0, BalanceValue(64))
	assert.InDelta(t, 1.0, BalanceValue(127), 1e-9)
}

func TestVolumeCCRoundTrip(t *testing.T) {
	s := scale.Standard()
	for _, cc := range []int{0, 40, 64, 100, 127} {
		db := VolumeTargetDB(cc, s)
		back := VolumeCC(db, s)
		assert.Equal(t, cc, back, "cc=%d db=%v", cc, db)
	}
}

func TestPickupLatchConditions(t *testing.T) {
	s := scale.Standard()
	// -6dB on the standard -70..0 scale.
	cc := VolumeCC(-6, s)
	assert.True(t, VolumeCCMatchesCurrent(cc, -6, s))
	assert.False(t, VolumeCCMatchesCurrent(0, -6, s))

	assert.True(t, BalanceCCMatchesCurrent(64, 0))
	assert.False(t, BalanceCCMatchesCurrent(0, 0))
}

func TestMuteFromCC(t *testing.T) {
	assert.False(t, MuteFromCC(63))
	assert.True(t, MuteFromCC(64))
	assert.True(t, MuteFromCC(127))
}
