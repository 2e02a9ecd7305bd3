package channel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOutputDefaultsUnityCenterSteadyEmptyRoutingSets(t *testing.T) {
	oc := NewOutput(0, "MAIN", true, false, 48000, 64)
	assert.Equal(t, 1.0, oc.Volume)
	assert.Equal(t, 0.0, oc.Balance)
	assert.Empty(t, oc.SoloedInputs())
	assert.Empty(t, oc.MutedInputs())
	assert.Empty(t, oc.PrefaderInputs())
}

func TestRoutingSetMembershipRoundTrip(t *testing.T) {
	oc := NewOutput(0, "MAIN", true, false, 48000, 64)
	oc.SetSoloInput(3, true)
	oc.SetSoloInput(5, true)
	assert.Contains(t, oc.SoloedInputs(), 3)
	assert.Contains(t, oc.SoloedInputs(), 5)

	oc.SetSoloInput(3, false)
	assert.NotContains(t, oc.SoloedInputs(), 3)
	assert.Contains(t, oc.SoloedInputs(), 5)
}

func TestRemoveInputReferencesClearsAllThreeSets(t *testing.T) {
	oc := NewOutput(0, "MAIN", true, false, 48000, 64)
	oc.SetSoloInput(1, true)
	oc.SetMutedInput(1, true)
	oc.SetPrefaderInput(1, true)

	oc.RemoveInputReferences(1)

	assert.NotContains(t, oc.SoloedInputs(), 1)
	assert.NotContains(t, oc.MutedInputs(), 1)
	assert.NotContains(t, oc.PrefaderInputs(), 1)
}

// TestRoutingSetSnapshotIsImmutable exercises the RCU contract directly: a
// snapshot returned by an accessor must never reflect a later mutation, since
// the audio thread may still be iterating over what it read.
func TestRoutingSetSnapshotIsImmutable(t *testing.T) {
	oc := NewOutput(0, "MAIN", true, false, 48000, 64)
	oc.SetMutedInput(1, true)
	snap := oc.MutedInputs()

	oc.SetMutedInput(2, true)

	assert.Contains(t, snap, 1)
	assert.NotContains(t, snap, 2, "a snapshot taken before a mutation must not observe it")
}

// TestConcurrentMutationAndReadDoesNotRace drives SetMutedInput from a
// goroutine standing in for the control thread while repeatedly reading
// MutedInputs as the audio thread would, with no locking on the read side.
func TestConcurrentMutationAndReadDoesNotRace(t *testing.T) {
	oc := NewOutput(0, "MAIN", true, false, 48000, 64)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			oc.SetMutedInput(i%8, i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = oc.MutedInputs()
		}
	}()
	wg.Wait()
}

func TestApplyOutputStagePassesThroughWhenPrefader(t *testing.T) {
	oc := NewOutput(0, "MAIN", true, false, 48000, 64)
	oc.Prefader = true
	oc.SetVolumeDB(-20) // should have no audible effect while Prefader is set

	left := []float32{1, 1, 1, 1}
	right := []float32{1, 1, 1, 1}
	oc.ApplyOutputStage(left, right, false)

	for i := range left {
		assert.InDelta(t, 1.0, left[i], 1e-5)
		assert.InDelta(t, 1.0, right[i], 1e-5)
	}
}

func TestApplyOutputStageAppliesGainWhenNotPrefader(t *testing.T) {
	oc := NewOutput(0, "MAIN", true, false, 48000, 64)
	// A settled (non-ramping) half gain, so the assertion does not race a ramp.
	oc.Volume, oc.VolumeNew = 0.5, 0.5

	left := []float32{1, 1, 1, 1}
	right := []float32{1, 1, 1, 1}
	oc.ApplyOutputStage(left, right, false)

	for i := range left {
		assert.InDelta(t, 0.5, left[i], 1e-5)
		assert.InDelta(t, 0.5, right[i], 1e-5)
	}
}

func TestMixBuffersZeroesBeforeReuse(t *testing.T) {
	oc := NewOutput(0, "MAIN", true, false, 48000, 64)
	left, right := oc.MixBuffers(4)
	left[0] = 1
	right[0] = 1

	left2, right2 := oc.MixBuffers(4)
	assert.Equal(t, float32(0), left2[0])
	assert.Equal(t, float32(0), right2[0])
}
