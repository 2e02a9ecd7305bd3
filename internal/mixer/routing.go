package mixer

// SetOutputSoloInput adds or removes an input from one output's
// per-output solo set.
func (m *Mixer) SetOutputSoloInput(outputIndex, inputIndex int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.chans[outputIndex]
	if !ok || e.output == nil {
		return errNotFound
	}
	e.output.SetSoloInput(inputIndex, on)
	return nil
}

// SetOutputMutedInput adds or removes an input from one output's
// per-output mute set.
func (m *Mixer) SetOutputMutedInput(outputIndex, inputIndex int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.chans[outputIndex]
	if !ok || e.output == nil {
		return errNotFound
	}
	e.output.SetMutedInput(inputIndex, on)
	return nil
}

// SetOutputPrefaderInput adds or removes an input from one output's
// per-output forced-prefader set.
func (m *Mixer) SetOutputPrefaderInput(outputIndex, inputIndex int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.chans[outputIndex]
	if !ok || e.output == nil {
		return errNotFound
	}
	e.output.SetPrefaderInput(inputIndex, on)
	return nil
}

// SetOutputPrefader toggles the output-level pre-fader bypass.
func (m *Mixer) SetOutputPrefader(outputIndex int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.chans[outputIndex]
	if !ok || e.output == nil {
		return errNotFound
	}
	e.output.SetPrefader(on)
	return nil
}
