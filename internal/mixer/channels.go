package mixer

import (
	"github.com/jackmix/jackmix/internal/channel"
	"github.com/jackmix/jackmix/internal/host"
	"github.com/jackmix/jackmix/internal/mixererr"
	"github.com/jackmix/jackmix/internal/mixerlog"
)

// AddInputChannel creates, registers, and prepends a new input channel.
// On any failure every port already registered for this call is
// unregistered before the error is returned, so the caller never
// observes a partially-constructed channel.
func (m *Mixer) AddInputChannel(name string, stereo bool) (*channel.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameTaken(name) {
		return nil, mixererr.New(mixererr.ChannelNameAlloc, "AddInputChannel", nil)
	}

	left, right, err := m.registerPortPair(name, host.DirInput, stereo)
	if err != nil {
		return nil, err
	}

	idx := m.nextIndex
	m.nextIndex++

	ch := channel.New(idx, name, stereo, m.sampleRate, m.period)
	ch.PortLeft = left
	ch.PortRight = right

	m.chans[idx] = &entry{index: idx, kind: channel.KindInput, ch: ch}
	m.inputOrder = append([]int{idx}, m.inputOrder...)

	m.logger.Log(mixerlog.ComponentMixer, mixerlog.LevelInfo, "input channel added",
		"name", name, "index", idx, "stereo", stereo)
	return ch, nil
}

// AddOutputChannel creates, registers, and prepends a new output channel.
func (m *Mixer) AddOutputChannel(name string, stereo bool, system bool) (*channel.OutputChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameTaken(name) {
		return nil, mixererr.New(mixererr.ChannelNameAlloc, "AddOutputChannel", nil)
	}

	left, right, err := m.registerPortPair(name, host.DirOutput, stereo)
	if err != nil {
		return nil, err
	}

	idx := m.nextIndex
	m.nextIndex++

	oc := channel.NewOutput(idx, name, stereo, system, m.sampleRate, m.period)
	oc.PortLeft = left
	oc.PortRight = right

	m.chans[idx] = &entry{index: idx, kind: channel.KindOutput, ch: &oc.Channel, output: oc}
	m.outputOrder = append([]int{idx}, m.outputOrder...)

	m.logger.Log(mixerlog.ComponentMixer, mixerlog.LevelInfo, "output channel added",
		"name", name, "index", idx, "stereo", stereo, "system", system)
	return oc, nil
}

// RemoveInputChannel unregisters its ports, clears every CC binding and
// output routing-set reference to it, and frees its slab entry.
func (m *Mixer) RemoveInputChannel(idx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.chans[idx]
	if !ok || e.kind != channel.KindInput {
		return errNotFound
	}

	m.unregisterChannelPorts(e.ch)
	m.registry.UnbindChannel(idx)
	m.clearGlobalSolo(idx)
	for _, oidx := range m.outputOrder {
		m.chans[oidx].output.RemoveInputReferences(idx)
	}

	delete(m.chans, idx)
	m.inputOrder = removeIndex(m.inputOrder, idx)
	m.logger.Log(mixerlog.ComponentMixer, mixerlog.LevelInfo, "input channel removed", "index", idx)
	return nil
}

// RemoveOutputChannel unregisters its ports, clears its CC bindings, and
// frees its slab entry. No other channel holds a reference to an output.
func (m *Mixer) RemoveOutputChannel(idx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.chans[idx]
	if !ok || e.kind != channel.KindOutput {
		return errNotFound
	}

	m.unregisterChannelPorts(e.ch)
	m.registry.UnbindChannel(idx)

	delete(m.chans, idx)
	m.outputOrder = removeIndex(m.outputOrder, idx)
	m.logger.Log(mixerlog.ComponentMixer, mixerlog.LevelInfo, "output channel removed", "index", idx)
	return nil
}

func (m *Mixer) nameTaken(name string) bool {
	for _, e := range m.chans {
		if e.ch.Name == name {
			return true
		}
	}
	return false
}

// registerPortPair registers one port for a mono channel or two
// ("<name> L"/"<name> R") for a stereo one, unwinding the left port if
// the right one fails.
func (m *Mixer) registerPortPair(name string, dir host.PortDirection, stereo bool) (left, right host.Port, err error) {
	if !stereo {
		left, err = m.client.RegisterPort(name, dir, host.KindAudio)
		if err != nil {
			return nil, nil, mixererr.New(mixererr.PortRegister, "registerPortPair", err)
		}
		return left, nil, nil
	}

	left, err = m.client.RegisterPort(name+" L", dir, host.KindAudio)
	if err != nil {
		return nil, nil, mixererr.New(mixererr.PortRegisterLeft, "registerPortPair", err)
	}
	right, err = m.client.RegisterPort(name+" R", dir, host.KindAudio)
	if err != nil {
		_ = m.client.UnregisterPort(left)
		return nil, nil, mixererr.New(mixererr.PortRegisterRight, "registerPortPair", err)
	}
	return left, right, nil
}

func (m *Mixer) unregisterChannelPorts(ch *channel.Channel) {
	if ch.PortLeft != nil {
		if err := m.client.UnregisterPort(ch.PortLeft); err != nil {
			m.logger.Log(mixerlog.ComponentMixer, mixerlog.LevelWarn, "port unregister failed",
				"name", ch.PortLeft.Name(), "err", err)
		}
	}
	if ch.PortRight != nil {
		if err := m.client.UnregisterPort(ch.PortRight); err != nil {
			m.logger.Log(mixerlog.ComponentMixer, mixerlog.LevelWarn, "port unregister failed",
				"name", ch.PortRight.Name(), "err", err)
		}
	}
}

// RenameChannel renames a channel and its host port(s) in lockstep.
func (m *Mixer) RenameChannel(idx int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.chans[idx]
	if !ok {
		return errNotFound
	}
	if m.nameTaken(name) {
		return mixererr.New(mixererr.ChannelNameAlloc, "RenameChannel", nil)
	}

	stereo := e.ch.Stereo
	leftName, rightName := name, ""
	if stereo {
		leftName, rightName = name+" L", name+" R"
	}
	if err := m.client.RenamePort(e.ch.PortLeft, leftName); err != nil {
		kind := mixererr.JackRenamePort
		if stereo {
			kind = mixererr.JackRenamePortLeft
		}
		return mixererr.New(kind, "RenameChannel", err)
	}
	if stereo {
		if err := m.client.RenamePort(e.ch.PortRight, rightName); err != nil {
			return mixererr.New(mixererr.JackRenamePortRight, "RenameChannel", err)
		}
	}
	e.ch.Rename(name)
	return nil
}

func removeIndex(order []int, idx int) []int {
	for i, v := range order {
		if v == idx {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
