package mixer

import "github.com/jackmix/jackmix/internal/channel"

// ChannelInfo is a read-only snapshot of a channel's identity, handed out
// to monitoring front-ends. It carries no control surface - only identity.
type ChannelInfo struct {
	Index  int
	Name   string
	Stereo bool
	Kind   channel.Kind
}

// Inputs returns a snapshot of every input channel's identity, in mixer
// order (most recently added first).
func (m *Mixer) Inputs() []ChannelInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChannelInfo, 0, len(m.inputOrder))
	for _, idx := range m.inputOrder {
		e := m.chans[idx]
		out = append(out, ChannelInfo{Index: e.index, Name: e.ch.Name, Stereo: e.ch.Stereo, Kind: channel.KindInput})
	}
	return out
}

// Outputs returns a snapshot of every output channel's identity.
func (m *Mixer) Outputs() []ChannelInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChannelInfo, 0, len(m.outputOrder))
	for _, idx := range m.outputOrder {
		e := m.chans[idx]
		out = append(out, ChannelInfo{Index: e.index, Name: e.ch.Name, Stereo: e.ch.Stereo, Kind: channel.KindOutput})
	}
	return out
}
