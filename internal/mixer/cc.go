package mixer

import (
	"github.com/jackmix/jackmix/internal/channel"
	"github.com/jackmix/jackmix/internal/midicc"
	"github.com/jackmix/jackmix/internal/mixerlog"
)

// SetMIDICC binds cc to (channelIndex, param), first clearing whatever
// that CC was previously bound to and whatever this channel's parameter
// was previously bound to.
func (m *Mixer) SetMIDICC(channelIndex int, param midicc.ParamKind, cc int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.chans[channelIndex]
	if !ok {
		return errNotFound
	}
	if prev := e.ch.MIDICCIndex(param); prev >= 0 {
		m.registry.Unbind(prev)
	}
	if old := m.registry.Lookup(cc); old != nil {
		if oe, ok := m.chans[old.ChannelIndex]; ok {
			oe.ch.SetMIDICCIndex(old.Param, -1)
		}
	}
	if err := m.registry.Bind(cc, channelIndex, param); err != nil {
		return err
	}
	e.ch.SetMIDICCIndex(param, cc)
	return nil
}

// AutosetMIDICC auto-assigns the next free CC slot to (channelIndex,
// param).
func (m *Mixer) AutosetMIDICC(channelIndex int, param midicc.ParamKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.chans[channelIndex]
	if !ok {
		return -1, errNotFound
	}
	if prev := e.ch.MIDICCIndex(param); prev >= 0 {
		m.registry.Unbind(prev)
	}
	cc, err := m.registry.Autoassign(channelIndex, param)
	if err != nil {
		return -1, err
	}
	e.ch.SetMIDICCIndex(param, cc)
	return cc, nil
}

// ClearMIDICC unsets channelIndex's binding for param without assigning
// a replacement.
func (m *Mixer) ClearMIDICC(channelIndex int, param midicc.ParamKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.chans[channelIndex]
	if !ok {
		return errNotFound
	}
	if prev := e.ch.MIDICCIndex(param); prev >= 0 {
		m.registry.Unbind(prev)
	}
	e.ch.SetMIDICCIndex(param, -1)
	return nil
}

// processMIDIIn parses the host's MIDI-in buffer for this period and
// applies every recognized Control Change. Malformed events are
// silently skipped.
func (m *Mixer) processMIDIIn() {
	if m.midiIn == nil {
		return
	}
	n := m.midiIn.EventCount()
	for i := 0; i < n; i++ {
		ev := m.midiIn.Event(i)
		if len(ev.Data) != 3 {
			continue
		}
		status, d1, d2 := ev.Data[0], ev.Data[1], ev.Data[2]
		if status&0xF0 != 0xB0 || d1 > 127 || d2 > 127 {
			continue
		}

		cc, value := int(d1), int(d2)
		m.registry.SetLastCC(cc)

		b := m.registry.Lookup(cc)
		if b == nil {
			continue
		}
		e, ok := m.chans[b.ChannelIndex]
		if !ok {
			continue
		}
		m.applyCC(e, b.Param, cc, value)
	}
}

// applyCC dispatches one recognized CC event onto the addressed
// channel's parameter, honoring JumpToValue/PickUp behavior.
func (m *Mixer) applyCC(e *entry, param midicc.ParamKind, cc, value int) {
	ch := e.ch

	switch param {
	case midicc.ParamVolume:
		if ch.MIDIScale == nil {
			return
		}
		if m.behavior == midicc.PickUp && !ch.MIDI.VolumePickedUp {
			if midicc.VolumeCCMatchesCurrent(value, ch.VolumeDB(), ch.MIDIScale) {
				ch.MIDI.VolumePickedUp = true
			}
			return
		}
		before := ch.MIDIOutPending
		ch.SetVolumeDBFromMIDI(midicc.VolumeTargetDB(value, ch.MIDIScale))
		if ch.MIDIOutPending != before {
			ch.NotifyMIDIIn()
		}

	case midicc.ParamBalance:
		if m.behavior == midicc.PickUp && !ch.MIDI.BalancePickedUp {
			if midicc.BalanceCCMatchesCurrent(value, ch.Balance) {
				ch.MIDI.BalancePickedUp = true
			}
			return
		}
		before := ch.MIDIOutPending
		ch.SetBalanceFromMIDI(midicc.BalanceValue(value))
		if ch.MIDIOutPending != before {
			ch.NotifyMIDIIn()
		}

	case midicc.ParamMute:
		before := ch.MIDIOutPending
		if midicc.MuteFromCC(value) {
			ch.Mute()
		} else {
			ch.Unmute()
		}
		if ch.MIDIOutPending != before {
			ch.NotifyMIDIIn()
		}

	case midicc.ParamSolo:
		solo := midicc.MuteFromCC(value)
		wasSolo := m.isGloballySoloed(e.index)
		if solo == wasSolo {
			return
		}
		// Called from the audio thread: publish via the same
		// copy-on-write swap SoloInput uses, without taking mu.
		m.publishGlobalSolo(e.index, solo)
		ch.MIDIOutPending |= channel.MIDIOutSolo
		ch.NotifyMIDIIn()
	}
}

// emitMIDIOut writes one CC message per parameter changed since the last
// period, for every channel with pending bits, then clears them. Failed
// reservations are dropped silently - feedback is best-effort.
func (m *Mixer) emitMIDIOut() {
	if m.midiOut == nil {
		return
	}
	m.midiOut.Clear()

	for _, idx := range m.allOrder() {
		e := m.chans[idx]
		ch := e.ch
		pending := ch.MIDIOutPending
		if pending == 0 {
			continue
		}

		if pending&channel.MIDIOutVolume != 0 {
			m.writeCC(ch, midicc.ParamVolume, m.volumeCCValue(ch))
		}
		if pending&channel.MIDIOutBalance != 0 {
			m.writeCC(ch, midicc.ParamBalance, midicc.BalanceCC(ch.BalanceNew))
		}
		if pending&channel.MIDIOutMute != 0 {
			v := 0
			if ch.Muted {
				v = 127
			}
			m.writeCC(ch, midicc.ParamMute, v)
		}
		if pending&channel.MIDIOutSolo != 0 {
			v := 0
			if m.isGloballySoloed(idx) {
				v = 127
			}
			m.writeCC(ch, midicc.ParamSolo, v)
		}

		ch.MIDIOutPending = 0
	}
}

func (m *Mixer) volumeCCValue(ch *channel.Channel) int {
	if ch.MIDIScale == nil {
		return 0
	}
	return midicc.VolumeCC(ch.VolumeDB(), ch.MIDIScale)
}

func (m *Mixer) writeCC(ch *channel.Channel, param midicc.ParamKind, value int) {
	cc := ch.MIDICCIndex(param)
	if cc < 0 {
		return
	}
	buf, err := m.midiOut.Reserve(0, 3)
	if err != nil {
		m.logger.Log(mixerlog.ComponentMIDI, mixerlog.LevelWarn, "midi-out reserve failed",
			"cc", cc, "err", err)
		return
	}
	buf[0] = 0xB0
	buf[1] = byte(cc)
	buf[2] = byte(value)
}
