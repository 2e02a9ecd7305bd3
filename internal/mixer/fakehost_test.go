package mixer

import (
	"github.com/jackmix/jackmix/internal/dsp"
	"github.com/jackmix/jackmix/internal/host"
)

// fakePort is an in-memory stand-in for a JACK port, just large enough to
// drive the mixer's process callback in tests without a real host.
type fakePort struct {
	name      string
	buf       []float32
	connected bool
}

func (p *fakePort) Name() string                 { return p.name }
func (p *fakePort) Buffer(nframes int) []float32 { return p.buf[:nframes] }
func (p *fakePort) Connected() bool              { return p.connected }

type fakeMIDIIn struct {
	events []host.MIDIEvent
}

func (f *fakeMIDIIn) EventCount() int            { return len(f.events) }
func (f *fakeMIDIIn) Event(i int) host.MIDIEvent { return f.events[i] }

type fakeMIDIOut struct {
	messages [][]byte
}

func (f *fakeMIDIOut) Clear() { f.messages = nil }

func (f *fakeMIDIOut) Reserve(time uint32, size int) ([]byte, error) {
	buf := make([]byte, size)
	f.messages = append(f.messages, buf)
	return buf, nil
}

type fakeClient struct {
	sampleRate float64
	period     int
	ports      map[string]*fakePort
	midiIn     *fakeMIDIIn
	midiOut    *fakeMIDIOut
	process    host.ProcessFunc
}

func newFakeClient(sampleRate float64, period int) *fakeClient {
	return &fakeClient{
		sampleRate: sampleRate,
		period:     period,
		ports:      make(map[string]*fakePort),
		midiIn:     &fakeMIDIIn{},
		midiOut:    &fakeMIDIOut{},
	}
}

func (c *fakeClient) SampleRate() float64 { return c.sampleRate }
func (c *fakeClient) BufferSize() int     { return c.period }

func (c *fakeClient) RegisterPort(name string, dir host.PortDirection, kind host.PortKind) (host.Port, error) {
	p := &fakePort{name: name, buf: make([]float32, dsp.MaxBlockSize), connected: true}
	c.ports[name] = p
	return p, nil
}

func (c *fakeClient) RenamePort(p host.Port, newName string) error {
	fp := p.(*fakePort)
	delete(c.ports, fp.name)
	fp.name = newName
	c.ports[newName] = fp
	return nil
}

func (c *fakeClient) UnregisterPort(p host.Port) error {
	delete(c.ports, p.Name())
	return nil
}

func (c *fakeClient) MIDIIn() host.MIDIIn   { return c.midiIn }
func (c *fakeClient) MIDIOut() host.MIDIOut { return c.midiOut }

func (c *fakeClient) SetProcessCallback(cb host.ProcessFunc) error {
	c.process = cb
	return nil
}

func (c *fakeClient) SetBufferSizeCallback(cb func(int) error) error { return nil }
func (c *fakeClient) Activate() error                                { return nil }
func (c *fakeClient) Close() error                                   { return nil }

// fill copies vs into the named port's buffer and pads the remainder with
// the last value, so a caller can process a longer period than len(vs).
func (c *fakeClient) fill(portName string, vs []float32) {
	p := c.ports[portName]
	copy(p.buf, vs)
	if len(vs) > 0 {
		last := vs[len(vs)-1]
		for i := len(vs); i < len(p.buf); i++ {
			p.buf[i] = last
		}
	}
}

func (c *fakeClient) constant(portName string, v float32, n int) {
	p := c.ports[portName]
	for i := 0; i < n; i++ {
		p.buf[i] = v
	}
}
