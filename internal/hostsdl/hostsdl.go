// Package hostsdl is a demo host.Client implementation that plays a
// mixer's summed output through an SDL2 audio device with no window, for
// use when a real JACK server is unavailable. It paces the audio
// callback itself from a ticker the way a JACK client would be paced by
// the server's own clock.
package hostsdl

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/jackmix/jackmix/internal/host"
)

// port is a software-only stand-in for a JACK port: a float32 scratch
// buffer the mixer reads from or writes into each period.
type port struct {
	name string
	dir  host.PortDirection
	buf  []float32
}

func (p *port) Name() string                 { return p.name }
func (p *port) Buffer(nframes int) []float32 { return p.buf[:nframes] }
func (p *port) Connected() bool              { return true }

// Client drives the mixer's process callback from a ticker paced to one
// period and queues every registered output port's frames to an SDL audio
// device.
type Client struct {
	mu sync.Mutex

	sessionID  uuid.UUID
	device     sdl.AudioDeviceID
	sampleRate float64
	period     int

	ports map[string]*port

	midiIn  *noopMIDIIn
	midiOut *noopMIDIOut

	process   host.ProcessFunc
	onBufSize func(int) error

	stop chan struct{}
	done chan struct{}
}

// Open initializes SDL's audio subsystem and opens a playback device sized
// for sampleRate/period, ready for RegisterPort and Activate.
func Open(clientName string, sampleRate float64, period int) (*Client, error) {
	if err := sdl.Init(sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("hostsdl: sdl init: %w", err)
	}

	spec := sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   sdl.AUDIO_F32,
		Channels: 2,
		Samples:  uint16(period),
	}
	dev, err := sdl.OpenAudioDevice("", false, &spec, nil, 0)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("hostsdl: open audio device: %w", err)
	}

	c := &Client{
		sessionID:  uuid.New(),
		device:     dev,
		sampleRate: sampleRate,
		period:     period,
		ports:      make(map[string]*port),
		midiIn:     &noopMIDIIn{},
		midiOut:    &noopMIDIOut{},
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	return c, nil
}

func (c *Client) SessionID() string { return c.sessionID.String() }

func (c *Client) SampleRate() float64 { return c.sampleRate }
func (c *Client) BufferSize() int     { return c.period }

func (c *Client) RegisterPort(name string, dir host.PortDirection, kind host.PortKind) (host.Port, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.ports[name]; exists {
		return nil, fmt.Errorf("hostsdl: port %q already registered", name)
	}
	p := &port{name: name, dir: dir, buf: make([]float32, c.period)}
	c.ports[name] = p
	return p, nil
}

func (c *Client) RenamePort(p host.Port, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sp, ok := p.(*port)
	if !ok {
		return fmt.Errorf("hostsdl: not our port")
	}
	delete(c.ports, sp.name)
	sp.name = newName
	c.ports[newName] = sp
	return nil
}

func (c *Client) UnregisterPort(p host.Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ports, p.Name())
	return nil
}

func (c *Client) MIDIIn() host.MIDIIn   { return c.midiIn }
func (c *Client) MIDIOut() host.MIDIOut { return c.midiOut }

func (c *Client) SetProcessCallback(cb host.ProcessFunc) error {
	c.process = cb
	return nil
}

func (c *Client) SetBufferSizeCallback(cb func(int) error) error {
	c.onBufSize = cb
	return nil
}

// Activate starts the period clock: a ticker paced to sampleRate/period
// that invokes the process callback and queues every registered output
// port pair named "<name> L"/"<name> R" (or a mono "<name>") to the SDL
// device, throttled to roughly two periods of backlog the way the
// teacher's UI loop throttles sdl.QueueAudio.
func (c *Client) Activate() error {
	if c.process == nil {
		return fmt.Errorf("hostsdl: Activate called before SetProcessCallback")
	}
	sdl.PauseAudioDevice(c.device, false)

	periodDur := time.Duration(float64(c.period) / c.sampleRate * float64(time.Second))
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(periodDur)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.process(c.period)
				c.queueOutputs()
			}
		}
	}()
	return nil
}

func (c *Client) queueOutputs() {
	c.mu.Lock()
	defer c.mu.Unlock()

	maxQueued := uint32(c.period * 2 * 4 * 2)
	if sdl.GetQueuedAudioSize(c.device) >= maxQueued {
		return
	}

	for name, p := range c.ports {
		if p.dir != host.DirOutput || hasSuffix(name, " R") {
			continue // the " R" half is consumed alongside its " L" pair below
		}

		var left, right *port
		switch {
		case hasSuffix(name, " L"):
			left = p
			right = c.ports[name[:len(name)-2]+" R"]
		default:
			left = p // mono output: duplicate to both SDL channels
		}

		bytes := make([]byte, 0, len(left.buf)*8)
		for i, l := range left.buf {
			r := l
			if right != nil {
				r = right.buf[i]
			}
			bytes = append(bytes, float32Bytes(l)...)
			bytes = append(bytes, float32Bytes(r)...)
		}
		if err := sdl.QueueAudio(c.device, bytes); err != nil {
			return
		}
	}
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// float32Bytes encodes v as little-endian AUDIO_F32 bytes via
// math.Float32bits.
func float32Bytes(v float32) []byte {
	u := math.Float32bits(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

func (c *Client) Close() error {
	close(c.stop)
	<-c.done
	sdl.CloseAudioDevice(c.device)
	sdl.Quit()
	return nil
}

type noopMIDIIn struct{}

func (*noopMIDIIn) EventCount() int            { return 0 }
func (*noopMIDIIn) Event(i int) host.MIDIEvent { return host.MIDIEvent{} }

type noopMIDIOut struct{}

func (*noopMIDIOut) Clear() {}
func (*noopMIDIOut) Reserve(time uint32, size int) ([]byte, error) {
	return nil, fmt.Errorf("hostsdl: no MIDI output device")
}
