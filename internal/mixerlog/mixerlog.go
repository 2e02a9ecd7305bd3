// Package mixerlog defines the Logger contract the engine accepts. The
// logging backend is an external collaborator: the engine never
// hardwires a concrete implementation, only this interface, so a host
// application can plug in whatever it already uses. The included
// implementation adapts github.com/charmbracelet/log.
package mixerlog

import (
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Component names the subsystem that produced a log entry, mirroring the
// way the reference engine's debug logger scopes entries per subsystem.
type Component string

const (
	ComponentScale   Component = "scale"
	ComponentKMeter  Component = "kmeter"
	ComponentCC      Component = "cc"
	ComponentChannel Component = "channel"
	ComponentMixer   Component = "mixer"
	ComponentMIDI    Component = "midi"
	ComponentHost    Component = "host"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is the contract accepted by the mixer. Implementations MUST NOT
// block or allocate in a way that could stall the audio thread; calls
// made from the audio callback (e.g. MIDI-out reserve failures) must be
// fire-and-forget.
type Logger interface {
	Log(component Component, level Level, msg string, kv ...any)
}

// Nop discards everything; useful for tests and for embedders with no
// logging backend configured.
type Nop struct{}

func (Nop) Log(Component, Level, string, ...any) {}

// entry is queued from any thread (including, best-effort, the audio
// callback) and drained by a single background goroutine so that no
// caller ever blocks on the underlying writer.
type entry struct {
	component Component
	level     Level
	msg       string
	kv        []any
}

// Charm adapts charmbracelet/log.Logger behind a bounded, non-blocking
// queue: Log() never blocks, and a full queue silently drops the entry
// rather than stalling the caller.
type Charm struct {
	out     *charmlog.Logger
	queue   chan entry
	done    chan struct{}
	wg      sync.WaitGroup
	minimum Level
}

// NewCharm builds a Charm logger writing through out, filtering entries
// below minimum.
func NewCharm(out *charmlog.Logger, minimum Level) *Charm {
	c := &Charm{
		out:     out,
		queue:   make(chan entry, 1024),
		done:    make(chan struct{}),
		minimum: minimum,
	}
	c.wg.Add(1)
	go c.drain()
	return c
}

func (c *Charm) drain() {
	defer c.wg.Done()
	for {
		select {
		case e := <-c.queue:
			c.write(e)
		case <-c.done:
			for {
				select {
				case e := <-c.queue:
					c.write(e)
				default:
					return
				}
			}
		}
	}
}

func (c *Charm) write(e entry) {
	kv := append([]any{"component", string(e.component)}, e.kv...)
	switch e.level {
	case LevelDebug:
		c.out.Debug(e.msg, kv...)
	case LevelInfo:
		c.out.Info(e.msg, kv...)
	case LevelWarn:
		c.out.Warn(e.msg, kv...)
	default:
		c.out.Error(e.msg, kv...)
	}
}

func (c *Charm) Log(component Component, level Level, msg string, kv ...any) {
	if level < c.minimum {
		return
	}
	select {
	case c.queue <- entry{component: component, level: level, msg: msg, kv: kv}:
	default:
		// Queue full: drop rather than block the caller.
	}
}

// Close stops the drain goroutine after flushing whatever is queued.
func (c *Charm) Close() {
	close(c.done)
	c.wg.Wait()
}
