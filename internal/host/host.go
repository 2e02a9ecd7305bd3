// Package host declares the contract the engine needs from a host audio
// graph client. JACK itself - port registration, buffer acquisition, the
// per-period callback, MIDI event iteration - is an external
// collaborator interfaced only through this contract; no concrete JACK
// binding is imported by the engine core.
package host

// PortDirection is which way audio/MIDI flows through a port.
type PortDirection uint8

const (
	DirInput PortDirection = iota
	DirOutput
)

// PortKind distinguishes audio ports from the MIDI in/out ports.
type PortKind uint8

const (
	KindAudio PortKind = iota
	KindMIDI
)

// Port is a single registered audio port. Buffer must return a slice
// backed by host memory valid until the next call into the host client;
// implementations must not allocate it per call from within the audio
// callback.
type Port interface {
	Name() string
	Buffer(nframes int) []float32
	Connected() bool
}

// MIDIEvent is one parsed incoming MIDI message, as the host's event
// iterator would hand it to the process callback.
type MIDIEvent struct {
	Time uint32
	Data []byte
}

// MIDIIn is the host's MIDI input port, iterated once per period.
type MIDIIn interface {
	EventCount() int
	Event(i int) MIDIEvent
}

// MIDIOut is the host's MIDI output port. Clear must be called once at
// the top of the period before any Reserve calls.
type MIDIOut interface {
	Clear()
	Reserve(time uint32, size int) ([]byte, error)
}

// ProcessFunc is the per-period callback the engine registers with the
// host; it returns a non-zero status to signal the host to stop calling
// back (mirrors JACK's process-callback contract).
type ProcessFunc func(nframes int) int

// Client is everything the engine needs from the host audio graph
// client library.
type Client interface {
	SampleRate() float64
	BufferSize() int

	RegisterPort(name string, dir PortDirection, kind PortKind) (Port, error)
	RenamePort(p Port, newName string) error
	UnregisterPort(p Port) error

	MIDIIn() MIDIIn
	MIDIOut() MIDIOut

	SetProcessCallback(cb ProcessFunc) error
	SetBufferSizeCallback(cb func(nframes int) error) error

	Activate() error
	Close() error
}
