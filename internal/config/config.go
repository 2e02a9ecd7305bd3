// Package config loads the mixer's constructor options from a TOML
// startup file, for the cmd/ binaries. The engine library itself never
// parses config files directly - it takes an in-memory mixer.Options
// value - so this package is strictly a cmd/ concern.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/jackmix/jackmix/internal/midicc"
	"github.com/jackmix/jackmix/internal/mixer"
)

// File is the on-disk shape of a startup configuration file.
type File struct {
	ClientName   string          `toml:"client_name"`
	StereoMain   bool            `toml:"stereo_main"`
	MIDIBehavior string          `toml:"midi_behavior"` // "jump_to_value" | "pick_up"
	KMetering    bool            `toml:"kmetering"`
	Inputs       []ChannelConfig `toml:"input"`
	Outputs      []OutputConfig  `toml:"output"`
}

// ChannelConfig seeds one input channel at startup.
type ChannelConfig struct {
	Name   string `toml:"name"`
	Stereo bool   `toml:"stereo"`
}

// OutputConfig seeds one output channel at startup.
type OutputConfig struct {
	Name   string `toml:"name"`
	Stereo bool   `toml:"stereo"`
	System bool   `toml:"system"`
}

// Load parses path into a File.
func Load(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &f, nil
}

// Options converts the decoded file into mixer.Options, defaulting an
// unrecognized or empty midi_behavior to JumpToValue.
func (f *File) Options() mixer.Options {
	behavior := midicc.JumpToValue
	if f.MIDIBehavior == "pick_up" {
		behavior = midicc.PickUp
	}
	return mixer.Options{
		ClientName:   f.ClientName,
		StereoMain:   f.StereoMain,
		MIDIBehavior: behavior,
		KMetering:    f.KMetering,
	}
}
