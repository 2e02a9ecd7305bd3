// Package bindings loads and hot-reloads a YAML preset of MIDI CC
// bindings, applying it through the mixer's public control-thread API
// (Mixer.SetMIDICC). This is distinct from persistent
// session files: a preset only seeds the CC registry at startup (and on
// reload), never dumps or restores channel gain/routing state.
package bindings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/jackmix/jackmix/internal/midicc"
	"github.com/jackmix/jackmix/internal/mixer"
	"github.com/jackmix/jackmix/internal/mixerlog"
)

// Binding names one channel parameter's CC assignment by channel name,
// since a channel's slab index is only assigned at runtime.
type Binding struct {
	Channel string `yaml:"channel"`
	Param   string `yaml:"param"` // "volume" | "balance" | "mute" | "solo"
	CC      int    `yaml:"cc"`
}

// Preset is the on-disk shape of a CC-binding preset file.
type Preset struct {
	Bindings []Binding `yaml:"bindings"`
}

// Load parses path into a Preset.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bindings: read %s: %w", path, err)
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("bindings: parse %s: %w", path, err)
	}
	return &p, nil
}

// Save writes p to path as YAML, for a UI's "save preset" action.
func Save(path string, p *Preset) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("bindings: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func paramKind(s string) (midicc.ParamKind, error) {
	switch s {
	case "volume":
		return midicc.ParamVolume, nil
	case "balance":
		return midicc.ParamBalance, nil
	case "mute":
		return midicc.ParamMute, nil
	case "solo":
		return midicc.ParamSolo, nil
	default:
		return 0, fmt.Errorf("bindings: unknown param %q", s)
	}
}

// Apply binds every entry in p against m, resolving channel names against
// the mixer's current input and output listing. A channel name that isn't
// found is reported but does not abort the remaining bindings.
func Apply(m *mixer.Mixer, p *Preset, logger mixerlog.Logger) error {
	if logger == nil {
		logger = mixerlog.Nop{}
	}
	byName := make(map[string]int)
	for _, ci := range m.Inputs() {
		byName[ci.Name] = ci.Index
	}
	for _, ci := range m.Outputs() {
		byName[ci.Name] = ci.Index
	}

	var firstErr error
	for _, b := range p.Bindings {
		idx, ok := byName[b.Channel]
		if !ok {
			logger.Log(mixerlog.ComponentCC, mixerlog.LevelWarn, "bindings: unknown channel", "channel", b.Channel)
			continue
		}
		param, err := paramKind(b.Param)
		if err != nil {
			logger.Log(mixerlog.ComponentCC, mixerlog.LevelWarn, "bindings: bad param", "channel", b.Channel, "param", b.Param)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := m.SetMIDICC(idx, param, b.CC); err != nil {
			logger.Log(mixerlog.ComponentCC, mixerlog.LevelWarn, "bindings: bind failed",
				"channel", b.Channel, "param", b.Param, "cc", b.CC, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Watcher re-applies path's preset to a mixer whenever the file changes on
// disk, via fsnotify.
type Watcher struct {
	fsw    *fsnotify.Watcher
	path   string
	m      *mixer.Mixer
	logger mixerlog.Logger
	done   chan struct{}
}

// Watch loads path once, applies it, then starts watching it for further
// writes. Close stops the watch goroutine.
func Watch(path string, m *mixer.Mixer, logger mixerlog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = mixerlog.Nop{}
	}
	preset, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := Apply(m, preset, logger); err != nil {
		logger.Log(mixerlog.ComponentCC, mixerlog.LevelWarn, "bindings: initial apply had errors", "err", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("bindings: fsnotify: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("bindings: watch %s: %w", path, err)
	}

	w := &Watcher{fsw: fsw, path: path, m: m, logger: logger, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	abs, _ := filepath.Abs(w.path)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			evAbs, _ := filepath.Abs(ev.Name)
			if evAbs != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			preset, err := Load(w.path)
			if err != nil {
				w.logger.Log(mixerlog.ComponentCC, mixerlog.LevelWarn, "bindings: reload failed", "err", err)
				continue
			}
			if err := Apply(w.m, preset, w.logger); err != nil {
				w.logger.Log(mixerlog.ComponentCC, mixerlog.LevelWarn, "bindings: reload apply had errors", "err", err)
			} else {
				w.logger.Log(mixerlog.ComponentCC, mixerlog.LevelInfo, "bindings: reloaded", "path", w.path)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Log(mixerlog.ComponentCC, mixerlog.LevelWarn, "bindings: watch error", "err", err)
		}
	}
}

func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
