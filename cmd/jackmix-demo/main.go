// Command jackmix-demo wires a TOML startup configuration, the SDL2 demo
// host client, and the mixer engine core into a runnable process - a
// realistic stand-in for a JACK-hosted mixer client when JACK itself isn't
// available.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/jackmix/jackmix/internal/bindings"
	"github.com/jackmix/jackmix/internal/config"
	"github.com/jackmix/jackmix/internal/hostsdl"
	"github.com/jackmix/jackmix/internal/mixer"
	"github.com/jackmix/jackmix/internal/mixerlog"
)

func main() {
	configPath := flag.StringP("config", "c", "jackmix.toml", "startup configuration file")
	bindingsPath := flag.StringP("bindings", "b", "", "optional MIDI CC bindings preset (YAML), hot-reloaded")
	sampleRate := flag.Float64("sample-rate", 48000, "sample rate in Hz")
	period := flag.Int("period", 256, "frames per period")
	flag.Parse()

	if err := run(*configPath, *bindingsPath, *sampleRate, *period); err != nil {
		fmt.Fprintln(os.Stderr, "jackmix-demo:", err)
		os.Exit(1)
	}
}

func run(configPath, bindingsPath string, sampleRate float64, period int) error {
	logger := mixerlog.NewCharm(charmlog.New(os.Stderr), mixerlog.LevelInfo)
	defer logger.Close()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := hostsdl.Open(cfg.ClientName, sampleRate, period)
	if err != nil {
		return fmt.Errorf("open host client: %w", err)
	}
	defer client.Close()

	m, err := mixer.New(client, cfg.Options(), logger)
	if err != nil {
		return fmt.Errorf("open mixer: %w", err)
	}
	defer m.Close()

	for _, in := range cfg.Inputs {
		if _, err := m.AddInputChannel(in.Name, in.Stereo); err != nil {
			return fmt.Errorf("add input %q: %w", in.Name, err)
		}
	}
	for _, out := range cfg.Outputs {
		if _, err := m.AddOutputChannel(out.Name, out.Stereo, out.System); err != nil {
			return fmt.Errorf("add output %q: %w", out.Name, err)
		}
	}

	if bindingsPath != "" {
		w, err := bindings.Watch(bindingsPath, m, logger)
		if err != nil {
			return fmt.Errorf("watch bindings: %w", err)
		}
		defer w.Close()
	}

	logger.Log(mixerlog.ComponentMixer, mixerlog.LevelInfo, "jackmix-demo running",
		"session", client.SessionID(), "inputs", len(cfg.Inputs), "outputs", len(cfg.Outputs))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}
