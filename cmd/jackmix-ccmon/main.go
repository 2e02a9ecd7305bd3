// Command jackmix-ccmon is a small CC activity monitor: it polls the
// mixer's last-received Control Change number and prints each new one, for
// use alongside a MIDI controller during a "learn" session.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/jackmix/jackmix/internal/config"
	"github.com/jackmix/jackmix/internal/hostsdl"
	"github.com/jackmix/jackmix/internal/mixer"
	"github.com/jackmix/jackmix/internal/mixerlog"
)

func main() {
	configPath := flag.StringP("config", "c", "jackmix.toml", "startup configuration file")
	sampleRate := flag.Float64("sample-rate", 48000, "sample rate in Hz")
	period := flag.Int("period", 256, "frames per period")
	pollInterval := flag.Duration("poll", 50*time.Millisecond, "poll interval")
	flag.Parse()

	if err := run(*configPath, *sampleRate, *period, *pollInterval); err != nil {
		fmt.Fprintln(os.Stderr, "jackmix-ccmon:", err)
		os.Exit(1)
	}
}

func run(configPath string, sampleRate float64, period int, pollInterval time.Duration) error {
	logger := mixerlog.NewCharm(charmlog.New(os.Stderr), mixerlog.LevelWarn)
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

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-sig:
			return nil
		case <-ticker.C:
			if cc := m.LastMIDICC(); cc != last {
				last = cc
				fmt.Printf("cc %d\n", cc)
			}
		}
	}
}
