// Command jackmix-learn is a small "MIDI learn" helper: it walks a
// mixer's input channels and auto-assigns the next free CC slot to a
// chosen parameter on each, printing the resulting bindings.
package main

import (
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/urfave/cli"

	"github.com/jackmix/jackmix/internal/config"
	"github.com/jackmix/jackmix/internal/hostsdl"
	"github.com/jackmix/jackmix/internal/midicc"
	"github.com/jackmix/jackmix/internal/mixer"
	"github.com/jackmix/jackmix/internal/mixerlog"
)

func main() {
	app := cli.NewApp()
	app.Name = "jackmix-learn"
	app.Usage = "auto-assign MIDI CC numbers to every input channel's parameters"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Value: "jackmix.toml", Usage: "startup configuration file"},
		cli.StringFlag{Name: "param, p", Value: "volume", Usage: "parameter to assign: volume|balance|mute|solo"},
		cli.Float64Flag{Name: "sample-rate", Value: 48000, Usage: "sample rate in Hz"},
		cli.IntFlag{Name: "period", Value: 256, Usage: "frames per period"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "jackmix-learn:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	param, err := parseParam(c.String("param"))
	if err != nil {
		return err
	}

	logger := mixerlog.NewCharm(charmlog.New(os.Stderr), mixerlog.LevelWarn)
	defer logger.Close()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	client, err := hostsdl.Open(cfg.ClientName, c.Float64("sample-rate"), c.Int("period"))
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

	for _, ci := range m.Inputs() {
		cc, err := m.AutosetMIDICC(ci.Index, param)
		if err != nil {
			fmt.Printf("%-16s  no free CC slot: %v\n", ci.Name, err)
			continue
		}
		fmt.Printf("%-16s  %s -> CC %d\n", ci.Name, param, cc)
	}
	return nil
}

func parseParam(s string) (midicc.ParamKind, error) {
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
		return 0, fmt.Errorf("unknown param %q", s)
	}
}
