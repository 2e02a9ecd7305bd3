// Command jackmix-vumeter is a read-only terminal peak meter display,
// driven by each channel's Meter accessor (post-fader, left side). It
// shows no K-meter RMS reading. It is a monitoring front-end, not a
// control surface: it exposes no controls, only a live readout.
package main

import (
	"fmt"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	flag "github.com/spf13/pflag"

	"github.com/jackmix/jackmix/internal/channel"
	"github.com/jackmix/jackmix/internal/config"
	"github.com/jackmix/jackmix/internal/hostsdl"
	"github.com/jackmix/jackmix/internal/mixer"
	"github.com/jackmix/jackmix/internal/mixerlog"
)

func main() {
	configPath := flag.StringP("config", "c", "jackmix.toml", "startup configuration file")
	sampleRate := flag.Float64("sample-rate", 48000, "sample rate in Hz")
	period := flag.Int("period", 256, "frames per period")
	flag.Parse()

	if err := run(*configPath, *sampleRate, *period); err != nil {
		fmt.Fprintln(os.Stderr, "jackmix-vumeter:", err)
		os.Exit(1)
	}
}

func run(configPath string, sampleRate float64, period int) error {
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

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("tcell: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("tcell init: %w", err)
	}
	defer screen.Fini()

	events := make(chan tcell.Event, 16)
	go screen.ChannelEvents(events, nil)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case *tcell.EventKey:
				if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC || e.Rune() == 'q' {
					return nil
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			draw(screen, m)
		}
	}
}

func draw(screen tcell.Screen, m *mixer.Mixer) {
	screen.Clear()
	row := 0
	for _, ci := range m.Inputs() {
		ch, ok := m.InputChannel(ci.Index)
		if !ok {
			continue
		}
		drawRow(screen, row, ci.Name, ch)
		row++
	}
	for _, ci := range m.Outputs() {
		ch, ok := m.OutputChannel(ci.Index)
		if !ok {
			continue
		}
		drawRow(screen, row, ci.Name, &ch.Channel)
		row++
	}
	screen.Show()
}

const barWidth = 40

func drawRow(screen tcell.Screen, row int, name string, ch *channel.Channel) {
	left, _ := ch.Meter(channel.ModePost)
	label := fmt.Sprintf("%-16s %7.2f dBFS", name, left)
	for i, r := range label {
		screen.SetContent(i, row, r, nil, tcell.StyleDefault)
	}

	filled := meterBarWidth(left)
	for i := 0; i < barWidth; i++ {
		r := ' '
		style := tcell.StyleDefault
		if i < filled {
			r = '#'
			style = style.Foreground(tcell.ColorGreen)
			if i > barWidth*3/4 {
				style = style.Foreground(tcell.ColorRed)
			}
		}
		screen.SetContent(len(label)+2+i, row, r, nil, style)
	}
}

// meterBarWidth maps a dBFS reading onto a fixed-width bar, clamping a
// -60..0 dB range to [0, barWidth].
func meterBarWidth(db float64) int {
	const floor = -60.0
	if db < floor {
		return 0
	}
	if db > 0 {
		return barWidth
	}
	return int((db - floor) / -floor * barWidth)
}
