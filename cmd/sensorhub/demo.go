package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sensorhub/channel"
	"github.com/mklimuk/sensorhub/cmd/sensorhub/console"
	"github.com/mklimuk/sensorhub/config"
	"github.com/mklimuk/sensorhub/dispatch"
	"github.com/mklimuk/sensorhub/hw"
	"github.com/mklimuk/sensorhub/registry"
	"github.com/mklimuk/sensorhub/report"
	"github.com/mklimuk/sensorhub/storage"
)

var demoCmd = cli.Command{
	Name:  "demo",
	Usage: "walk through registry operations on simulated hardware",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "rounds", Aliases: []string{"n"}, Value: 3, Usage: "read rounds, 0 reads until interrupted"},
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Value: 5 * time.Second},
	},
	Action: func(c *cli.Context) error {
		if err := runDemo(c.Context, console.Writer(), c.Int("rounds"), c.Duration("interval")); err != nil {
			return fail("demo failed", err)
		}
		return nil
	},
}

type demoGroup struct {
	title    string
	channels []int
}

// demoReads lists what every round reads. Channel 4 is disabled and 12 removed
// during setup.
var demoReads = []demoGroup{
	{title: "Fixed channels", channels: []int{1, 2, 3, 5}},
	{title: "I2C channels", channels: []int{10, 11}},
	{title: "SPI channels", channels: []int{20, 21}},
}

func runDemo(ctx context.Context, w io.Writer, rounds int, interval time.Duration) error {
	cfg := config.Default()
	blob := &storage.MemoryBlob{}
	store := storage.New(blob, storage.WithLogger(slog.Default()))
	reg := registry.New(cfg.RegistryOptions()...)

	step := func(title string, fn func() error) error {
		_, _ = fmt.Fprintf(w, "\n>>> %s\n", title)
		if err := fn(); err != nil {
			return err
		}
		if err := store.SaveRegistry(ctx, reg); err != nil {
			return err
		}
		return report.Table(w, reg)
	}

	steps := []struct {
		title string
		fn    func() error
	}{
		{"Creating new configuration", func() error { return cfg.Registry.Populate(reg) }},
		{"Adding I2C devices", func() error {
			for _, d := range []struct {
				number int
				addr   byte
			}{{10, 0x3C}, {11, 0x68}, {12, 0x76}} {
				if _, err := reg.AddI2C(d.number, d.addr); err != nil {
					return err
				}
			}
			return nil
		}},
		{"Adding SPI devices", func() error {
			if _, err := reg.AddSPI(20, 14); err != nil {
				return err
			}
			_, err := reg.AddSPI(21, 27)
			return err
		}},
		{"Changing channel 2 from ANALOG to DIGITAL", func() error { return reg.Update(2, channel.Digital, true) }},
		{"Disabling channel 4", func() error { return reg.Update(4, channel.Digital, false) }},
		{"Removing I2C channel 12", func() error { return reg.RemoveBus(12) }},
	}
	for _, s := range steps {
		if err := step(s.title, s.fn); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(w, "\n=== Setup complete (revision %s) ===\n", store.Revision())

	d := dispatch.New(reg, &hw.Simulated{})
	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}
	for round := 1; rounds <= 0 || round <= rounds; round++ {
		_, _ = fmt.Fprintf(w, "\n========== Round %d ==========\n", round)
		for _, g := range demoReads {
			_, _ = fmt.Fprintf(w, "--- %s ---\n", g.title)
			for _, n := range g.channels {
				value := d.Read(ctx, n)
				_, _ = fmt.Fprintf(w, "channel %d (%s): %s\n", n, reg.Mode(n), strconv.FormatFloat(value, 'f', -1, 64))
			}
		}
		if rounds > 0 && round == rounds {
			break
		}
		if ticker == nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
