package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sensorhub"
	"github.com/mklimuk/sensorhub/cmd/sensorhub/console"
	"github.com/mklimuk/sensorhub/i2c"
)

var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "probe the I2C bus for devices",
	Flags: []cli.Flag{
		&cli.UintFlag{Name: "from", Value: 0x08},
		&cli.UintFlag{Name: "to", Value: 0x77},
		&cli.BoolFlag{Name: "add", Usage: "register found devices as I2C channels"},
		&cli.IntFlag{Name: "start", Value: 50, Usage: "first channel number tried with --add"},
	},
	Action: func(c *cli.Context) error {
		from, to := c.Uint("from"), c.Uint("to")
		if from > i2c.MaxAddress || to > i2c.MaxAddress {
			return console.Exit(console.ExitUsage, "addresses must not exceed %#02x", i2c.MaxAddress)
		}
		h, err := openHub(c)
		if err != nil {
			return err
		}
		defer h.Close()
		p, err := openPlatform(c.Context, h.cfg.Hardware)
		if err != nil {
			return fail("could not open hardware", err)
		}
		defer p.Close()
		if p.bus == nil {
			return fail("could not scan", fmt.Errorf("platform %s has no I2C bus: %w", h.cfg.Hardware.Platform, sensorhub.ErrUnsupported))
		}
		found, err := i2c.Scan(c.Context, p.bus, byte(from), byte(to))
		if err != nil {
			return fail("scan failed", err)
		}
		if len(found) == 0 {
			console.PInfof(console.PictoGhost, "no devices found")
			return nil
		}
		next := c.Int("start")
		added := 0
		for _, addr := range found {
			if !c.Bool("add") {
				console.Infof("device at %s", console.White(fmt.Sprintf("%#02x", addr)))
				continue
			}
			for h.reg.Exists(next) {
				next++
			}
			if _, err := h.reg.AddI2C(next, addr); err != nil {
				return fail("could not add channel", err)
			}
			console.PInfof(console.PictoPin, "device at %#02x added as channel %s", addr, console.White(next))
			added++
		}
		if added > 0 {
			return h.save(c.Context)
		}
		return nil
	},
}
