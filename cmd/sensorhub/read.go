package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sensorhub/cmd/sensorhub/console"
	"github.com/mklimuk/sensorhub/dispatch"
	"github.com/mklimuk/sensorhub/report"
)

var readCmd = cli.Command{
	Name:      "read",
	Usage:     "read one channel or all active channels",
	ArgsUsage: "[CHANNEL]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "read every active channel"},
		&cli.BoolFlag{Name: "sentinel", Usage: "print -1 instead of failing when the channel cannot be read"},
	},
	Action: func(c *cli.Context) error {
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
		d := dispatch.New(h.reg, p.hw)

		if c.Bool("all") {
			if err := report.Readings(console.Writer(), d.ReadActive(c.Context)); err != nil {
				return console.Exit(console.ExitFailure, "could not write readings: %s", console.Red(err))
			}
			return nil
		}
		n, err := channelArg(c)
		if err != nil {
			return err
		}
		if c.Bool("sentinel") {
			console.Print(strconv.FormatFloat(d.Read(c.Context, n), 'f', -1, 64))
			return nil
		}
		r, err := d.Measure(c.Context, n)
		if err != nil {
			return fail("could not read channel", err)
		}
		console.PInfof(console.PictoThermometer, "channel %s (%s): %s", console.White(n), r.Mode,
			console.Green(strconv.FormatFloat(r.Value, 'f', -1, 64)))
		return nil
	},
}
