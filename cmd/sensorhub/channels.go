package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sensorhub/channel"
	"github.com/mklimuk/sensorhub/cmd/sensorhub/console"
	"github.com/mklimuk/sensorhub/report"
)

var channelsCmd = cli.Command{
	Name:    "channels",
	Aliases: []string{"ch"},
	Usage:   "manage the channel registry",
	Subcommands: cli.Commands{
		&channelsListCmd,
		&channelsAddCmd,
		&channelsAddI2CCmd,
		&channelsAddSPICmd,
		&channelsUpdateCmd,
		&channelsEnableCmd,
		&channelsDisableCmd,
		&channelsRemoveCmd,
		&channelsDisableModeCmd,
		&channelsResetCmd,
	},
}

// channelArg parses the single channel number argument.
func channelArg(c *cli.Context) (int, error) {
	if c.NArg() != 1 {
		return 0, console.Exit(console.ExitUsage, "expected 1 argument, got %d", c.NArg())
	}
	n, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return 0, console.Exit(console.ExitUsage, "invalid channel number %q", c.Args().First())
	}
	return n, nil
}

func modeFlag(c *cli.Context) (channel.Mode, error) {
	mode, err := channel.ParseMode(c.String("mode"))
	if err != nil {
		return channel.None, fail("invalid mode", err)
	}
	return mode, nil
}

var channelsListCmd = cli.Command{
	Name:    "list",
	Aliases: []string{"ls"},
	Usage:   "print all channels",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "table", Usage: "table, yaml or xlsx"},
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "write to file instead of stdout (required for xlsx)"},
	},
	Action: func(c *cli.Context) error {
		h, err := openHub(c)
		if err != nil {
			return err
		}
		defer h.Close()
		out := console.Writer()
		if path := c.String("file"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return console.Exit(console.ExitFailure, "could not create %s: %s", path, console.Red(err))
			}
			defer f.Close()
			out = f
		}
		switch c.String("output") {
		case "table":
			err = report.Table(out, h.reg)
		case "yaml":
			err = report.YAML(out, h.reg)
		case "xlsx":
			if c.String("file") == "" {
				return console.Exit(console.ExitUsage, "xlsx output needs --file")
			}
			err = report.XLSX(out, h.reg, time.Now())
		default:
			return console.Exit(console.ExitUsage, "unknown output %q", c.String("output"))
		}
		if err != nil {
			return console.Exit(console.ExitFailure, "could not write report: %s", console.Red(err))
		}
		return nil
	},
}

var channelsAddCmd = cli.Command{
	Name:  "add",
	Usage: "add a wired channel",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "channel", Aliases: []string{"c"}, Required: true},
		&cli.IntFlag{Name: "pin", Aliases: []string{"p"}, Required: true},
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Required: true, Usage: "DIGITAL, ANALOG, ONEWIRE or SPI"},
		&cli.BoolFlag{Name: "inactive", Usage: "add the channel disabled"},
	},
	Action: func(c *cli.Context) error {
		mode, err := modeFlag(c)
		if err != nil {
			return err
		}
		h, err := openHub(c)
		if err != nil {
			return err
		}
		defer h.Close()
		if err := h.reg.AddFixed(c.Int("channel"), c.Int("pin"), mode, !c.Bool("inactive")); err != nil {
			return fail("could not add channel", err)
		}
		if err := h.save(c.Context); err != nil {
			return err
		}
		console.PInfof(console.PictoPin, "channel %s added on pin %d as %s", console.White(c.Int("channel")), c.Int("pin"), mode)
		return nil
	},
}

var channelsAddI2CCmd = cli.Command{
	Name:  "add-i2c",
	Usage: "attach an I2C device",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "channel", Aliases: []string{"c"}, Required: true},
		&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Required: true, Usage: "7-bit address, e.g. 0x3C"},
	},
	Action: func(c *cli.Context) error {
		addr, err := strconv.ParseUint(c.String("address"), 0, 8)
		if err != nil {
			return console.Exit(console.ExitUsage, "invalid address %q", c.String("address"))
		}
		h, err := openHub(c)
		if err != nil {
			return err
		}
		defer h.Close()
		id, err := h.reg.AddI2C(c.Int("channel"), byte(addr))
		if err != nil {
			return fail("could not add I2C channel", err)
		}
		if err := h.save(c.Context); err != nil {
			return err
		}
		console.PInfof(console.PictoPin, "I2C channel %s added at %#02x (id %d)", console.White(c.Int("channel")), addr, id)
		return nil
	},
}

var channelsAddSPICmd = cli.Command{
	Name:  "add-spi",
	Usage: "attach an SPI device",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "channel", Aliases: []string{"c"}, Required: true},
		&cli.IntFlag{Name: "cs", Required: true, Usage: "chip select pin"},
	},
	Action: func(c *cli.Context) error {
		h, err := openHub(c)
		if err != nil {
			return err
		}
		defer h.Close()
		id, err := h.reg.AddSPI(c.Int("channel"), c.Int("cs"))
		if err != nil {
			return fail("could not add SPI channel", err)
		}
		if err := h.save(c.Context); err != nil {
			return err
		}
		console.PInfof(console.PictoPin, "SPI channel %s added on cs %d (id %d)", console.White(c.Int("channel")), c.Int("cs"), id)
		return nil
	},
}

var channelsUpdateCmd = cli.Command{
	Name:  "update",
	Usage: "change mode and state of a wired channel",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "channel", Aliases: []string{"c"}, Required: true},
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Required: true},
		&cli.BoolFlag{Name: "inactive"},
	},
	Action: func(c *cli.Context) error {
		mode, err := modeFlag(c)
		if err != nil {
			return err
		}
		h, err := openHub(c)
		if err != nil {
			return err
		}
		defer h.Close()
		if err := h.reg.Update(c.Int("channel"), mode, !c.Bool("inactive")); err != nil {
			return fail("could not update channel", err)
		}
		if err := h.save(c.Context); err != nil {
			return err
		}
		console.Infof("channel %s updated", console.White(c.Int("channel")))
		return nil
	},
}

func setActiveAction(active bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		n, err := channelArg(c)
		if err != nil {
			return err
		}
		h, err := openHub(c)
		if err != nil {
			return err
		}
		defer h.Close()
		if active {
			err = h.reg.Enable(n)
		} else {
			err = h.reg.Disable(n)
		}
		if err != nil {
			return fail("could not change channel state", err)
		}
		if err := h.save(c.Context); err != nil {
			return err
		}
		console.Infof("channel %s %s", console.White(n), console.State(active))
		return nil
	}
}

var channelsEnableCmd = cli.Command{
	Name:      "enable",
	Usage:     "enable a channel",
	ArgsUsage: "CHANNEL",
	Action:    setActiveAction(true),
}

var channelsDisableCmd = cli.Command{
	Name:      "disable",
	Usage:     "disable a channel",
	ArgsUsage: "CHANNEL",
	Action:    setActiveAction(false),
}

var channelsRemoveCmd = cli.Command{
	Name:      "remove",
	Aliases:   []string{"rm"},
	Usage:     "detach a bus channel",
	ArgsUsage: "CHANNEL",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		n, err := channelArg(c)
		if err != nil {
			return err
		}
		h, err := openHub(c)
		if err != nil {
			return err
		}
		defer h.Close()
		if _, ok := h.reg.FindBus(n); !ok {
			return fail("could not remove channel", h.reg.RemoveBus(n))
		}
		if !c.Bool("yes") {
			ok, err := console.Confirm(fmt.Sprintf("remove bus channel %d?", n))
			if err != nil || !ok {
				console.PInfof(console.PictoStop, "aborted")
				return nil
			}
		}
		if err := h.reg.RemoveBus(n); err != nil {
			return fail("could not remove channel", err)
		}
		if err := h.save(c.Context); err != nil {
			return err
		}
		console.Infof("channel %s removed", console.White(n))
		return nil
	},
}

var channelsDisableModeCmd = cli.Command{
	Name:      "disable-mode",
	Usage:     "disable every wired channel of a mode",
	ArgsUsage: "MODE",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(console.ExitUsage, "expected 1 argument, got %d", c.NArg())
		}
		mode, err := channel.ParseMode(c.Args().First())
		if err != nil {
			return fail("invalid mode", err)
		}
		h, err := openHub(c)
		if err != nil {
			return err
		}
		defer h.Close()
		changed := h.reg.SetModeActive(mode, false)
		if len(changed) == 0 {
			console.Infof("no active %s channels", mode)
			return nil
		}
		if err := h.save(c.Context); err != nil {
			return err
		}
		for _, n := range changed {
			console.Infof("disabled channel %s", console.White(n))
		}
		return nil
	},
}

var channelsResetCmd = cli.Command{
	Name:  "reset",
	Usage: "replace all channels with the configured defaults",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if !c.Bool("yes") {
			ok, err := console.Confirm("all channels will be replaced by defaults, continue?")
			if err != nil || !ok {
				console.PInfof(console.PictoStop, "aborted")
				return nil
			}
		}
		h, err := newHub(c.Context, cfg, false)
		if err != nil {
			return err
		}
		defer h.Close()
		if err := h.reset(c.Context); err != nil {
			return err
		}
		console.PInfof(console.PictoFinish, "%d default channels restored", len(h.reg.Channels()))
		return nil
	},
}
