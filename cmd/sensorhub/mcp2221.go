package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sensorhub/adapter"
	"github.com/mklimuk/sensorhub/cmd/sensorhub/console"
	"github.com/mklimuk/sensorhub/hubctx"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the MCP2221 USB to I2C bridge",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "device", Aliases: []string{"d"}, Value: -1, Usage: "index of the bridge when several are attached"},
	},
	Before: func(c *cli.Context) error {
		if idx := c.Int("device"); idx >= 0 {
			c.Context = hubctx.SetDevice(c.Context, idx)
		}
		return nil
	},
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221DetectCmd,
	},
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(console.Writer())
	if err := enc.Encode(v); err != nil {
		return console.Exit(console.ExitFailure, "encoding error: %s", console.Red(err))
	}
	_ = enc.Close()
	return nil
}

var mcp2221StatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221()
		status, err := a.Status(c.Context)
		if err != nil {
			return console.Exit(console.ExitUnavailable, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current I2C transfer and free the bus",
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221()
		status, err := a.ReleaseBus(c.Context)
		if err != nil {
			return console.Exit(console.ExitUnavailable, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	},
}

var mcp2221DetectCmd = cli.Command{
	Name: "detect",
	Action: func(c *cli.Context) error {
		devices := adapter.Detect()
		if len(devices) == 0 {
			console.PInfof(console.PictoGhost, "no MCP2221 attached")
			return nil
		}
		w := tabwriter.NewWriter(console.Writer(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "INDEX\tPATH\tSERIAL\tMANUFACTURER\tPRODUCT\n")
		for i, dev := range devices {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, dev.Path, dev.Serial, dev.Manufacturer, dev.Product)
		}
		return w.Flush()
	},
}
