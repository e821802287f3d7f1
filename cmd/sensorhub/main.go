package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sensorhub/config"
	"github.com/mklimuk/sensorhub/hubctx"
)

func main() {
	os.Exit(run(newApp(), os.Args))
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "sensorhub"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", config.Version, config.Date, config.Commit)
	app.Usage = "sensor channel registry and reader"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "configuration file",
			Value:   config.DefaultPath,
			EnvVars: []string{"SENSORHUB_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "store",
			Usage:   "registry file (overrides the configured storage)",
			EnvVars: []string{"SENSORHUB_STORE"},
		},
		&cli.StringFlag{
			Name:  "platform",
			Usage: "hardware platform: periph, cdev, nanopi, mcp2221 or simulated",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		ctx.Context = hubctx.SetVerbose(ctx.Context, ctx.Bool("verbose"))
		return nil
	}
	app.Commands = cli.Commands{
		&channelsCmd,
		&readCmd,
		&watchCmd,
		&scanCmd,
		&demoCmd,
		&mcp2221Cmd,
	}
	return app
}

func run(app *cli.App, args []string) int {
	err := app.Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}
