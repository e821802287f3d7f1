package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sensorhub/cmd/sensorhub/console"
	"github.com/mklimuk/sensorhub/dispatch"
	"github.com/mklimuk/sensorhub/report"
)

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "periodically read all active channels",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Value: 5 * time.Second},
		&cli.StringFlag{Name: "metrics-addr", Usage: "serve prometheus metrics on this address, e.g. :9100"},
	},
	Action: func(c *cli.Context) error {
		interval := c.Duration("interval")
		if interval <= 0 {
			return console.Exit(console.ExitUsage, "interval must be positive")
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

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		d := dispatch.New(h.reg, p.hw, dispatch.WithMetrics(dispatch.NewMetrics(prometheus.DefaultRegisterer)))
		if addr := c.String("metrics-addr"); addr != "" {
			srv := &http.Server{Addr: addr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("metrics server stopped", "addr", addr, "error", err)
				}
			}()
			defer func() {
				shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdown)
			}()
			slog.Info("serving metrics", "addr", addr)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := report.Readings(console.Writer(), d.ReadActive(ctx)); err != nil {
				return console.Exit(console.ExitFailure, "could not write readings: %s", console.Red(err))
			}
			select {
			case <-ctx.Done():
				console.PInfof(console.PictoFinish, "stopped")
				return nil
			case <-ticker.C:
			}
		}
	},
}
