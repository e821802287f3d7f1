package main

import (
	"log/slog"
	"os"

	"github.com/mklimuk/sensorhub/cmd/dev/cmd"
)

func main() {
	if err := cmd.Root().Execute(); err != nil {
		slog.Error("unexpected error", "error", err)
		os.Exit(1)
	}
}
