package main

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sensorhub"
	"github.com/mklimuk/sensorhub/channel"
	"github.com/mklimuk/sensorhub/cmd/sensorhub/console"
	"github.com/mklimuk/sensorhub/config"
	"github.com/mklimuk/sensorhub/dispatch"
	"github.com/mklimuk/sensorhub/registry"
	"github.com/mklimuk/sensorhub/storage"
)

// exitCode maps domain errors to process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, registry.ErrChannelNotFound):
		return console.ExitNotFound
	case errors.Is(err, registry.ErrDuplicateChannel),
		errors.Is(err, registry.ErrWrongChannelKind),
		errors.Is(err, registry.ErrInvalidChannel),
		errors.Is(err, registry.ErrInvalidMode),
		errors.Is(err, registry.ErrInvalidAddress),
		errors.Is(err, channel.ErrUnknownMode),
		errors.Is(err, config.ErrInvalid):
		return console.ExitUsage
	case errors.Is(err, storage.ErrCorrupt):
		return console.ExitCorrupt
	case errors.Is(err, storage.ErrUnavailable),
		errors.Is(err, dispatch.ErrHardware),
		errors.Is(err, sensorhub.ErrUnsupported):
		return console.ExitUnavailable
	}
	return console.ExitFailure
}

// fail turns err into a cli exit error with a colored message.
func fail(msg string, err error) cli.ExitCoder {
	return console.Exit(exitCode(err), "%s: %s", msg, console.Red(err))
}
