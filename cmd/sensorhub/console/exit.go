package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit codes shared by all commands.
const (
	ExitFailure     = 1
	ExitUsage       = 2
	ExitNotFound    = 3
	ExitCorrupt     = 4
	ExitUnavailable = 5
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}
