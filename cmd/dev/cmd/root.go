package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

// Root assembles the dev tool.
func Root() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:   "dev",
		Short: "build, test and release tool for sensorhub",
		Long: `Development tasks of the sensorhub project.

  dev build                     build dist/sensorhub for this host
  dev build --os linux --arch arm64
                                cross-build inside the gobuild image
  dev test | lint               unit tests and linters
  dev integration-test          tests that need attached I2C/SPI/one-wire hardware
  dev demo --rounds 3           run the registry demo on simulated hardware
  dev changelog --next v0.2.0   regenerate CHANGELOG.md`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			charm := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.DateTime,
				Prefix:          "hub",
			})
			charm.SetColorProfile(termenv.TrueColor)
			charm.SetLevel(log.InfoLevel)
			if debug {
				charm.SetLevel(log.DebugLevel)
			}
			slog.SetDefault(slog.New(charm))
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.AddCommand(
		BuildCmd(),
		TestCmd(),
		LintCmd(),
		IntegrationTestCmd(),
		DemoCmd(),
		ChangelogCmd(),
	)
	return root
}
