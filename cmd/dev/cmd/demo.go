package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// DemoCmd runs the cli demo from source against simulated hardware.
func DemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the sensorhub demo on simulated hardware",
		RunE: func(cmd *cobra.Command, args []string) error {
			rounds, err := cmd.Flags().GetInt("rounds")
			if err != nil {
				return fmt.Errorf("could not get rounds flag: %w", err)
			}
			goArgs := []string{"run", mainPackage, "--platform", "simulated", "demo",
				"--rounds", fmt.Sprint(rounds), "--interval", "1s"}
			slog.Info("running demo", "args", goArgs)
			run := exec.CommandContext(cmd.Context(), "go", goArgs...)
			run.Stdout = os.Stdout
			run.Stderr = os.Stderr
			if err := run.Run(); err != nil {
				return fmt.Errorf("demo failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Int("rounds", 2, "read rounds")
	return cmd
}
