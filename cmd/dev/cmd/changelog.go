package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

const defaultChangelog = "CHANGELOG.md"

// chglogArgs builds the git-chglog command line.
func chglogArgs(next, output, tag string) []string {
	if output == "" {
		output = defaultChangelog
	}
	var args []string
	if next != "" {
		args = append(args, "--next-tag", next)
	}
	args = append(args, "--output", output)
	if tag != "" {
		args = append(args, tag)
	}
	return args
}

func ChangelogCmd() *cobra.Command {
	var next, output, tag string
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Regenerate CHANGELOG.md from conventional commits",
		Long: `Regenerate the changelog with git-chglog. Commit subjects follow
conventional commits (feat, fix, docs, refactor, test, perf, build, ci, chore)
with the package as scope, e.g. "feat(storage): cbor eeprom records".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := exec.LookPath("git-chglog"); err != nil {
				slog.Error("git-chglog not found, install it with: go install github.com/git-chglog/git-chglog/cmd/git-chglog@latest")
				return fmt.Errorf("git-chglog not installed: %w", err)
			}
			chglog := exec.CommandContext(cmd.Context(), "git-chglog", chglogArgs(next, output, tag)...)
			chglog.Stdout = os.Stdout
			chglog.Stderr = os.Stderr
			slog.Info("running git-chglog", "args", chglog.Args[1:])
			if err := chglog.Run(); err != nil {
				return fmt.Errorf("failed to generate changelog: %w", err)
			}
			slog.Info("changelog generated", "output", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&next, "next", "", "tag the unreleased commits with this version (e.g. v0.2.0)")
	cmd.Flags().StringVar(&output, "output", defaultChangelog, "output file")
	cmd.Flags().StringVar(&tag, "tag", "", "only render this tag or range")
	return cmd
}
