package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

const (
	binary        = "dist/sensorhub"
	mainPackage   = "./cmd/sensorhub"
	configPackage = "github.com/mklimuk/sensorhub/config"
)

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the sensorhub cli",
		Long: `Build the sensorhub cli into dist/.

Native builds run go build directly. Builds for another os/arch pair run
inside the gobuild docker image since the HID and GPIO drivers need cgo.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			goos := cmd.Flag("os").Value.String()
			arch := cmd.Flag("arch").Value.String()
			version := cmd.Flag("version").Value.String()
			crossOs := cmd.Flag("cross-os").Value.String()
			crossArch := cmd.Flag("cross-arch").Value.String()

			if goos != runtime.GOOS || arch != runtime.GOARCH {
				noCache, err := cmd.Flags().GetBool("no-cache")
				if err != nil {
					return fmt.Errorf("could not get no-cache flag: %w", err)
				}
				return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", goos, arch),
					[]string{"build", "--version", version, "--cross-os", crossOs, "--cross-arch", crossArch},
					build.DockerBuildOpts{
						NoCache: noCache,
						Image:   "gophertribe/gobuild:1.25-bookworm",
					})
			}
			if crossOs != "" && crossArch != "" {
				goos, arch = crossOs, crossArch
			}
			return build.GoBuild(binary, mainPackage, build.GoBuildOpts{
				Version:       version,
				InjectVersion: true,
				ConfigPackage: configPackage,
				EnableCgo:     true,
				Arch:          arch,
				OS:            goos,
			})
		},
	}
	cmd.Flags().Bool("no-cache", false, "do not use cache when building the app")
	cmd.Flags().String("version", "latest", "version of the cli")
	cmd.Flags().String("os", runtime.GOOS, "os to build for")
	cmd.Flags().String("arch", runtime.GOARCH, "arch to build for")
	cmd.Flags().String("cross-os", "", "os to cross-compile for")
	cmd.Flags().String("cross-arch", "", "arch to cross-compile for")

	return cmd
}
