package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "hookwarden %s\n", version)
		fmt.Fprintf(w, "  go:     %s\n", runtime.Version())
		fmt.Fprintf(w, "  os:     %s/%s\n", runtime.GOOS, runtime.GOARCH)

		info, ok := debug.ReadBuildInfo()
		if !ok {
			return nil
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				fmt.Fprintf(w, "  commit: %s\n", setting.Value)
			case "vcs.time":
				fmt.Fprintf(w, "  built:  %s\n", setting.Value)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
