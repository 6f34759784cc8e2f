package commands

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		version, goVersion, revision, dirty := getBuildInfo()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "pagetable %s\n", version)
		fmt.Fprintf(w, "  Go version: %s\n", goVersion)
		fmt.Fprintf(w, "  Revision:   %s\n", revision)
		if dirty {
			fmt.Fprintf(w, "  Modified:   true\n")
		}
	},
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
