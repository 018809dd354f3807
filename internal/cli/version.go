package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// Stamped at build time through -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout(), versionShort)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}

// SetVersionInfo records the ldflags values passed to main.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

func printVersion(w io.Writer, short bool) {
	v := resolvedVersion(debug.ReadBuildInfo)
	if short {
		fmt.Fprintln(w, v)
		return
	}
	fmt.Fprintf(w, "rollout %s\n", formatVersion(v))
	fmt.Fprintf(w, "  commit   %s\n", commit)
	fmt.Fprintf(w, "  built    %s\n", date)
	fmt.Fprintf(w, "  go       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// resolvedVersion falls back to the module version recorded by
// `go install module@version` when no ldflags were given.
func resolvedVersion(readBuildInfo func() (*debug.BuildInfo, bool)) string {
	if version != "dev" {
		return version
	}
	info, ok := readBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return version
	}
	return info.Main.Version
}

// formatVersion adds the "v" prefix to release versions.
func formatVersion(v string) string {
	if v == "" || v == "dev" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
