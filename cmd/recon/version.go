package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version and BuildDate identify the build. Both are overridden with
// -ldflags on release builds; the defaults mark a local build.
var (
	Version   = "dev"
	BuildDate = "unknown"
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("recon %s (built %s, %s)\n", Version, BuildDate, runtime.Version())
	},
}

func init() {
	Recon.AddCommand(versionCommand)
}
