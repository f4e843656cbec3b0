package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden in release builds with
// -ldflags "-X github.com/nfrund/podclient/cmd/podctl/cmd.version=<tag>".
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of podctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "podctl v%s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
