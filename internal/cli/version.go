package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"price-drop-tracker/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		v, commit, date := version.Resolve()
		fmt.Fprintf(cmd.OutOrStdout(), "version: %s\ncommit: %s\nbuilt: %s\n", v, commit, date)
	},
}
