package cli

import (
	"time"

	"github.com/spf13/cobra"

	"price-drop-tracker/internal/app"
)

var runDuration time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the price tracker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context(), app.RunOptions{Duration: runDuration})
	},
}

func init() {
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "Stop after this long (0 runs until interrupted)")
}
