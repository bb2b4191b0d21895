package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"price-drop-tracker/internal/app"
)

var (
	backfillHours    int
	backfillInterval string
	backfillLimit    int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Seed the session with historical prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillHours <= 0 {
			return fmt.Errorf("--hours must be greater than zero")
		}

		opts := app.BackfillOptions{
			Hours:    backfillHours,
			Interval: backfillInterval,
			Limit:    backfillLimit,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().IntVar(&backfillHours, "hours", 24, "How far back to fetch history")
	backfillCmd.Flags().StringVar(&backfillInterval, "interval", "1h", "History sampling interval")
	backfillCmd.Flags().IntVar(&backfillLimit, "limit", 120, "Maximum history entries to request")
}
