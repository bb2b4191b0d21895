package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints the most recent session points.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	snap, err := a.openSession().Load(a.Config.Tracker.Ticker)
	if err != nil {
		return err
	}
	if snap == nil || len(snap.Prices) == 0 {
		fmt.Fprintln(os.Stdout, "no session data found")
		return nil
	}

	rows := buildExportRows(snap.Prices, a.Config.Tracker.SMAPeriod)
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[len(rows)-opts.Limit:]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tPrice\tSMA")

	for _, row := range rows {
		sma := "--"
		if row.SMA != nil {
			sma = formatDecimal(*row.SMA, 2)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\n",
			row.Timestamp.UTC().Format(time.RFC3339),
			row.Price.String(),
			sma,
		)
	}

	writer.Flush()

	if snap.LastAlertTime != nil {
		fmt.Fprintf(os.Stdout, "last alert: %s\n", snap.LastAlertTime.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(os.Stdout, "checkpoint: %d, points: %d\n", snap.CheckpointSeq, len(snap.Prices))
	return nil
}
