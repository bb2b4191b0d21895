package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"price-drop-tracker/internal/history"
)

// exportRow is one CSV/chart line: a recorded price plus the SMA over the
// preceding period, when enough points exist.
type exportRow struct {
	Timestamp time.Time
	Price     decimal.Decimal
	SMA       *decimal.Decimal
}

// Export renders the saved session as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	snap, err := a.openSession().Load(a.Config.Tracker.Ticker)
	if err != nil {
		return err
	}
	if snap == nil || len(snap.Prices) == 0 {
		a.Logger.Info().Msg("no session data to export")
		return nil
	}

	rows := buildExportRows(snap.Prices, a.Config.Tracker.SMAPeriod)
	downsampled := downsampleRows(rows, opts.MaxPoints)
	a.Logger.Info().Int("total", len(rows)).Int("exported", len(downsampled)).Msg("exporting session points")

	if opts.CSVPath != "" {
		if err := writeRowsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRowsPNG(opts.PNGPath, a.Config.Tracker.Ticker, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func buildExportRows(points []history.PricePoint, smaPeriod int) []exportRow {
	rows := make([]exportRow, len(points))
	sum := decimal.Zero
	for i, p := range points {
		sum = sum.Add(p.Price)
		if smaPeriod > 0 && i >= smaPeriod {
			sum = sum.Sub(points[i-smaPeriod].Price)
		}

		rows[i] = exportRow{Timestamp: p.Timestamp, Price: p.Price}
		if smaPeriod > 0 && i >= smaPeriod-1 {
			sma := sum.Div(decimal.NewFromInt(int64(smaPeriod)))
			rows[i].SMA = &sma
		}
	}
	return rows
}

func downsampleRows(rows []exportRow, max int) []exportRow {
	if max <= 0 || len(rows) <= max {
		return rows
	}
	if max == 1 {
		return []exportRow{rows[len(rows)-1]}
	}

	result := make([]exportRow, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func writeRowsCSV(path string, rows []exportRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"timestamp", "price", "sma"}); err != nil {
		return err
	}

	for _, row := range rows {
		sma := ""
		if row.SMA != nil {
			sma = row.SMA.String()
		}
		record := []string{
			row.Timestamp.UTC().Format(time.RFC3339),
			row.Price.String(),
			sma,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRowsPNG(path, ticker string, rows []exportRow) error {
	if len(rows) < 2 {
		return errors.New("need at least two points to chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(rows))
	prices := make([]float64, len(rows))
	var smaX []time.Time
	var smaY []float64

	for i, row := range rows {
		x[i] = row.Timestamp
		prices[i] = row.Price.InexactFloat64()
		if row.SMA != nil {
			smaX = append(smaX, row.Timestamp)
			smaY = append(smaY, row.SMA.InexactFloat64())
		}
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (" + ticker + ")",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Price",
				XValues: x,
				YValues: prices,
			},
		},
	}
	if len(smaX) >= 2 {
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "SMA",
			XValues: smaX,
			YValues: smaY,
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
