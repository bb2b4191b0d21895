package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"price-drop-tracker/internal/fetcher"
	"price-drop-tracker/internal/history"
	"price-drop-tracker/internal/storage"
)

// Backfill 通过 CoinPaprika 历史行情为会话文件预热价格序列。
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	source, err := a.newSource()
	if err != nil {
		return err
	}

	hs, ok := source.(fetcher.HistorySource)
	if !ok {
		return fmt.Errorf("fetch source %q 不支持历史回填", a.Config.Fetch.Source)
	}

	hours := opts.Hours
	if hours <= 0 {
		hours = 24
	}
	interval := opts.Interval
	if interval == "" {
		interval = "1h"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 120
	}

	start := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	quotes, err := hs.FetchHistory(ctx, start, interval, limit)
	if err != nil {
		return err
	}
	if len(quotes) == 0 {
		return errors.New("未获取到任何历史行情")
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Timestamp.Before(quotes[j].Timestamp)
	})

	points := make([]history.PricePoint, 0, len(quotes))
	var last time.Time
	for _, q := range quotes {
		// drop duplicates, keep the series strictly increasing
		if !last.IsZero() && !q.Timestamp.After(last) {
			continue
		}
		points = append(points, history.PricePoint{Timestamp: q.Timestamp, Price: q.Price})
		last = q.Timestamp
	}

	snap := storage.Snapshot{
		Ticker: a.Config.Tracker.Ticker,
		Prices: points,
	}

	store := a.openSession()
	if prev, err := store.Load(a.Config.Tracker.Ticker); err == nil && prev != nil {
		snap.LastAlertTime = prev.LastAlertTime
		snap.CheckpointSeq = prev.CheckpointSeq
	}

	if err := store.Save(snap); err != nil {
		return err
	}

	a.Logger.Info().
		Int("points", len(points)).
		Str("interval", interval).
		Int("hours", hours).
		Msg("回填完成")
	return nil
}
