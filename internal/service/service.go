package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-drop-tracker/internal/alerting"
	"price-drop-tracker/internal/config"
	"price-drop-tracker/internal/fetcher"
	"price-drop-tracker/internal/history"
	"price-drop-tracker/internal/observability"
	"price-drop-tracker/internal/scheduler"
	"price-drop-tracker/internal/storage"
)

// Service orchestrates fetching, recording, alerting, and persistence.
type Service struct {
	scheduler *scheduler.Scheduler
	fetcher   fetcher.Source
	history   *history.History
	engine    *alerting.Engine
	notifier  alerting.Notifier
	bell      *alerting.Bell
	store     storage.SessionStore
	metrics   *observability.Metrics
	logger    zerolog.Logger

	ticker          string
	smaPeriod       int
	window          time.Duration
	threshold       decimal.Decimal
	checkpointEvery int

	cycles        uint64
	checkpointSeq uint64
	alertsFired   uint64
}

// New constructs the tracking service.
func New(cfg *config.Config, sched *scheduler.Scheduler, fetch fetcher.Source, hist *history.History, engine *alerting.Engine, notifier alerting.Notifier, bell *alerting.Bell, store storage.SessionStore, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	if metrics == nil {
		metrics = observability.New(prometheus.NewRegistry())
	}

	return &Service{
		scheduler:       sched,
		fetcher:         fetch,
		history:         hist,
		engine:          engine,
		notifier:        notifier,
		bell:            bell,
		store:           store,
		metrics:         metrics,
		logger:          logger.With().Str("component", "service").Logger(),
		ticker:          cfg.Tracker.Ticker,
		smaPeriod:       cfg.Tracker.SMAPeriod,
		window:          cfg.AlertWindow(),
		threshold:       decimal.NewFromFloat(cfg.Tracker.PriceDropThreshold),
		checkpointEvery: cfg.Session.CheckpointInterval,
	}
}

// Run restores any saved session, then drives the tracking loop until ctx is
// cancelled. A final checkpoint is written on the way out.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}

	s.restore()
	err := s.scheduler.Run(ctx, s.ProcessCycle)
	s.finalize()
	return err
}

// restore loads the previous session, if usable. Any problem downgrades to a
// fresh start.
func (s *Service) restore() {
	if s.store == nil {
		return
	}

	snap, err := s.store.Load(s.ticker)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load session, starting fresh")
		return
	}
	if snap == nil {
		s.logger.Info().Str("ticker", s.ticker).Msg("no prior session, starting fresh")
		return
	}

	if err := s.history.Restore(snap.Prices); err != nil {
		s.logger.Warn().Err(err).Msg("saved session unusable, starting fresh")
		return
	}

	s.engine.RestoreLastAlert(snap.LastAlertTime)
	s.checkpointSeq = snap.CheckpointSeq
	s.logger.Info().
		Int("points", s.history.Len()).
		Uint64("checkpoint_seq", s.checkpointSeq).
		Msg("resumed session from disk")
}

// ProcessCycle 执行单轮追踪：抓取、记录、判定、告警、按需落盘。
func (s *Service) ProcessCycle(ctx context.Context, now time.Time) error {
	s.cycles++

	quote, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.metrics.CycleCompleted("fetch_error")
		return fmt.Errorf("fetch price: %w", err)
	}

	point := history.PricePoint{Timestamp: now.UTC(), Price: quote.Price}
	if err := s.history.Record(point); err != nil {
		s.metrics.CycleCompleted("record_error")
		return fmt.Errorf("record price: %w", err)
	}

	s.metrics.SetHistoryPoints(s.history.Len())
	s.metrics.SetLastFetch(now)

	sma, smaOK := s.history.SMA(s.smaPeriod)
	drop, dropOK := s.history.WindowedDrop(s.window, now)

	status := s.logger.Info().
		Str("ticker", s.ticker).
		Str("price", quote.Price.String()).
		Int("points", s.history.Len())
	if smaOK {
		status = status.Str("sma", sma.StringFixed(2))
	} else {
		status = status.Str("sma", "--")
	}
	if dropOK {
		status = status.Str("window_change_pct", drop.PctChange.StringFixed(2))
	}
	status.Msg("price checked")

	var dropPtr *history.Drop
	if dropOK {
		dropPtr = &drop
	}

	decision := s.engine.Evaluate(dropPtr, now)
	if decision.Fire {
		s.alertsFired++
		s.metrics.AlertFired()
		s.dispatchAlert(ctx, drop, now)
	} else if decision.Reason == alerting.ReasonThrottled {
		s.metrics.AlertSuppressed(decision.Reason)
		s.logger.Info().
			Str("change_pct", drop.PctChange.StringFixed(2)).
			Str("reason", decision.Reason).
			Msg("alert suppressed")
	}

	if s.checkpointEvery > 0 && s.cycles%uint64(s.checkpointEvery) == 0 {
		s.checkpoint()
	}

	s.metrics.CycleCompleted("ok")
	return nil
}

func (s *Service) dispatchAlert(ctx context.Context, drop history.Drop, now time.Time) {
	s.logger.Warn().
		Str("ticker", s.ticker).
		Str("baseline", drop.Baseline.String()).
		Str("current", drop.Current.String()).
		Str("change_pct", drop.PctChange.StringFixed(2)).
		Msg("price drop alert")

	if s.bell != nil {
		s.bell.Ring()
	}

	if s.notifier == nil {
		return
	}

	note := alerting.Notification{
		Ticker:       s.ticker,
		Baseline:     drop.Baseline,
		Current:      drop.Current,
		PctChange:    drop.PctChange,
		ThresholdPct: s.threshold,
		Window:       s.window,
		At:           now,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.metrics.NotifyFailure()
		s.logger.Error().Err(err).Time("at", now).Msg("failed to dispatch alert")
	}
}

// checkpoint saves the session. A failed save is retried at the next
// checkpoint boundary.
func (s *Service) checkpoint() {
	if s.store == nil {
		return
	}

	snap := storage.Snapshot{
		Ticker:        s.ticker,
		Prices:        s.history.Export(),
		LastAlertTime: s.engine.LastAlert(),
		CheckpointSeq: s.checkpointSeq + 1,
	}
	if err := s.store.Save(snap); err != nil {
		s.metrics.CheckpointFailed()
		s.logger.Error().Err(err).Msg("failed to save session checkpoint")
		return
	}

	s.checkpointSeq++
	s.metrics.CheckpointSaved()
	s.logger.Debug().
		Uint64("checkpoint_seq", s.checkpointSeq).
		Int("points", s.history.Len()).
		Msg("session checkpoint saved")
}

// finalize writes the closing checkpoint and logs a session summary.
func (s *Service) finalize() {
	if s.store != nil && s.history.Len() > 0 {
		s.checkpoint()
	}

	points := s.history.Export()
	summary := s.logger.Info().
		Str("ticker", s.ticker).
		Uint64("checks", s.cycles).
		Uint64("alerts", s.alertsFired).
		Int("points", len(points))
	if len(points) > 0 {
		low, high := points[0].Price, points[0].Price
		for _, p := range points[1:] {
			if p.Price.LessThan(low) {
				low = p.Price
			}
			if p.Price.GreaterThan(high) {
				high = p.Price
			}
		}
		summary = summary.Str("low", low.String()).Str("high", high.String())
	}
	summary.Msg("tracking session summary")
}
