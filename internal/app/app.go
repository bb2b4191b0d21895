package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
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
	"price-drop-tracker/internal/service"
	"price-drop-tracker/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSource() (fetcher.Source, error) {
	switch a.Config.Fetch.Source {
	case "coinbase":
		return fetcher.NewCoinbase(fetcher.CoinbaseOptions{
			BaseURL:   a.Config.Fetch.Coinbase.BaseURL,
			Ticker:    a.Config.Tracker.Ticker,
			Timeout:   a.Config.Fetch.RequestTimeout,
			UserAgent: a.Config.Fetch.Coinbase.UserAgent,
		}, a.Logger), nil
	case "coinpaprika":
		return fetcher.NewPaprika(fetcher.PaprikaOptions{
			Ticker:  a.Config.Tracker.Ticker,
			CoinID:  a.Config.Fetch.Paprika.CoinID,
			APIKey:  a.Config.Fetch.Paprika.APIKey,
			Timeout: a.Config.Fetch.RequestTimeout,
		}, a.Logger), nil
	case "chainlink":
		return fetcher.NewChainlink(fetcher.ChainlinkOptions{
			RPCURL:      a.Config.Fetch.Chainlink.RPCURL,
			FeedAddress: a.Config.Fetch.Chainlink.FeedAddress,
			Timeout:     a.Config.Fetch.RequestTimeout,
		}, a.Logger), nil
	default:
		return nil, fmt.Errorf("unknown fetch source %q", a.Config.Fetch.Source)
	}
}

func (a *App) newNotifier() alerting.Notifier {
	tg := a.Config.Alerting.Telegram
	if tg.Ready() {
		return alerting.NewTelegramNotifier(tg.BotToken, tg.ChatID, tg.APIBase, 10*time.Second, a.Logger)
	}
	if tg.BotToken != "" || tg.ChatID != "" {
		a.Logger.Warn().Msg("telegram partially configured; notifier disabled")
	}
	return nil
}

func (a *App) newBell() *alerting.Bell {
	if !a.Config.Alerting.Beep {
		return nil
	}
	return alerting.NewBell(a.Logger)
}

func (a *App) openSession() *storage.FileStore {
	return storage.NewFileStore(a.Config.SessionFile(), a.Logger)
}

// RunOptions configure the tracking run.
type RunOptions struct {
	// Duration stops the tracker after the given time; zero runs until
	// interrupted.
	Duration time.Duration
}

// Run executes the long-running tracking service.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.Duration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, opts.Duration)
		defer timeoutCancel()
	}

	source, err := a.newSource()
	if err != nil {
		return err
	}

	metrics := observability.New(prometheus.NewRegistry())
	retrier := fetcher.NewRetrier(source, fetcher.RetryOptions{
		MaxRetries: a.Config.Fetch.MaxRetries,
		BaseDelay:  a.Config.Fetch.BaseDelay,
	}, metrics, a.Logger)

	hist := history.New(history.Options{
		Capacity:  a.Config.HistoryCapacity(),
		Window:    a.Config.AlertWindow(),
		MinPoints: a.Config.Tracker.SMAPeriod,
	})
	engine := alerting.NewEngine(alerting.EngineOptions{
		ThresholdPct: decimal.NewFromFloat(a.Config.Tracker.PriceDropThreshold),
		Cooldown:     a.Config.Alerting.Cooldown,
	}, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Tracker.CheckInterval,
		Immediate:    true,
		StartupDelay: a.Config.Tracker.StartupDelay,
	}, a.Logger)

	svc := service.New(a.Config, sched, retrier, hist, engine, a.newNotifier(), a.newBell(), a.openSession(), metrics, a.Logger)

	if a.Config.Metrics.Enabled {
		server := observability.NewServer(metrics, a.Logger)
		go func() {
			if err := server.Run(ctx, a.Config.Metrics.Listen); err != nil {
				a.Logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	a.Logger.Info().
		Str("ticker", a.Config.Tracker.Ticker).
		Str("source", a.Config.Fetch.Source).
		Dur("interval", a.Config.Tracker.CheckInterval).
		Msg("starting price tracker")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		a.Logger.Error().Err(err).Msg("tracker terminated with error")
		return err
	}

	if a.Config.Export.OnShutdown {
		if err := a.exportOnShutdown(); err != nil {
			a.Logger.Error().Err(err).Msg("shutdown export failed")
		}
	}

	a.Logger.Info().Msg("price tracker stopped")
	return nil
}

func (a *App) exportOnShutdown() error {
	name := a.Config.Tracker.Ticker + "_price_history_" + time.Now().UTC().Format("20060102_150405") + ".csv"
	path := filepath.Join(a.Config.Export.Directory, name)
	return a.Export(context.Background(), ExportOptions{CSVPath: path})
}

// ExportOptions hold parameters for exporting the recorded session.
type ExportOptions struct {
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// BackfillOptions configure the history backfill.
type BackfillOptions struct {
	Hours    int
	Interval string
	Limit    int
}
