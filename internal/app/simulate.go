package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"price-drop-tracker/internal/alerting"
	"price-drop-tracker/internal/history"
)

// SimulateAlert 以给定起始价和跌幅构造一段下跌行情，驱动一次完整的告警流程。
func (a *App) SimulateAlert(ctx context.Context, start, dropPct decimal.Decimal) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置 telegram 告警通道")
	}

	hundred := decimal.NewFromInt(100)
	target := start.Mul(hundred.Sub(dropPct)).Div(hundred)

	now := time.Now().UTC()
	hist := history.New(history.Options{Capacity: 16, Window: a.Config.AlertWindow()})
	points := []history.PricePoint{
		{Timestamp: now.Add(-2 * time.Minute), Price: start},
		{Timestamp: now.Add(-time.Minute), Price: start},
		{Timestamp: now, Price: target},
	}
	for _, p := range points {
		if err := hist.Record(p); err != nil {
			return err
		}
	}

	drop, ok := hist.WindowedDrop(a.Config.AlertWindow(), now)
	if !ok {
		return errors.New("模拟数据不足，无法计算窗口跌幅")
	}

	threshold := decimal.NewFromFloat(a.Config.Tracker.PriceDropThreshold)
	engine := alerting.NewEngine(alerting.EngineOptions{
		ThresholdPct: threshold,
		Cooldown:     a.Config.Alerting.Cooldown,
	}, a.Logger)

	decision := engine.Evaluate(&drop, now)
	a.Logger.Info().
		Str("change_pct", drop.PctChange.StringFixed(2)).
		Bool("fire", decision.Fire).
		Str("reason", decision.Reason).
		Msg("simulated evaluation")

	if !decision.Fire {
		return fmt.Errorf("模拟跌幅 %s%% 未达到阈值 %s%%", dropPct.String(), threshold.String())
	}

	note := alerting.Notification{
		Ticker:        a.Config.Tracker.Ticker,
		Baseline:      drop.Baseline,
		Current:       drop.Current,
		PctChange:     drop.PctChange,
		ThresholdPct:  threshold,
		Window:        a.Config.AlertWindow(),
		At:            now,
		AdditionalMsg: "(simulated)",
	}
	return notifier.Notify(ctx, note)
}
