package alerting

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-drop-tracker/internal/history"
)

// State is the alert gate state.
type State int

const (
	StateArmed State = iota
	StateCoolingDown
)

func (s State) String() string {
	switch s {
	case StateCoolingDown:
		return "cooling_down"
	default:
		return "armed"
	}
}

// Evaluation reasons.
const (
	ReasonFired          = "threshold_breached"
	ReasonThrottled      = "throttled"
	ReasonNoData         = "insufficient_data"
	ReasonBelowThreshold = "below_threshold"
)

// Decision is the outcome of one evaluation cycle.
type Decision struct {
	Fire   bool
	Reason string
	State  State
}

// EngineOptions configure the alert gate.
type EngineOptions struct {
	// ThresholdPct is the drop magnitude that fires an alert, as a positive
	// percentage (2 means alert at -2% or lower).
	ThresholdPct decimal.Decimal
	Cooldown     time.Duration
}

// Engine 决定窗口跌幅是否触发告警，并负责冷却限流。
type Engine struct {
	opts      EngineOptions
	logger    zerolog.Logger
	lastAlert *time.Time
}

// NewEngine 构造告警判定引擎。
func NewEngine(opts EngineOptions, logger zerolog.Logger) *Engine {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Minute
	}
	return &Engine{
		opts:   opts,
		logger: logger.With().Str("component", "alert_engine").Logger(),
	}
}

// StateAt reports the gate state at the given instant. The gate re-arms
// exactly when the cooldown elapses.
func (e *Engine) StateAt(now time.Time) State {
	if e.lastAlert != nil && now.Sub(*e.lastAlert) < e.opts.Cooldown {
		return StateCoolingDown
	}
	return StateArmed
}

// LastAlert returns the time of the most recent fired alert, nil when none.
func (e *Engine) LastAlert() *time.Time {
	if e.lastAlert == nil {
		return nil
	}
	t := *e.lastAlert
	return &t
}

// RestoreLastAlert 恢复会话中的最近告警时间，nil 表示从未告警。
func (e *Engine) RestoreLastAlert(t *time.Time) {
	if t == nil {
		e.lastAlert = nil
		return
	}
	utc := t.UTC()
	e.lastAlert = &utc
}

// Evaluate 判断本轮是否触发告警。drop 为 nil 表示窗口数据不足。
func (e *Engine) Evaluate(drop *history.Drop, now time.Time) Decision {
	state := e.StateAt(now)

	if drop == nil {
		return Decision{Reason: ReasonNoData, State: state}
	}

	if drop.PctChange.GreaterThan(e.opts.ThresholdPct.Neg()) {
		return Decision{Reason: ReasonBelowThreshold, State: state}
	}

	if state == StateCoolingDown {
		e.logger.Debug().
			Str("change_pct", drop.PctChange.StringFixed(2)).
			Time("last_alert", *e.lastAlert).
			Msg("threshold breached during cooldown")
		return Decision{Reason: ReasonThrottled, State: state}
	}

	fired := now.UTC()
	e.lastAlert = &fired
	return Decision{Fire: true, Reason: ReasonFired, State: state}
}
