package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every cycle.
type TickFunc func(ctx context.Context, now time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval time.Duration
	// Immediate runs the first cycle right away instead of waiting one
	// interval.
	Immediate    bool
	StartupDelay time.Duration
}

// Scheduler drives cycles at a fixed cadence, measured cycle start to cycle
// start so slow ticks do not stretch the interval.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function every interval until ctx is
// cancelled. Tick errors are logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	next := time.Now().UTC()
	if !s.opts.Immediate {
		next = next.Add(s.opts.Interval)
	}

	for {
		delay := time.Until(next)
		if delay < 0 {
			// the previous tick overran one or more intervals
			next = time.Now().UTC()
			delay = 0
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_cycle", next).Msg("waiting for next cycle")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		start := next
		if err := tick(ctx, start); err != nil {
			s.logger.Error().Err(err).Time("cycle", start).Msg("cycle execution failed")
		}

		next = next.Add(s.opts.Interval)
	}
}
