package fetcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RetryOptions configure the retry wrapper around a Source.
type RetryOptions struct {
	// MaxRetries is the number of additional attempts after the first
	// failure, so a fetch makes at most MaxRetries+1 attempts.
	MaxRetries int
	// BaseDelay is the wait before the first retry; each further retry
	// doubles it.
	BaseDelay time.Duration
}

// Metrics receives fetch attempt outcomes. Implementations must be safe for
// concurrent use.
type Metrics interface {
	FetchAttempt()
	FetchFailure()
	FetchExhausted()
}

// Retrier wraps a Source with exponential-backoff retries.
type Retrier struct {
	source  Source
	opts    RetryOptions
	metrics Metrics
	logger  zerolog.Logger
}

// NewRetrier wraps source. metrics may be nil.
func NewRetrier(source Source, opts RetryOptions, metrics Metrics, logger zerolog.Logger) *Retrier {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	return &Retrier{
		source:  source,
		opts:    opts,
		metrics: metrics,
		logger:  logger.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch attempts the underlying fetch up to MaxRetries+1 times. Backoff waits
// honor ctx cancellation; when every attempt fails the returned error is a
// *FetchError wrapping the last cause.
func (r *Retrier) Fetch(ctx context.Context) (Quote, error) {
	var lastErr error

	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt)
			r.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("fetch attempt failed, retrying")

			select {
			case <-ctx.Done():
				return Quote{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		if r.metrics != nil {
			r.metrics.FetchAttempt()
		}

		quote, err := r.source.Fetch(ctx)
		if err == nil {
			return quote, nil
		}

		lastErr = err
		if r.metrics != nil {
			r.metrics.FetchFailure()
		}
		if ctx.Err() != nil {
			return Quote{}, ctx.Err()
		}
	}

	if r.metrics != nil {
		r.metrics.FetchExhausted()
	}
	return Quote{}, &FetchError{Attempts: r.opts.MaxRetries + 1, Cause: lastErr}
}

// backoff returns the wait before the given retry attempt (attempt >= 1).
func (r *Retrier) backoff(attempt int) time.Duration {
	delay := r.opts.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

var _ Source = (*Retrier)(nil)
