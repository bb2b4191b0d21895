package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a single price observation from an upstream source.
type Quote struct {
	Price     decimal.Decimal
	Timestamp time.Time
}

// Source fetches the current price of the configured instrument.
type Source interface {
	Fetch(ctx context.Context) (Quote, error)
}

// HistorySource is implemented by sources that can also serve historical
// quotes, used to pre-warm a session.
type HistorySource interface {
	FetchHistory(ctx context.Context, start time.Time, interval string, limit int) ([]Quote, error)
}

// FetchError reports that every attempt of a retried fetch failed.
type FetchError struct {
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }
