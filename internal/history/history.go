package history

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single observed price at an instant.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// Drop summarises the price move across an observation window: the earliest
// in-window price against the latest recorded one.
type Drop struct {
	Baseline   decimal.Decimal
	Current    decimal.Decimal
	PctChange  decimal.Decimal
	BaselineAt time.Time
	CurrentAt  time.Time
}

// OutOfOrderError reports a point whose timestamp does not advance the series.
type OutOfOrderError struct {
	Last time.Time
	Got  time.Time
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("out of order price point: got %s, last recorded %s",
		e.Got.Format(time.RFC3339Nano), e.Last.Format(time.RFC3339Nano))
}

// Options size the history buffer.
type Options struct {
	// Capacity is the ring size. The buffer grows past it instead of
	// evicting a point that is still protected at record time.
	Capacity int
	// Window is the drop observation window; points inside it are never
	// evicted.
	Window time.Duration
	// MinPoints is the number of most recent points always kept, so a
	// moving average over that many points never loses data to eviction.
	MinPoints int
}

const minCapacity = 2

// History is an append-only, time-ordered price series backed by a ring
// buffer. It is not safe for concurrent use; the tracking loop is the single
// writer.
type History struct {
	opts Options
	buf  []PricePoint
	head int
	size int
}

// New constructs an empty history.
func New(opts Options) *History {
	capacity := opts.Capacity
	if capacity < minCapacity {
		capacity = minCapacity
	}
	return &History{opts: opts, buf: make([]PricePoint, capacity)}
}

func (h *History) at(i int) PricePoint {
	return h.buf[(h.head+i)%len(h.buf)]
}

// Len reports the number of stored points.
func (h *History) Len() int { return h.size }

// Last returns the most recent point.
func (h *History) Last() (PricePoint, bool) {
	if h.size == 0 {
		return PricePoint{}, false
	}
	return h.at(h.size - 1), true
}

// Record appends a point. Timestamps must be strictly increasing; a stale or
// duplicate timestamp returns *OutOfOrderError and leaves the series
// unchanged.
func (h *History) Record(p PricePoint) error {
	if last, ok := h.Last(); ok && !p.Timestamp.After(last.Timestamp) {
		return &OutOfOrderError{Last: last.Timestamp, Got: p.Timestamp}
	}

	if h.size == len(h.buf) {
		if h.oldestEvictable(p.Timestamp) {
			h.buf[h.head] = p
			h.head = (h.head + 1) % len(h.buf)
			return nil
		}
		h.grow()
	}

	h.buf[(h.head+h.size)%len(h.buf)] = p
	h.size++
	return nil
}

func (h *History) oldestEvictable(now time.Time) bool {
	if h.size < h.opts.MinPoints {
		return false
	}
	if h.opts.Window <= 0 {
		return true
	}
	return h.buf[h.head].Timestamp.Before(now.Add(-h.opts.Window))
}

func (h *History) grow() {
	next := make([]PricePoint, len(h.buf)*2)
	for i := 0; i < h.size; i++ {
		next[i] = h.at(i)
	}
	h.buf = next
	h.head = 0
}

// SMA returns the arithmetic mean of the last period prices, or false while
// fewer than period points exist.
func (h *History) SMA(period int) (decimal.Decimal, bool) {
	if period <= 0 || h.size < period {
		return decimal.Decimal{}, false
	}
	sum := decimal.Zero
	for i := h.size - period; i < h.size; i++ {
		sum = sum.Add(h.at(i).Price)
	}
	return sum.Div(decimal.NewFromInt(int64(period))), true
}

// WindowedDrop compares the earliest point inside the window ending at now
// against the latest recorded point. It returns false when fewer than two
// points fall inside the window.
func (h *History) WindowedDrop(window time.Duration, now time.Time) (Drop, bool) {
	if window <= 0 || h.size == 0 {
		return Drop{}, false
	}

	cutoff := now.Add(-window)
	first := -1
	for i := 0; i < h.size; i++ {
		if !h.at(i).Timestamp.Before(cutoff) {
			first = i
			break
		}
	}
	if first < 0 || h.size-first < 2 {
		return Drop{}, false
	}

	base := h.at(first)
	cur := h.at(h.size - 1)
	if base.Price.IsZero() {
		return Drop{}, false
	}

	pct := cur.Price.Sub(base.Price).Div(base.Price).Mul(decimal.NewFromInt(100))
	return Drop{
		Baseline:   base.Price,
		Current:    cur.Price,
		PctChange:  pct,
		BaselineAt: base.Timestamp,
		CurrentAt:  cur.Timestamp,
	}, true
}

// Export returns a copy of the stored points in recording order. Mutating the
// result does not affect the history.
func (h *History) Export() []PricePoint {
	out := make([]PricePoint, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.at(i)
	}
	return out
}

// Restore replaces the series with the given points, validating order. Used
// when resuming from a saved session; on error the series is left unchanged.
func (h *History) Restore(points []PricePoint) error {
	for i := 1; i < len(points); i++ {
		if !points[i].Timestamp.After(points[i-1].Timestamp) {
			return &OutOfOrderError{Last: points[i-1].Timestamp, Got: points[i].Timestamp}
		}
	}

	capacity := len(h.buf)
	for capacity < len(points) {
		capacity *= 2
	}

	buf := make([]PricePoint, capacity)
	copy(buf, points)
	h.buf = buf
	h.head = 0
	h.size = len(points)
	return nil
}
