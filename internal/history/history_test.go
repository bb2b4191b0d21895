package history

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustRecord(t *testing.T, h *History, ts time.Time, price string) {
	t.Helper()
	if err := h.Record(PricePoint{Timestamp: ts, Price: decimal.RequireFromString(price)}); err != nil {
		t.Fatalf("record %s at %s failed: %v", price, ts, err)
	}
}

func TestRecordRejectsOutOfOrder(t *testing.T) {
	h := New(Options{Capacity: 8})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mustRecord(t, h, base, "100")
	mustRecord(t, h, base.Add(time.Minute), "101")

	err := h.Record(PricePoint{Timestamp: base.Add(time.Minute), Price: decimal.NewFromInt(102)})
	var ooErr *OutOfOrderError
	if !errors.As(err, &ooErr) {
		t.Fatalf("expected OutOfOrderError for duplicate timestamp, got %v", err)
	}

	err = h.Record(PricePoint{Timestamp: base.Add(30 * time.Second), Price: decimal.NewFromInt(102)})
	if !errors.As(err, &ooErr) {
		t.Fatalf("expected OutOfOrderError for stale timestamp, got %v", err)
	}

	if h.Len() != 2 {
		t.Fatalf("rejected points must not change the series, len = %d", h.Len())
	}
	last, _ := h.Last()
	if !last.Price.Equal(decimal.NewFromInt(101)) {
		t.Fatalf("unexpected last price %s", last.Price)
	}
}

func TestSMARequiresFullPeriod(t *testing.T) {
	h := New(Options{Capacity: 8})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mustRecord(t, h, base, "10")
	mustRecord(t, h, base.Add(time.Minute), "20")

	if _, ok := h.SMA(3); ok {
		t.Fatal("sma must be unavailable with fewer points than the period")
	}

	mustRecord(t, h, base.Add(2*time.Minute), "30")

	got, ok := h.SMA(3)
	if !ok {
		t.Fatal("sma should be available with exactly period points")
	}
	if !got.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("sma = %s, want 20", got)
	}

	mustRecord(t, h, base.Add(3*time.Minute), "40")

	got, ok = h.SMA(3)
	if !ok {
		t.Fatal("sma should remain available")
	}
	if !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("sma over last 3 = %s, want 30", got)
	}
}

func TestWindowedDrop(t *testing.T) {
	h := New(Options{Capacity: 16})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mustRecord(t, h, base, "100")

	if _, ok := h.WindowedDrop(time.Hour, base.Add(time.Minute)); ok {
		t.Fatal("a single point cannot produce a windowed drop")
	}

	mustRecord(t, h, base.Add(30*time.Minute), "98")
	mustRecord(t, h, base.Add(60*time.Minute), "95")

	now := base.Add(65 * time.Minute)
	drop, ok := h.WindowedDrop(time.Hour, now)
	if !ok {
		t.Fatal("expected a drop with three points in range")
	}
	// cutoff lands at base+5m, so the 30m point becomes the baseline.
	if !drop.Baseline.Equal(decimal.NewFromInt(98)) {
		t.Fatalf("baseline = %s, want 98", drop.Baseline)
	}
	if !drop.Current.Equal(decimal.NewFromInt(95)) {
		t.Fatalf("current = %s, want 95", drop.Current)
	}
	if !drop.BaselineAt.Equal(base.Add(30 * time.Minute)) {
		t.Fatalf("baseline timestamp = %s", drop.BaselineAt)
	}
}

func TestWindowedDropPercentExact(t *testing.T) {
	h := New(Options{Capacity: 8})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mustRecord(t, h, base, "100")
	mustRecord(t, h, base.Add(time.Minute), "95")

	drop, ok := h.WindowedDrop(time.Hour, base.Add(2*time.Minute))
	if !ok {
		t.Fatal("expected a drop")
	}
	if !drop.PctChange.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("pct change = %s, want -5", drop.PctChange)
	}
}

func TestWindowedDropAllPointsOutside(t *testing.T) {
	h := New(Options{Capacity: 8})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mustRecord(t, h, base, "100")
	mustRecord(t, h, base.Add(time.Minute), "99")

	if _, ok := h.WindowedDrop(time.Hour, base.Add(3*time.Hour)); ok {
		t.Fatal("points older than the window must not produce a drop")
	}
}

func TestRecordGrowsInsteadOfEvictingWindowedPoints(t *testing.T) {
	h := New(Options{Capacity: 4, Window: 24 * time.Hour})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		mustRecord(t, h, base.Add(time.Duration(i)*time.Minute), decimal.NewFromInt(int64(100+i)).String())
	}

	if h.Len() != 5 {
		t.Fatalf("len = %d, want 5; in-window points must never be dropped", h.Len())
	}
	points := h.Export()
	for i, p := range points {
		want := decimal.NewFromInt(int64(100 + i))
		if !p.Price.Equal(want) {
			t.Fatalf("point %d price = %s, want %s", i, p.Price, want)
		}
	}
}

func TestRecordGrowsToKeepAveragePoints(t *testing.T) {
	h := New(Options{Capacity: 4, Window: time.Minute, MinPoints: 6})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// points spaced far apart: all fall out of the window, but the last
	// six must survive for the moving average
	for i := 0; i < 6; i++ {
		mustRecord(t, h, base.Add(time.Duration(i)*10*time.Minute), decimal.NewFromInt(int64(100+i)).String())
	}

	if h.Len() != 6 {
		t.Fatalf("len = %d, want 6; points backing the average must never be dropped", h.Len())
	}
	if _, ok := h.SMA(6); !ok {
		t.Fatal("sma over the protected point count must stay available")
	}
}

func TestRecordEvictsExpiredPoints(t *testing.T) {
	h := New(Options{Capacity: 4, Window: 2 * time.Minute})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		mustRecord(t, h, base.Add(time.Duration(i)*time.Minute), decimal.NewFromInt(int64(100+i)).String())
	}

	if h.Len() != 4 {
		t.Fatalf("len = %d, want 4; expired points should be evicted in place", h.Len())
	}
	oldest := h.Export()[0]
	if !oldest.Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("oldest point at %s, want %s", oldest.Timestamp, base.Add(2*time.Minute))
	}
}

func TestExportReturnsCopy(t *testing.T) {
	h := New(Options{Capacity: 4})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mustRecord(t, h, base, "100")
	mustRecord(t, h, base.Add(time.Minute), "101")

	out := h.Export()
	out[0].Price = decimal.NewFromInt(1)

	if got := h.Export()[0].Price; !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("mutating the export changed the series: %s", got)
	}
}

func TestRestore(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	points := []PricePoint{
		{Timestamp: base, Price: decimal.NewFromInt(100)},
		{Timestamp: base.Add(time.Minute), Price: decimal.NewFromInt(101)},
		{Timestamp: base.Add(2 * time.Minute), Price: decimal.NewFromInt(102)},
	}

	h := New(Options{Capacity: 2})
	if err := h.Restore(points); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}
	last, _ := h.Last()
	if !last.Price.Equal(decimal.NewFromInt(102)) {
		t.Fatalf("last price = %s, want 102", last.Price)
	}

	mustRecord(t, h, base.Add(3*time.Minute), "103")
}

func TestRestoreRejectsUnorderedPoints(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	h := New(Options{Capacity: 4})
	mustRecord(t, h, base, "50")

	bad := []PricePoint{
		{Timestamp: base.Add(time.Minute), Price: decimal.NewFromInt(100)},
		{Timestamp: base.Add(time.Minute), Price: decimal.NewFromInt(101)},
	}

	var ooErr *OutOfOrderError
	if err := h.Restore(bad); !errors.As(err, &ooErr) {
		t.Fatalf("expected OutOfOrderError, got %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("failed restore must leave the series unchanged, len = %d", h.Len())
	}
}
