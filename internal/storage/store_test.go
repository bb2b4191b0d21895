package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-drop-tracker/internal/history"
)

func testStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "BTC-USD_session.json"), zerolog.Nop())
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := testStore(t)
	alertAt := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	snap := Snapshot{
		Ticker: "BTC-USD",
		Prices: []history.PricePoint{
			{Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Price: decimal.RequireFromString("65000.12")},
			{Timestamp: time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC), Price: decimal.RequireFromString("64415.5")},
		},
		LastAlertTime: &alertAt,
		CheckpointSeq: 7,
	}

	if err := store.Save(snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load("BTC-USD")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a snapshot")
	}
	if got.Ticker != "BTC-USD" || got.CheckpointSeq != 7 {
		t.Fatalf("unexpected snapshot header: %+v", got)
	}
	if len(got.Prices) != 2 {
		t.Fatalf("points = %d, want 2", len(got.Prices))
	}
	if !got.Prices[0].Price.Equal(snap.Prices[0].Price) {
		t.Fatalf("price[0] = %s, want %s", got.Prices[0].Price, snap.Prices[0].Price)
	}
	if !got.Prices[1].Timestamp.Equal(snap.Prices[1].Timestamp) {
		t.Fatalf("timestamp[1] = %s", got.Prices[1].Timestamp)
	}
	if got.LastAlertTime == nil || !got.LastAlertTime.Equal(alertAt) {
		t.Fatalf("last alert = %v, want %s", got.LastAlertTime, alertAt)
	}

	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file must not survive a successful save")
	}
}

func TestFileStoreNilLastAlertRoundTrip(t *testing.T) {
	store := testStore(t)

	if err := store.Save(Snapshot{Ticker: "BTC-USD"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load("BTC-USD")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.LastAlertTime != nil {
		t.Fatalf("last alert should stay nil, got %v", got.LastAlertTime)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := testStore(t)

	got, err := store.Load("BTC-USD")
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil snapshot, got %+v", got)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	store := testStore(t)
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	got, err := store.Load("BTC-USD")
	if err != nil {
		t.Fatalf("corrupt file must not be an error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil snapshot, got %+v", got)
	}
}

func TestFileStoreTickerMismatch(t *testing.T) {
	store := testStore(t)

	if err := store.Save(Snapshot{Ticker: "ETH-USD"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load("BTC-USD")
	if err != nil {
		t.Fatalf("mismatch must not be an error: %v", err)
	}
	if got != nil {
		t.Fatal("a session for another ticker must be discarded")
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	store := NewFileStore("", zerolog.Nop())
	if err := store.Save(Snapshot{Ticker: "BTC-USD"}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
