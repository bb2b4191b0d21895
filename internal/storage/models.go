package storage

import (
	"time"

	"price-drop-tracker/internal/history"
)

// Snapshot is the persisted session state for one instrument.
type Snapshot struct {
	Ticker        string               `json:"ticker"`
	Prices        []history.PricePoint `json:"prices"`
	LastAlertTime *time.Time           `json:"last_alert_time"`
	CheckpointSeq uint64               `json:"checkpoint_sequence_number"`
}
