package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// SessionStore persists and restores tracking sessions.
type SessionStore interface {
	Save(snap Snapshot) error
	Load(ticker string) (*Snapshot, error)
}

// FileStore keeps the session in a single JSON file, replaced atomically on
// every save.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore builds a store writing to path.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "session_store").Logger(),
	}
}

// Path returns the session file location.
func (s *FileStore) Path() string { return s.path }

// Save writes the snapshot to a temp file and renames it over the session
// file, so a crash mid-write never leaves a truncated session behind.
func (s *FileStore) Save(snap Snapshot) error {
	if s.path == "" {
		return errors.New("session file path not configured")
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Load reads the session for ticker. A missing, unreadable, or mismatched
// file is not an error; it returns (nil, nil) and tracking starts fresh.
func (s *FileStore) Load(ticker string) (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("session file unreadable, starting fresh")
		return nil, nil
	}

	if snap.Ticker != ticker {
		s.logger.Warn().
			Str("session_ticker", snap.Ticker).
			Str("ticker", ticker).
			Msg("session belongs to another instrument, discarding")
		return nil, nil
	}

	return &snap, nil
}

var _ SessionStore = (*FileStore)(nil)
