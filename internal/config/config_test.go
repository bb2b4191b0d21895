package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with defaults failed: %v", err)
	}

	if cfg.Tracker.Ticker != "BTC-USD" {
		t.Fatalf("ticker = %q, want BTC-USD", cfg.Tracker.Ticker)
	}
	if cfg.Tracker.SMAPeriod != 10 {
		t.Fatalf("sma period = %d, want 10", cfg.Tracker.SMAPeriod)
	}
	if cfg.Tracker.CheckInterval != time.Minute {
		t.Fatalf("check interval = %s, want 1m", cfg.Tracker.CheckInterval)
	}
	if cfg.Tracker.PriceDropThreshold != 2.0 {
		t.Fatalf("threshold = %v, want 2.0", cfg.Tracker.PriceDropThreshold)
	}
	if cfg.AlertWindow() != time.Hour {
		t.Fatalf("alert window = %s, want 1h", cfg.AlertWindow())
	}
	if cfg.Fetch.Source != "coinbase" {
		t.Fatalf("source = %q, want coinbase", cfg.Fetch.Source)
	}
	if cfg.Fetch.MaxRetries != 3 {
		t.Fatalf("max retries = %d, want 3", cfg.Fetch.MaxRetries)
	}
	if cfg.Alerting.Cooldown != 5*time.Minute {
		t.Fatalf("cooldown = %s, want 5m", cfg.Alerting.Cooldown)
	}
	if cfg.Session.CheckpointInterval != 10 {
		t.Fatalf("checkpoint interval = %d, want 10", cfg.Session.CheckpointInterval)
	}
	if cfg.SessionFile() != "BTC-USD_session.json" {
		t.Fatalf("session file = %q", cfg.SessionFile())
	}
	if cfg.HistoryCapacity() < 61 {
		t.Fatalf("history capacity = %d, must cover a full window", cfg.HistoryCapacity())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
tracker:
  ticker: ETH-USD
  sma_period: 5
  check_interval: 30s
  price_drop_threshold: 3.5
  alert_window_minutes: 15
fetch:
  source: coinpaprika
  max_retries: 1
session:
  file: /tmp/eth.json
  checkpoint_interval: 4
alerting:
  cooldown: 10m
  telegram:
    bot_token: token
    chat_id: chat
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Tracker.Ticker != "ETH-USD" {
		t.Fatalf("ticker = %q", cfg.Tracker.Ticker)
	}
	if cfg.Tracker.CheckInterval != 30*time.Second {
		t.Fatalf("check interval = %s", cfg.Tracker.CheckInterval)
	}
	if cfg.AlertWindow() != 15*time.Minute {
		t.Fatalf("alert window = %s", cfg.AlertWindow())
	}
	if cfg.Fetch.Source != "coinpaprika" {
		t.Fatalf("source = %q", cfg.Fetch.Source)
	}
	if cfg.SessionFile() != "/tmp/eth.json" {
		t.Fatalf("session file = %q", cfg.SessionFile())
	}
	if cfg.Alerting.Cooldown != 10*time.Minute {
		t.Fatalf("cooldown = %s", cfg.Alerting.Cooldown)
	}
	if !cfg.Alerting.Telegram.Ready() {
		t.Fatal("telegram should be ready with token and chat id")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("load defaults: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Tracker.Ticker = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty ticker must fail validation")
	}

	cfg = base()
	cfg.Tracker.SMAPeriod = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero sma period must fail validation")
	}

	cfg = base()
	cfg.Tracker.PriceDropThreshold = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative threshold must fail validation")
	}

	cfg = base()
	cfg.Fetch.Source = "yahoo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown source must fail validation")
	}

	cfg = base()
	cfg.Fetch.Source = "chainlink"
	if err := cfg.Validate(); err == nil {
		t.Fatal("chainlink without rpc url must fail validation")
	}

	cfg = base()
	cfg.Session.CheckpointInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero checkpoint interval must fail validation")
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 500}}
	if got := cfg.ResolveMaxPoints(0); got != 500 {
		t.Fatalf("default = %d, want 500", got)
	}
	if got := cfg.ResolveMaxPoints(7); got != 7 {
		t.Fatalf("override = %d, want 7", got)
	}
}
