package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"price-drop-tracker/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Session  SessionConfig  `mapstructure:"session"`
	Export   ExportConfig   `mapstructure:"export"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// TrackerConfig governs the tracking loop.
type TrackerConfig struct {
	Ticker             string        `mapstructure:"ticker"`
	SMAPeriod          int           `mapstructure:"sma_period"`
	CheckInterval      time.Duration `mapstructure:"check_interval"`
	PriceDropThreshold float64       `mapstructure:"price_drop_threshold"`
	AlertWindowMinutes int           `mapstructure:"alert_window_minutes"`
	StartupDelay       time.Duration `mapstructure:"startup_delay"`
}

// FetchConfig selects and tunes the price source.
type FetchConfig struct {
	Source         string          `mapstructure:"source"`
	MaxRetries     int             `mapstructure:"max_retries"`
	BaseDelay      time.Duration   `mapstructure:"base_delay"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	Coinbase       CoinbaseConfig  `mapstructure:"coinbase"`
	Paprika        PaprikaConfig   `mapstructure:"coinpaprika"`
	Chainlink      ChainlinkConfig `mapstructure:"chainlink"`
}

// CoinbaseConfig covers the Coinbase spot API.
type CoinbaseConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// PaprikaConfig covers the CoinPaprika API.
type PaprikaConfig struct {
	CoinID string `mapstructure:"coin_id"`
	APIKey string `mapstructure:"api_key"`
}

// ChainlinkConfig covers on-chain price feed access.
type ChainlinkConfig struct {
	RPCURL      string `mapstructure:"rpc_url"`
	FeedAddress string `mapstructure:"feed_address"`
}

// AlertingConfig defines alert throttling and routing.
type AlertingConfig struct {
	Cooldown time.Duration  `mapstructure:"cooldown"`
	Beep     bool           `mapstructure:"beep"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Ready reports whether the Telegram channel is fully configured.
func (t TelegramConfig) Ready() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// SessionConfig controls session persistence.
type SessionConfig struct {
	File               string `mapstructure:"file"`
	CheckpointInterval int    `mapstructure:"checkpoint_interval"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int    `mapstructure:"max_data_points"`
	OnShutdown    bool   `mapstructure:"on_shutdown"`
	Directory     string `mapstructure:"directory"`
}

// MetricsConfig exposes the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICETRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pricetracker")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tracker.ticker", "BTC-USD")
	v.SetDefault("tracker.sma_period", 10)
	v.SetDefault("tracker.check_interval", "60s")
	v.SetDefault("tracker.price_drop_threshold", 2.0)
	v.SetDefault("tracker.alert_window_minutes", 60)
	v.SetDefault("tracker.startup_delay", "0s")

	v.SetDefault("fetch.source", "coinbase")
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.base_delay", "1s")
	v.SetDefault("fetch.request_timeout", "10s")
	v.SetDefault("fetch.coinbase.base_url", "https://api.coinbase.com/v2")
	v.SetDefault("fetch.coinbase.user_agent", "pricetracker/1.0")

	v.SetDefault("alerting.cooldown", "5m")
	v.SetDefault("alerting.beep", true)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("session.file", "")
	v.SetDefault("session.checkpoint_interval", 10)

	v.SetDefault("export.max_data_points", 100000)
	v.SetDefault("export.on_shutdown", false)
	v.SetDefault("export.directory", ".")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9090")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Tracker.Ticker == "" {
		return fmt.Errorf("tracker.ticker must be set")
	}
	if c.Tracker.SMAPeriod <= 0 {
		return fmt.Errorf("tracker.sma_period must be greater than zero")
	}
	if c.Tracker.CheckInterval <= 0 {
		return fmt.Errorf("tracker.check_interval must be greater than zero")
	}
	if c.Tracker.PriceDropThreshold <= 0 {
		return fmt.Errorf("tracker.price_drop_threshold must be greater than zero")
	}
	if c.Tracker.AlertWindowMinutes <= 0 {
		return fmt.Errorf("tracker.alert_window_minutes must be greater than zero")
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries cannot be negative")
	}
	switch c.Fetch.Source {
	case "coinbase", "coinpaprika", "chainlink":
	default:
		return fmt.Errorf("fetch.source must be one of coinbase, coinpaprika, chainlink")
	}
	if c.Session.CheckpointInterval <= 0 {
		return fmt.Errorf("session.checkpoint_interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Fetch.Source == "chainlink" {
		if c.Fetch.Chainlink.RPCURL == "" {
			return fmt.Errorf("fetch.chainlink.rpc_url 必须配置")
		}
		if c.Fetch.Chainlink.FeedAddress == "" {
			return fmt.Errorf("fetch.chainlink.feed_address 必须配置")
		}
	}
	return nil
}

// AlertWindow returns the drop observation window as a duration.
func (c *Config) AlertWindow() time.Duration {
	return time.Duration(c.Tracker.AlertWindowMinutes) * time.Minute
}

// SessionFile resolves the session file path, defaulting to
// "<ticker>_session.json" in the working directory.
func (c *Config) SessionFile() string {
	if c.Session.File != "" {
		return c.Session.File
	}
	return c.Tracker.Ticker + "_session.json"
}

// HistoryCapacity sizes the in-memory ring so a full alert window plus the
// SMA period fit without eviction.
func (c *Config) HistoryCapacity() int {
	points := int(c.AlertWindow()/c.Tracker.CheckInterval) + 1
	if points < c.Tracker.SMAPeriod {
		points = c.Tracker.SMAPeriod
	}
	return points + points/4 + c.Tracker.SMAPeriod
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
