package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const spotPricePath = "/prices/%s/spot"

// CoinbaseOptions parameterise the Coinbase spot price fetcher.
type CoinbaseOptions struct {
	BaseURL   string
	Ticker    string
	Timeout   time.Duration
	UserAgent string
}

// Coinbase fetches spot prices from the Coinbase public API.
type Coinbase struct {
	opts    CoinbaseOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinbase constructs a Coinbase fetcher.
func NewCoinbase(opts CoinbaseOptions, logger zerolog.Logger) *Coinbase {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coinbase.com/v2"
	}

	return &Coinbase{
		opts:    opts,
		logger:  logger.With().Str("component", "coinbase_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Fetch retrieves the current spot price for the configured ticker.
func (c *Coinbase) Fetch(ctx context.Context) (Quote, error) {
	ticker := strings.TrimSpace(c.opts.Ticker)
	if ticker == "" {
		return Quote{}, errors.New("ticker not configured")
	}

	endpoint := c.baseURL + fmt.Sprintf(spotPricePath, ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "pricetracker/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Quote{}, parseHTTPError(resp.StatusCode, payload)
	}

	var spot spotResponse
	if err := json.Unmarshal(payload, &spot); err != nil {
		return Quote{}, err
	}

	price, err := decimal.NewFromString(spot.Data.Amount)
	if err != nil {
		return Quote{}, fmt.Errorf("parse spot amount: %w", err)
	}
	if !price.IsPositive() {
		return Quote{}, errors.New("spot price not positive")
	}

	return Quote{Price: price, Timestamp: time.Now().UTC()}, nil
}

type spotResponse struct {
	Data struct {
		Base     string `json:"base"`
		Currency string `json:"currency"`
		Amount   string `json:"amount"`
	} `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"errors"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && len(apiErr.Errors) > 0 {
		first := apiErr.Errors[0]
		if first.Message != "" {
			return fmt.Errorf("coinbase api error (%d): %s", status, first.Message)
		}
		if first.ID != "" {
			return fmt.Errorf("coinbase api error (%d): %s", status, first.ID)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("coinbase api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("coinbase api error (%d)", status)
}

var _ Source = (*Coinbase)(nil)
