package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const quoteCurrency = "USD"

// PaprikaOptions parameterise the CoinPaprika fetcher.
type PaprikaOptions struct {
	Ticker string
	// CoinID pins the CoinPaprika coin id (e.g. "btc-bitcoin"). When empty
	// the id is resolved once from the ticker's base symbol.
	CoinID  string
	APIKey  string
	Timeout time.Duration
}

// Paprika fetches prices from the CoinPaprika API. The client does not take a
// context, so request deadlines come from the underlying http client timeout.
type Paprika struct {
	opts   PaprikaOptions
	logger zerolog.Logger
	client *coinpaprika.Client

	mu     sync.Mutex
	coinID string
}

// NewPaprika constructs a CoinPaprika fetcher.
func NewPaprika(opts PaprikaOptions, logger zerolog.Logger) *Paprika {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	var client *coinpaprika.Client
	if key := strings.TrimSpace(opts.APIKey); key != "" {
		client = coinpaprika.NewClient(httpClient, coinpaprika.WithAPIKey(key))
	} else {
		client = coinpaprika.NewClient(httpClient)
	}

	return &Paprika{
		opts:   opts,
		logger: logger.With().Str("component", "paprika_fetcher").Logger(),
		client: client,
		coinID: strings.TrimSpace(opts.CoinID),
	}
}

// Fetch retrieves the current USD price for the configured instrument.
func (p *Paprika) Fetch(ctx context.Context) (Quote, error) {
	coinID, err := p.resolveCoinID()
	if err != nil {
		return Quote{}, err
	}

	ticker, err := p.client.Tickers.GetByID(coinID, &coinpaprika.TickersOptions{Quotes: quoteCurrency})
	if err != nil {
		return Quote{}, fmt.Errorf("coinpaprika ticker %s: %w", coinID, err)
	}

	usd, ok := ticker.Quotes[quoteCurrency]
	if !ok || usd == nil || usd.Price == nil {
		return Quote{}, fmt.Errorf("coinpaprika ticker %s missing %s quote", coinID, quoteCurrency)
	}

	price := decimal.NewFromFloat(*usd.Price)
	if !price.IsPositive() {
		return Quote{}, errors.New("coinpaprika price not positive")
	}

	return Quote{Price: price, Timestamp: time.Now().UTC()}, nil
}

// FetchHistory returns historical quotes starting at start, oldest first as
// served by the API.
func (p *Paprika) FetchHistory(ctx context.Context, start time.Time, interval string, limit int) ([]Quote, error) {
	coinID, err := p.resolveCoinID()
	if err != nil {
		return nil, err
	}

	if interval == "" {
		interval = "1h"
	}
	if limit <= 0 {
		limit = 120
	}

	tickers, err := p.client.Tickers.GetHistoricalTickersByID(coinID, &coinpaprika.TickersHistoricalOptions{
		Quote:    quoteCurrency,
		Limit:    limit,
		Interval: interval,
		Start:    start,
	})
	if err != nil {
		return nil, fmt.Errorf("coinpaprika history %s: %w", coinID, err)
	}

	quotes := make([]Quote, 0, len(tickers))
	for _, t := range tickers {
		if t == nil || t.Timestamp == nil || t.Price == nil {
			continue
		}
		price := decimal.NewFromFloat(*t.Price)
		if !price.IsPositive() {
			continue
		}
		quotes = append(quotes, Quote{Price: price, Timestamp: t.Timestamp.UTC()})
	}
	return quotes, nil
}

// resolveCoinID maps the instrument's base symbol to a CoinPaprika coin id,
// caching the result.
func (p *Paprika) resolveCoinID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.coinID != "" {
		return p.coinID, nil
	}

	symbol := baseSymbol(p.opts.Ticker)
	if symbol == "" {
		return "", errors.New("ticker not configured")
	}

	result, err := p.client.Search.Search(&coinpaprika.SearchOptions{
		Query:      symbol,
		Categories: "currencies",
		Modifier:   "symbol_search",
	})
	if err != nil {
		return "", fmt.Errorf("coinpaprika search %s: %w", symbol, err)
	}
	if len(result.Currencies) == 0 || result.Currencies[0].ID == nil {
		return "", fmt.Errorf("coinpaprika has no currency matching %s", symbol)
	}

	p.coinID = *result.Currencies[0].ID
	p.logger.Info().Str("symbol", symbol).Str("coin_id", p.coinID).Msg("resolved coinpaprika coin id")
	return p.coinID, nil
}

// baseSymbol extracts the base asset from a ticker like "BTC-USD".
func baseSymbol(ticker string) string {
	ticker = strings.TrimSpace(ticker)
	if base, _, found := strings.Cut(ticker, "-"); found {
		return strings.ToUpper(base)
	}
	return strings.ToUpper(ticker)
}

var (
	_ Source        = (*Paprika)(nil)
	_ HistorySource = (*Paprika)(nil)
)
