package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"ATHWatch/internal/model"
)

const (
	DefaultCoinbaseURL = "https://api.exchange.coinbase.com"
	dailyGranularity   = 86400
)

// CoinbaseFetcher implements CandleFetcher and SpotFetcher using the Coinbase Exchange REST API.
type CoinbaseFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewCoinbaseFetcher creates a fetcher against baseURL (DefaultCoinbaseURL if empty).
func NewCoinbaseFetcher(baseURL string, client *http.Client) *CoinbaseFetcher {
	if baseURL == "" {
		baseURL = DefaultCoinbaseURL
	}
	return &CoinbaseFetcher{BaseURL: baseURL, Client: client}
}

func (f *CoinbaseFetcher) Name() string { return "coinbase" }

// FetchCandles returns daily candles for [start, end] in chronological order.
// Coinbase returns rows as [time, low, high, open, close, volume].
func (f *CoinbaseFetcher) FetchCandles(ctx context.Context, pair string, start, end civil.Date) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("start", start.String())
	q.Set("end", end.String())
	q.Set("granularity", fmt.Sprint(dailyGranularity))
	endpoint := fmt.Sprintf("%s/products/%s/candles?%s", f.BaseURL, url.PathEscape(pair), q.Encode())

	body, err := get(ctx, f.Client, f.Name(), pair, endpoint)
	if err != nil {
		return nil, err
	}

	var rows [][]json.Number
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, newSourceError(f.Name(), pair, 0, fmt.Errorf("decode candles: %w", err))
	}

	candles := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := parseCoinbaseRow(row)
		if err != nil {
			return nil, newSourceError(f.Name(), pair, 0, fmt.Errorf("candle %d: %w", i, err))
		}
		candles = append(candles, c)
	}
	// Coinbase returns newest first.
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

func parseCoinbaseRow(row []json.Number) (model.Candle, error) {
	if len(row) < 3 {
		return model.Candle{}, fmt.Errorf("short row: %d fields", len(row))
	}
	ts, err := row[0].Int64()
	if err != nil {
		return model.Candle{}, fmt.Errorf("timestamp: %w", err)
	}
	vals := make([]decimal.Decimal, 5)
	for i := 1; i < len(row) && i <= 5; i++ {
		v, err := decimal.NewFromString(row[i].String())
		if err != nil {
			return model.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		vals[i-1] = v
	}
	return model.Candle{
		Time:   time.Unix(ts, 0).UTC(),
		Low:    vals[0],
		High:   vals[1],
		Open:   vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// FetchSpot returns the last trade price from the product ticker.
func (f *CoinbaseFetcher) FetchSpot(ctx context.Context, pair string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/products/%s/ticker", f.BaseURL, url.PathEscape(pair))
	body, err := get(ctx, f.Client, f.Name(), pair, endpoint)
	if err != nil {
		return decimal.Zero, err
	}
	var ticker struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return decimal.Zero, newSourceError(f.Name(), pair, 0, fmt.Errorf("decode ticker: %w", err))
	}
	if !ticker.Price.IsPositive() {
		return decimal.Zero, newSourceError(f.Name(), pair, 0, fmt.Errorf("invalid price %s", ticker.Price))
	}
	return ticker.Price, nil
}
