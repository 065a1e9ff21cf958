package collector

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"ATHWatch/internal/model"
)

// CandleFetcher returns one page of daily candles for an inclusive date window.
type CandleFetcher interface {
	FetchCandles(ctx context.Context, pair string, start, end civil.Date) ([]model.Candle, error)
	Name() string
}

// SpotFetcher returns the last traded price of a pair.
type SpotFetcher interface {
	FetchSpot(ctx context.Context, pair string) (decimal.Decimal, error)
}

// SourceAdapter fetches a full monthly price-index series from one publisher.
type SourceAdapter interface {
	FetchSeries(ctx context.Context) (model.IndexSeries, error)
	Name() string
}

var (
	ErrRateLimited      = errors.New("rate limited by upstream")
	ErrNoData           = errors.New("no historical data for this instrument")
	ErrEmptySeries      = errors.New("index source returned no observations")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// SourceError wraps an upstream failure with the source and subject it concerned.
type SourceError struct {
	Source  string
	Subject string // pair id or series id
	Status  int    // HTTP status, 0 for transport and decode errors
	Err     error
}

func (e *SourceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("source=%s subject=%s status=%d: %v", e.Source, e.Subject, e.Status, e.Err)
	}
	return fmt.Sprintf("source=%s subject=%s: %v", e.Source, e.Subject, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func newSourceError(source, subject string, status int, err error) error {
	return &SourceError{Source: source, Subject: subject, Status: status, Err: err}
}
