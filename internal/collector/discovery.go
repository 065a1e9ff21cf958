package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/civil"

	"ATHWatch/internal/calculator"
	"ATHWatch/internal/model"
)

const (
	// MaxWindowDays is the widest window the candle endpoint serves in one page.
	MaxWindowDays    = 300
	DefaultPageDelay = 110 * time.Millisecond
)

// Discoverer scans a pair's daily history page by page for its highest high.
type Discoverer struct {
	Fetcher    CandleFetcher
	Retry      RetryPolicy
	WindowDays int
	PageDelay  time.Duration
}

// NewDiscoverer creates a Discoverer with the default window, page delay and retry policy.
func NewDiscoverer(fetcher CandleFetcher) *Discoverer {
	return &Discoverer{
		Fetcher:    fetcher,
		Retry:      DefaultRetryPolicy,
		WindowDays: MaxWindowDays,
		PageDelay:  DefaultPageDelay,
	}
}

// Discover scans [pair.Epoch, today]. It fails with ErrNoData if no page returned any candle.
func (d *Discoverer) Discover(ctx context.Context, pair model.Pair, today civil.Date) (model.PriceExtreme, error) {
	return d.Scan(ctx, pair.ID, pair.Epoch, today)
}

// Scan finds the highest high over [from, to].
func (d *Discoverer) Scan(ctx context.Context, pairID string, from, to civil.Date) (model.PriceExtreme, error) {
	windows := calculator.SplitWindows(from, to, d.WindowDays)
	log.Printf("[INFO] [%s] scanning %s..%s in %d pages via %s", pairID, from, to, len(windows), d.Fetcher.Name())

	var (
		best  model.PriceExtreme
		found bool
	)
	for i, w := range windows {
		if i > 0 {
			if err := sleep(ctx, d.PageDelay); err != nil {
				return model.PriceExtreme{}, err
			}
		}

		var candles []model.Candle
		label := fmt.Sprintf("[%s] page %s..%s", pairID, w.Start, w.End)
		err := d.Retry.Do(ctx, label, func(ctx context.Context) error {
			var err error
			candles, err = d.Fetcher.FetchCandles(ctx, pairID, w.Start, w.End)
			return err
		})
		if err != nil {
			return model.PriceExtreme{}, fmt.Errorf("fetch %s: %w", label, err)
		}

		if page, ok := calculator.MaxHigh(candles); ok {
			best = calculator.FoldExtreme(best, found, page)
			found = true
		}
	}

	if !found {
		return model.PriceExtreme{}, fmt.Errorf("%s %s..%s: %w", pairID, from, to, ErrNoData)
	}
	log.Printf("[INFO] [%s] highest high %s on %s", pairID, best.Price, best.Date)
	return best, nil
}
