package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ATHWatch/internal/cache"
	"ATHWatch/internal/calculator"
	"ATHWatch/internal/collector"
	"ATHWatch/internal/model"
)

// ErrDataUnavailable marks a computation aborted by an upstream failure.
var ErrDataUnavailable = errors.New("market data unavailable")

// ErrAsOfBeforeATH rejects a computation day earlier than the resolved all-time high.
var ErrAsOfBeforeATH = errors.New("as_of precedes the all-time high")

// Leg ties a quote currency to its pair and the price index used to deflate it.
type Leg struct {
	Key    string // cache key and result slot: "usd" or "eur"
	Pair   model.Pair
	Source collector.SourceAdapter
}

// Options tunes an Aggregator.
type Options struct {
	// Milestone is a round nominal target reported in present money.
	Milestone decimal.Decimal
	// ExtendCached rescans the days after a cached ATH's last scan instead of trusting it forever.
	ExtendCached bool
}

// Aggregator computes MetricsResult from the cache, the candle history, the
// price indices and live spot prices. Calls are serialized: the cache is read,
// updated and written back by one computation at a time.
type Aggregator struct {
	store      cache.Store
	discoverer *collector.Discoverer
	spot       collector.SpotFetcher
	usd, eur   Leg
	opts       Options
	now        func() time.Time

	mu sync.Mutex
}

// NewAggregator wires the engine. usd and eur must carry distinct keys.
func NewAggregator(store cache.Store, disc *collector.Discoverer, spot collector.SpotFetcher, usd, eur Leg, opts Options) *Aggregator {
	return &Aggregator{
		store:      store,
		discoverer: disc,
		spot:       spot,
		usd:        usd,
		eur:        eur,
		opts:       opts,
		now:        time.Now,
	}
}

// Today returns the current UTC calendar day.
func (a *Aggregator) Today() civil.Date {
	return civil.DateOf(a.now().UTC())
}

// GetMetrics computes the full result as of asOf; the zero date means today.
// No partial result is returned: any fatal condition aborts the computation.
func (a *Aggregator) GetMetrics(ctx context.Context, asOf civil.Date) (*model.MetricsResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if asOf == (civil.Date{}) {
		asOf = a.Today()
	}
	start := time.Now()
	doc := a.store.Load(ctx)

	// The ATH is always resolved up to today; asOf only selects the inflation target.
	extremes, extErr := a.resolveExtremes(ctx, doc, a.Today())
	changed := a.storeExtremes(doc, extremes)

	var series map[string]model.IndexSeries
	if extErr == nil {
		var refreshed bool
		var err error
		series, refreshed, err = a.resolveInflation(ctx, doc, asOf)
		if err != nil {
			return nil, err
		}
		changed = changed || refreshed
	}

	// Persist whatever was discovered before anything else can fail.
	if changed {
		if err := a.store.Save(ctx, doc); err != nil {
			log.Printf("[ERROR] save cache: %v", err)
		}
	}
	if extErr != nil {
		return nil, extErr
	}
	for _, leg := range a.legs() {
		if ath := extremes[leg.Key].extreme; asOf.Before(ath.Date) {
			return nil, fmt.Errorf("%s ATH on %s, as_of %s: %w", leg.Pair.ID, ath.Date, asOf, ErrAsOfBeforeATH)
		}
	}

	spots, err := a.fetchSpots(ctx)
	if err != nil {
		return nil, err
	}

	result := &model.MetricsResult{AsOf: asOf}
	for _, leg := range a.legs() {
		ext := extremes[leg.Key].extreme
		cm, err := a.derive(leg, ext, series[leg.Source.Name()], spots[leg.Key], asOf)
		if err != nil {
			return nil, err
		}
		switch leg.Key {
		case a.usd.Key:
			result.USD = cm
		case a.eur.Key:
			result.EUR = cm
		}
	}

	log.Printf("[INFO] metrics as of %s computed in %v: USD %s%% to go, EUR %s%% to go",
		asOf, time.Since(start).Round(time.Millisecond), result.USD.PercentToGo, result.EUR.PercentToGo)
	return result, nil
}

func (a *Aggregator) legs() []Leg {
	return []Leg{a.usd, a.eur}
}

type resolvedExtreme struct {
	extreme model.PriceExtreme
	scanned civil.Date
	fresh   bool // discovered or extended during this call
}

// resolveExtremes reads each leg's ATH from the cache or discovers it. Legs run
// concurrently; results of legs that succeeded are returned even when another failed.
func (a *Aggregator) resolveExtremes(ctx context.Context, doc *cache.Document, today civil.Date) (map[string]resolvedExtreme, error) {
	var mu sync.Mutex
	out := make(map[string]resolvedExtreme, 2)

	g, gctx := errgroup.WithContext(ctx)
	for _, leg := range a.legs() {
		leg := leg
		entry, hasEntry := doc.Pairs[leg.Key]
		g.Go(func() error {
			res, err := a.resolveExtreme(gctx, leg, entry, hasEntry, today)
			if err != nil {
				return err
			}
			mu.Lock()
			out[leg.Key] = res
			mu.Unlock()
			return nil
		})
	}
	return out, g.Wait()
}

func (a *Aggregator) resolveExtreme(ctx context.Context, leg Leg, entry cache.ExtremeEntry, hasEntry bool, today civil.Date) (resolvedExtreme, error) {
	if hasEntry {
		if cached, ok := entry.Extreme(); ok {
			scanned := entry.Scanned()
			if !a.opts.ExtendCached || !scanned.Before(today) {
				return resolvedExtreme{extreme: cached, scanned: scanned}, nil
			}
			return a.extend(ctx, leg, cached, scanned, today)
		}
		log.Printf("[WARN] [%s] cached ATH unusable, rediscovering", leg.Pair.ID)
	}

	ext, err := a.discoverer.Discover(ctx, leg.Pair, today)
	if err != nil {
		return resolvedExtreme{}, classify(fmt.Sprintf("discover %s ATH", leg.Pair.ID), err)
	}
	return resolvedExtreme{extreme: ext, scanned: today, fresh: true}, nil
}

// extend scans only the days after the cached scan and keeps the higher extreme.
func (a *Aggregator) extend(ctx context.Context, leg Leg, cached model.PriceExtreme, scanned, today civil.Date) (resolvedExtreme, error) {
	recent, err := a.discoverer.Scan(ctx, leg.Pair.ID, scanned.AddDays(1), today)
	switch {
	case errors.Is(err, collector.ErrNoData):
		recent = cached
	case err != nil:
		return resolvedExtreme{}, classify(fmt.Sprintf("extend %s ATH", leg.Pair.ID), err)
	}
	return resolvedExtreme{
		extreme: calculator.FoldExtreme(cached, true, recent),
		scanned: today,
		fresh:   true,
	}, nil
}

func (a *Aggregator) storeExtremes(doc *cache.Document, extremes map[string]resolvedExtreme) bool {
	changed := false
	for key, res := range extremes {
		if !res.fresh {
			continue
		}
		if doc.SetExtreme(key, res.extreme, res.scanned) {
			changed = true
		}
	}
	return changed
}

// resolveInflation returns every leg's index series, refetching all of them
// when the cached copy was not fetched during asOf's month. A past asOf is
// served from series fetched this month.
func (a *Aggregator) resolveInflation(ctx context.Context, doc *cache.Document, asOf civil.Date) (map[string]model.IndexSeries, bool, error) {
	month := model.MonthOf(asOf)
	if current := model.MonthOf(a.Today()); month.Before(current) {
		month = current
	}
	names := make([]string, 0, 2)
	for _, leg := range a.legs() {
		names = append(names, leg.Source.Name())
	}
	if doc.Inflation.FreshFor(month, names...) {
		return doc.Inflation.Series, false, nil
	}

	log.Printf("[INFO] inflation cache stale for %s, fetching %v", month, names)
	var mu sync.Mutex
	series := make(map[string]model.IndexSeries, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for _, leg := range a.legs() {
		src := leg.Source
		g.Go(func() error {
			s, err := src.FetchSeries(gctx)
			if err != nil {
				return classify("fetch "+src.Name()+" series", err)
			}
			if latest, ok := s.Latest(); ok {
				log.Printf("[INFO] %s series: %d months, latest %s", src.Name(), len(s), latest)
			}
			mu.Lock()
			series[src.Name()] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	doc.Inflation = cache.NewInflationEntry(month, series)
	return series, true, nil
}

func (a *Aggregator) fetchSpots(ctx context.Context) (map[string]decimal.Decimal, error) {
	var mu sync.Mutex
	out := make(map[string]decimal.Decimal, 2)
	g, gctx := errgroup.WithContext(ctx)
	for _, leg := range a.legs() {
		leg := leg
		g.Go(func() error {
			p, err := a.spot.FetchSpot(gctx, leg.Pair.ID)
			if err != nil {
				return classify("fetch "+leg.Pair.ID+" spot", err)
			}
			mu.Lock()
			out[leg.Key] = p
			mu.Unlock()
			return nil
		})
	}
	return out, g.Wait()
}

func (a *Aggregator) derive(leg Leg, ext model.PriceExtreme, series model.IndexSeries, spot decimal.Decimal, asOf civil.Date) (model.CurrencyMetrics, error) {
	factor, err := calculator.Multiplier(series, ext.Date, asOf)
	if err != nil {
		return model.CurrencyMetrics{}, fmt.Errorf("%s inflation factor: %w", leg.Source.Name(), err)
	}
	if factor.Fallback(asOf) {
		log.Printf("[INFO] %s has no %s yet, using %s", leg.Source.Name(), model.MonthOf(asOf), factor.ToMonth)
	}

	adjusted := calculator.AdjustedATH(ext.Price, factor.Value)
	toGo, err := calculator.PercentToGo(adjusted, spot)
	if err != nil {
		return model.CurrencyMetrics{}, fmt.Errorf("%s: %w", leg.Pair.ID, err)
	}
	rounded := calculator.RoundFactor(factor.Value)

	return model.CurrencyMetrics{
		Currency:    leg.Pair.Currency,
		Pair:        leg.Pair.ID,
		ATH:         ext.Price,
		ATHDate:     ext.Date,
		Factor:      rounded,
		IndexSource: leg.Source.Name(),
		FromMonth:   factor.FromMonth,
		ToMonth:     factor.ToMonth,
		AdjustedATH: adjusted,
		Spot:        spot,
		PercentToGo: toGo,
		Milestone:   calculator.Milestone(a.opts.Milestone, rounded),
	}, nil
}

// classify tags upstream failures as ErrDataUnavailable. No-data and
// cancellation keep their own identity.
func classify(stage string, err error) error {
	if errors.Is(err, collector.ErrNoData) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return fmt.Errorf("%s: %w: %w", stage, ErrDataUnavailable, err)
}
