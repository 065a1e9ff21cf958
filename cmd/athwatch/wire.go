package main

import (
	"log"

	"github.com/shopspring/decimal"

	"ATHWatch/internal/cache"
	"ATHWatch/internal/collector"
	"ATHWatch/internal/config"
	"ATHWatch/internal/metrics"
	"ATHWatch/internal/model"
	"ATHWatch/internal/recorder"
)

// newAggregator builds the metrics engine from configuration.
func newAggregator(cfg *config.Config) (*metrics.Aggregator, error) {
	usdEpoch, eurEpoch, err := cfg.Epochs()
	if err != nil {
		return nil, err
	}

	client := collector.NewHTTPClient(cfg.HTTPTimeout, cfg.Proxy)
	coinbase := collector.NewCoinbaseFetcher(cfg.Sources.CoinbaseURL, client)
	log.Printf("[INFO] data source: %s", coinbase.Name())

	disc := collector.NewDiscoverer(coinbase)
	disc.WindowDays = cfg.Discovery.WindowDays
	disc.PageDelay = cfg.Discovery.PageDelay
	disc.Retry = collector.RetryPolicy{
		MaxAttempts: cfg.Discovery.MaxAttempts,
		Delay:       cfg.Discovery.RetryDelay,
	}

	usd := metrics.Leg{
		Key:    "usd",
		Pair:   model.Pair{ID: cfg.Pairs.USD.ID, Currency: "USD", Epoch: usdEpoch},
		Source: collector.NewFREDSource(cfg.Sources.FREDURL, cfg.Sources.FREDSeries, client),
	}
	eur := metrics.Leg{
		Key:    "eur",
		Pair:   model.Pair{ID: cfg.Pairs.EUR.ID, Currency: "EUR", Epoch: eurEpoch},
		Source: collector.NewEurostatSource(cfg.Sources.EurostatURL, client),
	}

	return metrics.NewAggregator(
		cache.NewFileStore(cfg.Cache.Path),
		disc,
		collector.NewCachedSpotFetcher(coinbase, cfg.SpotCacheTTL()),
		usd, eur,
		metrics.Options{
			Milestone:    decimal.NewFromFloat(cfg.Milestone),
			ExtendCached: cfg.Discovery.ExtendCached,
		},
	), nil
}

// newRecorder opens the SQLite history, falling back to a no-op recorder.
func newRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}
