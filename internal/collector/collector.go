package collector

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"ATHWatch/internal/model"
)

// MockFetcher serves fixed candles and spot prices for development and testing.
// It implements both CandleFetcher and SpotFetcher.
type MockFetcher struct {
	Candles map[string][]model.Candle // by pair id
	Spots   map[string]decimal.Decimal

	// ThrottleFirst makes the first N candle requests per pair answer ErrRateLimited.
	ThrottleFirst int
	// FailPair makes every request for that pair fail with a non-throttling error.
	FailPair string

	mu         sync.Mutex
	pageCalls  map[string]int
	spotCalls  map[string]int
	throttled  map[string]int
	lastWindow map[string][2]civil.Date
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) init() {
	if m.pageCalls == nil {
		m.pageCalls = make(map[string]int)
		m.spotCalls = make(map[string]int)
		m.throttled = make(map[string]int)
		m.lastWindow = make(map[string][2]civil.Date)
	}
}

func (m *MockFetcher) FetchCandles(_ context.Context, pair string, start, end civil.Date) ([]model.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.pageCalls[pair]++
	m.lastWindow[pair] = [2]civil.Date{start, end}

	if pair == m.FailPair {
		return nil, newSourceError(m.Name(), pair, 500, fmt.Errorf("internal error"))
	}
	if m.throttled[pair] < m.ThrottleFirst {
		m.throttled[pair]++
		return nil, newSourceError(m.Name(), pair, 429, ErrRateLimited)
	}

	var page []model.Candle
	for _, c := range m.Candles[pair] {
		d := c.Day()
		if !d.Before(start) && !d.After(end) {
			page = append(page, c)
		}
	}
	return page, nil
}

func (m *MockFetcher) FetchSpot(_ context.Context, pair string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.spotCalls[pair]++

	if pair == m.FailPair {
		return decimal.Zero, newSourceError(m.Name(), pair, 503, fmt.Errorf("unavailable"))
	}
	p, ok := m.Spots[pair]
	if !ok {
		return decimal.Zero, newSourceError(m.Name(), pair, 404, fmt.Errorf("unknown pair"))
	}
	return p, nil
}

// PageCalls returns how many candle pages were requested for pair.
func (m *MockFetcher) PageCalls(pair string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageCalls[pair]
}

// SpotCalls returns how many spot prices were requested for pair.
func (m *MockFetcher) SpotCalls(pair string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spotCalls[pair]
}

// LastWindow returns the most recent window requested for pair.
func (m *MockFetcher) LastWindow(pair string) (start, end civil.Date) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.lastWindow[pair]
	return w[0], w[1]
}

// MockSource returns a fixed index series.
type MockSource struct {
	ID     string
	Series model.IndexSeries
	Err    error

	mu    sync.Mutex
	calls int
}

func (s *MockSource) Name() string { return s.ID }

func (s *MockSource) FetchSeries(context.Context) (model.IndexSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(model.IndexSeries, len(s.Series))
	for k, v := range s.Series {
		out[k] = v
	}
	return out, nil
}

// Calls returns how many times the series was fetched.
func (s *MockSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
