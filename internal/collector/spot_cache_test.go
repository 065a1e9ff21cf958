package collector

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedSpotFetcher(t *testing.T) {
	mock := &MockFetcher{Spots: map[string]decimal.Decimal{"ETH-USD": d("3000")}}
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

	c := NewCachedSpotFetcher(mock, 10*time.Second)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		p, err := c.FetchSpot(context.Background(), "ETH-USD")
		require.NoError(t, err)
		assert.Equal(t, "3000", p.String())
	}
	assert.Equal(t, 1, mock.SpotCalls("ETH-USD"))

	now = now.Add(11 * time.Second)
	_, err := c.FetchSpot(context.Background(), "ETH-USD")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.SpotCalls("ETH-USD"))
}

func TestCachedSpotFetcher_Disabled(t *testing.T) {
	mock := &MockFetcher{Spots: map[string]decimal.Decimal{"ETH-EUR": d("2700")}}
	c := NewCachedSpotFetcher(mock, 0)
	for i := 0; i < 2; i++ {
		_, err := c.FetchSpot(context.Background(), "ETH-EUR")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, mock.SpotCalls("ETH-EUR"))
}

func TestCachedSpotFetcher_DoesNotCacheErrors(t *testing.T) {
	mock := &MockFetcher{}
	c := NewCachedSpotFetcher(mock, time.Minute)
	_, err := c.FetchSpot(context.Background(), "ETH-USD")
	assert.Error(t, err)
	_, err = c.FetchSpot(context.Background(), "ETH-USD")
	assert.Error(t, err)
	assert.Equal(t, 2, mock.SpotCalls("ETH-USD"))
}
