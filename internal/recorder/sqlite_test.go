package recorder

import (
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ATHWatch/internal/model"
)

func sampleMetrics(asOf civil.Date, spot string) *model.MetricsResult {
	leg := func(cur, pair string) model.CurrencyMetrics {
		return model.CurrencyMetrics{
			Currency:    cur,
			Pair:        pair,
			ATH:         decimal.RequireFromString("4878.26"),
			ATHDate:     civil.Date{Year: 2021, Month: 11, Day: 10},
			Factor:      decimal.RequireFromString("1.3"),
			IndexSource: "cpi",
			FromMonth:   model.Month{Year: 2021, Month: 11},
			ToMonth:     model.MonthOf(asOf),
			AdjustedATH: decimal.RequireFromString("6341.74"),
			Spot:        decimal.RequireFromString(spot),
			PercentToGo: decimal.RequireFromString("111.39"),
			Milestone:   decimal.RequireFromString("13000"),
		}
	}
	return &model.MetricsResult{AsOf: asOf, USD: leg("USD", "ETH-USD"), EUR: leg("EUR", "ETH-EUR")}
}

func TestSQLiteRecorderRoundTrip(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer r.Close()

	day := civil.Date{Year: 2026, Month: 9, Day: 15}
	require.NoError(t, r.RecordMetrics(sampleMetrics(day, "3000")))
	require.NoError(t, r.RecordMetrics(sampleMetrics(day.AddDays(1), "3100")))

	snaps, err := r.Recent(10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	latest := snaps[0].Metrics
	assert.Equal(t, day.AddDays(1), latest.AsOf)
	assert.Equal(t, "3100", latest.USD.Spot.String())
	assert.Equal(t, "ETH-EUR", latest.EUR.Pair)
	assert.Equal(t, model.Month{Year: 2021, Month: 11}, latest.USD.FromMonth)
	assert.Equal(t, civil.Date{Year: 2021, Month: 11, Day: 10}, latest.USD.ATHDate)
	assert.Equal(t, "3000", snaps[1].Metrics.USD.Spot.String())

	only, err := r.Recent(1)
	require.NoError(t, err)
	assert.Len(t, only, 1)
}

func TestSQLiteRecorderDamagedRow(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RecordMetrics(sampleMetrics(civil.Date{Year: 2026, Month: 9, Day: 15}, "3000")))
	_, err = r.db.Exec(`UPDATE metrics_snapshots SET spot = 'n/a' WHERE currency = 'EUR'`)
	require.NoError(t, err)

	var snaps []Snapshot
	require.NotPanics(t, func() { snaps, err = r.Recent(5) })
	assert.Nil(t, snaps)
	assert.ErrorContains(t, err, "snapshot EUR spot")
}

func TestSQLiteRecorderAlert(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RecordAlert(&AlertEvent{
		Currency: "USD", Spot: "6400", AdjustedATH: "6341.74", PercentToGo: "-0.91",
	}))

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM alerts`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestNoopRecorder(t *testing.T) {
	r := NewNoopRecorder()
	assert.NoError(t, r.RecordMetrics(sampleMetrics(civil.Date{Year: 2026, Month: 1, Day: 1}, "1")))
	snaps, err := r.Recent(5)
	assert.NoError(t, err)
	assert.Empty(t, snaps)
}
