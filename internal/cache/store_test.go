package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ATHWatch/internal/model"
)

var ath = model.PriceExtreme{
	Price: decimal.RequireFromString("4878.26"),
	Date:  civil.Date{Year: 2021, Month: time.November, Day: 10},
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	doc := s.Load(context.Background())
	require.NotNil(t, doc)
	assert.Empty(t, doc.Pairs)
	assert.Nil(t, doc.Inflation)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cache.json")
	s := NewFileStore(path)
	ctx := context.Background()

	doc := NewDocument()
	doc.SetExtreme("usd", ath, civil.Date{Year: 2026, Month: time.October, Day: 19})
	doc.Inflation = NewInflationEntry(model.Month{Year: 2026, Month: time.October}, map[string]model.IndexSeries{
		"cpi": {
			{Year: 2021, Month: time.November}:  decimal.RequireFromString("277.948"),
			{Year: 2026, Month: time.September}: decimal.RequireFromString("324.368"),
		},
	})
	require.NoError(t, s.Save(ctx, doc))

	got := s.Load(ctx)
	ext, ok := got.Extreme("usd")
	require.True(t, ok)
	assert.True(t, ext.Price.Equal(ath.Price))
	assert.Equal(t, ath.Date, ext.Date)
	assert.Equal(t, "2026-10-19", got.Pairs["usd"].Scanned().String())
	assert.True(t, got.Inflation.FreshFor(model.Month{Year: 2026, Month: time.October}, "cpi"))
	assert.Equal(t, map[string]string{"cpi": "2026-09"}, got.Inflation.LatestMonth)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"pairs\"", "cache stays human-readable")
	assert.Contains(t, string(raw), `"latest_month"`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	doc := NewFileStore(path).Load(context.Background())
	assert.Empty(t, doc.Pairs)
}

func TestFileStore_CorruptInflationKeepsPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	body := `{
	  "pairs": {"eur": {"price": "4228.93", "date": "2021-11-10"}},
	  "inflation": {"last_month": "2026-10", "series": {"hicp": {"bogus-month": "1"}}}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	doc := NewFileStore(path).Load(context.Background())
	_, ok := doc.Extreme("eur")
	assert.True(t, ok)
	assert.Nil(t, doc.Inflation)
}

func TestExtremeEntry_Validity(t *testing.T) {
	tests := []struct {
		name  string
		entry ExtremeEntry
		ok    bool
	}{
		{"valid", ExtremeEntry{Price: "4878.26", Date: "2021-11-10"}, true},
		{"missing price", ExtremeEntry{Date: "2021-11-10"}, false},
		{"missing date", ExtremeEntry{Price: "4878.26"}, false},
		{"bad price", ExtremeEntry{Price: "lots", Date: "2021-11-10"}, false},
		{"bad date", ExtremeEntry{Price: "4878.26", Date: "2021-13-45"}, false},
		{"zero price", ExtremeEntry{Price: "0", Date: "2021-11-10"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.entry.Extreme()
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestInflationEntry_FreshFor(t *testing.T) {
	oct := model.Month{Year: 2026, Month: time.October}
	entry := &InflationEntry{
		LastMonth: "2026-10",
		Series: map[string]model.IndexSeries{
			"cpi":  {oct: decimal.NewFromInt(1)},
			"hicp": {},
		},
	}
	assert.True(t, entry.FreshFor(oct, "cpi"))
	assert.False(t, entry.FreshFor(oct, "cpi", "hicp"), "empty series is unusable")
	assert.False(t, entry.FreshFor(model.Month{Year: 2026, Month: time.November}, "cpi"))

	var missing *InflationEntry
	assert.False(t, missing.FreshFor(oct))
}

func TestDocument_SetExtremeReportsChange(t *testing.T) {
	doc := &Document{}
	today := civil.Date{Year: 2026, Month: time.October, Day: 19}
	assert.True(t, doc.SetExtreme("usd", ath, today))
	assert.False(t, doc.SetExtreme("usd", ath, today))
	assert.True(t, doc.SetExtreme("usd", ath, today.AddDays(1)))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	assert.Empty(t, s.Load(ctx).Pairs)

	doc := s.Load(ctx)
	doc.SetExtreme("eur", ath, ath.Date)
	require.NoError(t, s.Save(ctx, doc))

	doc.Pairs["eur"] = ExtremeEntry{}
	_, ok := s.Load(ctx).Extreme("eur")
	assert.True(t, ok, "loads are isolated from later mutation")
	assert.Equal(t, 1, s.Saves())
}
