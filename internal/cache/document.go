package cache

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"ATHWatch/internal/model"
)

// ExtremeEntry is the cached ATH for one quote currency. Fields are kept as
// text so a damaged entry degrades to a miss instead of failing the whole document.
type ExtremeEntry struct {
	Price          string `json:"price"`
	Date           string `json:"date"`
	ScannedThrough string `json:"scanned_through,omitempty"`
}

// Extreme parses the entry. ok is false when a field is missing or does not parse.
func (e ExtremeEntry) Extreme() (ext model.PriceExtreme, ok bool) {
	if e.Price == "" || e.Date == "" {
		return model.PriceExtreme{}, false
	}
	price, err := decimal.NewFromString(e.Price)
	if err != nil {
		return model.PriceExtreme{}, false
	}
	date, err := civil.ParseDate(e.Date)
	if err != nil {
		return model.PriceExtreme{}, false
	}
	ext = model.PriceExtreme{Price: price, Date: date}
	return ext, ext.Valid()
}

// Scanned returns the last day covered by discovery, defaulting to the ATH date.
func (e ExtremeEntry) Scanned() civil.Date {
	if d, err := civil.ParseDate(e.ScannedThrough); err == nil {
		return d
	}
	d, _ := civil.ParseDate(e.Date)
	return d
}

// NewExtremeEntry records ext as discovered over history up to scannedThrough.
func NewExtremeEntry(ext model.PriceExtreme, scannedThrough civil.Date) ExtremeEntry {
	return ExtremeEntry{
		Price:          ext.Price.String(),
		Date:           ext.Date.String(),
		ScannedThrough: scannedThrough.String(),
	}
}

// InflationEntry holds the index series fetched during LastMonth.
// LatestMonth records each series' newest published month at fetch time.
type InflationEntry struct {
	LastMonth   string                       `json:"last_month"`
	LatestMonth map[string]string            `json:"latest_month,omitempty"`
	Series      map[string]model.IndexSeries `json:"series"`
}

// NewInflationEntry tags series as fetched during month.
func NewInflationEntry(month model.Month, series map[string]model.IndexSeries) *InflationEntry {
	latest := make(map[string]string, len(series))
	for name, s := range series {
		if m, ok := s.Latest(); ok {
			latest[name] = m.String()
		}
	}
	return &InflationEntry{LastMonth: month.String(), LatestMonth: latest, Series: series}
}

// FreshFor reports whether the entry was fetched during month and holds every named series.
func (e *InflationEntry) FreshFor(month model.Month, sources ...string) bool {
	if e == nil || e.LastMonth != month.String() {
		return false
	}
	for _, name := range sources {
		if len(e.Series[name]) == 0 {
			return false
		}
	}
	return true
}

// Document is the whole persisted cache.
type Document struct {
	Pairs     map[string]ExtremeEntry `json:"pairs"`
	Inflation *InflationEntry         `json:"inflation,omitempty"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Pairs: make(map[string]ExtremeEntry)}
}

// Extreme returns the cached extreme for a currency key ("usd", "eur").
func (d *Document) Extreme(key string) (model.PriceExtreme, bool) {
	e, ok := d.Pairs[key]
	if !ok {
		return model.PriceExtreme{}, false
	}
	return e.Extreme()
}

// SetExtreme stores ext for key and reports whether the document changed.
func (d *Document) SetExtreme(key string, ext model.PriceExtreme, scannedThrough civil.Date) bool {
	if d.Pairs == nil {
		d.Pairs = make(map[string]ExtremeEntry)
	}
	next := NewExtremeEntry(ext, scannedThrough)
	if d.Pairs[key] == next {
		return false
	}
	d.Pairs[key] = next
	return true
}
