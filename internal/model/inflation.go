package model

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Month is a calendar month, serialized as YYYY-MM.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month enclosing d.
func MonthOf(d civil.Date) Month {
	return Month{Year: d.Year, Month: d.Month}
}

// ParseMonth parses YYYY-MM. A trailing day (YYYY-MM-DD) is accepted and dropped.
func ParseMonth(s string) (Month, error) {
	if len(s) >= 10 {
		d, err := civil.ParseDate(s[:10])
		if err != nil {
			return Month{}, fmt.Errorf("parse month %q: %w", s, err)
		}
		return MonthOf(d), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	p, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = p
	return nil
}

// IndexSeries maps calendar months to a price-index level (CPI, HICP, ...).
type IndexSeries map[Month]decimal.Decimal

// Months returns the series' months in chronological order.
func (s IndexSeries) Months() []Month {
	months := make([]Month, 0, len(s))
	for m := range s {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// Latest returns the most recent month in the series. ok is false for an empty series.
func (s IndexSeries) Latest() (m Month, ok bool) {
	for k := range s {
		if !ok || m.Before(k) {
			m, ok = k, true
		}
	}
	return m, ok
}
