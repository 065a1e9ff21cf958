package calculator

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"ATHWatch/internal/model"
)

var (
	ErrEmptySeries     = errors.New("index series is empty")
	ErrMonthNotCovered = errors.New("month not covered by index series")
)

// Factor is an inflation multiplier together with the index months it was taken from.
type Factor struct {
	Value     decimal.Decimal
	FromMonth model.Month
	ToMonth   model.Month
}

// Fallback reports whether the target month had to be replaced by the latest published one.
func (f Factor) Fallback(to civil.Date) bool {
	return f.ToMonth != model.MonthOf(to)
}

// Multiplier returns index[month(to)] / index[month(from)].
// If the target month has not been published yet, the latest available month is used instead.
// The base month must be present.
func Multiplier(series model.IndexSeries, from, to civil.Date) (Factor, error) {
	latest, ok := series.Latest()
	if !ok {
		return Factor{}, ErrEmptySeries
	}

	fromMonth, toMonth := model.MonthOf(from), model.MonthOf(to)
	if _, ok := series[toMonth]; !ok {
		toMonth = latest
	}
	base, ok := series[fromMonth]
	if !ok {
		return Factor{}, fmt.Errorf("base %s: %w", fromMonth, ErrMonthNotCovered)
	}
	if !base.IsPositive() {
		return Factor{}, fmt.Errorf("base %s: non-positive index %s", fromMonth, base)
	}

	return Factor{
		Value:     series[toMonth].Div(base),
		FromMonth: fromMonth,
		ToMonth:   toMonth,
	}, nil
}
