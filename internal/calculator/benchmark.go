package calculator

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	pricePlaces  = 2
	factorPlaces = 4
)

var hundred = decimal.NewFromInt(100)

// RoundFactor rounds a multiplier for display.
func RoundFactor(f decimal.Decimal) decimal.Decimal {
	return f.Round(factorPlaces)
}

// AdjustedATH expresses a past price in present purchasing power, rounded to cents.
func AdjustedATH(price, factor decimal.Decimal) decimal.Decimal {
	return price.Mul(factor).Round(pricePlaces)
}

// PercentToGo is how far spot must rise, in percent, to reach target.
// Negative means spot is already above target.
func PercentToGo(target, spot decimal.Decimal) (decimal.Decimal, error) {
	if !spot.IsPositive() {
		return decimal.Zero, errors.New("spot price must be positive")
	}
	return target.Sub(spot).Div(spot).Mul(hundred).Round(pricePlaces), nil
}

// Milestone scales a nominal target by the inflation factor.
func Milestone(target, factor decimal.Decimal) decimal.Decimal {
	return target.Mul(factor).Round(pricePlaces)
}
