package model

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Pair identifies a traded instrument quoted in one currency.
type Pair struct {
	ID       string     // exchange product id, e.g. "ETH-USD"
	Currency string     // quote currency, e.g. "USD"
	Epoch    civil.Date // earliest plausible trading day
}

// Candle represents a single daily bar.
type Candle struct {
	Time   time.Time
	Low    decimal.Decimal
	High   decimal.Decimal
	Open   decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// Day returns the UTC calendar day the candle opened on.
func (c Candle) Day() civil.Date {
	return civil.DateOf(c.Time.UTC())
}

// PriceExtreme is the highest observed high and the day it occurred.
type PriceExtreme struct {
	Price decimal.Decimal
	Date  civil.Date
}

// Valid reports whether the extreme carries a positive price and a real date.
func (p PriceExtreme) Valid() bool {
	return p.Price.IsPositive() && p.Date.IsValid()
}
